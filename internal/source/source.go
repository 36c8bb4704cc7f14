// Package source reads template files and encodes rendered output using the
// configured character encoding.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// Read returns the file contents decoded from enc.
func Read(ctx context.Context, path, enc string) (string, error) {
	if path == "" {
		return "", errors.New("source: path is required")
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Decode(data, enc)
}

// Decode converts raw bytes in enc to a Go string.
func Decode(data []byte, enc string) (string, error) {
	if isUTF8(enc) {
		return string(data), nil
	}
	codec, err := lookup(enc)
	if err != nil {
		return "", err
	}
	out, err := codec.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("source: decode %s: %w", enc, err)
	}
	return string(out), nil
}

// Encode converts a rendered string to bytes in enc.
func Encode(text, enc string) ([]byte, error) {
	if isUTF8(enc) {
		return []byte(text), nil
	}
	codec, err := lookup(enc)
	if err != nil {
		return nil, err
	}
	out, err := codec.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("source: encode %s: %w", enc, err)
	}
	return out, nil
}

// Supported reports whether enc names a known encoding.
func Supported(enc string) bool {
	if isUTF8(enc) {
		return true
	}
	_, err := lookup(enc)
	return err == nil
}

func lookup(enc string) (encoding.Encoding, error) {
	codec, err := htmlindex.Get(strings.TrimSpace(enc))
	if err != nil {
		return nil, fmt.Errorf("source: unsupported encoding %q: %w", enc, err)
	}
	return codec, nil
}

func isUTF8(enc string) bool {
	switch strings.ToLower(strings.TrimSpace(enc)) {
	case "", "utf8", "utf-8":
		return true
	default:
		return false
	}
}
