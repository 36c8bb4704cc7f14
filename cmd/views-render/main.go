// views-render renders one template through a manager built from a JSON or
// YAML configuration file.
//
// Usage:
//
//	views-render --config views.yaml [--data data.yaml] [--output out.html] TEMPLATE
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-views/pkg/config"
	"github.com/goliatone/go-views/pkg/engine"
	"github.com/goliatone/go-views/pkg/manager"
	"github.com/goliatone/go-views/pkg/settings"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		configPath string
		dataPath   string
		output     string
		layout     string
		noLayout   bool
		verbose    bool
	)

	flagSet := pflag.NewFlagSet("views-render", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&configPath, "config", "c", "views.yaml", "manager configuration file (JSON or YAML)")
	flagSet.StringVarP(&dataPath, "data", "d", "", "render context file (JSON or YAML)")
	flagSet.StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	flagSet.StringVar(&layout, "layout", "", "layout template name for this render")
	flagSet.BoolVar(&noLayout, "no-layout", false, "disable the configured layout")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("expected exactly one template name, got %d", flagSet.NArg())
	}
	if layout != "" && noLayout {
		return fmt.Errorf("--layout and --no-layout are mutually exclusive")
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	file, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg, err := file.ManagerConfig(config.DefaultFactory)
	if err != nil {
		return err
	}
	m, err := manager.New(cfg, manager.WithLogger(logger))
	if err != nil {
		return err
	}

	data, err := readData(dataPath)
	if err != nil {
		return err
	}

	var overrides *settings.Overrides
	switch {
	case noLayout:
		overrides = &settings.Overrides{Layout: settings.LayoutOf(settings.NoLayout())}
	case layout != "":
		overrides = &settings.Overrides{Layout: settings.LayoutOf(settings.NamedLayout(layout))}
	}

	out, err := m.Render(ctx, flagSet.Arg(0), data, overrides)
	if err != nil {
		return err
	}

	if output == "" {
		_, err = io.WriteString(stdout, out)
		return err
	}
	if err := os.WriteFile(output, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	logger.Info("views: output written", "path", output)
	return nil
}

func readData(path string) (engine.Context, error) {
	if path == "" {
		return engine.Context{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data %s: %w", path, err)
	}
	data := engine.Context{}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err == nil {
		return data, nil
	}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse data %s: invalid JSON or YAML: %w", path, err)
	}
	return data, nil
}
