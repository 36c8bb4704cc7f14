// Package settings holds the layered view configuration: built-in defaults,
// manager-level options, per-engine overrides and per-render overrides.
// Layers merge shallowly; a set field replaces the lower layer's value
// wholesale, including slices and maps.
package settings
