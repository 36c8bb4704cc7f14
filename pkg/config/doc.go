// Package config loads manager configuration from JSON or YAML files and
// turns it into a manager.Config through an adapter Factory.
package config
