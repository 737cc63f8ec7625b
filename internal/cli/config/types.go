// Package config loads relq's CLI configuration from files, environment
// variables, and command-line flags.
//
// Precedence, highest to lowest: flags > RELQ_ environment variables >
// config file > defaults. Connection targets are declared in relq.yaml as
// a base target block plus optional named overrides under targets,
// selected with --target or the default_target key.
package config

import (
	"github.com/leapstack-labs/relq/pkg/adapter"
)

// Default configuration values.
const (
	DefaultStateFile = ".relq/history.db"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel  = "warn"
)

// Config holds all CLI configuration options.
type Config struct {
	StatePath     string             `koanf:"state_path"`
	LogLevel      string             `koanf:"log_level"`
	OutputFormat  string             `koanf:"output"`
	DefaultTarget string             `koanf:"default_target"`
	Target        *Target            `koanf:"target"`
	Targets       map[string]*Target `koanf:"targets"`

	// Resolved during load, not read from any key.
	ProjectRoot string `koanf:"-"`
	ConfigFile  string `koanf:"-"`
	TargetName  string `koanf:"-"`
}

// Target holds one database connection declaration. It mirrors
// adapter.Config with koanf tags so relq.yaml unmarshals directly.
type Target struct {
	Type string `koanf:"type"` // duckdb, postgres, sqlite

	// File-backed engines (DuckDB, SQLite)
	Path string `koanf:"path"`

	// Server engines
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Common
	Schema string `koanf:"schema"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`

	// Params holds adapter-specific configuration (e.g. DuckDB extensions
	// and settings) that the concrete adapter decodes itself.
	Params map[string]any `koanf:"params"`
}

// AdapterConfig converts the target into the adapter package's config.
func (t *Target) AdapterConfig() adapter.Config {
	return adapter.Config{
		Type:     t.Type,
		Path:     t.Path,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
		Params:   t.Params,
	}
}

// MergeTarget merges two targets, with override taking precedence for
// every set field. Options and Params merge key-wise.
func MergeTarget(base, override *Target) *Target {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := *base
	merged.Options = make(map[string]string, len(base.Options)+len(override.Options))
	merged.Params = make(map[string]any, len(base.Params)+len(override.Params))
	for k, v := range base.Options {
		merged.Options[k] = v
	}
	for k, v := range base.Params {
		merged.Params[k] = v
	}

	if override.Type != "" {
		merged.Type = override.Type
	}
	if override.Path != "" {
		merged.Path = override.Path
	}
	if override.Host != "" {
		merged.Host = override.Host
	}
	if override.Port != 0 {
		merged.Port = override.Port
	}
	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.User != "" {
		merged.User = override.User
	}
	if override.Password != "" {
		merged.Password = override.Password
	}
	if override.Schema != "" {
		merged.Schema = override.Schema
	}
	for k, v := range override.Options {
		merged.Options[k] = v
	}
	for k, v := range override.Params {
		merged.Params[k] = v
	}

	return &merged
}
