// Package config loads leapquery configuration from defaults, the
// leapquery.yaml file, LEAPQUERY_* environment variables and command-line
// flags, in increasing order of precedence.
package config

import "github.com/leapstack-labs/leapquery/pkg/core"

// Config holds all CLI configuration options.
type Config struct {
	Dialect      string               `koanf:"dialect"`
	Manifest     string               `koanf:"manifest"`
	Output       string               `koanf:"output"`
	LogLevel     string               `koanf:"log_level"`
	Environment  string               `koanf:"environment"`
	// History is the run history database; empty disables recording.
	History      string               `koanf:"history"`
	Target       *TargetConfig        `koanf:"target"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the directory relative paths resolve against.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific overrides.
type EnvConfig struct {
	Dialect string        `koanf:"dialect"`
	Target  *TargetConfig `koanf:"target"`
}

// TargetConfig holds database target configuration.
type TargetConfig struct {
	Type string `koanf:"type"` // postgres, mysql, sqlite, mssql, duckdb

	// File path for sqlite and duckdb, database name otherwise
	Database string `koanf:"database"`

	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Schema   string `koanf:"schema"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`

	// Params holds adapter-specific configuration (e.g., DuckDB extensions, secrets, settings)
	Params map[string]any `koanf:"params"`
}

// AdapterConfig converts the target into the adapter connection settings.
func (t *TargetConfig) AdapterConfig() core.AdapterConfig {
	cfg := core.AdapterConfig{
		Type:     t.Type,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
		Params:   t.Params,
	}
	switch t.Type {
	case "sqlite", "duckdb":
		cfg.Path = t.Database
	}
	return cfg
}
