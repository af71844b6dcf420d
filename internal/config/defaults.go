package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/adapter"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

// Default configuration values.
const (
	ConfigFileName    = "leapquery.yaml"
	ConfigFileNameAlt = "leapquery.yml"
	DefaultManifest   = "manifest.yaml"
	DefaultOutput     = "table"
	DefaultLogLevel   = "warn"
	DefaultDialect    = "postgres"
	DefaultHistory    = ".leapquery/history.db"
)

// defaultPorts are the well-known ports of the network targets.
var defaultPorts = map[string]int{
	"postgres": 5432,
	"mysql":    3306,
	"mssql":    1433,
}

// ApplyDefaults fills in the port for network targets.
func (t *TargetConfig) ApplyDefaults() {
	if t == nil {
		return
	}
	t.Type = strings.ToLower(t.Type)
	if t.Port == 0 {
		t.Port = defaultPorts[t.Type]
	}
}

// DialectForTarget returns the dialect statements for the target type are
// compiled with.
func DialectForTarget(targetType string) string {
	return adapter.DialectOf(targetType)
}

// Validate checks that the configured dialect and target adapter are
// registered.
func (c *Config) Validate() error {
	if c.Dialect == "" {
		return dialect.ErrDialectRequired
	}
	if _, err := dialect.Resolve(c.Dialect); err != nil {
		return err
	}
	switch c.Output {
	case "table", "json", "sql":
	default:
		return fmt.Errorf("unknown output format %q (want table, json or sql)", c.Output)
	}
	if c.Target != nil {
		if err := c.Target.Validate(); err != nil {
			return fmt.Errorf("invalid target configuration: %w", err)
		}
	}
	return nil
}

// Validate checks if the target configuration is valid.
// It uses the adapter registry to determine which adapter types are available.
func (t *TargetConfig) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(t.Type) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}
