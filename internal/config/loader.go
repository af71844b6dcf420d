package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable the loader reads.
// LEAPQUERY_LOG_LEVEL sets log_level; a double underscore descends into
// nested keys, so LEAPQUERY_TARGET__PASSWORD sets target.password.
const EnvPrefix = "LEAPQUERY_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Result is a loaded configuration plus where it came from.
type Result struct {
	*Config
	// File is the config file that was read, or "" when none was found.
	File string
}

// findConfigFile returns the config file in dir, or "".
func findConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// FindProjectRoot searches upward from startDir for a leapquery config
// file. Returns "" if none is found within maxUpwardSearchLevels.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if findConfigFile(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// Load reads configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// An explicit cfgFile must exist; otherwise the file is searched upward
// from the working directory and is optional.
func Load(cfgFile string, flags *pflag.FlagSet) (*Result, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"manifest":  DefaultManifest,
		"output":    DefaultOutput,
		"log_level": DefaultLogLevel,
		"history":   DefaultHistory,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := cfgFile
	if used == "" {
		if cwd, err := os.Getwd(); err == nil {
			if root := FindProjectRoot(cwd); root != "" {
				used = findConfigFile(root)
			}
		}
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment variables
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if key == "env" {
				key = "environment"
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ProjectRoot, _ = os.Getwd()
	if used != "" {
		if abs, err := filepath.Abs(used); err == nil {
			cfg.ProjectRoot = filepath.Dir(abs)
		}
	}
	cfg.Manifest = resolvePathRelativeTo(cfg.Manifest, cfg.ProjectRoot)
	if cfg.History != ":memory:" {
		cfg.History = resolvePathRelativeTo(cfg.History, cfg.ProjectRoot)
	}

	if err := cfg.applyEnvironment(); err != nil {
		return nil, err
	}
	if cfg.Target != nil {
		cfg.Target.ApplyDefaults()
		expandTargetEnvVars(cfg.Target)
		if cfg.Target.Type == "sqlite" || cfg.Target.Type == "duckdb" {
			if cfg.Target.Database != ":memory:" {
				cfg.Target.Database = resolvePathRelativeTo(cfg.Target.Database, cfg.ProjectRoot)
			}
		}
	}
	if cfg.Dialect == "" {
		cfg.Dialect = DefaultDialect
		if cfg.Target != nil {
			cfg.Dialect = DialectForTarget(cfg.Target.Type)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Result{Config: &cfg, File: used}, nil
}

// applyEnvironment merges the selected environment's overrides.
func (c *Config) applyEnvironment() error {
	if c.Environment == "" {
		return nil
	}
	envCfg, ok := c.Environments[c.Environment]
	if !ok {
		return fmt.Errorf("unknown environment %q", c.Environment)
	}
	if envCfg.Dialect != "" {
		c.Dialect = envCfg.Dialect
	}
	c.Target = MergeTargetConfig(c.Target, envCfg.Target)
	return nil
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// expandEnvVars expands ${VAR} patterns with environment variable values.
// Unset variables are left as written.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

// expandTargetEnvVars expands environment variables in credential fields.
func expandTargetEnvVars(t *TargetConfig) {
	t.Password = expandEnvVars(t.Password)
	t.User = expandEnvVars(t.User)
	t.Host = expandEnvVars(t.Host)
	t.Database = expandEnvVars(t.Database)
}

// MergeTargetConfig merges two target configs, with override taking precedence.
func MergeTargetConfig(base, override *TargetConfig) *TargetConfig {
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
	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.Host != "" {
		merged.Host = override.Host
	}
	if override.Port != 0 {
		merged.Port = override.Port
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
