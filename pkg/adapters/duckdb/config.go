package duckdb

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds DuckDB-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// Extensions to install and load (e.g., "httpfs", "spatial", "json")
	Extensions []string `mapstructure:"extensions"`

	// Secrets for cloud storage authentication
	Secrets []SecretConfig `mapstructure:"secrets"`

	// Settings to apply at session level (e.g., memory_limit, threads)
	Settings map[string]string `mapstructure:"settings"`
}

// SecretConfig defines a DuckDB secret for cloud storage.
type SecretConfig struct {
	// Type: "s3", "gcs", "azure", "r2", "huggingface"
	Type string `mapstructure:"type"`

	// Provider: "config", "credential_chain", "service_account", etc.
	Provider string `mapstructure:"provider"`

	Region string `mapstructure:"region,omitempty"`

	// Scope limits the secret to specific paths (string or []string)
	Scope any `mapstructure:"scope,omitempty"`

	KeyID  string `mapstructure:"key_id,omitempty"`
	Secret string `mapstructure:"secret,omitempty"`

	// Endpoint for S3-compatible services (MinIO, etc.)
	Endpoint string `mapstructure:"endpoint,omitempty"`

	// URLStyle: "vhost" or "path" for S3
	URLStyle string `mapstructure:"url_style,omitempty"`

	UseSSL *bool `mapstructure:"use_ssl,omitempty"`
}

// parseParams decodes adapter params. Nil params decode to an empty struct.
func parseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if len(raw) == 0 {
		return p, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid duckdb params: %w", err)
	}
	return p, nil
}

// setupStatements returns the statements run after connecting: extension
// installs, settings in key order, then secrets.
func (p *Params) setupStatements() ([]string, error) {
	var stmts []string
	for _, ext := range p.Extensions {
		if !isIdent(ext) {
			return nil, fmt.Errorf("invalid extension name %q", ext)
		}
		stmts = append(stmts, "INSTALL "+ext, "LOAD "+ext)
	}

	keys := make([]string, 0, len(p.Settings))
	for k := range p.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !isIdent(k) {
			return nil, fmt.Errorf("invalid setting name %q", k)
		}
		stmts = append(stmts, fmt.Sprintf("SET %s = %s", k, quote(p.Settings[k])))
	}

	for _, s := range p.Secrets {
		stmt, err := buildCreateSecretSQL(s)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// buildCreateSecretSQL renders a CREATE SECRET statement for s.
func buildCreateSecretSQL(s SecretConfig) (string, error) {
	if !isIdent(s.Type) {
		return "", fmt.Errorf("invalid secret type %q", s.Type)
	}
	opts := []string{"TYPE " + s.Type}
	if s.Provider != "" {
		if !isIdent(s.Provider) {
			return "", fmt.Errorf("invalid secret provider %q", s.Provider)
		}
		opts = append(opts, "PROVIDER "+s.Provider)
	}
	add := func(key, v string) {
		if v != "" {
			opts = append(opts, key+" "+quote(v))
		}
	}
	add("REGION", s.Region)
	add("KEY_ID", s.KeyID)
	add("SECRET", s.Secret)
	add("ENDPOINT", s.Endpoint)
	add("URL_STYLE", s.URLStyle)
	if s.UseSSL != nil {
		opts = append(opts, fmt.Sprintf("USE_SSL %t", *s.UseSSL))
	}

	var scopes []string
	switch scope := s.Scope.(type) {
	case nil:
	case string:
		scopes = []string{scope}
	case []string:
		scopes = scope
	case []any:
		for _, v := range scope {
			scopes = append(scopes, fmt.Sprint(v))
		}
	default:
		return "", fmt.Errorf("secret scope must be a string or a list, got %T", s.Scope)
	}
	switch len(scopes) {
	case 0:
	case 1:
		opts = append(opts, "SCOPE "+quote(scopes[0]))
	default:
		quoted := make([]string, len(scopes))
		for i, v := range scopes {
			quoted[i] = quote(v)
		}
		opts = append(opts, "SCOPE ("+strings.Join(quoted, ", ")+")")
	}

	return "CREATE SECRET (\n    " + strings.Join(opts, ",\n    ") + "\n)", nil
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
