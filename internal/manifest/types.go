// Package manifest loads table, relation and named query definitions from
// YAML. Loading is the registration step that produces the read-only
// TableDef graph every query is built against.
package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is the on-disk manifest layout.
type Document struct {
	Tables  []TableSpec `yaml:"tables"`
	Queries []QuerySpec `yaml:"queries"`
}

// TableSpec declares a table.
type TableSpec struct {
	Name       string         `yaml:"name"`
	Schema     string         `yaml:"schema"`
	PrimaryKey string         `yaml:"primary_key"`
	Columns    []ColumnSpec   `yaml:"columns"`
	Relations  []RelationSpec `yaml:"relations"`
}

// ColumnSpec declares a column. A bare string is shorthand for a column
// with only a name.
type ColumnSpec struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
}

// UnmarshalYAML accepts either a scalar name or a mapping.
func (c *ColumnSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		c.Name = node.Value
		return nil
	}
	type plain ColumnSpec
	return node.Decode((*plain)(c))
}

// RelationSpec declares a relation from the enclosing table. Keys left
// empty are inferred from the table names.
type RelationSpec struct {
	Name            string   `yaml:"name"`
	Type            string   `yaml:"type"` // has_one, has_many, belongs_to, belongs_to_many
	Target          string   `yaml:"target"`
	ForeignKey      string   `yaml:"foreign_key"`
	LocalKey        string   `yaml:"local_key"`
	PivotTable      string   `yaml:"pivot_table"`
	PivotForeignKey string   `yaml:"pivot_foreign_key"`
	PivotTargetKey  string   `yaml:"pivot_target_key"`
	TargetKey       string   `yaml:"target_key"`
	PivotPrimaryKey string   `yaml:"pivot_primary_key"`
	PivotColumns    []string `yaml:"pivot_columns"`
}

// QuerySpec declares a named select query.
type QuerySpec struct {
	Name     string        `yaml:"name"`
	From     string        `yaml:"from"`
	Columns  []string      `yaml:"columns"`
	Distinct bool          `yaml:"distinct"`
	Include  []IncludeSpec `yaml:"include"`
	Where    []Condition   `yaml:"where"`
	OrderBy  []string      `yaml:"order_by"` // "column" or "-column" for descending
	Limit    *int          `yaml:"limit"`
	Offset   *int          `yaml:"offset"`
}

// IncludeSpec includes a relation. A bare string is shorthand for a
// LEFT include of every target column.
type IncludeSpec struct {
	Relation string      `yaml:"relation"`
	Kind     string      `yaml:"kind"` // left (default) or inner
	Columns  []string    `yaml:"columns"`
	Where    []Condition `yaml:"where"`
}

// UnmarshalYAML accepts either a scalar relation name or a mapping.
func (s *IncludeSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.Relation = node.Value
		return nil
	}
	type plain IncludeSpec
	return node.Decode((*plain)(s))
}

// Condition is one predicate. Column is "column" (qualified with the
// query's table) or "table.column".
type Condition struct {
	Column string `yaml:"column"`
	Op     string `yaml:"op"`
	Value  any    `yaml:"value"`
}

// LoadError points at the manifest entry that failed.
type LoadError struct {
	Path  string // manifest file, if loaded from disk
	Entry string // e.g. `table "users"` or `query "recent_posts"`
	Err   error
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Entry, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Entry, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
