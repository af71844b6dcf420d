package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/expr"
	"github.com/leapstack-labs/leapquery/pkg/query"
)

// Manifest is a loaded table graph plus its named queries.
type Manifest struct {
	Tables  map[string]*core.TableDef
	queries map[string]QuerySpec
}

// Load reads and registers the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(bytes.NewReader(data))
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
		}
		return nil, err
	}
	return m, nil
}

// Parse reads a manifest document. Unknown keys are rejected.
func Parse(r io.Reader) (*Manifest, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return Build(doc)
}

// Build registers a decoded document: tables first, then relations, so
// relations may point at tables declared later.
func Build(doc Document) (*Manifest, error) {
	m := &Manifest{
		Tables:  make(map[string]*core.TableDef, len(doc.Tables)),
		queries: make(map[string]QuerySpec, len(doc.Queries)),
	}

	for _, ts := range doc.Tables {
		entry := fmt.Sprintf("table %q", ts.Name)
		if ts.Name == "" {
			return nil, &LoadError{Entry: "table", Err: errors.New("name is required")}
		}
		if _, dup := m.Tables[ts.Name]; dup {
			return nil, &LoadError{Entry: entry, Err: errors.New("declared twice")}
		}
		def := core.NewTable(ts.Name)
		def.Schema = ts.Schema
		if ts.PrimaryKey != "" {
			def.PrimaryKey = ts.PrimaryKey
		}
		for _, c := range ts.Columns {
			if c.Name == "" {
				return nil, &LoadError{Entry: entry, Err: errors.New("column name is required")}
			}
			def.Columns = append(def.Columns, core.ColumnDef{
				Name:     c.Name,
				Table:    ts.Name,
				Type:     c.Type,
				Nullable: c.Nullable,
			})
		}
		m.Tables[ts.Name] = def
	}

	for _, ts := range doc.Tables {
		def := m.Tables[ts.Name]
		for _, rs := range ts.Relations {
			entry := fmt.Sprintf("table %q relation %q", ts.Name, rs.Name)
			rel, err := m.relation(rs)
			if err != nil {
				return nil, &LoadError{Entry: entry, Err: err}
			}
			if _, dup := def.Relations[rs.Name]; dup {
				return nil, &LoadError{Entry: entry, Err: errors.New("declared twice")}
			}
			def.Relations[rs.Name] = rel
		}
	}

	for _, qs := range doc.Queries {
		entry := fmt.Sprintf("query %q", qs.Name)
		if qs.Name == "" {
			return nil, &LoadError{Entry: "query", Err: errors.New("name is required")}
		}
		if _, dup := m.queries[qs.Name]; dup {
			return nil, &LoadError{Entry: entry, Err: errors.New("declared twice")}
		}
		m.queries[qs.Name] = qs
		if _, err := m.Query(qs.Name); err != nil {
			return nil, &LoadError{Entry: entry, Err: err}
		}
	}
	return m, nil
}

func (m *Manifest) relation(rs RelationSpec) (core.RelationDef, error) {
	if rs.Name == "" {
		return nil, errors.New("name is required")
	}
	target, ok := m.Tables[rs.Target]
	if !ok {
		return nil, fmt.Errorf("unknown target table %q", rs.Target)
	}
	switch normalizeType(rs.Type) {
	case "hasmany":
		return core.HasMany{Target: target, ForeignKey: rs.ForeignKey, LocalKey: rs.LocalKey}, nil
	case "hasone":
		return core.HasOne{Target: target, ForeignKey: rs.ForeignKey, LocalKey: rs.LocalKey}, nil
	case "belongsto":
		return core.BelongsTo{Target: target, ForeignKey: rs.ForeignKey, LocalKey: rs.LocalKey}, nil
	case "belongstomany":
		return core.BelongsToMany{
			Target:                  target,
			PivotTable:              rs.PivotTable,
			PivotForeignKeyToRoot:   rs.PivotForeignKey,
			PivotForeignKeyToTarget: rs.PivotTargetKey,
			LocalKey:                rs.LocalKey,
			TargetKey:               rs.TargetKey,
			PivotPrimaryKey:         rs.PivotPrimaryKey,
			PivotColumns:            rs.PivotColumns,
		}, nil
	default:
		return nil, fmt.Errorf("unknown relation type %q (want has_one, has_many, belongs_to or belongs_to_many)", rs.Type)
	}
}

// normalizeType folds has_many, hasMany and has-many together.
func normalizeType(t string) string {
	return strings.NewReplacer("_", "", "-", "").Replace(strings.ToLower(t))
}

// Table returns a registered table.
func (m *Manifest) Table(name string) (*core.TableDef, bool) {
	t, ok := m.Tables[name]
	return t, ok
}

// QueryNames lists the named queries in sorted order.
func (m *Manifest) QueryNames() []string {
	names := make([]string, 0, len(m.queries))
	for n := range m.queries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Query builds the named query.
func (m *Manifest) Query(name string) (query.SelectQuery, error) {
	qs, ok := m.queries[name]
	if !ok {
		return query.SelectQuery{}, fmt.Errorf("unknown query %q (available: %s)", name, strings.Join(m.QueryNames(), ", "))
	}
	root, ok := m.Tables[qs.From]
	if !ok {
		return query.SelectQuery{}, fmt.Errorf("unknown table %q", qs.From)
	}

	q := query.Select(root)
	if len(qs.Columns) > 0 {
		cols := make([]any, len(qs.Columns))
		for i, c := range qs.Columns {
			cols[i] = c
		}
		q = q.Columns(cols...)
	}
	if qs.Distinct {
		q = q.Distinct()
	}
	for _, inc := range qs.Include {
		opts, err := includeOptions(inc)
		if err != nil {
			return query.SelectQuery{}, err
		}
		q = q.Include(inc.Relation, opts...)
	}
	for _, c := range qs.Where {
		cond, err := condition(qs.From, c)
		if err != nil {
			return query.SelectQuery{}, err
		}
		q = q.Where(cond)
	}
	for _, o := range qs.OrderBy {
		q = q.OrderBy(orderItem(qs.From, o))
	}
	if qs.Limit != nil {
		q = q.Limit(*qs.Limit)
	}
	if qs.Offset != nil {
		q = q.Offset(*qs.Offset)
	}
	if err := q.Err(); err != nil {
		return query.SelectQuery{}, err
	}
	return q, nil
}

func includeOptions(inc IncludeSpec) ([]query.IncludeOption, error) {
	var opts []query.IncludeOption
	switch strings.ToLower(inc.Kind) {
	case "", "left":
	case "inner":
		opts = append(opts, query.IncludeKind(core.JoinInner))
	default:
		return nil, fmt.Errorf("include %q: unknown kind %q (want left or inner)", inc.Relation, inc.Kind)
	}
	if len(inc.Columns) > 0 {
		opts = append(opts, query.IncludeColumns(inc.Columns...))
	}
	if len(inc.Where) > 0 {
		conds := make([]core.Expr, 0, len(inc.Where))
		for _, c := range inc.Where {
			cond, err := condition("", c)
			if err != nil {
				return nil, fmt.Errorf("include %q: %w", inc.Relation, err)
			}
			conds = append(conds, cond)
		}
		opts = append(opts, query.IncludeFilter(expr.And(conds...)))
	}
	return opts, nil
}

// column resolves "table.column" or a bare column qualified with table.
func column(table, name string) *core.ColumnRef {
	if t, c, ok := strings.Cut(name, "."); ok {
		return expr.Col(t, c)
	}
	if table == "" {
		return expr.Column(name)
	}
	return expr.Col(table, name)
}

func orderItem(table, spec string) core.OrderByItem {
	if name, ok := strings.CutPrefix(spec, "-"); ok {
		return expr.Desc(column(table, name))
	}
	return expr.Asc(column(table, spec))
}

// condition turns a declared predicate into an expression. List operators
// take a YAML sequence; between takes a two element sequence.
func condition(table string, c Condition) (core.Expr, error) {
	if c.Column == "" {
		return nil, errors.New("condition column is required")
	}
	col := column(table, c.Column)
	switch strings.ToLower(c.Op) {
	case "eq", "=", "":
		return expr.Eq(col, c.Value), nil
	case "ne", "!=", "<>":
		return expr.Ne(col, c.Value), nil
	case "gt", ">":
		return expr.Gt(col, c.Value), nil
	case "gte", ">=":
		return expr.Gte(col, c.Value), nil
	case "lt", "<":
		return expr.Lt(col, c.Value), nil
	case "lte", "<=":
		return expr.Lte(col, c.Value), nil
	case "like":
		return expr.Like(col, fmt.Sprint(c.Value)), nil
	case "ilike":
		return expr.ILike(col, fmt.Sprint(c.Value)), nil
	case "in":
		return expr.InList(col, c.Value), nil
	case "not_in":
		return expr.NotInList(col, c.Value), nil
	case "is_null":
		return expr.IsNull(col), nil
	case "is_not_null":
		return expr.IsNotNull(col), nil
	case "between":
		bounds, ok := c.Value.([]any)
		if !ok || len(bounds) != 2 {
			return nil, fmt.Errorf("between on %s needs a [low, high] value", c.Column)
		}
		return expr.Between(col, bounds[0], bounds[1]), nil
	default:
		return nil, fmt.Errorf("unknown operator %q", c.Op)
	}
}
