package core

// DialectConfig holds the static configuration for a SQL dialect.
// This is pure data with no handler functions.
//
// The runtime behavior (function renderers) lives in pkg/dialect.Dialect,
// which embeds this config.
type DialectConfig struct {
	// Name is the dialect identifier (e.g., "postgres", "mssql")
	Name string

	// Identifiers defines quoting rules
	Identifiers IdentifierConfig

	// DefaultSchema is the default schema name ("public" for Postgres, "dbo" for SQL Server)
	DefaultSchema string

	// Placeholder defines how query parameters are formatted
	Placeholder PlaceholderStyle

	// Pagination selects LIMIT/OFFSET or OFFSET/FETCH syntax
	Pagination PaginationStyle

	// OffsetOnlyLimit is the LIMIT text emitted when a query has an OFFSET
	// but no LIMIT and the dialect does not accept a bare OFFSET.
	OffsetOnlyLimit string

	// Upsert selects the insert-or-update syntax
	Upsert UpsertStyle

	// Procedures selects the stored procedure calling convention
	Procedures ProcedureStyle

	// Returning selects how modified rows are returned
	Returning ReturningStyle

	// BackslashEscapes means backslash is an escape character inside string literals
	BackslashEscapes bool

	// BooleansAsBits renders inlined boolean literals as 1/0 instead of TRUE/FALSE
	BooleansAsBits bool

	// Feature flags
	SupportsDistinctOn     bool
	SupportsFullJoin       bool
	RecursiveKeyword       bool // WITH RECURSIVE rather than a bare WITH
	SupportsILike          bool
	SupportsPartialIndexes bool
	SupportsNullsOrdering  bool
	UpdateJoins            UpdateJoinStyle
	DeleteJoins            DeleteJoinStyle
}

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for all parameters (MySQL, SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, etc. for parameters (PostgreSQL).
	PlaceholderDollar
	// PlaceholderAtP uses @p1, @p2, etc. for parameters (SQL Server).
	PlaceholderAtP
)

// IdentifierConfig defines how identifiers are quoted.
type IdentifierConfig struct {
	Quote    string // Quote character: ", `, [
	QuoteEnd string // End quote character (usually same as Quote, ] for [)
	Escape   string // Escape sequence for QuoteEnd inside a name: "", ``, ]]
}

// PaginationStyle selects the row-limiting syntax.
type PaginationStyle int

const (
	// PaginateLimitOffset renders LIMIT n OFFSET m.
	PaginateLimitOffset PaginationStyle = iota
	// PaginateOffsetFetch renders OFFSET m ROWS FETCH NEXT n ROWS ONLY and needs ORDER BY.
	PaginateOffsetFetch
)

// UpsertStyle selects the insert-or-update syntax.
type UpsertStyle int

const (
	// UpsertOnConflict renders ON CONFLICT (...) DO UPDATE / DO NOTHING.
	UpsertOnConflict UpsertStyle = iota
	// UpsertOnDuplicateKey renders ON DUPLICATE KEY UPDATE.
	UpsertOnDuplicateKey
	// UpsertMerge renders a MERGE statement.
	UpsertMerge
)

// ProcedureStyle selects the stored procedure calling convention.
type ProcedureStyle int

const (
	// ProceduresUnsupported means the dialect has no stored procedures.
	ProceduresUnsupported ProcedureStyle = iota
	// ProceduresCall renders CALL proc(...) and reads OUT values from the first result set.
	ProceduresCall
	// ProceduresSessionVars binds OUT values to session variables read back by a trailing SELECT.
	ProceduresSessionVars
	// ProceduresExec declares typed output variables and uses EXEC.
	ProceduresExec
)

// ReturningStyle selects how modified rows are returned.
type ReturningStyle int

const (
	// ReturningUnsupported means RETURNING requests fail to compile.
	ReturningUnsupported ReturningStyle = iota
	// ReturningClause renders a trailing RETURNING list.
	ReturningClause
	// ReturningOutput renders an OUTPUT INSERTED.* / DELETED.* clause.
	ReturningOutput
)

// UpdateJoinStyle selects how UPDATE statements with joins are rendered.
type UpdateJoinStyle int

const (
	// UpdateJoinsFrom renders UPDATE t SET ... FROM j ... WHERE.
	UpdateJoinsFrom UpdateJoinStyle = iota
	// UpdateJoinsInline renders UPDATE t JOIN j ON ... SET ....
	UpdateJoinsInline
	// UpdateJoinsFromTarget renders UPDATE t SET ... FROM t JOIN j ON ....
	UpdateJoinsFromTarget
)

// DeleteJoinStyle selects how DELETE statements with joins are rendered.
type DeleteJoinStyle int

const (
	// DeleteJoinsUnsupported rejects DELETE with joins or USING.
	DeleteJoinsUnsupported DeleteJoinStyle = iota
	// DeleteJoinsUsing renders DELETE FROM t USING j WHERE ....
	DeleteJoinsUsing
	// DeleteJoinsTarget renders DELETE t FROM t JOIN j ON ....
	DeleteJoinsTarget
)
