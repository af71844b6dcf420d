// Package postgres provides the PostgreSQL SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package postgres

import "github.com/leapstack-labs/leapquery/pkg/core"

// Config is the PostgreSQL dialect configuration.
// This is pure data - accessible by both Adapter and Compiler.
var Config = &core.DialectConfig{
	Name:          "postgres",
	DefaultSchema: "public",
	Placeholder:   core.PlaceholderDollar,
	Identifiers: core.IdentifierConfig{
		Quote:    `"`,
		QuoteEnd: `"`,
		Escape:   `""`,
	},
	Pagination: core.PaginateLimitOffset,
	Upsert:     core.UpsertOnConflict,
	Procedures: core.ProceduresCall,
	Returning:  core.ReturningClause,

	SupportsDistinctOn:     true,
	SupportsFullJoin:       true,
	RecursiveKeyword:       true,
	SupportsILike:          true,
	SupportsPartialIndexes: true,
	SupportsNullsOrdering:  true,
	UpdateJoins:            core.UpdateJoinsFrom,
	DeleteJoins:            core.DeleteJoinsUsing,
}
