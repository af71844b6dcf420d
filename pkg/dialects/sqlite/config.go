// Package sqlite provides the SQLite SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package sqlite

import "github.com/leapstack-labs/leapquery/pkg/core"

// Config is the SQLite dialect configuration.
var Config = &core.DialectConfig{
	Name:          "sqlite",
	DefaultSchema: "main",
	Placeholder:   core.PlaceholderQuestion,
	Identifiers: core.IdentifierConfig{
		Quote:    `"`,
		QuoteEnd: `"`,
		Escape:   `""`,
	},
	// A negative LIMIT means no limit in SQLite.
	OffsetOnlyLimit: "-1",
	Pagination:      core.PaginateLimitOffset,
	Upsert:          core.UpsertOnConflict,
	Procedures:      core.ProceduresUnsupported,
	Returning:       core.ReturningClause,

	SupportsFullJoin:       true,
	RecursiveKeyword:       true,
	SupportsPartialIndexes: true,
	SupportsNullsOrdering:  true,
	UpdateJoins:            core.UpdateJoinsFrom,
	DeleteJoins:            core.DeleteJoinsUnsupported,
}
