// Package mssql provides the SQL Server dialect definition.
// This package is pure Go with no database driver dependencies.
package mssql

import "github.com/leapstack-labs/leapquery/pkg/core"

// Config is the SQL Server dialect configuration.
var Config = &core.DialectConfig{
	Name:          "mssql",
	DefaultSchema: "dbo",
	Placeholder:   core.PlaceholderAtP,
	Identifiers: core.IdentifierConfig{
		Quote:    "[",
		QuoteEnd: "]",
		Escape:   "]]",
	},
	// OFFSET/FETCH requires ORDER BY; the compiler synthesizes one when missing.
	Pagination: core.PaginateOffsetFetch,
	Upsert:     core.UpsertMerge,
	Procedures: core.ProceduresExec,
	Returning:  core.ReturningOutput,

	BooleansAsBits: true,

	// Filtered indexes.
	SupportsPartialIndexes: true,
	SupportsFullJoin:       true,
	UpdateJoins:            core.UpdateJoinsFromTarget,
	DeleteJoins:            core.DeleteJoinsTarget,
}
