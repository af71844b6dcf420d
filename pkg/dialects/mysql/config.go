// Package mysql provides the MySQL SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package mysql

import "github.com/leapstack-labs/leapquery/pkg/core"

// Config is the MySQL dialect configuration.
var Config = &core.DialectConfig{
	Name:        "mysql",
	Placeholder: core.PlaceholderQuestion,
	Identifiers: core.IdentifierConfig{
		Quote:    "`",
		QuoteEnd: "`",
		Escape:   "``",
	},
	// MySQL has no bare OFFSET; the documented idiom is the largest BIGINT UNSIGNED.
	OffsetOnlyLimit:  "18446744073709551615",
	Pagination:       core.PaginateLimitOffset,
	Upsert:           core.UpsertOnDuplicateKey,
	Procedures:       core.ProceduresSessionVars,
	Returning:        core.ReturningUnsupported,
	BackslashEscapes: true,

	// MySQL does NOT support these:
	// - DISTINCT ON
	// - ILIKE (rendered as LOWER(a) LIKE LOWER(b))
	// - partial indexes
	// - NULLS FIRST/LAST
	// - DELETE ... USING with joins in the USING list
	// - FULL JOIN
	RecursiveKeyword: true,
	UpdateJoins:      core.UpdateJoinsInline,
	DeleteJoins:      core.DeleteJoinsTarget,
}
