// Package all registers every built-in dialect.
package all

import (
	// Register dialects.
	_ "github.com/leapstack-labs/leapquery/pkg/dialects/mssql"
	_ "github.com/leapstack-labs/leapquery/pkg/dialects/mysql"
	_ "github.com/leapstack-labs/leapquery/pkg/dialects/postgres"
	_ "github.com/leapstack-labs/leapquery/pkg/dialects/sqlite"
)
