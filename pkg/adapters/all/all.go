// Package all registers every built-in adapter.
package all

import (
	// Register adapters.
	_ "github.com/leapstack-labs/leapquery/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapquery/pkg/adapters/mssql"
	_ "github.com/leapstack-labs/leapquery/pkg/adapters/mysql"
	_ "github.com/leapstack-labs/leapquery/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapquery/pkg/adapters/sqlite"
)
