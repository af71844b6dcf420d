// Package core defines the shared language of the leapquery system.
//
// This package contains:
//   - The query AST (statement roots, table sources, expressions, joins)
//   - Schema metadata (TableDef, ColumnDef, RelationDef)
//   - Service interfaces (Executor, Transactor)
//   - Dialect configuration data and the compiled query shape
//   - The error taxonomy shared by every layer
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
