package core

// OutParamSource says which result set carries stored procedure OUT values.
type OutParamSource string

// OutParamSource values.
const (
	FirstResultSet OutParamSource = "firstResultSet"
	LastResultSet  OutParamSource = "lastResultSet"
)

// OutParams describes how to read OUT/INOUT values after a procedure call.
type OutParams struct {
	Source OutParamSource
	Names  []string // declaration order
}

// CompiledQuery is SQL text plus its ordered parameters. It is produced
// fresh per compilation and never mutated afterwards.
type CompiledQuery struct {
	SQL       string
	Params    []any
	OutParams *OutParams
}
