package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure classes raised while building or
// compiling a statement. Every typed error below matches its sentinel
// through errors.Is.
var (
	// ErrInvalidOperand is returned when an expression builder receives a malformed operand.
	ErrInvalidOperand = errors.New("invalid operand")

	// ErrUnknownRelation is returned when a join or include names an undeclared relation.
	ErrUnknownRelation = errors.New("unknown relation")

	// ErrUnsupportedFeature is returned when a dialect lacks a requested capability.
	ErrUnsupportedFeature = errors.New("unsupported feature")

	// ErrMissingDbType is returned when a SQL Server OUT/INOUT parameter has no declared type.
	ErrMissingDbType = errors.New("missing dbType")

	// ErrUnsupportedDialect is returned when a dialect key cannot be resolved.
	ErrUnsupportedDialect = errors.New("unsupported dialect")

	// ErrTransactionUnsupported is returned when a transaction is requested on an executor without one.
	ErrTransactionUnsupported = errors.New("transactions not supported by executor")
)

// InvalidOperandError reports a rejected expression construction.
type InvalidOperandError struct {
	Builder string // the builder that rejected the operand, e.g. "Eq"
	Reason  string
	Suggest string // builder to use instead, if any
}

func (e *InvalidOperandError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Builder, e.Reason)
	if e.Suggest != "" {
		msg += fmt.Sprintf("; use %s for list comparisons", e.Suggest)
	}
	return msg
}

// Is reports whether target is ErrInvalidOperand.
func (e *InvalidOperandError) Is(target error) bool {
	return target == ErrInvalidOperand
}

// UnknownRelationError reports a relation name missing from a table's metadata.
type UnknownRelationError struct {
	Table    string
	Relation string
}

func (e *UnknownRelationError) Error() string {
	return fmt.Sprintf("unknown relation %q on table %q", e.Relation, e.Table)
}

// Is reports whether target is ErrUnknownRelation.
func (e *UnknownRelationError) Is(target error) bool {
	return target == ErrUnknownRelation
}

// UnsupportedFeatureError reports a capability gap in a dialect.
type UnsupportedFeatureError struct {
	Dialect string
	Feature string
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("%s are not supported by the %s dialect", e.Feature, DisplayName(e.Dialect))
}

// Is reports whether target is ErrUnsupportedFeature.
func (e *UnsupportedFeatureError) Is(target error) bool {
	return target == ErrUnsupportedFeature
}

// MissingDbTypeError reports an output parameter without a declared type.
type MissingDbTypeError struct {
	Dialect string
	Param   string
}

func (e *MissingDbTypeError) Error() string {
	return fmt.Sprintf("%s: output parameter %q requires an explicit dbType", e.Dialect, e.Param)
}

// Is reports whether target is ErrMissingDbType.
func (e *MissingDbTypeError) Is(target error) bool {
	return target == ErrMissingDbType
}

// UnsupportedDialectError reports a dialect key that is not registered.
type UnsupportedDialectError struct {
	Name      string
	Available []string
}

func (e *UnsupportedDialectError) Error() string {
	return fmt.Sprintf("unsupported dialect %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// Is reports whether target is ErrUnsupportedDialect.
func (e *UnsupportedDialectError) Is(target error) bool {
	return target == ErrUnsupportedDialect
}

// DisplayName maps registry keys to the names users know the databases by.
func DisplayName(dialect string) string {
	switch strings.ToLower(dialect) {
	case "postgres":
		return "PostgreSQL"
	case "mysql":
		return "MySQL"
	case "sqlite":
		return "SQLite"
	case "mssql":
		return "SQL Server"
	default:
		return dialect
	}
}
