package rel

import (
	"fmt"
	"strings"
)

// SchemaResolutionError reports a column reference that does not exist in
// the schema it was resolved against. Table is the best-effort description
// of the relation searched and may be empty.
type SchemaResolutionError struct {
	Table  string
	Column string
}

func (e *SchemaResolutionError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("column %q not found", e.Column)
	}
	return fmt.Sprintf("column %q not found in %s", e.Column, e.Table)
}

// TypeMismatchError reports operand types that do not satisfy an operator's
// typing rule and share no promoted type. Op is the operator's name and may
// be empty when the mismatch arose from a bare promotion.
type TypeMismatchError struct {
	Op    string
	Left  DataType
	Right DataType
}

func (e *TypeMismatchError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("no common type for %s and %s", e.Left, e.Right)
	}
	return fmt.Sprintf("%s: incompatible types %s and %s", e.Op, e.Left, e.Right)
}

// DuplicateColumnError reports a projection, aggregation or schema that
// would produce two output columns with the same name.
type DuplicateColumnError struct {
	Name string
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("duplicate column %q", e.Name)
}

// UngroupedColumnError reports an aggregation output that references a
// column which is neither aggregated nor a grouping key.
type UngroupedColumnError struct {
	Column string
}

func (e *UngroupedColumnError) Error() string {
	return fmt.Sprintf("column %q is not aggregated and not a grouping key", e.Column)
}

// DuplicateElseError reports a second else branch on a case builder.
type DuplicateElseError struct{}

func (e *DuplicateElseError) Error() string {
	return "case expression already has an else branch"
}

// EmptyCaseError reports a case expression finished without any when branch.
type EmptyCaseError struct{}

func (e *EmptyCaseError) Error() string {
	return "case expression has no when branches"
}

// SourceNotFoundError reports a table name unknown to a SchemaProvider.
type SourceNotFoundError struct {
	Name      string
	Available []string
}

func (e *SourceNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unknown table %q", e.Name)
	}
	return fmt.Sprintf("unknown table %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}
