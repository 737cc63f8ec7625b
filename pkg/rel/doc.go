// Package rel builds typed, immutable relational expression trees.
//
// A Table handle wraps a relational node (scan, projection, filter,
// aggregation, join, sort, limit, view) and a Value handle wraps a column
// or scalar expression. Construction is eager about validation and lazy
// about everything else: every operation type-checks its operands against
// the schemas fixed at construction time and returns an error from the
// taxonomy in errors.go, but no I/O happens until a backend compiles and
// executes the tree.
//
// Nodes are immutable and compared by pointer identity. Reusing a Table
// in two places shares the node; compilers rely on that to memoize and to
// assign stable aliases. Joining a relation to itself therefore needs an
// explicit View to give one side a distinct identity.
package rel
