package rel

import "fmt"

type caseState int

const (
	caseStart caseState = iota
	caseAccumulating
	caseElseSet
	caseFinalized
)

// CaseBuilder accumulates the branches of a case expression. It is a
// small state machine: when moves Start to Accumulating, else is allowed
// once after at least one when, and End finalizes and consumes the
// builder. Invalid calls record a sticky error that End reports, so the
// chain stays fluent; the first offending call wins.
type CaseBuilder struct {
	subject ValueNode // nil for a searched case
	whens   []WhenClause
	els     ValueNode
	typ     DataType
	state   caseState
	err     error
}

// Case starts a searched case expression: each when takes a boolean
// condition.
func Case() *CaseBuilder {
	return &CaseBuilder{}
}

// Case starts a simple case expression with this value as its subject:
// each when takes a match value compared to the subject for equality.
func (v Value) Case() *CaseBuilder {
	return &CaseBuilder{subject: v.node}
}

// When appends a branch. For a simple case, match is compared against the
// subject and must share a promoted type with it; for a searched case,
// match must itself be Boolean. All results must share one promoted type.
func (b *CaseBuilder) When(match, result Value) *CaseBuilder {
	if b.err != nil {
		return b
	}
	switch b.state {
	case caseFinalized:
		b.err = fmt.Errorf("case: builder already finalized")
		return b
	case caseElseSet:
		b.err = fmt.Errorf("case: when is not allowed after else")
		return b
	}

	var cond ValueNode
	if b.subject != nil {
		typ, err := binaryType(OpEq, b.subject.Type(), match.Type())
		if err != nil {
			b.err = err
			return b
		}
		cond = &BinaryExpr{op: OpEq, left: b.subject, right: match.node, typ: typ}
	} else {
		if t := match.Type(); t.Kind() != KindBoolean {
			b.err = &TypeMismatchError{Op: "when", Left: t, Right: Boolean}
			return b
		}
		cond = match.node
	}

	typ := result.Type()
	if b.state == caseAccumulating {
		promoted, err := Promote(b.typ, typ)
		if err != nil {
			b.err = &TypeMismatchError{Op: "when", Left: b.typ, Right: typ}
			return b
		}
		typ = promoted
	}

	b.whens = append(b.whens, WhenClause{cond: cond, result: result.node})
	b.typ = typ
	b.state = caseAccumulating
	return b
}

// Else sets the default branch, used when no when condition matches.
func (b *CaseBuilder) Else(value Value) *CaseBuilder {
	if b.err != nil {
		return b
	}
	switch b.state {
	case caseFinalized:
		b.err = fmt.Errorf("case: builder already finalized")
		return b
	case caseElseSet:
		b.err = &DuplicateElseError{}
		return b
	case caseStart:
		b.err = &EmptyCaseError{}
		return b
	}

	promoted, err := Promote(b.typ, value.Type())
	if err != nil {
		b.err = &TypeMismatchError{Op: "else", Left: b.typ, Right: value.Type()}
		return b
	}
	b.els = value.node
	b.typ = promoted
	b.state = caseElseSet
	return b
}

// End finalizes the expression and consumes the builder. It reports the
// first error recorded by the chain; ending with zero when branches fails
// with EmptyCaseError. Without an else the expression is null where no
// branch matches.
func (b *CaseBuilder) End() (Value, error) {
	if b.err != nil {
		return Value{}, b.err
	}
	switch b.state {
	case caseFinalized:
		return Value{}, fmt.Errorf("case: builder already finalized")
	case caseStart:
		return Value{}, &EmptyCaseError{}
	}

	whens := make([]WhenClause, len(b.whens))
	copy(whens, b.whens)
	b.state = caseFinalized
	return Value{node: &CaseExpr{whens: whens, els: b.els, typ: b.typ}}, nil
}
