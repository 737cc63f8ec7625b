package rel

import (
	"fmt"
	"time"
)

// Value is the handle for building typed column and scalar expressions.
// Every operation validates its operands eagerly and returns an error from
// the taxonomy in errors.go instead of producing an ill-typed node.
type Value struct {
	node ValueNode
}

// NewValue wraps an existing node in a handle.
func NewValue(n ValueNode) Value { return Value{node: n} }

// Node returns the underlying expression node.
func (v Value) Node() ValueNode { return v.node }

// Type returns the expression's resolved type.
func (v Value) Type() DataType {
	if v.node == nil {
		return DataType{}
	}
	return v.node.Type()
}

// Shape reports whether the expression is column- or scalar-shaped.
func (v Value) Shape() Shape {
	if v.node == nil {
		return ShapeScalar
	}
	return v.node.Shape()
}

// Name returns the expression's derived output name.
func (v Value) Name() string {
	if v.node == nil {
		return ""
	}
	return DisplayName(v.node)
}

// Valid reports whether the handle carries a node. The zero Value does not.
func (v Value) Valid() bool { return v.node != nil }

// As renames the expression for output purposes.
func (v Value) As(name string) Value {
	return Value{node: &AliasExpr{input: v.node, name: name}}
}

// Lit builds a literal from a Go value. Supported: nil (untyped null),
// bool, int, int32, int64, float32, float64, string and time.Time, which
// maps to Timestamp.
func Lit(value any) (Value, error) {
	switch x := value.(type) {
	case nil:
		return Value{node: &Literal{typ: Null}}, nil
	case bool:
		return Value{node: &Literal{typ: Boolean, value: x}}, nil
	case int:
		return Value{node: &Literal{typ: Int64, value: int64(x)}}, nil
	case int32:
		return Value{node: &Literal{typ: Int64, value: int64(x)}}, nil
	case int64:
		return Value{node: &Literal{typ: Int64, value: x}}, nil
	case float32:
		return Value{node: &Literal{typ: Float64, value: float64(x)}}, nil
	case float64:
		return Value{node: &Literal{typ: Float64, value: x}}, nil
	case string:
		return Value{node: &Literal{typ: String, value: x}}, nil
	case time.Time:
		return Value{node: &Literal{typ: Timestamp, value: x}}, nil
	default:
		return Value{}, fmt.Errorf("unsupported literal type %T", value)
	}
}

// NullOf builds a typed null literal.
func NullOf(t DataType) Value {
	return Value{node: &Literal{typ: t}}
}

// ---- arithmetic ----

func (v Value) Add(other Value) (Value, error) { return binary(OpAdd, v, other) }
func (v Value) Sub(other Value) (Value, error) { return binary(OpSub, v, other) }
func (v Value) Mul(other Value) (Value, error) { return binary(OpMul, v, other) }

// Div is true division: the result is Float64 regardless of operand types.
func (v Value) Div(other Value) (Value, error) { return binary(OpDiv, v, other) }

// Neg negates a numeric expression.
func (v Value) Neg() (Value, error) {
	t := v.Type()
	if !t.IsNumeric() && t.Kind() != KindNull {
		return Value{}, &TypeMismatchError{Op: "neg", Left: t, Right: t}
	}
	return Value{node: &UnaryExpr{op: OpNeg, operand: v.node, typ: t}}, nil
}

// ---- comparisons ----

func (v Value) Eq(other Value) (Value, error) { return binary(OpEq, v, other) }
func (v Value) Ne(other Value) (Value, error) { return binary(OpNe, v, other) }
func (v Value) Lt(other Value) (Value, error) { return binary(OpLt, v, other) }
func (v Value) Le(other Value) (Value, error) { return binary(OpLe, v, other) }
func (v Value) Gt(other Value) (Value, error) { return binary(OpGt, v, other) }
func (v Value) Ge(other Value) (Value, error) { return binary(OpGe, v, other) }

// ---- boolean logic ----

func (v Value) And(other Value) (Value, error) { return binary(OpAnd, v, other) }
func (v Value) Or(other Value) (Value, error)  { return binary(OpOr, v, other) }

// Not negates a boolean expression.
func (v Value) Not() (Value, error) {
	t := v.Type()
	if t.Kind() != KindBoolean && t.Kind() != KindNull {
		return Value{}, &TypeMismatchError{Op: "not", Left: t, Right: t}
	}
	return Value{node: &UnaryExpr{op: OpNot, operand: v.node, typ: Boolean}}, nil
}

// ---- null tests and casts ----

// IsNull tests the expression for null. The result is Boolean.
func (v Value) IsNull() Value {
	return Value{node: &IsNullExpr{input: v.node}}
}

// NotNull tests the expression for non-null.
func (v Value) NotNull() Value {
	return Value{node: &IsNullExpr{input: v.node, negated: true}}
}

// Cast converts the expression to the target type. The conversion itself
// is checked by the engine at execution time.
func (v Value) Cast(to DataType) (Value, error) {
	if !to.IsValid() {
		return Value{}, fmt.Errorf("cast: invalid target type")
	}
	return Value{node: &CastExpr{input: v.node, typ: to}}, nil
}

// ---- aggregates ----

// Sum aggregates a numeric expression. Summing Int64 stays Int64; Float64
// stays Float64.
func Sum(v Value) (Value, error) {
	t := v.Type()
	if !t.IsNumeric() && t.Kind() != KindNull {
		return Value{}, &TypeMismatchError{Op: "sum", Left: t, Right: t}
	}
	out := Int64
	if t.Kind() == KindFloat64 {
		out = Float64
	}
	return newAggregate(AggSum, v, out)
}

// Mean aggregates a numeric expression to its Float64 average.
func Mean(v Value) (Value, error) {
	t := v.Type()
	if !t.IsNumeric() && t.Kind() != KindNull {
		return Value{}, &TypeMismatchError{Op: "mean", Left: t, Right: t}
	}
	return newAggregate(AggMean, v, Float64)
}

// Min aggregates an orderable expression to its smallest value.
func Min(v Value) (Value, error) {
	t := v.Type()
	if !t.IsOrdered() && t.Kind() != KindNull {
		return Value{}, &TypeMismatchError{Op: "min", Left: t, Right: t}
	}
	return newAggregate(AggMin, v, t)
}

// Max aggregates an orderable expression to its largest value.
func Max(v Value) (Value, error) {
	t := v.Type()
	if !t.IsOrdered() && t.Kind() != KindNull {
		return Value{}, &TypeMismatchError{Op: "max", Left: t, Right: t}
	}
	return newAggregate(AggMax, v, t)
}

// Count counts the non-null values of any expression.
func Count(v Value) (Value, error) {
	return newAggregate(AggCount, v, Int64)
}

// CountStar counts rows. Unbound; it takes its relation from the
// aggregation it is placed in.
func CountStar() Value {
	return Value{node: &AggregateExpr{kind: AggCountStar, typ: Int64}}
}

func newAggregate(kind AggKind, arg Value, out DataType) (Value, error) {
	if containsAggregate(arg.node) {
		return Value{}, fmt.Errorf("%s: aggregates cannot be nested", kind)
	}
	return Value{node: &AggregateExpr{kind: kind, arg: arg.node, typ: out}}, nil
}

// Where attaches a row filter to an aggregate, so only rows satisfying the
// predicate contribute to it.
func (v Value) Where(pred Value) (Value, error) {
	agg, ok := v.node.(*AggregateExpr)
	if !ok {
		return Value{}, fmt.Errorf("where: %s is not an aggregate", v.Name())
	}
	if agg.where != nil {
		return Value{}, fmt.Errorf("where: aggregate is already filtered")
	}
	if t := pred.Type(); t.Kind() != KindBoolean && t.Kind() != KindNull {
		return Value{}, &TypeMismatchError{Op: "where", Left: t, Right: Boolean}
	}
	if containsAggregate(pred.node) {
		return Value{}, fmt.Errorf("where: filter cannot contain aggregates")
	}
	return Value{node: &AggregateExpr{
		kind:  agg.kind,
		arg:   agg.arg,
		where: pred.node,
		table: agg.table,
		typ:   agg.typ,
	}}, nil
}

// ---- typing rules ----

func binary(op BinaryOp, l, r Value) (Value, error) {
	lt, rt := l.Type(), r.Type()
	typ, err := binaryType(op, lt, rt)
	if err != nil {
		return Value{}, err
	}
	return Value{node: &BinaryExpr{op: op, left: l.node, right: r.node, typ: typ}}, nil
}

func binaryType(op BinaryOp, lt, rt DataType) (DataType, error) {
	mismatch := func() error {
		return &TypeMismatchError{Op: op.String(), Left: lt, Right: rt}
	}
	switch {
	case op.IsArithmetic():
		if !numericOrNull(lt) || !numericOrNull(rt) {
			return DataType{}, mismatch()
		}
		if op == OpDiv {
			return Float64, nil
		}
		t, ok := promote(lt, rt)
		if !ok {
			return DataType{}, mismatch()
		}
		return t, nil
	case op.IsComparison():
		t, ok := promote(lt, rt)
		if !ok {
			return DataType{}, mismatch()
		}
		if op != OpEq && op != OpNe && !t.IsOrdered() && t.Kind() != KindNull {
			return DataType{}, mismatch()
		}
		return Boolean, nil
	default: // and, or
		if !booleanOrNull(lt) || !booleanOrNull(rt) {
			return DataType{}, mismatch()
		}
		return Boolean, nil
	}
}

func numericOrNull(t DataType) bool {
	return t.IsNumeric() || t.Kind() == KindNull
}

func booleanOrNull(t DataType) bool {
	return t.Kind() == KindBoolean || t.Kind() == KindNull
}
