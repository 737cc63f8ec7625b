package sqlgen

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/relq/pkg/rel"
)

// value renders an expression. Binary and unary forms are always
// parenthesized so operator precedence never depends on the dialect.
func (g *generator) value(v rel.ValueNode) (string, error) {
	switch e := v.(type) {
	case *rel.ColumnRef:
		return g.alias(e.Table()) + "." + g.d.QuoteIdentifierIfNeeded(e.Name()), nil
	case *rel.Literal:
		return g.literal(e)
	case *rel.BinaryExpr:
		return g.binary(e)
	case *rel.UnaryExpr:
		operand, err := g.value(e.Operand())
		if err != nil {
			return "", err
		}
		if e.Op() == rel.OpNeg {
			return "(-" + operand + ")", nil
		}
		return "(NOT " + operand + ")", nil
	case *rel.CastExpr:
		input, err := g.value(e.Input())
		if err != nil {
			return "", err
		}
		name, err := g.typeName(e.Type())
		if err != nil {
			return "", err
		}
		return "CAST(" + input + " AS " + name + ")", nil
	case *rel.IsNullExpr:
		input, err := g.value(e.Input())
		if err != nil {
			return "", err
		}
		if e.Negated() {
			return "(" + input + " IS NOT NULL)", nil
		}
		return "(" + input + " IS NULL)", nil
	case *rel.AliasExpr:
		// Aliases only change output naming; inside an expression the
		// wrapped value renders as itself.
		return g.value(e.Input())
	case *rel.CaseExpr:
		return g.caseExpr(e)
	case *rel.AggregateExpr:
		return g.aggregate(e)
	default:
		return "", fmt.Errorf("sqlgen: unhandled value node %T", v)
	}
}

var binaryOpSQL = map[rel.BinaryOp]string{
	rel.OpAdd: "+",
	rel.OpSub: "-",
	rel.OpMul: "*",
	rel.OpDiv: "/",
	rel.OpEq:  "=",
	rel.OpNe:  "<>",
	rel.OpLt:  "<",
	rel.OpLe:  "<=",
	rel.OpGt:  ">",
	rel.OpGe:  ">=",
	rel.OpAnd: "AND",
	rel.OpOr:  "OR",
}

func (g *generator) binary(e *rel.BinaryExpr) (string, error) {
	op, ok := binaryOpSQL[e.Op()]
	if !ok {
		return "", fmt.Errorf("sqlgen: unhandled binary operator %v", e.Op())
	}
	left, err := g.value(e.Left())
	if err != nil {
		return "", err
	}
	right, err := g.value(e.Right())
	if err != nil {
		return "", err
	}
	// True division: SQL integer division would truncate, so an integer
	// dividend is cast to the dialect's float type first.
	if e.Op() == rel.OpDiv && e.Left().Type().Kind() == rel.KindInt64 {
		name, err := g.typeName(rel.Float64)
		if err != nil {
			return "", err
		}
		left = "CAST(" + left + " AS " + name + ")"
	}
	return "(" + left + " " + op + " " + right + ")", nil
}

func (g *generator) caseExpr(e *rel.CaseExpr) (string, error) {
	var b strings.Builder
	b.WriteString("CASE")
	for _, w := range e.Whens() {
		cond, err := g.value(w.Cond())
		if err != nil {
			return "", err
		}
		result, err := g.value(w.Result())
		if err != nil {
			return "", err
		}
		b.WriteString(" WHEN ")
		b.WriteString(cond)
		b.WriteString(" THEN ")
		b.WriteString(result)
	}
	if els := e.Else(); els != nil {
		rendered, err := g.value(els)
		if err != nil {
			return "", err
		}
		b.WriteString(" ELSE ")
		b.WriteString(rendered)
	}
	b.WriteString(" END")
	return b.String(), nil
}

// aggregate renders an aggregate call. Filtered aggregates use the
// standard FILTER (WHERE ...) clause when the dialect has it and fall back
// to aggregating a CASE expression otherwise.
func (g *generator) aggregate(e *rel.AggregateExpr) (string, error) {
	name := g.d.AggregateName(e.Kind())

	arg := "*"
	if e.Arg() != nil {
		rendered, err := g.value(e.Arg())
		if err != nil {
			return "", err
		}
		arg = rendered
	}

	if e.Where() == nil {
		return name + "(" + arg + ")", nil
	}

	pred, err := g.value(e.Where())
	if err != nil {
		return "", err
	}
	if g.d.Capabilities.FilterClause {
		return name + "(" + arg + ") FILTER (WHERE " + pred + ")", nil
	}
	// CASE rewrite: unmatched rows become NULL, which every aggregate
	// here ignores. count(*) counts a constant instead.
	if e.Kind() == rel.AggCountStar {
		return name + "(CASE WHEN " + pred + " THEN 1 END)", nil
	}
	return name + "(CASE WHEN " + pred + " THEN " + arg + " END)", nil
}

// typeName spells a type for CAST. Array types append the dialect's array
// suffix to the element type.
func (g *generator) typeName(t rel.DataType) (string, error) {
	if t.Kind() == rel.KindArray {
		suffix, ok := g.d.TypeName(rel.KindArray)
		if !ok {
			return "", &UnsupportedOperationError{Op: "cast to " + t.String(), Dialect: g.d.Name}
		}
		elem, err := g.typeName(t.Elem())
		if err != nil {
			return "", err
		}
		return elem + suffix, nil
	}
	name, ok := g.d.TypeName(t.Kind())
	if !ok {
		return "", &UnsupportedOperationError{Op: "cast to " + t.String(), Dialect: g.d.Name}
	}
	return name, nil
}

func (g *generator) literal(l *rel.Literal) (string, error) {
	if l.Value() == nil {
		return "NULL", nil
	}
	switch v := l.Value().(type) {
	case bool:
		if v {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return floatLiteral(v), nil
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'", nil
	case time.Time:
		return "TIMESTAMP '" + v.UTC().Format("2006-01-02 15:04:05") + "'", nil
	default:
		return "", fmt.Errorf("sqlgen: unhandled literal %T", l.Value())
	}
}

// floatLiteral renders a float so it still reads as one: a bare "10"
// would be taken for an integer by the engine.
func floatLiteral(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
