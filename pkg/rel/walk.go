package rel

// WalkValues visits n and every expression beneath it in pre-order. When
// fn returns false the node's children are skipped.
func WalkValues(n ValueNode, fn func(ValueNode) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch e := n.(type) {
	case *BinaryExpr:
		WalkValues(e.left, fn)
		WalkValues(e.right, fn)
	case *UnaryExpr:
		WalkValues(e.operand, fn)
	case *CastExpr:
		WalkValues(e.input, fn)
	case *IsNullExpr:
		WalkValues(e.input, fn)
	case *AliasExpr:
		WalkValues(e.input, fn)
	case *CaseExpr:
		for _, w := range e.whens {
			WalkValues(w.cond, fn)
			WalkValues(w.result, fn)
		}
		WalkValues(e.els, fn)
	case *AggregateExpr:
		WalkValues(e.arg, fn)
		WalkValues(e.where, fn)
	}
}

// Roots returns the distinct table nodes an expression references, in
// first-reference order. Table-bound aggregates contribute their relation.
func Roots(n ValueNode) []TableNode {
	var roots []TableNode
	seen := make(map[TableNode]struct{})
	add := func(t TableNode) {
		if t == nil {
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		roots = append(roots, t)
	}
	WalkValues(n, func(v ValueNode) bool {
		switch e := v.(type) {
		case *ColumnRef:
			add(e.table)
		case *AggregateExpr:
			add(e.table)
		}
		return true
	})
	return roots
}

func containsAggregate(n ValueNode) bool {
	found := false
	WalkValues(n, func(v ValueNode) bool {
		if _, ok := v.(*AggregateExpr); ok {
			found = true
			return false
		}
		return true
	})
	return found
}

// resolveAgainst checks that every column reference in n points at the
// given relation, and that table-bound aggregates range over it. where
// names the relation for error messages.
func resolveAgainst(n ValueNode, input TableNode, where string) error {
	var err error
	WalkValues(n, func(v ValueNode) bool {
		if err != nil {
			return false
		}
		switch e := v.(type) {
		case *ColumnRef:
			if e.table != input {
				err = &SchemaResolutionError{Table: where, Column: e.name}
				return false
			}
		case *AggregateExpr:
			if e.table != nil && e.table != input {
				err = &SchemaResolutionError{Table: where, Column: "*"}
				return false
			}
		}
		return true
	})
	return err
}

// tableLabel describes a relation for error messages.
func tableLabel(n TableNode) string {
	switch t := n.(type) {
	case *TableScan:
		return "table " + t.name
	case *Projection:
		return "projection"
	case *Filter:
		return "filter"
	case *Aggregation:
		return "aggregation"
	case *Join:
		return t.kind.String() + " join"
	case *Sort:
		return "sort"
	case *Limit:
		return "limit"
	case *View:
		return "view"
	default:
		return "relation"
	}
}
