package rel

import (
	"fmt"
	"strings"
)

// Kind identifies a scalar type in the closed type lattice.
type Kind int

const (
	KindInvalid Kind = iota
	KindNull
	KindBoolean
	KindInt64
	KindFloat64
	KindString
	KindDate
	KindTimestamp
	KindArray
	KindStruct
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindTimestamp:
		return "timestamp"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	default:
		return "invalid"
	}
}

// DataType is the resolved type of a value expression. It is an immutable
// value: elem and fields are never mutated after construction.
type DataType struct {
	kind   Kind
	elem   *DataType
	fields []Field
}

// Field is a named, typed column within a Schema or a struct type.
type Field struct {
	Name string
	Type DataType
}

// Primitive types.
var (
	Null      = DataType{kind: KindNull}
	Boolean   = DataType{kind: KindBoolean}
	Int64     = DataType{kind: KindInt64}
	Float64   = DataType{kind: KindFloat64}
	String    = DataType{kind: KindString}
	Date      = DataType{kind: KindDate}
	Timestamp = DataType{kind: KindTimestamp}
)

// ArrayOf returns the array type with the given element type.
func ArrayOf(elem DataType) DataType {
	e := elem
	return DataType{kind: KindArray, elem: &e}
}

// StructOf returns a struct type with the given ordered fields.
// Field names must be unique.
func StructOf(fields ...Field) (DataType, error) {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, dup := seen[f.Name]; dup {
			return DataType{}, &DuplicateColumnError{Name: f.Name}
		}
		seen[f.Name] = struct{}{}
	}
	fs := make([]Field, len(fields))
	copy(fs, fields)
	return DataType{kind: KindStruct, fields: fs}, nil
}

// Kind returns the type's kind.
func (t DataType) Kind() Kind { return t.kind }

// Elem returns the element type of an array. Zero value for non-arrays.
func (t DataType) Elem() DataType {
	if t.elem == nil {
		return DataType{}
	}
	return *t.elem
}

// Fields returns a copy of a struct type's ordered fields.
func (t DataType) Fields() []Field {
	fs := make([]Field, len(t.fields))
	copy(fs, t.fields)
	return fs
}

// IsValid reports whether the type belongs to the lattice.
func (t DataType) IsValid() bool { return t.kind != KindInvalid }

// IsNumeric reports whether the type participates in arithmetic.
func (t DataType) IsNumeric() bool {
	return t.kind == KindInt64 || t.kind == KindFloat64
}

// IsOrdered reports whether values of the type can be compared with < and >.
func (t DataType) IsOrdered() bool {
	switch t.kind {
	case KindInt64, KindFloat64, KindString, KindDate, KindTimestamp:
		return true
	default:
		return false
	}
}

// Equal reports structural type equality.
func (t DataType) Equal(other DataType) bool {
	if t.kind != other.kind {
		return false
	}
	switch t.kind {
	case KindArray:
		return t.Elem().Equal(other.Elem())
	case KindStruct:
		if len(t.fields) != len(other.fields) {
			return false
		}
		for i := range t.fields {
			if t.fields[i].Name != other.fields[i].Name || !t.fields[i].Type.Equal(other.fields[i].Type) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String renders the type, e.g. "int64", "array<string>", "struct<a int64, b string>".
func (t DataType) String() string {
	switch t.kind {
	case KindArray:
		return "array<" + t.Elem().String() + ">"
	case KindStruct:
		parts := make([]string, len(t.fields))
		for i, f := range t.fields {
			parts[i] = fmt.Sprintf("%s %s", f.Name, f.Type)
		}
		return "struct<" + strings.Join(parts, ", ") + ">"
	default:
		return t.kind.String()
	}
}

// Promote returns the common type two operand types widen to, following the
// fixed policy table: Null promotes to anything, Int64 widens to Float64,
// Date widens to Timestamp, arrays promote element-wise, structs only when
// identical. Everything else is a TypeMismatchError. String never coerces
// to numeric.
func Promote(a, b DataType) (DataType, error) {
	if t, ok := promote(a, b); ok {
		return t, nil
	}
	return DataType{}, &TypeMismatchError{Left: a, Right: b}
}

func promote(a, b DataType) (DataType, bool) {
	switch {
	case a.kind == KindNull:
		return b, true
	case b.kind == KindNull:
		return a, true
	case a.Equal(b):
		return a, true
	}
	switch {
	case a.kind == KindInt64 && b.kind == KindFloat64,
		a.kind == KindFloat64 && b.kind == KindInt64:
		return Float64, true
	case a.kind == KindDate && b.kind == KindTimestamp,
		a.kind == KindTimestamp && b.kind == KindDate:
		return Timestamp, true
	case a.kind == KindArray && b.kind == KindArray:
		elem, ok := promote(a.Elem(), b.Elem())
		if !ok {
			return DataType{}, false
		}
		return ArrayOf(elem), true
	default:
		return DataType{}, false
	}
}
