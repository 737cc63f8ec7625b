package rel

import "strings"

// Schema is an ordered, immutable mapping of unique column names to types.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema from ordered fields. Duplicate column names
// fail with DuplicateColumnError.
func NewSchema(fields ...Field) (Schema, error) {
	fs := make([]Field, len(fields))
	copy(fs, fields)
	index := make(map[string]int, len(fs))
	for i, f := range fs {
		if _, dup := index[f.Name]; dup {
			return Schema{}, &DuplicateColumnError{Name: f.Name}
		}
		index[f.Name] = i
	}
	return Schema{fields: fs, index: index}, nil
}

// Len returns the number of columns.
func (s Schema) Len() int { return len(s.fields) }

// Field returns the i-th column.
func (s Schema) Field(i int) Field { return s.fields[i] }

// Fields returns a copy of the ordered columns.
func (s Schema) Fields() []Field {
	fs := make([]Field, len(s.fields))
	copy(fs, s.fields)
	return fs
}

// Names returns the ordered column names.
func (s Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// IndexOf returns the position of the named column, or a
// SchemaResolutionError when the schema has no such column.
func (s Schema) IndexOf(name string) (int, error) {
	if i, ok := s.index[name]; ok {
		return i, nil
	}
	return 0, &SchemaResolutionError{Column: name}
}

// Type returns the type of the named column.
func (s Schema) Type(name string) (DataType, error) {
	i, err := s.IndexOf(name)
	if err != nil {
		return DataType{}, err
	}
	return s.fields[i].Type, nil
}

// Has reports whether the schema contains the named column.
func (s Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Equal reports whether two schemas have the same columns in the same order.
func (s Schema) Equal(other Schema) bool {
	if len(s.fields) != len(other.fields) {
		return false
	}
	for i := range s.fields {
		if s.fields[i].Name != other.fields[i].Name || !s.fields[i].Type.Equal(other.fields[i].Type) {
			return false
		}
	}
	return true
}

// String renders the schema as "name: type" pairs, one per line.
func (s Schema) String() string {
	var b strings.Builder
	for i, f := range s.fields {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Type.String())
	}
	return b.String()
}
