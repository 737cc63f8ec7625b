package backend

import (
	"strings"

	"github.com/leapstack-labs/relq/pkg/rel"
)

// TypeFromSQL maps a database-native type name, as reported by catalog
// introspection, to a rel type. Names are matched case-insensitively and
// precision suffixes like DECIMAL(10,2) are ignored. Unrecognized types
// map to String so their values still round-trip as text.
func TypeFromSQL(name string) rel.DataType {
	t := strings.ToUpper(strings.TrimSpace(name))

	// DuckDB spells array types with a [] suffix.
	if elem, ok := strings.CutSuffix(t, "[]"); ok {
		return rel.ArrayOf(TypeFromSQL(elem))
	}

	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}

	switch t {
	case "BOOLEAN", "BOOL":
		return rel.Boolean
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT",
		"INT2", "INT4", "INT8", "HUGEINT",
		"UTINYINT", "USMALLINT", "UINTEGER", "UBIGINT",
		"SERIAL", "BIGSERIAL":
		return rel.Int64
	case "REAL", "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "DOUBLE PRECISION",
		"NUMERIC", "DECIMAL":
		return rel.Float64
	case "VARCHAR", "CHARACTER VARYING", "CHAR", "CHARACTER", "BPCHAR",
		"TEXT", "STRING", "CLOB", "UUID":
		return rel.String
	case "DATE":
		return rel.Date
	case "TIMESTAMP", "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE",
		"TIMESTAMP WITHOUT TIME ZONE", "DATETIME":
		return rel.Timestamp
	}

	// SQLite column types are free-form; fall back to its affinity rules.
	switch {
	case strings.Contains(t, "INT"):
		return rel.Int64
	case strings.Contains(t, "CHAR"), strings.Contains(t, "TEXT"), strings.Contains(t, "CLOB"):
		return rel.String
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return rel.Float64
	}
	return rel.String
}
