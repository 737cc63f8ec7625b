package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/relq/pkg/rel"
)

func TestTypeFromSQL(t *testing.T) {
	tests := []struct {
		native string
		want   rel.DataType
	}{
		{"BIGINT", rel.Int64},
		{"bigint", rel.Int64},
		{"INTEGER", rel.Int64},
		{"int8", rel.Int64},
		{"HUGEINT", rel.Int64},
		{"DOUBLE", rel.Float64},
		{"DOUBLE PRECISION", rel.Float64},
		{"REAL", rel.Float64},
		{"NUMERIC", rel.Float64},
		{"DECIMAL(10,2)", rel.Float64},
		{"VARCHAR", rel.String},
		{"VARCHAR(255)", rel.String},
		{"character varying", rel.String},
		{"TEXT", rel.String},
		{"UUID", rel.String},
		{"BOOLEAN", rel.Boolean},
		{"bool", rel.Boolean},
		{"DATE", rel.Date},
		{"TIMESTAMP", rel.Timestamp},
		{"timestamp with time zone", rel.Timestamp},
		{"TIMESTAMPTZ", rel.Timestamp},
		{"DATETIME", rel.Timestamp},
		{"BIGINT[]", rel.ArrayOf(rel.Int64)},
		{"VARCHAR[]", rel.ArrayOf(rel.String)},
		// SQLite affinity fallbacks
		{"UNSIGNED BIG INT", rel.Int64},
		{"NVARCHAR(70)", rel.String},
		{"BLOB", rel.String},
		{"", rel.String},
	}

	for _, tt := range tests {
		t.Run(tt.native, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeFromSQL(tt.native))
		})
	}
}
