package rel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubjectCase(t *testing.T) {
	table := testTable(t)
	name := col(t, table, "name")

	v, err := name.Case().
		When(lit(t, "EU"), lit(t, "Europe")).
		When(lit(t, "AS"), lit(t, "Asia")).
		Else(lit(t, "Other")).
		End()
	require.NoError(t, err)

	assert.True(t, v.Type().Equal(String))
	assert.Equal(t, "case", v.Name())
	assert.Equal(t, ShapeColumn, v.Shape())

	node, ok := v.Node().(*CaseExpr)
	require.True(t, ok)
	whens := node.Whens()
	require.Len(t, whens, 2)
	require.NotNil(t, node.Else())

	// Matches desugar to subject == match.
	cond, ok := whens[0].Cond().(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, OpEq, cond.Op())
	assert.True(t, cond.Type().Equal(Boolean))
}

func TestSearchedCase(t *testing.T) {
	table := testTable(t)
	id := col(t, table, "id")

	small, err := id.Lt(lit(t, 10))
	require.NoError(t, err)

	v, err := Case().
		When(small, lit(t, "small")).
		Else(lit(t, "big")).
		End()
	require.NoError(t, err)
	assert.True(t, v.Type().Equal(String))

	// Searched case conditions must be boolean.
	_, err = Case().When(id, lit(t, "x")).End()
	require.Error(t, err)
	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "when", mismatch.Op)
}

func TestCaseWithoutElseIsNullable(t *testing.T) {
	table := testTable(t)
	name := col(t, table, "name")

	v, err := name.Case().When(lit(t, "EU"), lit(t, "Europe")).End()
	require.NoError(t, err)

	node, ok := v.Node().(*CaseExpr)
	require.True(t, ok)
	assert.Nil(t, node.Else())
	assert.True(t, v.Type().Equal(String))
}

func TestCaseResultPromotion(t *testing.T) {
	table := testTable(t)
	id := col(t, table, "id")

	matched, err := id.Eq(lit(t, 1))
	require.NoError(t, err)

	// Int64 and Float64 results promote to Float64.
	v, err := Case().
		When(matched, lit(t, 1)).
		Else(lit(t, 2.5)).
		End()
	require.NoError(t, err)
	assert.True(t, v.Type().Equal(Float64))

	// A null result defers to the other branches.
	v, err = Case().
		When(matched, lit(t, nil)).
		When(matched, lit(t, "x")).
		End()
	require.NoError(t, err)
	assert.True(t, v.Type().Equal(String))
}

func TestCaseTransitions(t *testing.T) {
	table := testTable(t)
	name := col(t, table, "name")

	matched := func() Value {
		v, err := name.Eq(lit(t, "x"))
		require.NoError(t, err)
		return v
	}

	t.Run("end with no whens is empty", func(t *testing.T) {
		_, err := Case().End()
		require.Error(t, err)
		var empty *EmptyCaseError
		require.ErrorAs(t, err, &empty)
	})

	t.Run("else before any when is empty", func(t *testing.T) {
		_, err := Case().Else(lit(t, 1)).End()
		require.Error(t, err)
		var empty *EmptyCaseError
		require.ErrorAs(t, err, &empty)
	})

	t.Run("second else is duplicate", func(t *testing.T) {
		_, err := Case().
			When(matched(), lit(t, "a")).
			Else(lit(t, "b")).
			Else(lit(t, "c")).
			End()
		require.Error(t, err)
		var dup *DuplicateElseError
		require.ErrorAs(t, err, &dup)
	})

	t.Run("when after else is invalid", func(t *testing.T) {
		_, err := Case().
			When(matched(), lit(t, "a")).
			Else(lit(t, "b")).
			When(matched(), lit(t, "c")).
			End()
		require.Error(t, err)
	})

	t.Run("builder is consumed by end", func(t *testing.T) {
		b := Case().When(matched(), lit(t, "a"))
		_, err := b.End()
		require.NoError(t, err)

		_, err = b.End()
		require.Error(t, err)

		_, err = b.When(matched(), lit(t, "b")).End()
		require.Error(t, err)
	})

	t.Run("first error wins", func(t *testing.T) {
		// The type error at the second when must survive the later
		// valid else and surface at End.
		_, err := Case().
			When(matched(), lit(t, "a")).
			When(matched(), lit(t, 1)).
			Else(lit(t, "b")).
			End()
		require.Error(t, err)
		var mismatch *TypeMismatchError
		require.ErrorAs(t, err, &mismatch)
	})

	t.Run("mismatched else", func(t *testing.T) {
		_, err := Case().
			When(matched(), lit(t, "a")).
			Else(lit(t, 1)).
			End()
		require.Error(t, err)
		var mismatch *TypeMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "else", mismatch.Op)
	})

	t.Run("subject mismatch at when", func(t *testing.T) {
		_, err := name.Case().When(lit(t, 1), lit(t, "x")).End()
		require.Error(t, err)
		var mismatch *TypeMismatchError
		require.ErrorAs(t, err, &mismatch)
	})
}
