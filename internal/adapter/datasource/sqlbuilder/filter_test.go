// file: internal/adapter/datasource/sqlbuilder/filter_test.go
package sqlbuilder

import (
	"errors"
	"testing"

	"Jobly/internal/core/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

func TestCompose_NoCriteria(t *testing.T) {
	frag, err := Compose(Postgres, nil)
	require.NoError(t, err)
	assert.True(t, frag.Empty())
	assert.Equal(t, "", frag.SQL)
	assert.Empty(t, frag.Args)
	assert.Equal(t, "", frag.Where())
	assert.Equal(t, 1, frag.Next())
}

func TestCompose_AbsentValuesContributeNothing(t *testing.T) {
	c := Criteria{}.
		Contains("name", nil).
		Contains("name", strPtr("")).
		AtLeast("num_employees", nil).
		AtMost("num_employees", nil).
		Positive("equity", nil).
		Positive("equity", boolPtr(false))
	assert.Empty(t, c)

	frag, err := Compose(Postgres, c)
	require.NoError(t, err)
	assert.True(t, frag.Empty())
}

func TestCompose_AllTermsPostgres(t *testing.T) {
	c := Criteria{}.
		Contains("title", strPtr("eng")).
		AtLeast("salary", intPtr(50000)).
		AtMost("salary", intPtr(150000)).
		Positive("equity", boolPtr(true))

	frag, err := Compose(Postgres, c)
	require.NoError(t, err)
	assert.Equal(t,
		`"title" ILIKE $1 ESCAPE '\' AND "salary" >= $2 AND "salary" <= $3 AND "equity" > 0`,
		frag.SQL)
	assert.Equal(t, []any{"%eng%", 50000, 150000}, frag.Args)
	assert.Equal(t, ` WHERE "title" ILIKE $1 ESCAPE '\' AND "salary" >= $2 AND "salary" <= $3 AND "equity" > 0`, frag.Where())
}

func TestCompose_SQLiteUsesLike(t *testing.T) {
	frag, err := Compose(SQLite, Criteria{}.Contains("name", strPtr("net")))
	require.NoError(t, err)
	assert.Equal(t, `"name" LIKE $1 ESCAPE '\'`, frag.SQL)
	assert.Equal(t, []any{"%net%"}, frag.Args)
}

func TestCompose_EscapesWildcards(t *testing.T) {
	frag, err := Compose(Postgres, Criteria{}.Contains("name", strPtr(`100%_a\b`)))
	require.NoError(t, err)
	assert.Equal(t, []any{`%100\%\_a\\b%`}, frag.Args)
}

func TestCompose_InvertedRangeIsDataError(t *testing.T) {
	c := Criteria{}.AtLeast("salary", intPtr(100)).AtMost("salary", intPtr(50))
	_, err := Compose(Postgres, c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, port.ErrData))
}

func TestCompose_EqualBoundsAllowed(t *testing.T) {
	c := Criteria{}.AtLeast("num_employees", intPtr(10)).AtMost("num_employees", intPtr(10))
	frag, err := Compose(SQLite, c)
	require.NoError(t, err)
	assert.Equal(t, `"num_employees" >= $1 AND "num_employees" <= $2`, frag.SQL)
}

func TestCompose_BoundsOnDifferentColumnsNotCompared(t *testing.T) {
	c := Criteria{}.AtLeast("salary", intPtr(100)).AtMost("num_employees", intPtr(5))
	_, err := Compose(Postgres, c)
	assert.NoError(t, err)
}

func TestCompose_Deterministic(t *testing.T) {
	c := Criteria{}.
		Contains("name", strPtr("a")).
		AtLeast("num_employees", intPtr(1)).
		AtMost("num_employees", intPtr(900))

	first, err := Compose(Postgres, c)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Compose(Postgres, c)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestComposeFrom_ContinuesNumbering(t *testing.T) {
	c := Criteria{}.Positive("equity", boolPtr(true)).AtLeast("salary", intPtr(1))
	frag, err := ComposeFrom(Postgres, c, 3)
	require.NoError(t, err)
	assert.Equal(t, `"equity" > 0 AND "salary" >= $3`, frag.SQL)
	assert.Equal(t, 4, frag.Next())
}

func TestCompose_RejectsMalformedCriteria(t *testing.T) {
	cases := map[string]Criteria{
		"非字符串模糊值": {{Column: "name", Op: OpContains, Value: 3}},
		"非数字区间值":  {{Column: "salary", Op: OpAtLeast, Value: "lots"}},
		"缺少列名":    {{Column: "", Op: OpPositive}},
		"未知操作":    {{Column: "x", Op: Op(99), Value: 1}},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Compose(Postgres, c)
			assert.True(t, errors.Is(err, port.ErrData), "got=%v", err)
		})
	}
}

func TestDialect_String(t *testing.T) {
	assert.Equal(t, "postgres", Postgres.String())
	assert.Equal(t, "sqlite", SQLite.String())
	assert.Equal(t, "unknown", Dialect(9).String())
}
