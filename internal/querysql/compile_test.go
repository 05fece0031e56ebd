package querysql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nullg/internal/ir"
	"github.com/roach88/nullg/internal/queryir"
)

func TestJSONPath(t *testing.T) {
	got, err := JSONPath("totalWar.mass")
	require.NoError(t, err)
	assert.Equal(t, `$."totalWar"."mass"`, got)

	got, err = JSONPath("name")
	require.NoError(t, err)
	assert.Equal(t, `$."name"`, got)

	for _, bad := range []string{"", "a..b", ".a", `a"b`, `a\b`} {
		_, err := JSONPath(bad)
		assert.Error(t, err, bad)
	}
}

func TestSelectAlwaysOrders(t *testing.T) {
	c := NewCompiler()
	sql, params, err := c.Select("UnitData", queryir.MatchAll{}, 0)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT seq, id, item_class, content_hash, body FROM records WHERE item_class = ? AND (1 = 1) ORDER BY seq ASC, id ASC COLLATE BINARY",
		sql)
	assert.Equal(t, []any{"UnitData"}, params)

	sql, params, err = c.Select("UnitData", queryir.MatchAll{}, 10)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(sql, "COLLATE BINARY LIMIT ?"))
	assert.Equal(t, []any{"UnitData", 10}, params)
}

func TestCompareParameterized(t *testing.T) {
	c := NewCompiler()
	sql, params, err := c.Where(queryir.Compare{Field: "totalWar.mass", Op: queryir.OpGte, Value: ir.Int(50)})
	require.NoError(t, err)

	assert.NotContains(t, sql, "50")
	assert.NotContains(t, sql, "totalWar")
	assert.Equal(t, 2, strings.Count(sql, ">= ?"))
	path := `$."totalWar"."mass"`
	assert.Equal(t, []any{path, path, int64(50), path, path, int64(50)}, params)
	assert.Equal(t, strings.Count(sql, "?"), len(params))
}

func TestCompareHostileValuesStayParameters(t *testing.T) {
	c := NewCompiler()
	hostile := "x'); DROP TABLE records; --"
	sql, params, err := c.Where(queryir.Compare{Field: "name", Op: queryir.OpEq, Value: ir.String(hostile)})
	require.NoError(t, err)
	assert.NotContains(t, sql, "DROP")
	assert.Contains(t, params, hostile)
}

func TestWherePredicates(t *testing.T) {
	c := NewCompiler()
	tests := []struct {
		name     string
		pred     queryir.Predicate
		contains []string
	}{
		{"ne", queryir.Compare{Field: "a", Op: queryir.OpNe, Value: ir.Int(1)}, []string{"NOT COALESCE(", "= ?"}},
		{"null eq", queryir.Compare{Field: "a", Op: queryir.OpEq, Value: ir.Null{}}, []string{"IS NULL OR", "= 'null'"}},
		{"object eq", queryir.Compare{Field: "a", Op: queryir.OpEq, Value: ir.Object{"b": ir.Int(1)}}, []string{"= json(?)"}},
		{"in", queryir.In{Field: "a", Values: []ir.Value{ir.String("x"), ir.String("y")}}, []string{"IN (?, ?)"}},
		{"nin", queryir.In{Field: "a", Values: []ir.Value{ir.Int(1)}, Negate: true}, []string{"NOT COALESCE(", "IN (?)"}},
		{"in null", queryir.In{Field: "a", Values: []ir.Value{ir.Null{}}}, []string{"IS NULL OR"}},
		{"empty in", queryir.In{Field: "a"}, []string{"1 = 0"}},
		{"exists", queryir.Exists{Field: "a", Want: true}, []string{"IS NOT NULL"}},
		{"not exists", queryir.Exists{Field: "a"}, []string{"json_type(records.body, ?) IS NULL"}},
		{"regex", queryir.Regex{Field: "a", Pattern: "^x"}, []string{"REGEXP ?"}},
		{"and", queryir.And{Predicates: []queryir.Predicate{queryir.Exists{Field: "a", Want: true}, queryir.Exists{Field: "b", Want: true}}}, []string{") AND ("}},
		{"or", queryir.Or{Predicates: []queryir.Predicate{queryir.Exists{Field: "a", Want: true}, queryir.Exists{Field: "b", Want: true}}}, []string{") OR ("}},
		{"nor", queryir.Nor{Predicates: []queryir.Predicate{queryir.Exists{Field: "a", Want: true}}}, []string{"NOT COALESCE(("}},
		{"not", queryir.Not{Predicate: queryir.Exists{Field: "a", Want: true}}, []string{"NOT COALESCE(("}},
		{"empty and", queryir.And{}, []string{"1 = 1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := c.Where(tt.pred)
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, sql, s)
			}
			assert.Equal(t, strings.Count(sql, "?"), len(params), "placeholders and params must line up")
		})
	}
}

func TestWhereErrors(t *testing.T) {
	c := NewCompiler()
	for _, p := range []queryir.Predicate{
		nil,
		queryir.Compare{Field: "a", Op: queryir.OpGt, Value: ir.Null{}},
		queryir.Compare{Field: "a", Op: queryir.OpGt, Value: ir.Array{}},
		queryir.Compare{Field: "a", Op: "$bogus", Value: ir.Int(1)},
		queryir.Compare{Field: "", Op: queryir.OpEq, Value: ir.Int(1)},
		queryir.In{Field: "a", Values: []ir.Value{ir.Object{}}},
		queryir.And{Predicates: []queryir.Predicate{queryir.Exists{Field: "a..b"}}},
	} {
		_, _, err := c.Where(p)
		assert.Error(t, err, "%#v", p)
	}
}

func TestCountFromParsedFilter(t *testing.T) {
	pred, err := queryir.ParseFilter(map[string]any{"mass": map[string]any{"$gte": 50, "$lte": 100}})
	require.NoError(t, err)

	sql, params, err := NewCompiler().Count("UnitData", pred)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sql, "SELECT COUNT(*) FROM records WHERE item_class = ?"))
	assert.Equal(t, "UnitData", params[0])
	assert.Equal(t, strings.Count(sql, "?"), len(params))
}
