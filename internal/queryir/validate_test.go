package queryir

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nullg/internal/ir"
)

func raw(t *testing.T, doc string) any {
	t.Helper()
	v, err := ir.DecodeRaw([]byte(doc))
	require.NoError(t, err)
	return v
}

func TestValidateFilterAccepts(t *testing.T) {
	for _, doc := range []string{
		`{}`,
		`{"mass": 50}`,
		`{"mass": {"$gte": 50, "$lte": 100}}`,
		`{"name": {"$regex": "^Atlas"}}`,
		`{"$and": [{"mass": {"$gte": 50}}, {"techbase": {"$in": ["Clan", "Mixed"]}}]}`,
		`{"$or": [{"bv": {"$lt": 900}}, {"$nor": [{"rulesLevel": {"$ne": 2}}]}]}`,
		`{"mass": {"$not": {"$gt": 90}}}`,
		`{"quirks": {"$exists": true}, "factions": {"$nin": [1, 2]}}`,
		`{"name": "$merge"}`,
		`{"notes": ["$out", {"plain": "$where"}]}`,
		`[{"mass": 1}, 2, "three", null]`,
		`42`,
	} {
		assert.NoError(t, ValidateFilter(raw(t, doc)), doc)
	}
}

func TestValidateFilterRejects(t *testing.T) {
	tests := []struct {
		doc  string
		key  string
		path string
	}{
		{`{"$where": "this.mass > 50"}`, "$where", "$where"},
		{`{"$and": [{"mass": {"$gte": 50}}, {"$merge": {"into": "x"}}]}`, "$merge", "$and[1].$merge"},
		{`{"mass": {"$expr": 1}}`, "$expr", "mass.$expr"},
		{`{"$or": [{"a": 1}, {"b": {"$elemMatch": {"c": 1}}}]}`, "$elemMatch", "$or[1].b.$elemMatch"},
		{`{"name": {"$regex": "x", "$options": "i"}}`, "$options", "name.$options"},
		{`{"deep": [[{"x": [{"$function": {}}]}]]}`, "$function", "deep[0][0].x[0].$function"},
		{`{"mass": {"$GTE": 1}}`, "$GTE", "mass.$GTE"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateFilter(raw(t, tt.doc))
			require.Error(t, err)
			se, ok := AsSecurityError(err)
			require.True(t, ok)
			assert.Equal(t, ErrCodeOperatorNotAllowed, se.Code)
			assert.Equal(t, tt.key, se.Key)
			assert.Equal(t, tt.path, se.Path)
		})
	}
}

func TestValidateFilterReportsFirstSortedKey(t *testing.T) {
	err := ValidateFilter(map[string]any{"$zzz": 1, "$aaa": 1, "mass": 1})
	se, ok := AsSecurityError(err)
	require.True(t, ok)
	assert.Equal(t, "$aaa", se.Key)
}

func TestValidatePipeline(t *testing.T) {
	accepted := []string{
		`[{"$match": {"mass": {"$gte": 50}}}, {"$group": {"_id": "$techbase", "n": {"$sum": 1}}}]`,
		`[{"$lookup": {"from": "eras"}}, {"$setWindowFields": {}}, {"$someFutureStage": {"$brandNew": 1}}]`,
		`[{"$project": {"name": "$out"}}]`,
		`[]`,
	}
	for _, doc := range accepted {
		assert.NoError(t, ValidatePipeline(raw(t, doc)), doc)
	}

	err := ValidatePipeline(raw(t, `[{"$match": {"mass": {"$gte": 50}}}, {"$out": "otherCollection"}]`))
	require.Error(t, err)
	se, ok := AsSecurityError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeStageNotAllowed, se.Code)
	assert.Equal(t, "$out", se.Key)
	assert.Equal(t, "[1].$out", se.Path)

	err = ValidatePipeline(raw(t, `[{"$facet": {"a": [{"$merge": {"into": "x"}}]}}]`))
	assert.True(t, IsSecurityError(err, ErrCodeStageNotAllowed))
	assert.Contains(t, err.Error(), "$merge")
}

func TestPolicyAsymmetry(t *testing.T) {
	// $where is vetted by neither list: the filter rejects it, the pipeline accepts it.
	expr := map[string]any{"$where": "1"}
	assert.True(t, IsSecurityError(ValidateFilter(expr), ErrCodeOperatorNotAllowed))
	assert.NoError(t, ValidatePipeline(expr))

	// $out is denied in pipelines and also absent from the filter allow-list.
	out := map[string]any{"$out": "x"}
	assert.True(t, IsSecurityError(ValidateFilter(out), ErrCodeOperatorNotAllowed))
	assert.True(t, IsSecurityError(ValidatePipeline(out), ErrCodeStageNotAllowed))
}

func TestValidateTypedTrees(t *testing.T) {
	ok := ir.Object{"$and": ir.Array{ir.Object{"mass": ir.Object{"$gte": ir.Int(50)}}}}
	assert.NoError(t, ValidateFilter(ok))

	bad := ir.Object{"$and": ir.Array{ir.Object{"$merge": ir.String("x")}}}
	assert.True(t, IsSecurityError(ValidateFilter(bad), ErrCodeOperatorNotAllowed))
}

func TestValidateDepthLimit(t *testing.T) {
	deep := strings.Repeat(`{"a":`, 200) + `1` + strings.Repeat(`}`, 200)
	err := ValidateFilter(raw(t, deep))
	assert.True(t, IsSecurityError(err, ErrCodeDepthExceeded))

	shallow := FilterPolicy.WithMaxDepth(3)
	assert.NoError(t, shallow.Check(raw(t, `{"a": {"b": 1}}`)))
	assert.True(t, IsSecurityError(shallow.Check(raw(t, `{"a": {"b": {"c": {"d": 1}}}}`)), ErrCodeDepthExceeded))
}

func TestValidateRejectsUnsupportedTypes(t *testing.T) {
	err := ValidateFilter(map[string]any{"mass": struct{ X int }{1}})
	assert.True(t, IsSecurityError(err, ErrCodeMalformed))
	assert.NoError(t, ValidateFilter(map[string]any{"mass": json.Number("5"), "x": 2.5, "y": int64(3)}))
}

func TestOperatorLists(t *testing.T) {
	assert.Equal(t, []string{
		"$and", "$eq", "$exists", "$gt", "$gte", "$in", "$lt", "$lte",
		"$ne", "$nin", "$nor", "$not", "$or", "$regex",
	}, FilterOperators())
	assert.Equal(t, []string{"$merge", "$out"}, DeniedStages())

	assert.True(t, FilterPolicy.Permits("mass"))
	assert.True(t, FilterPolicy.Permits(""))
	assert.False(t, FilterPolicy.Permits("$"))
	assert.True(t, PipelinePolicy.Permits("$"))
}
