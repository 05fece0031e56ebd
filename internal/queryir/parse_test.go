package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nullg/internal/ir"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want Predicate
	}{
		{"empty", `{}`, MatchAll{}},
		{"implicit eq", `{"name": "Atlas"}`, Compare{Field: "name", Op: OpEq, Value: ir.String("Atlas")}},
		{"literal object", `{"engine": {"rating": 300}}`, Compare{Field: "engine", Op: OpEq, Value: ir.Object{"rating": ir.Int(300)}}},
		{"range", `{"mass": {"$lte": 100, "$gte": 50}}`, And{Predicates: []Predicate{
			Compare{Field: "mass", Op: OpGte, Value: ir.Int(50)},
			Compare{Field: "mass", Op: OpLte, Value: ir.Int(100)},
		}}},
		{"in", `{"techbase": {"$in": ["Clan", "IS"]}}`, In{Field: "techbase", Values: []ir.Value{ir.String("Clan"), ir.String("IS")}}},
		{"nin", `{"factions": {"$nin": [3]}}`, In{Field: "factions", Values: []ir.Value{ir.Int(3)}, Negate: true}},
		{"exists", `{"quirks": {"$exists": false}}`, Exists{Field: "quirks", Want: false}},
		{"regex", `{"name": {"$regex": "^Atl"}}`, Regex{Field: "name", Pattern: "^Atl"}},
		{"field not", `{"mass": {"$not": {"$gt": 90}}}`, Not{Predicate: Compare{Field: "mass", Op: OpGt, Value: ir.Int(90)}}},
		{"field not regex", `{"name": {"$not": "^X"}}`, Not{Predicate: Regex{Field: "name", Pattern: "^X"}}},
		{"dotted path", `{"totalWar.mass": {"$gt": 1.5}}`, Compare{Field: "totalWar.mass", Op: OpGt, Value: ir.Float(1.5)}},
		{"or", `{"$or": [{"a": 1}, {"b": true}]}`, Or{Predicates: []Predicate{
			Compare{Field: "a", Op: OpEq, Value: ir.Int(1)},
			Compare{Field: "b", Op: OpEq, Value: ir.Bool(true)},
		}}},
		{"nor and sibling field", `{"$nor": [{"a": null}], "b": 2}`, And{Predicates: []Predicate{
			Nor{Predicates: []Predicate{Compare{Field: "a", Op: OpEq, Value: ir.Null{}}}},
			Compare{Field: "b", Op: OpEq, Value: ir.Int(2)},
		}}},
		{"document not", `{"$not": {"a": 1}}`, Not{Predicate: Compare{Field: "a", Op: OpEq, Value: ir.Int(1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilter(raw(t, tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFilterRejectsBeforeParsing(t *testing.T) {
	_, err := ParseFilter(raw(t, `{"$or": [{"a": {"$where": "x"}}]}`))
	assert.True(t, IsSecurityError(err, ErrCodeOperatorNotAllowed))
}

func TestParseFilterMalformed(t *testing.T) {
	for _, doc := range []string{
		`[1]`,
		`{"$eq": 1}`,
		`{"$and": []}`,
		`{"$and": {"a": 1}}`,
		`{"$or": [1]}`,
		`{"mass": {"$gte": 1, "plain": 2}}`,
		`{"mass": {"$in": 5}}`,
		`{"mass": {"$exists": "yes"}}`,
		`{"name": {"$regex": 5}}`,
		`{"name": {"$regex": "("}}`,
		`{"mass": {"$not": 5}}`,
		`{"mass": {"$and": [{"a": 1}]}}`,
		`{"$not": 1}`,
	} {
		_, err := ParseFilter(raw(t, doc))
		assert.True(t, IsSecurityError(err, ErrCodeMalformed), "%s: %v", doc, err)
	}
}
