package queryir

import "github.com/roach88/nullg/internal/ir"

// Predicate is a sealed filter condition. Implementations: Compare, In,
// Exists, Regex, And, Or, Nor, Not, MatchAll.
type Predicate interface {
	predicateNode()
}

// CompareOp is a scalar comparison operator.
type CompareOp string

const (
	OpEq  CompareOp = "$eq"
	OpNe  CompareOp = "$ne"
	OpGt  CompareOp = "$gt"
	OpGte CompareOp = "$gte"
	OpLt  CompareOp = "$lt"
	OpLte CompareOp = "$lte"
)

// Compare matches when the value at Field compares to Value under Op. For a
// sequence-valued field any element may satisfy it.
type Compare struct {
	Field string
	Op    CompareOp
	Value ir.Value
}

// In matches when the value at Field, or any of its elements, is one of
// Values. Negate turns it into $nin.
type In struct {
	Field  string
	Values []ir.Value
	Negate bool
}

// Exists matches on presence (Want true) or absence of Field.
type Exists struct {
	Field string
	Want  bool
}

// Regex matches string values at Field against an RE2 pattern.
type Regex struct {
	Field   string
	Pattern string
}

// And matches when every predicate matches. An empty And matches everything.
type And struct {
	Predicates []Predicate
}

// Or matches when any predicate matches.
type Or struct {
	Predicates []Predicate
}

// Nor matches when no predicate matches.
type Nor struct {
	Predicates []Predicate
}

// Not inverts a predicate.
type Not struct {
	Predicate Predicate
}

// MatchAll is the predicate of an empty filter.
type MatchAll struct{}

func (Compare) predicateNode()  {}
func (In) predicateNode()       {}
func (Exists) predicateNode()   {}
func (Regex) predicateNode()    {}
func (And) predicateNode()      {}
func (Or) predicateNode()       {}
func (Nor) predicateNode()      {}
func (Not) predicateNode()      {}
func (MatchAll) predicateNode() {}
