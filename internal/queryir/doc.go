// Package queryir checks and represents caller-supplied query expressions.
//
// Filter and pipeline expressions arrive as untrusted, arbitrarily nested
// trees of mappings, sequences and scalars. Before anything else sees them
// they pass through one of two structural checks:
//
//	ValidateFilter    allow-list: every "$"-prefixed key must be a vetted
//	                  comparison or logical operator
//	ValidatePipeline  deny-list: every "$"-prefixed key is accepted except
//	                  the stages that write to other collections
//
// Both checks look only at mapping keys. Scalar values are never inspected,
// so a string value "$merge" is data, not an operator. Neither check knows
// about schemas or field names.
//
// The pipeline deny-list is fail-open: a new write-capable stage in the
// underlying store passes until it is added to deniedStages.
//
// FILTER PREDICATES:
//
// ParseFilter runs ValidateFilter and then converts the filter into a
// sealed Predicate tree that storage backends compile:
//
//	{"mass": {"$gte": 50}, "$or": [{"techbase": "Clan"}, {"bv": {"$lt": 900}}]}
//
// becomes
//
//	And{
//	    Compare{Field: "mass", Op: OpGte, Value: ir.Int(50)},
//	    Or{Compare{Field: "techbase", Op: OpEq, ...}, Compare{Field: "bv", Op: OpLt, ...}},
//	}
//
// Predicate is sealed with a marker method so backends can switch
// exhaustively over its implementations.
package queryir
