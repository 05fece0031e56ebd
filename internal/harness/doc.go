// Package harness provides scenario-driven conformance testing for the
// NullG data layer.
//
// A scenario seeds an in-memory store, runs resolver, query-policy,
// catalog and find operations against the schema graph, and checks each
// outcome against an expectation.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schemas:                 # optional, relative to the scenario file
//	  - ../schemas/army.cue
//	setup:
//	  - type: UnitData
//	    body: {id: atlas, unitTypeId: 2, totalWar: {walkMp: 3}}
//	steps:
//	  - op: resolve
//	    type: UnitData
//	    input: {id: x, unitTypeId: 7, totalWar: {}}
//	    expect: {error: UNKNOWN_VARIANT, path: totalWar}
//	  - op: check_filter
//	    input: {"$where": "1"}
//	    expect: {error: OPERATOR_NOT_ALLOWED, key: "$where"}
//	  - op: find
//	    type: UnitData
//	    input: {unitTypeId: 2}
//	    expect: {ids: [atlas]}
//	assertions:
//	  - type: store_count
//	    item_class: UnitData
//	    count: 1
//
// A step without expect must succeed. Outcomes are "ok", a resolver or
// query error code, or ERROR for anything else.
//
// # Assertion Types
//
//   - trace_contains: some step matches op, target and outcome
//   - trace_count: exactly count steps match
//   - store_count: count stored records of item_class match filter
//
// # Golden Files
//
// RunWithGolden snapshots the outcome trace as canonical JSON under
// testdata/golden; AssertCatalogGolden does the same for a field catalog.
// Record ids come from a sequential generator unless the record carries
// its own, so traces are reproducible.
package harness
