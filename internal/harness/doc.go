// Package harness runs conformance scenarios against the record cache.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schema: schemas/planetarium.yaml
//	config:
//	  debounce_live_queries: false
//	  use_buffer: true
//	live_queries:
//	  - name: jupiter_moons
//	    expression: {op: findRelatedRecords, record: {type: planet, id: jupiter}, relationship: moons}
//	steps:
//	  - update:
//	      operations:
//	        - {op: addRecord, record: {type: planet, id: jupiter, attributes: {name: Jupiter}}}
//	    expect:
//	      data: [{type: planet, id: jupiter}]
//	      inverse: [{op: removeRecord, record: {type: planet, id: jupiter}}]
//	  - query: {op: findRecord, record: {type: planet, id: jupiter}}
//	    expect:
//	      result: {attributes: {name: Jupiter}}
//	  - undo: true
//	assertions:
//	  - type: record_absent
//	    record: {type: planet, id: jupiter}
//	  - type: live_query_deliveries
//	    live_query: jupiter_moons
//	    count: 2
//
// Operations and expressions use their JSON wire forms. Expected data,
// inverses and results match by subset: only the fields written in the
// scenario are compared. A query step may instead expect null_result: true
// (a null single answer) or undefined: true (no answer).
//
// # Assertion Types
//
//   - record_exists, record_absent: presence of a record
//   - attribute_equals: an attribute value, null matching absent
//   - related_equals: a relationship's identity, identity set, or emptiness
//   - live_query_deliveries: how often a named live query was delivered
//   - key_maps_to: a key value resolving to a record id in the key map
//
// # Deterministic Testing
//
// Trace sequence numbers come from testutil.DeterministicClock and each
// scenario runs against a fresh cache, so traces are identical across runs
// and can be compared with golden files.
package harness
