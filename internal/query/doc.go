// Package query defines the cache's query expressions and evaluates them.
//
// Four expression kinds exist: FindRecord, FindRecords, FindRelatedRecord
// and FindRelatedRecords. List expressions accept a conjunctive filter,
// a multi-key sort and a page window, applied in that order.
//
// Expressions are plain values. Validate checks one against a schema;
// Evaluate answers it against any Source, which lets the cache evaluate the
// same expression against its base store or against an uncommitted buffer.
//
// The wire form (see EncodeExpression) is shared by the CLI, scenario files
// and the query result memo, whose keys are content hashes of the canonical
// encoding.
package query
