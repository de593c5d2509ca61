package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recache/internal/ir"
)

func TestExpressionWireForm(t *testing.T) {
	expr := FindRecords{
		Type: "planet",
		Filter: []Predicate{
			AttributeFilter{Attribute: "name", Op: OpEqual, Value: ir.IRString("Jupiter")},
			RelatedRecordFilter{Relationship: "star", Records: []ir.RecordIdentity{sid("sun")}, Null: true},
			RelatedRecordsFilter{Relationship: "moons", Op: SetSome, Records: []ir.RecordIdentity{mid("io")}},
		},
		Sort: []SortSpecifier{ParseSort("-name")},
		Page: &Page{Offset: 1, Limit: 2},
	}

	data, err := MarshalExpression(expr)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"op":"findRecords","type":"planet",
		"filter":[
			{"kind":"attribute","attribute":"name","op":"equal","value":"Jupiter"},
			{"kind":"relatedRecord","relationship":"star","records":[{"type":"star","id":"sun"}],"null":true},
			{"kind":"relatedRecords","relationship":"moons","op":"some","records":[{"type":"moon","id":"io"}]}
		],
		"sort":["-name"],
		"page":{"offset":1,"limit":2}
	}`, string(data))

	decoded, err := UnmarshalExpression(data)
	require.NoError(t, err)
	assert.Equal(t, expr, decoded)
}

func TestDecodeExpressionKinds(t *testing.T) {
	exprs := []Expression{
		FindRecord{Record: pid("earth"), Options: Options{RaiseNotFoundExceptions: ir.Bool(true)}},
		FindRecords{Records: []ir.RecordIdentity{pid("earth")}},
		FindRelatedRecord{Record: mid("io"), Relationship: "planet"},
		FindRelatedRecords{Record: pid("earth"), Relationship: "moons", Sort: []SortSpecifier{ParseSort("name")}},
	}
	for _, expr := range exprs {
		t.Run(string(expr.Kind()), func(t *testing.T) {
			decoded, err := DecodeExpression(EncodeExpression(expr))
			require.NoError(t, err)
			assert.Equal(t, expr, decoded)
		})
	}
}

func TestDecodeExpressionErrors(t *testing.T) {
	inputs := []string{
		`{"op":"findEverything"}`,
		`{"op":"findRecord"}`,
		`{"op":"findRecords","type":"planet","filter":[{"kind":"fuzzy"}]}`,
		`{"op":"findRecords","type":"planet","sort":[1]}`,
		`{"op":"findRecords","type":"planet","page":{"limit":"ten"}}`,
		`{"op":"findRelatedRecord","record":{"type":"moon","id":"io"}}`,
	}
	for _, in := range inputs {
		_, err := UnmarshalExpression([]byte(in))
		require.Error(t, err, in)
		assert.Equal(t, string(ir.ErrCodeInvalidExpression), ir.CodeOf(err), in)
	}
}

func TestAttributeFilterDefaultsToEqual(t *testing.T) {
	expr, err := UnmarshalExpression([]byte(`{"op":"findRecords","type":"planet","filter":[{"kind":"attribute","attribute":"name","value":"Earth"}]}`))
	require.NoError(t, err)
	f := expr.(FindRecords).Filter[0].(AttributeFilter)
	assert.Equal(t, OpEqual, f.Op)
}

func TestKey(t *testing.T) {
	a, err := Key(FindRecords{Type: "planet", Sort: []SortSpecifier{ParseSort("name")}})
	require.NoError(t, err)
	b, err := Key(FindRecords{Type: "planet", Sort: []SortSpecifier{ParseSort("name")}})
	require.NoError(t, err)
	c, err := Key(FindRecords{Type: "planet", Sort: []SortSpecifier{ParseSort("-name")}})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
