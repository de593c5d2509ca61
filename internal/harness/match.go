package harness

import (
	"fmt"

	"github.com/roach88/recache/internal/ir"
)

// matchSubset reports whether actual contains expected. Objects match when
// every expected field matches; arrays must have the same length and match
// element-wise; scalars compare with ir.Equal. A nil expected matches only
// null.
func matchSubset(actual, expected ir.IRValue) bool {
	if ir.IsNull(expected) {
		return ir.IsNull(actual)
	}
	switch exp := expected.(type) {
	case ir.IRObject:
		act, ok := actual.(ir.IRObject)
		if !ok {
			return false
		}
		for k, v := range exp {
			av, ok := act[k]
			if !ok {
				if ir.IsNull(v) {
					continue
				}
				return false
			}
			if !matchSubset(av, v) {
				return false
			}
		}
		return true
	case ir.IRArray:
		act, ok := actual.(ir.IRArray)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !matchSubset(act[i], exp[i]) {
				return false
			}
		}
		return true
	}
	return ir.Equal(actual, expected)
}

// toIR converts a decoded YAML value. The error names the field.
func toIR(field string, v any) (ir.IRValue, error) {
	val, err := ir.FromAny(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return val, nil
}

// identityOf decodes a {type, id} map.
func identityOf(field string, v map[string]any) (ir.RecordIdentity, error) {
	val, err := toIR(field, v)
	if err != nil {
		return ir.RecordIdentity{}, err
	}
	id, err := ir.DecodeIdentity(val)
	if err != nil {
		return ir.RecordIdentity{}, fmt.Errorf("%s: %w", field, err)
	}
	return id, nil
}

// render formats a value as canonical JSON for messages.
func render(v ir.IRValue) string {
	if v == nil {
		return "undefined"
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
