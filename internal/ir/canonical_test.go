package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"string", IRString("hello"), `"hello"`},
		{"int", IRInt(42), `42`},
		{"negative int", IRInt(-7), `-7`},
		{"true", IRBool(true), `true`},
		{"false", IRBool(false), `false`},
		{"null", IRNull{}, `null`},
		{"nil", nil, `null`},
		{"empty array", IRArray{}, `[]`},
		{"empty object", IRObject{}, `{}`},
		{"go string", "x", `"x"`},
		{"go int", 3, `3`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := IRObject{
		"zebra": IRInt(1),
		"apple": IRInt(2),
		"mango": IRObject{"b": IRInt(1), "a": IRNull{}},
	}

	got, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"apple":2,"mango":{"a":null,"b":1},"zebra":1}`, string(got))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+1F600 encodes as a surrogate pair (0xD83D...), which sorts before
	// U+FF61 in UTF-16 but after it in UTF-8.
	obj := IRObject{
		"\uFF61":     IRInt(1),
		"\U0001F600": IRInt(2),
	}

	got, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uFF61\":1}", string(got))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	got, err := MarshalCanonical(IRString("<a & b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(got))
}

func TestMarshalCanonicalRejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(3.14)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats")

	_, err = MarshalCanonical(map[string]any{"x": 1.5})
	require.Error(t, err)
}

func TestMarshalCanonicalNFCNormalization(t *testing.T) {
	// "e" followed by a combining acute accent normalizes to U+00E9.
	got, err := MarshalCanonical(IRString("e\u0301"))
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	got, err := MarshalCanonical(IRString("a\u2028b\u2029c"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(got))
}

func TestMarshalCanonicalLiteralBackslashU2028(t *testing.T) {
	// The six characters \u2028 written as text must stay escaped.
	got, err := MarshalCanonical(IRString(`\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(got))
}

func TestMarshalCanonicalGoCollections(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"list": []any{"a", 1, true, nil},
		"n":    int64(5),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"list":["a",1,true,null],"n":5}`, string(got))
}

func TestMarshalCanonicalIdempotent(t *testing.T) {
	obj := IRObject{"b": IRArray{IRString("x"), IRInt(1)}, "a": IRBool(true)}
	first, err := MarshalCanonical(obj)
	require.NoError(t, err)

	var decoded IRObject
	require.NoError(t, decoded.UnmarshalJSON(first))
	second, err := MarshalCanonical(decoded)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}
