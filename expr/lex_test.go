// Copyright (c) RBQL contributors.

package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeBasicTokens(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
		want []tokenType
	}{
		{"ident and int", "a1 + 10", []tokenType{identToken, plusToken, intToken, eofToken}},
		{"float with exponent", "1.5e-3", []tokenType{floatToken, eofToken}},
		{"comparison ops", "a == b != c <= d >= e", []tokenType{
			identToken, equalToken, identToken, notEqualToken, identToken,
			lessThanOrEqualToken, identToken, greaterThanOrEqualToken, identToken, eofToken,
		}},
		{"keywords", "a and not b or None", []tokenType{
			identToken, andToken, notToken, identToken, orToken, nullToken, eofToken,
		}},
		{"brackets and dot", `a["x"].y`, []tokenType{
			identToken, leftBracketToken, stringToken, rightBracketToken, dotToken, identToken, eofToken,
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			toks, err := tokenize(tt.src)
			require.NoError(t, err)
			require.Len(t, toks, len(tt.want))
			for i, wantType := range tt.want {
				assert.Equalf(t, wantType, toks[i].Type, "token %d of %q", i, tt.src)
			}
		})
	}
}

func TestTokenizeStringEscapes(t *testing.T) {
	t.Parallel()
	toks, err := tokenize(`"a\tb\nc"`)
	require.NoError(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, "a\tb\nc", toks[0].Value)
}

func TestTokenizeSingleQuotedString(t *testing.T) {
	t.Parallel()
	toks, err := tokenize(`'hello'`)
	require.NoError(t, err)
	assert.Equal(t, stringToken, toks[0].Type)
	assert.Equal(t, "hello", toks[0].Value)
}

func TestTokenizeUnterminatedStringErrors(t *testing.T) {
	t.Parallel()
	_, err := tokenize(`"abc`)
	require.Error(t, err)
}

func TestTokenizeBadSingleEqualsErrors(t *testing.T) {
	t.Parallel()
	_, err := tokenize("a = b")
	require.Error(t, err)
}

func TestTokenizeBadBangErrors(t *testing.T) {
	t.Parallel()
	_, err := tokenize("a ! b")
	require.Error(t, err)
}
