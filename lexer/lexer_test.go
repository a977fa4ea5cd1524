// Copyright (c) RBQL contributors.

package lexer_test

import (
	"testing"

	"github.com/rbql-lang/rbql-go/lexer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShiftWalksRunesAndEmitsEOF(t *testing.T) {
	t.Parallel()
	l := lexer.New("ab")
	assert.Equal(t, 'a', l.Shift())
	assert.Equal(t, 'b', l.Shift())
	assert.Equal(t, lexer.RuneEOF, l.Shift())
	assert.True(t, lexer.IsEOF(l.Peek()))
}

func TestPeekDoesNotAdvance(t *testing.T) {
	t.Parallel()
	l := lexer.New("xy")
	assert.Equal(t, 'x', l.Peek())
	assert.Equal(t, 'x', l.Peek())
	assert.Equal(t, 'x', l.Shift())
	assert.Equal(t, 'y', l.Peek())
}

func TestReduceReturnsConsumedSpan(t *testing.T) {
	t.Parallel()
	l := lexer.New("hello world")
	l.Some(lexer.IsLetter)
	assert.Equal(t, "hello", l.Reduce())
	l.Shift() // consume the space
	l.Reduce()
	l.Some(lexer.IsLetter)
	assert.Equal(t, "world", l.Reduce())
}

func TestExpectAdvancesOnlyOnMatch(t *testing.T) {
	t.Parallel()
	l := lexer.New("1x")
	require.True(t, l.Expect(lexer.IsNumber))
	require.False(t, l.Expect(lexer.IsNumber))
	assert.Equal(t, 'x', l.Peek())
}

func TestChecksCompose(t *testing.T) {
	t.Parallel()
	assert.True(t, lexer.IsIdentStart('_'))
	assert.True(t, lexer.IsIdentStart('a'))
	assert.False(t, lexer.IsIdentStart('1'))
	assert.True(t, lexer.IsIdentPart('1'))
	assert.True(t, lexer.Not(lexer.IsSpace)('a'))
	assert.False(t, lexer.Not(lexer.IsSpace)(' '))
}
