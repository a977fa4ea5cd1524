// Copyright (c) RBQL contributors.

package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileNode(t *testing.T, src string) *Node {
	t.Helper()
	toks, err := tokenize(src)
	require.NoError(t, err)
	p := &parser{tokens: toks}
	n, err := p.parseOr()
	require.NoError(t, err)
	require.Equal(t, eofToken, p.cur().Type)
	return n
}

func TestParsePrecedenceMulBeforeAdd(t *testing.T) {
	t.Parallel()
	n := compileNode(t, "1 + 2 * 3")
	require.Equal(t, nBinary, n.kind)
	assert.Equal(t, "+", n.op)
	assert.Equal(t, nLit, n.x.kind)
	require.Equal(t, nBinary, n.y.kind)
	assert.Equal(t, "*", n.y.op)
}

func TestParseEqualityComparison(t *testing.T) {
	t.Parallel()
	n := compileNode(t, "a1 == 5")
	require.Equal(t, nBinary, n.kind)
	assert.Equal(t, "==", n.op)
	assert.Equal(t, nIdent, n.x.kind)
	assert.Equal(t, "a1", n.x.name)
}

func TestParseLogicalPrecedenceAndBeforeOr(t *testing.T) {
	t.Parallel()
	n := compileNode(t, "a or b and c")
	require.Equal(t, nLogical, n.kind)
	assert.Equal(t, "or", n.op)
	require.Equal(t, nLogical, n.y.kind)
	assert.Equal(t, "and", n.y.op)
}

func TestParseNotBindsTighterThanAnd(t *testing.T) {
	t.Parallel()
	n := compileNode(t, "not a and b")
	require.Equal(t, nLogical, n.kind)
	assert.Equal(t, "and", n.op)
	require.Equal(t, nNot, n.x.kind)
}

func TestParseUnaryMinus(t *testing.T) {
	t.Parallel()
	n := compileNode(t, "-a1")
	require.Equal(t, nUnary, n.kind)
	assert.Equal(t, "-", n.op)
}

func TestParseFunctionCall(t *testing.T) {
	t.Parallel()
	n := compileNode(t, "MIN(a1, 5)")
	require.Equal(t, nCall, n.kind)
	assert.Equal(t, "MIN", n.callee)
	require.Len(t, n.args, 2)
}

func TestParseIndexAndAttrChain(t *testing.T) {
	t.Parallel()
	n := compileNode(t, `a["x"].y`)
	require.Equal(t, nAttr, n.kind)
	assert.Equal(t, "y", n.attrName)
	require.Equal(t, nIndex, n.target.kind)
	assert.Equal(t, nIdent, n.target.target.kind)
}

func TestParseListLiteral(t *testing.T) {
	t.Parallel()
	n := compileNode(t, "[1, 2, 3]")
	require.Equal(t, nList, n.kind)
	assert.Len(t, n.items, 3)
}

func TestParseParenthesesGroup(t *testing.T) {
	t.Parallel()
	n := compileNode(t, "(1 + 2) * 3")
	require.Equal(t, nBinary, n.kind)
	assert.Equal(t, "*", n.op)
	require.Equal(t, nBinary, n.x.kind)
	assert.Equal(t, "+", n.x.op)
}

func TestParseCallOnNonIdentifierErrors(t *testing.T) {
	t.Parallel()
	toks, err := tokenize("5(1)")
	require.NoError(t, err)
	p := &parser{tokens: toks}
	_, err = p.parseOr()
	require.Error(t, err)
}

func TestParseTrailingTokenErrors(t *testing.T) {
	t.Parallel()
	_, err := Compile("1 + 2 3")
	require.Error(t, err)
}

func TestCompileExposesSource(t *testing.T) {
	t.Parallel()
	e, err := Compile("a1 + 1")
	require.NoError(t, err)
	assert.Equal(t, "a1 + 1", e.Source())
}
