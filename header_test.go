// Copyright (c) RBQL contributors.

package rbql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferHeaderAliasNamedAndSynthetic(t *testing.T) {
	t.Parallel()
	colRef := 0
	items := []SelectItem{
		{Alias: "renamed"},
		{NamedRef: "city"},
		{ColumnRef: &colRef},
		{},
	}
	header, err := inferHeader(items, nil, false, Header{"id", "city"}, nil)
	require.NoError(t, err)
	assert.Equal(t, Header{"renamed", "city", "id", "col4"}, header)
}

func TestInferHeaderStarSplicesBothSides(t *testing.T) {
	t.Parallel()
	items := []SelectItem{{Star: starAll}}
	header, err := inferHeader(items, nil, false, Header{"id"}, Header{"city"})
	require.NoError(t, err)
	assert.Equal(t, Header{"id", "city"}, header)
}

func TestInferHeaderStarBWithoutJoinHeaderErrors(t *testing.T) {
	t.Parallel()
	items := []SelectItem{{Star: starB}}
	_, err := inferHeader(items, nil, false, Header{"id"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIOHandling)
}

func TestInferHeaderNoHeaderReturnsNil(t *testing.T) {
	t.Parallel()
	header, err := inferHeader(nil, nil, false, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, header)
}

func TestSelectExceptHeaderExcludesIndices(t *testing.T) {
	t.Parallel()
	out := selectExceptHeader(Header{"a", "b", "c"}, []int{1})
	assert.Equal(t, Header{"a", "c"}, out)
}
