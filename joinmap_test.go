// Copyright (c) RBQL contributors.

package rbql

import (
	"testing"

	"github.com/rbql-lang/rbql-go/expr"
	"github.com/rbql-lang/rbql-go/iterators/memtable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildJoinMapBucketsByKey(t *testing.T) {
	t.Parallel()
	rows := []Record{
		{expr.IntValue(1), expr.StrValue("x")},
		{expr.IntValue(1), expr.StrValue("y")},
		{expr.IntValue(2), expr.StrValue("z")},
	}
	jm, err := buildJoinMap(memtable.NewIterator(nil, rows), []int{0})
	require.NoError(t, err)

	key, err := joinMapKey(Record{expr.IntValue(1)}, 0, []int{0})
	require.NoError(t, err)
	assert.Len(t, jm.entries[key], 2)
}

func TestInnerJoinerReturnsOnlyMatches(t *testing.T) {
	t.Parallel()
	rows := []Record{{expr.IntValue(1)}}
	jm, err := buildJoinMap(memtable.NewIterator(nil, rows), []int{0})
	require.NoError(t, err)

	key, err := joinMapKey(Record{expr.IntValue(99)}, 0, []int{0})
	require.NoError(t, err)
	matches, err := (InnerJoiner{}).GetRHS(jm, key)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestLeftJoinerSynthesizesNullRow(t *testing.T) {
	t.Parallel()
	rows := []Record{{expr.IntValue(1), expr.StrValue("x")}}
	jm, err := buildJoinMap(memtable.NewIterator(nil, rows), []int{0})
	require.NoError(t, err)

	key, err := joinMapKey(Record{expr.IntValue(99)}, 0, []int{0})
	require.NoError(t, err)
	matches, err := (LeftJoiner{}).GetRHS(jm, key)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Len(t, matches[0].Record, 2)
	assert.True(t, matches[0].Record[0].IsNull())
}

func TestStrictLeftJoinerErrorsOnMultipleMatches(t *testing.T) {
	t.Parallel()
	rows := []Record{
		{expr.IntValue(1), expr.StrValue("x")},
		{expr.IntValue(1), expr.StrValue("y")},
	}
	jm, err := buildJoinMap(memtable.NewIterator(nil, rows), []int{0})
	require.NoError(t, err)

	key, err := joinMapKey(Record{expr.IntValue(1)}, 0, []int{0})
	require.NoError(t, err)
	_, err = (StrictLeftJoiner{}).GetRHS(jm, key)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRuntime)
}
