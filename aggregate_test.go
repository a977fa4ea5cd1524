// Copyright (c) RBQL contributors.

package rbql

import (
	"testing"

	"github.com/rbql-lang/rbql-go/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorMinMaxSumCount(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		kind AggKind
		vals []int64
		want expr.Value
	}{
		{name: "min", kind: AggMin, vals: []int64{5, 2, 8}, want: expr.IntValue(2)},
		{name: "max", kind: AggMax, vals: []int64{5, 2, 8}, want: expr.IntValue(8)},
		{name: "sum", kind: AggSum, vals: []int64{1, 2, 3}, want: expr.IntValue(6)},
		{name: "count", kind: AggCount, vals: []int64{1, 2, 3}, want: expr.IntValue(3)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			agg := newAggregator(tt.kind)
			for _, v := range tt.vals {
				require.NoError(t, agg.Increment("k", expr.Value{}, expr.IntValue(v)))
			}
			assert.Equal(t, tt.want.String(), agg.Finalize("k").String())
		})
	}
}

func TestAggregatorAvg(t *testing.T) {
	t.Parallel()
	agg := newAggregator(AggAvg)
	require.NoError(t, agg.Increment("k", expr.Value{}, expr.IntValue(2)))
	require.NoError(t, agg.Increment("k", expr.Value{}, expr.IntValue(4)))
	assert.Equal(t, "3", agg.Finalize("k").String())
}

func TestAggregatorMedianOddAndEven(t *testing.T) {
	t.Parallel()
	odd := newAggregator(AggMedian)
	for _, v := range []int64{3, 1, 2} {
		require.NoError(t, odd.Increment("k", expr.Value{}, expr.IntValue(v)))
	}
	assert.Equal(t, "2", odd.Finalize("k").String())

	even := newAggregator(AggMedian)
	for _, v := range []int64{1, 2, 3, 4} {
		require.NoError(t, even.Increment("k", expr.Value{}, expr.IntValue(v)))
	}
	assert.Equal(t, "2.5", even.Finalize("k").String())
}

func TestAggregatorKeysSortedAscending(t *testing.T) {
	t.Parallel()
	agg := newAggregator(AggCount)
	require.NoError(t, agg.Increment("b", expr.StrValue("b"), expr.IntValue(1)))
	require.NoError(t, agg.Increment("a", expr.StrValue("a"), expr.IntValue(1)))
	require.NoError(t, agg.Increment("c", expr.StrValue("c"), expr.IntValue(1)))
	assert.Equal(t, []string{"a", "b", "c"}, agg.Keys())
}

// TestAggregatorKeysSortedNumerically guards against sorting by the
// stringified key: "10" sorts before "2" lexicographically but must
// come after it once the keys are compared as the numeric values they
// were compiled from.
func TestAggregatorKeysSortedNumerically(t *testing.T) {
	t.Parallel()
	agg := newAggregator(AggCount)
	for _, n := range []int64{10, 2, 9} {
		key := expr.IntValue(n).String()
		require.NoError(t, agg.Increment(key, expr.IntValue(n), expr.IntValue(1)))
	}
	assert.Equal(t, []string{"2", "9", "10"}, agg.Keys())
}

func TestAggregatorNumericConversionError(t *testing.T) {
	t.Parallel()
	agg := newAggregator(AggSum)
	err := agg.Increment("k", expr.Value{}, expr.StrValue("not a number"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRuntime)
}

func TestConstGroupVerifierRejectsDivergentValues(t *testing.T) {
	t.Parallel()
	v := newConstGroupVerifier()
	require.NoError(t, v.Check("k", expr.StrValue("x")))
	require.NoError(t, v.Check("k", expr.StrValue("x")))
	err := v.Check("k", expr.StrValue("y"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRuntime)
}
