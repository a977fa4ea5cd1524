// Copyright (c) RBQL contributors.

package rbql

import (
	"fmt"
	"sort"

	"github.com/rbql-lang/rbql-go/expr"
	"golang.org/x/exp/constraints"
)

// AggKind names one of the eight supported aggregate functions.
type AggKind int

const (
	AggMin AggKind = iota
	AggMax
	AggSum
	AggAvg
	AggVariance
	AggMedian
	AggCount
	AggArrayAgg
)

var aggKindNames = map[string]AggKind{
	"MIN": AggMin, "MAX": AggMax, "SUM": AggSum, "AVG": AggAvg,
	"VARIANCE": AggVariance, "MEDIAN": AggMedian, "COUNT": AggCount, "ARRAY_AGG": AggArrayAgg,
}

// numLatch is the per-aggregator "NumHandler": it decides, on first
// use, whether the running value is tracked as int or float, and
// forces a promotion to float the first time a genuinely fractional
// input appears; non-numeric non-numeric-string inputs are a runtime
// error.
type numLatch struct {
	decided bool
	isFloat bool
}

func (n *numLatch) coerce(v expr.Value) (expr.Value, error) {
	nv, ok := v.NumericString()
	if !ok {
		return expr.Value{}, fmt.Errorf("rbql: %w: %v: %v", ErrRuntime, errNumericConversion, v)
	}
	if !n.decided {
		n.decided = true
		n.isFloat = nv.Kind() == expr.Float
	} else if nv.Kind() == expr.Float {
		n.isFloat = true
	}
	return nv, nil
}

// minMaxOrdered is a small generic helper built on golang.org/x/exp/constraints
// for numeric latches: once a numLatch has decided whether an
// aggregator is running in int or float space, MIN/MAX compare in that
// concrete domain.
func minMaxOrdered[T constraints.Integer | constraints.Float](a, b T, wantMax bool) T {
	if wantMax {
		if b > a {
			return b
		}
		return a
	}
	if b < a {
		return b
	}
	return a
}

type aggState struct {
	latch       numLatch
	keyVal      expr.Value
	sum, sumSq  float64
	sumInt      int64
	count       int64
	minF, maxF  float64
	minI, maxI  int64
	initialized bool
	medianVals  []expr.Value
	arrayVals   []expr.Value
	constVal    *expr.Value
}

// Aggregator accumulates one MIN/MAX/.../ARRAY_AGG column across all
// records sharing a GROUP BY key.
type Aggregator struct {
	kind   AggKind
	states map[string]*aggState
}

func newAggregator(kind AggKind) *Aggregator {
	return &Aggregator{kind: kind, states: map[string]*aggState{}}
}

// Increment folds val into the running state for key. keyVal is the
// compiled GROUP BY key's native value (a zero Value when the query
// has no GROUP BY), kept so Keys() can sort groups by their own type
// instead of the stringified key.
func (a *Aggregator) Increment(key string, keyVal, val expr.Value) error {
	st, ok := a.states[key]
	if !ok {
		st = &aggState{keyVal: keyVal}
		a.states[key] = st
	}

	switch a.kind {
	case AggCount:
		st.count++
		return nil
	case AggArrayAgg:
		st.arrayVals = append(st.arrayVals, val)
		return nil
	case AggMedian:
		nv, err := st.latch.coerce(val)
		if err != nil {
			return err
		}
		st.medianVals = append(st.medianVals, nv)
		return nil
	}

	nv, err := st.latch.coerce(val)
	if err != nil {
		return err
	}

	switch a.kind {
	case AggMin, AggMax:
		wantMax := a.kind == AggMax
		if st.latch.isFloat {
			f := nv.Float64()
			if !st.initialized {
				st.minF, st.maxF = f, f
			} else if wantMax {
				st.maxF = minMaxOrdered(st.maxF, f, true)
			} else {
				st.minF = minMaxOrdered(st.minF, f, false)
			}
		} else {
			i := int64(nv.Float64())
			// minF/maxF follow along so a later promotion to float
			// still covers the int values seen before it.
			if !st.initialized {
				st.minI, st.maxI = i, i
				st.minF, st.maxF = float64(i), float64(i)
			} else if wantMax {
				st.maxI = minMaxOrdered(st.maxI, i, true)
				st.maxF = minMaxOrdered(st.maxF, float64(i), true)
			} else {
				st.minI = minMaxOrdered(st.minI, i, false)
				st.minF = minMaxOrdered(st.minF, float64(i), false)
			}
		}
		st.initialized = true
	case AggSum, AggAvg, AggVariance:
		f := nv.Float64()
		st.sum += f
		st.sumSq += f * f
		st.sumInt += int64(f)
		st.count++
		st.initialized = true
	}
	return nil
}

// Finalize produces the output value for key once all records have
// been folded in.
func (a *Aggregator) Finalize(key string) expr.Value {
	st := a.states[key]
	if st == nil {
		return expr.NullValue()
	}
	switch a.kind {
	case AggCount:
		return expr.IntValue(st.count)
	case AggArrayAgg:
		return expr.ListValue(st.arrayVals)
	case AggMedian:
		return finalizeMedian(st.medianVals)
	case AggMin:
		if st.latch.isFloat {
			return expr.FloatValue(st.minF)
		}
		return expr.IntValue(st.minI)
	case AggMax:
		if st.latch.isFloat {
			return expr.FloatValue(st.maxF)
		}
		return expr.IntValue(st.maxI)
	case AggSum:
		if st.latch.isFloat {
			return expr.FloatValue(st.sum)
		}
		return expr.IntValue(st.sumInt)
	case AggAvg:
		if st.count == 0 {
			return expr.FloatValue(0)
		}
		return expr.FloatValue(st.sum / float64(st.count))
	case AggVariance:
		if st.count == 0 {
			return expr.FloatValue(0)
		}
		mean := st.sum / float64(st.count)
		meanSq := st.sumSq / float64(st.count)
		return expr.FloatValue(meanSq - mean*mean)
	default:
		return expr.NullValue()
	}
}

func finalizeMedian(vals []expr.Value) expr.Value {
	if len(vals) == 0 {
		return expr.FloatValue(0)
	}
	sorted := append([]expr.Value(nil), vals...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Compare(sorted[j]) < 0 })
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	a, b := sorted[n/2-1].Float64(), sorted[n/2].Float64()
	return expr.FloatValue((a + b) / 2)
}

// Keys returns the aggregator's group keys in ascending order of the
// compiled GROUP BY key's native value, matching the AggregateWriter's
// "one row per key in sorted-key order" finish behavior. Sorting by
// keyVal rather than the stringified key keeps numeric keys in
// numeric order (2, 9, 10) instead of lexicographic order (10, 2, 9).
func (a *Aggregator) Keys() []string {
	keys := make([]string, 0, len(a.states))
	for k := range a.states {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return a.states[keys[i]].keyVal.Compare(a.states[keys[j]].keyVal) < 0
	})
	return keys
}

// ConstGroupVerifier enforces that every non-aggregated SELECT
// position in a GROUP BY query sees a single constant value per key.
type ConstGroupVerifier struct {
	values map[string]expr.Value
}

func newConstGroupVerifier() *ConstGroupVerifier {
	return &ConstGroupVerifier{values: map[string]expr.Value{}}
}

func (c *ConstGroupVerifier) Check(key string, val expr.Value) error {
	if prev, ok := c.values[key]; ok {
		if !prev.Equal(val) {
			return fmt.Errorf("rbql: %w: non-aggregated column has more than one value within a GROUP BY group", ErrRuntime)
		}
		return nil
	}
	c.values[key] = val
	return nil
}

func (c *ConstGroupVerifier) Value(key string) expr.Value {
	return c.values[key]
}
