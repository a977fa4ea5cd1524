// Copyright (c) RBQL contributors.

package rbql

import "github.com/rbql-lang/rbql-go/expr"

// Record is an ordered sequence of field values pulled from an input
// iterator or produced by a clause translator. Field values reuse
// expr.Value so the same tagged union flows from storage through
// evaluation to output without conversion.
type Record = []expr.Value

// Header is an optional, ordered sequence of unique column names
// associated with an input.
type Header = []string

// VariableInfo maps a query-text variable name to its resolved
// position. Index -1 marks the record-number variable (NR family).
type VariableInfo struct {
	NeedsInitialization bool
	Index               int
}

// safeGet indexes rec by position, returning a BadFieldError-shaped
// failure instead of panicking when the record is short. idx is
// 0-based here (VariableInfo.Index already converted from the query's
// 1-based aN form).
func safeGet(rec Record, idx int) (expr.Value, error) {
	if idx < 0 || idx >= len(rec) {
		return expr.Value{}, &expr.BadFieldError{Index: idx + 1}
	}
	return rec[idx], nil
}

// safeSet mirrors safe_set: assigns rec[idx] = v, extending the slice
// with nulls if necessary (UPDATE is allowed to grow the shape of a
// short record up to the assigned index, matching the original).
func safeSet(rec Record, idx int, v expr.Value) Record {
	for len(rec) <= idx {
		rec = append(rec, expr.NullValue())
	}
	rec[idx] = v
	return rec
}

// selectExcept returns rec with the fields at excludeIdx removed,
// preserving order of the remaining fields (C4's EXCEPT translation).
func selectExcept(rec Record, excludeIdx []int) Record {
	if len(excludeIdx) == 0 {
		return append(Record(nil), rec...)
	}
	excluded := make(map[int]bool, len(excludeIdx))
	for _, i := range excludeIdx {
		excluded[i] = true
	}
	out := make(Record, 0, len(rec))
	for i, v := range rec {
		if !excluded[i] {
			out = append(out, v)
		}
	}
	return out
}
