// Copyright (c) RBQL contributors.

package rbql

import (
	"fmt"
	"strings"

	"github.com/rbql-lang/rbql-go/expr"
)

// joinEntry is one record indexed into a JoinMap.
type joinEntry struct {
	RecordNumber int
	FieldCount   int
	Record       Record
}

// JoinMap is the hash table built eagerly from the join iterator
// before the first main-input record is pulled.
type JoinMap struct {
	entries      map[string][]joinEntry
	maxRecordLen int
	keyIdx       []int
}

// buildJoinMap consumes iter fully, computing each record's join key
// from keyIdx (composite when len(keyIdx) > 1) and bucketing records
// by that key.
func buildJoinMap(iter InputIterator, keyIdx []int) (*JoinMap, error) {
	jm := &JoinMap{entries: map[string][]joinEntry{}, keyIdx: keyIdx}
	recNum := 0
	for {
		rec, ok, err := iter.NextRecord()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		recNum++
		if len(rec) > jm.maxRecordLen {
			jm.maxRecordLen = len(rec)
		}
		key, err := joinMapKey(rec, recNum, keyIdx)
		if err != nil {
			return nil, err
		}
		jm.entries[key] = append(jm.entries[key], joinEntry{RecordNumber: recNum, FieldCount: len(rec), Record: rec})
	}
	return jm, nil
}

func joinMapKey(rec Record, recNum int, keyIdx []int) (string, error) {
	var b strings.Builder
	for _, idx := range keyIdx {
		if idx == -1 {
			fmt.Fprintf(&b, "%d:%d\x1f", expr.Int, recNum)
			continue
		}
		if idx < 0 || idx >= len(rec) {
			return "", fmt.Errorf("rbql: %w: JOIN key index %d out of bounds for record %d", ErrRuntime, idx+1, recNum)
		}
		v := rec[idx]
		fmt.Fprintf(&b, "%d:%s\x1f", v.Kind(), v.String())
	}
	return b.String(), nil
}

// joinLookupKey builds the lookup key for one input record's JOIN
// equality, in the same encoding joinMapKey used to bucket the join
// table. Each position comes from lhsValues[i], the value already
// resolved for the input side of that equality (the input record's
// own NR when the input side is NR-keyed, otherwise the input-side
// column value) — never from a join-side record, since none has been
// matched yet at lookup time.
func joinLookupKey(lhsValues []expr.Value, keyIdx []int) string {
	var b strings.Builder
	for i, idx := range keyIdx {
		if idx == -1 {
			nv, _ := lhsValues[i].NumericString()
			fmt.Fprintf(&b, "%d:%d\x1f", expr.Int, int64(nv.Float64()))
			continue
		}
		fmt.Fprintf(&b, "%d:%s\x1f", lhsValues[i].Kind(), lhsValues[i].String())
	}
	return b.String()
}

// Joiner is the strategy applied to each main-input record's join-key
// lookup: InnerJoiner, LeftJoiner, or StrictLeftJoiner.
type Joiner interface {
	GetRHS(jm *JoinMap, key string) ([]joinEntry, error)
}

type InnerJoiner struct{}

func (InnerJoiner) GetRHS(jm *JoinMap, key string) ([]joinEntry, error) {
	return jm.entries[key], nil
}

type LeftJoiner struct{}

func (LeftJoiner) GetRHS(jm *JoinMap, key string) ([]joinEntry, error) {
	matches := jm.entries[key]
	if len(matches) > 0 {
		return matches, nil
	}
	nulls := make(Record, jm.maxRecordLen)
	for i := range nulls {
		nulls[i] = expr.NullValue()
	}
	return []joinEntry{{RecordNumber: -1, FieldCount: jm.maxRecordLen, Record: nulls}}, nil
}

type StrictLeftJoiner struct{}

func (StrictLeftJoiner) GetRHS(jm *JoinMap, key string) ([]joinEntry, error) {
	matches := jm.entries[key]
	if len(matches) != 1 {
		return nil, fmt.Errorf("rbql: %w: %v", ErrRuntime, errStrictLeftJoinViolated)
	}
	return matches, nil
}

func joinerFor(subtype JoinSubtype) Joiner {
	switch subtype {
	case JoinLeft, JoinLeftOuter:
		return LeftJoiner{}
	case JoinStrictLeft:
		return StrictLeftJoiner{}
	default:
		return InnerJoiner{}
	}
}
