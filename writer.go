// Copyright (c) RBQL contributors.

package rbql

import (
	"sort"
	"strings"

	"github.com/rbql-lang/rbql-go/expr"
)

// recordKey renders rec into a single comparable string for
// DISTINCT/DISTINCT COUNT deduplication, tagging each field with its
// Kind so e.g. the string "1" and the int 1 never collide.
func recordKey(rec Record) string {
	var b strings.Builder
	for _, v := range rec {
		b.WriteByte(byte(v.Kind()))
		b.WriteString(v.String())
		b.WriteByte(0)
	}
	return b.String()
}

// SortedWriter buffers every row with its compiled sort key and, on
// Finish, sorts lexicographically (stable, reversed if DESC) before
// draining into the terminal sink.
type SortedWriter struct {
	next OutputWriter
	desc bool

	keys []expr.Value
	rows []Record
}

func NewSortedWriter(next OutputWriter, desc bool) *SortedWriter {
	return &SortedWriter{next: next, desc: desc}
}

func (w *SortedWriter) WriteSorted(key expr.Value, rec Record) {
	w.keys = append(w.keys, key)
	w.rows = append(w.rows, rec)
}

func (w *SortedWriter) Write(rec Record) (bool, error) { return true, nil }
func (w *SortedWriter) SetHeader(h Header)              { w.next.SetHeader(h) }
func (w *SortedWriter) Warnings() []string              { return w.next.Warnings() }

func (w *SortedWriter) Finish() error {
	idx := make([]int, len(w.rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		c := w.keys[idx[i]].Compare(w.keys[idx[j]])
		if w.desc {
			return c > 0
		}
		return c < 0
	})
	for _, i := range idx {
		if ok, err := w.next.Write(w.rows[i]); err != nil || !ok {
			if err != nil {
				return err
			}
			break
		}
	}
	return w.next.Finish()
}

// UniqWriter drops rows already seen, preserving first-seen order.
type UniqWriter struct {
	next OutputWriter
	seen map[string]bool
}

func NewUniqWriter(next OutputWriter) *UniqWriter {
	return &UniqWriter{next: next, seen: map[string]bool{}}
}

func (w *UniqWriter) Write(rec Record) (bool, error) {
	key := recordKey(rec)
	if w.seen[key] {
		return true, nil
	}
	w.seen[key] = true
	return w.next.Write(rec)
}
func (w *UniqWriter) SetHeader(h Header) { w.next.SetHeader(h) }
func (w *UniqWriter) Finish() error      { return w.next.Finish() }
func (w *UniqWriter) Warnings() []string { return w.next.Warnings() }

// UniqCountWriter counts occurrences per distinct row and, on Finish,
// prepends the count to each first-seen row.
type UniqCountWriter struct {
	next    OutputWriter
	order   []string
	counts  map[string]int
	records map[string]Record
}

func NewUniqCountWriter(next OutputWriter) *UniqCountWriter {
	return &UniqCountWriter{next: next, counts: map[string]int{}, records: map[string]Record{}}
}

func (w *UniqCountWriter) Write(rec Record) (bool, error) {
	key := recordKey(rec)
	if _, ok := w.counts[key]; !ok {
		w.order = append(w.order, key)
		w.records[key] = rec
	}
	w.counts[key]++
	return true, nil
}
func (w *UniqCountWriter) SetHeader(h Header) {
	w.next.SetHeader(append(Header{"count"}, h...))
}
func (w *UniqCountWriter) Warnings() []string { return w.next.Warnings() }

func (w *UniqCountWriter) Finish() error {
	for _, key := range w.order {
		row := append(Record{expr.IntValue(int64(w.counts[key]))}, w.records[key]...)
		if ok, err := w.next.Write(row); err != nil || !ok {
			if err != nil {
				return err
			}
			break
		}
	}
	return w.next.Finish()
}

// TopWriter accepts records until its limit is reached, then returns
// false to signal the driver to stop pulling records.
type TopWriter struct {
	next  OutputWriter
	limit int
	count int
}

func NewTopWriter(next OutputWriter, limit int) *TopWriter {
	return &TopWriter{next: next, limit: limit}
}

func (w *TopWriter) Write(rec Record) (bool, error) {
	if w.count >= w.limit {
		return false, nil
	}
	ok, err := w.next.Write(rec)
	if err != nil {
		return false, err
	}
	w.count++
	if w.count >= w.limit {
		return false, nil
	}
	return ok, nil
}
func (w *TopWriter) SetHeader(h Header) { w.next.SetHeader(h) }
func (w *TopWriter) Finish() error      { return w.next.Finish() }
func (w *TopWriter) Warnings() []string { return w.next.Warnings() }

// AggregateWriter is installed by Query before any record is read,
// whenever the query has a GROUP BY or a SELECT item calls an
// aggregate. Unlike the other decorators it is not driven through the
// plain Write method: the driver folds each record into it
// (foldAggregateRow via SetAggregator/SetConstVerifier/noteKey) and the
// writer assembles rows on Finish, one per distinct GROUP BY key, in
// ascending key order.
type AggregateWriter struct {
	next      OutputWriter
	columns   []aggregateColumn
	groupKeys map[string]bool
	keyOrder  []string
	keyNative map[string]expr.Value
}

type aggregateColumn struct {
	agg      *Aggregator
	verifier *ConstGroupVerifier
}

func NewAggregateWriter(next OutputWriter, nCols int) *AggregateWriter {
	return &AggregateWriter{
		next:      next,
		columns:   make([]aggregateColumn, nCols),
		groupKeys: map[string]bool{},
		keyNative: map[string]expr.Value{},
	}
}

func (w *AggregateWriter) SetAggregator(col int, agg *Aggregator) {
	w.columns[col] = aggregateColumn{agg: agg}
}

func (w *AggregateWriter) SetConstVerifier(col int, v *ConstGroupVerifier) {
	w.columns[col] = aggregateColumn{verifier: v}
}

func (w *AggregateWriter) noteKey(key string, keyVal expr.Value) {
	if !w.groupKeys[key] {
		w.groupKeys[key] = true
		w.keyOrder = append(w.keyOrder, key)
		w.keyNative[key] = keyVal
	}
}

func (w *AggregateWriter) Write(rec Record) (bool, error) { return true, nil }
func (w *AggregateWriter) SetHeader(h Header)              { w.next.SetHeader(h) }
func (w *AggregateWriter) Warnings() []string              { return w.next.Warnings() }

func (w *AggregateWriter) Finish() error {
	keys := append([]string(nil), w.keyOrder...)
	sort.Slice(keys, func(i, j int) bool {
		return w.keyNative[keys[i]].Compare(w.keyNative[keys[j]]) < 0
	})
	for _, key := range keys {
		row := make(Record, len(w.columns))
		for i, col := range w.columns {
			switch {
			case col.agg != nil:
				row[i] = col.agg.Finalize(key)
			case col.verifier != nil:
				row[i] = col.verifier.Value(key)
			default:
				row[i] = expr.NullValue()
			}
		}
		if ok, err := w.next.Write(row); err != nil || !ok {
			if err != nil {
				return err
			}
			break
		}
	}
	return w.next.Finish()
}
