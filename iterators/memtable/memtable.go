// Copyright (c) RBQL contributors.

// Package memtable is the dependency-free InputIterator/OutputWriter/
// TableRegistry collaborator over in-memory rows. It is what the
// engine's own tests query against, and the reference implementation
// for anyone embedding RBQL without a CSV or SQL source.
package memtable

import (
	"fmt"

	rbql "github.com/rbql-lang/rbql-go"
)

// Iterator walks a fixed slice of rows, optionally carrying a header.
// It implements rbql.InputIterator.
type Iterator struct {
	header rbql.Header
	rows   []rbql.Record
	pos    int
	warns  []string
}

func NewIterator(header rbql.Header, rows []rbql.Record) *Iterator {
	return &Iterator{header: header, rows: rows}
}

func (it *Iterator) VariablesMap(string) (map[string]rbql.VariableInfo, error) {
	return nil, nil
}

func (it *Iterator) NextRecord() (rbql.Record, bool, error) {
	if it.pos >= len(it.rows) {
		return nil, false, nil
	}
	row := it.rows[it.pos]
	it.pos++
	return row, true, nil
}

func (it *Iterator) Header() rbql.Header { return it.header }

func (it *Iterator) HandleQueryModifier(name string) error {
	switch name {
	case "header", "headers":
		if len(it.header) == 0 && len(it.rows) > 0 {
			it.header = stringsOf(it.rows[0])
			it.rows = it.rows[1:]
		}
	case "noheader", "noheaders":
		it.header = nil
	default:
		return fmt.Errorf("memtable: unknown query modifier %q", name)
	}
	return nil
}

func stringsOf(row rbql.Record) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = v.String()
	}
	return out
}

func (it *Iterator) Warnings() []string { return it.warns }
func (it *Iterator) Finish() error      { return nil }

// Writer collects every written row in memory for later inspection,
// e.g. by a caller embedding the engine directly rather than through
// the CLI. It implements rbql.OutputWriter.
type Writer struct {
	header rbql.Header
	Rows   []rbql.Record
	warns  []string
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Write(rec rbql.Record) (bool, error) {
	w.Rows = append(w.Rows, rec)
	return true, nil
}

func (w *Writer) SetHeader(h rbql.Header) { w.header = h }
func (w *Writer) Header() rbql.Header     { return w.header }
func (w *Writer) Finish() error           { return nil }
func (w *Writer) Warnings() []string      { return w.warns }

// Registry resolves `FROM <id>` / `JOIN <id>` references against a
// fixed set of named in-memory tables. It implements rbql.TableRegistry.
type Registry struct {
	tables map[string]*Iterator
}

func NewRegistry(tables map[string]*Iterator) *Registry {
	return &Registry{tables: tables}
}

func (r *Registry) GetIterator(tableID, alias string) (rbql.InputIterator, error) {
	it, ok := r.tables[tableID]
	if !ok {
		return nil, fmt.Errorf("memtable: unknown table %q", tableID)
	}
	return it, nil
}

func (r *Registry) Finish() error      { return nil }
func (r *Registry) Warnings() []string { return nil }
