// Copyright (c) RBQL contributors.

// Package sqlitetable is the SQLite collaborator: it reads a whole table,
// named by a simple identifier (other names are rejected), with
// `select * from <table>` through database/sql and the pure-Go
// modernc.org/sqlite driver, the same driver and sql.Open("sqlite",
// ...) call sqldef uses for its own SQLite backend.
package sqlitetable

import (
	"database/sql"
	"fmt"
	"strings"

	rbql "github.com/rbql-lang/rbql-go"
	"github.com/rbql-lang/rbql-go/expr"
	_ "modernc.org/sqlite"
)

// Registry opens one SQLite database file and resolves `FROM <table>`
// references against its tables. It implements rbql.TableRegistry.
type Registry struct {
	db    *sql.DB
	warns []string
}

func Open(path string) (*Registry, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("rbql: %w: %v", rbql.ErrIOHandling, err)
	}
	return &Registry{db: db}, nil
}

func (r *Registry) GetIterator(tableID, alias string) (rbql.InputIterator, error) {
	if !isSimpleIdent(tableID) {
		return nil, fmt.Errorf("rbql: %w: invalid table name %q", rbql.ErrIOHandling, tableID)
	}
	rows, err := r.db.Query(fmt.Sprintf("select * from %s", tableID))
	if err != nil {
		return nil, fmt.Errorf("rbql: %w: %v", rbql.ErrIOHandling, err)
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("rbql: %w: %v", rbql.ErrIOHandling, err)
	}
	return &Iterator{rows: rows, header: append(rbql.Header{}, cols...)}, nil
}

func (r *Registry) Finish() error      { return r.db.Close() }
func (r *Registry) Warnings() []string { return r.warns }

func isSimpleIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

// Iterator walks a *sql.Rows cursor, converting each row's driver
// values to expr.Value by SQLite dynamic type (INTEGER/REAL/TEXT/NULL
// map onto Int/Float/Str/Null directly; BLOB is surfaced as Str).
type Iterator struct {
	rows   *sql.Rows
	header rbql.Header
	warns  []string
}

func (it *Iterator) VariablesMap(string) (map[string]rbql.VariableInfo, error) { return nil, nil }

func (it *Iterator) NextRecord() (rbql.Record, bool, error) {
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			return nil, false, fmt.Errorf("rbql: %w: %v", rbql.ErrIOHandling, err)
		}
		return nil, false, nil
	}
	raw := make([]interface{}, len(it.header))
	ptrs := make([]interface{}, len(it.header))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := it.rows.Scan(ptrs...); err != nil {
		return nil, false, fmt.Errorf("rbql: %w: %v", rbql.ErrIOHandling, err)
	}
	rec := make(rbql.Record, len(raw))
	for i, v := range raw {
		rec[i] = valueOf(v)
	}
	return rec, true, nil
}

func valueOf(v interface{}) expr.Value {
	switch t := v.(type) {
	case nil:
		return expr.NullValue()
	case int64:
		return expr.IntValue(t)
	case float64:
		return expr.FloatValue(t)
	case []byte:
		return expr.StrValue(string(t))
	case string:
		return expr.StrValue(t)
	default:
		return expr.StrValue(fmt.Sprintf("%v", t))
	}
}

func (it *Iterator) Header() rbql.Header { return it.header }

func (it *Iterator) HandleQueryModifier(name string) error {
	switch name {
	case "header", "headers", "noheader", "noheaders":
		// SQLite tables always carry column names; WITH modifiers are
		// accepted but don't change behavior.
		return nil
	default:
		return fmt.Errorf("sqlitetable: unknown query modifier %q", name)
	}
}

func (it *Iterator) Warnings() []string { return it.warns }
func (it *Iterator) Finish() error      { return it.rows.Close() }

// Writer appends each row into a destination table via a prepared
// INSERT, creating the table from the first SetHeader call if it does
// not already exist. It implements rbql.OutputWriter.
type Writer struct {
	db     *sql.DB
	table  string
	header rbql.Header
	stmt   *sql.Stmt
	warns  []string
}

func NewWriter(db *sql.DB, table string) *Writer {
	return &Writer{db: db, table: table}
}

func (w *Writer) SetHeader(h rbql.Header) {
	w.header = h
	cols := make([]string, len(h))
	for i, name := range h {
		if name == "" {
			name = fmt.Sprintf("col%d", i+1)
		}
		cols[i] = name
	}
	ddl := fmt.Sprintf("create table if not exists %s (%s)", w.table, strings.Join(cols, ", "))
	if _, err := w.db.Exec(ddl); err != nil {
		w.warns = append(w.warns, fmt.Sprintf("sqlitetable: create table failed: %v", err))
	}
}

func (w *Writer) Write(rec rbql.Record) (bool, error) {
	if w.stmt == nil {
		placeholders := strings.TrimRight(strings.Repeat("?,", len(rec)), ",")
		stmt, err := w.db.Prepare(fmt.Sprintf("insert into %s values (%s)", w.table, placeholders))
		if err != nil {
			return false, fmt.Errorf("rbql: %w: %v", rbql.ErrIOHandling, err)
		}
		w.stmt = stmt
	}
	args := make([]interface{}, len(rec))
	for i, v := range rec {
		args[i] = driverValue(v)
	}
	if _, err := w.stmt.Exec(args...); err != nil {
		return false, fmt.Errorf("rbql: %w: %v", rbql.ErrIOHandling, err)
	}
	return true, nil
}

func driverValue(v expr.Value) interface{} {
	switch v.Kind() {
	case expr.Null:
		return nil
	case expr.Int:
		return v.Int()
	case expr.Float:
		return v.Float64()
	default:
		return v.String()
	}
}

func (w *Writer) Finish() error {
	if w.stmt != nil {
		return w.stmt.Close()
	}
	return nil
}

func (w *Writer) Warnings() []string { return w.warns }
