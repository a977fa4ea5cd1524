// Copyright (c) RBQL contributors.

package rbql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rbql-lang/rbql-go/expr"
)

// QueryContext is the single mutable container threaded through the
// driver loop instead of relying on module-level globals.
type QueryContext struct {
	opts options

	inputHeader Header
	joinHeader  Header

	join       *JoinClause
	joinMap    *JoinMap
	joiner     Joiner
	lhsKeyIdx  []int
	rhsKeyIdx  []int

	where   *expr.Expr
	selectItems []SelectItem
	update      []Assignment
	exceptIdx   []int
	hasExcept   bool
	groupBy *expr.Expr
	orderBy *expr.Expr
	orderByDesc bool

	aggregationStage int // 0, 1, 2
	currentColumn    int // -1 outside SELECT evaluation
	aggColumns       []aggregateColumn
	aggWriter        *AggregateWriter

	unnestSlot  []expr.Value
	unnestSet   bool
	unnestCount int

	likeCache map[string]*regexp.Regexp

	warnings []string
}

func newQueryContext(opts options) *QueryContext {
	return &QueryContext{opts: opts, currentColumn: -1, likeCache: map[string]*regexp.Regexp{}}
}

func (qc *QueryContext) addWarning(w string) { qc.warnings = append(qc.warnings, w) }

// newEnv builds an evaluation Env bound to one input record (plus an
// optional join record and its record number), registering the
// builtin/aggregate/LIKE/UNNEST function table. Aggregate calls are
// gated to SELECT-only positions via qc.currentColumn.
func (qc *QueryContext) newEnv(recordA, recordB Record, nr, bRecordNum int) *expr.Env {
	env := expr.NewEnv()

	env.Set("NR", expr.IntValue(int64(nr)))
	env.Set("NF", expr.IntValue(int64(len(recordA))))
	env.Set("aNR", expr.IntValue(int64(nr)))
	if recordB != nil {
		env.Set("bNR", expr.IntValue(int64(bRecordNum)))
	}
	env.Set("a", recordValueOf(recordA, qc.inputHeader))
	if recordB != nil {
		env.Set("b", recordValueOf(recordB, qc.joinHeader))
	}
	for i, v := range recordA {
		env.Set(fmt.Sprintf("a%d", i+1), v)
	}
	for i, v := range recordB {
		env.Set(fmt.Sprintf("b%d", i+1), v)
	}
	if !qc.opts.normalizeColumnNames {
		bindDirectColumnNames(env, recordA, qc.inputHeader)
		bindDirectColumnNames(env, recordB, qc.joinHeader)
	}

	qc.registerBuiltins(env)
	return env
}

func recordValueOf(rec Record, header Header) expr.Value {
	return expr.RecordValueOf(rec, headerIndex(header))
}

func bindDirectColumnNames(env *expr.Env, rec Record, header Header) {
	for i, name := range header {
		if i < len(rec) {
			env.Set(name, rec[i])
		}
	}
}

// registerBuiltins wires the scalar helpers (LIKE, UNNEST) and the
// eight aggregate functions into env's function table.
func (qc *QueryContext) registerBuiltins(env *expr.Env) {
	env.Funcs["LIKE"] = qc.builtinLike
	env.Funcs["UNNEST"] = qc.builtinUnnest
	env.Funcs["len"] = builtinLen
	env.Funcs["int"] = builtinInt
	env.Funcs["float"] = builtinFloat
	env.Funcs["str"] = builtinStr

	for name, kind := range aggKindNames {
		env.Funcs[name] = qc.builtinAggregate(kind)
	}
}

func (qc *QueryContext) builtinAggregate(kind AggKind) expr.Func {
	return func(args []expr.Value) (expr.Value, error) {
		if qc.currentColumn < 0 {
			return expr.Value{}, fmt.Errorf("rbql: %w: %v", ErrRuntime, errAggregationInUserExpression)
		}
		var raw expr.Value
		if len(args) > 0 {
			raw = args[0]
		}
		return expr.AggValue(qc.currentColumn, raw), nil
	}
}

func (qc *QueryContext) builtinLike(args []expr.Value) (expr.Value, error) {
	if len(args) != 2 {
		return expr.Value{}, fmt.Errorf("rbql: %w: LIKE requires exactly 2 arguments", ErrRuntime)
	}
	text, pattern := args[0].String(), args[1].String()
	re, ok := qc.likeCache[pattern]
	if !ok {
		var err error
		re, err = regexp.Compile(likeToRegex(pattern))
		if err != nil {
			return expr.Value{}, fmt.Errorf("rbql: %w: invalid LIKE pattern %q: %v", ErrRuntime, pattern, err)
		}
		qc.likeCache[pattern] = re
	}
	return boolExprValue(re.MatchString(text)), nil
}

func boolExprValue(b bool) expr.Value {
	if b {
		return expr.IntValue(1)
	}
	return expr.IntValue(0)
}

// likeToRegex translates a SQL-LIKE pattern to an anchored regex:
// "_" -> any single character, "%" -> any run of characters, every
// other rune is escaped literally.
func likeToRegex(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '_':
			b.WriteString(".")
		case '%':
			b.WriteString(".*")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}

// builtinUnnest stores vals in the context's unnest slot for the
// driver to fan out after SELECT evaluation; only one UNNEST call per
// record is allowed.
func (qc *QueryContext) builtinUnnest(args []expr.Value) (expr.Value, error) {
	if len(args) != 1 {
		return expr.Value{}, fmt.Errorf("rbql: %w: UNNEST requires exactly 1 argument", ErrRuntime)
	}
	if qc.unnestSet {
		return expr.Value{}, fmt.Errorf("rbql: %w: %v", ErrRuntime, errMultipleUnnest)
	}
	qc.unnestSet = true
	qc.unnestSlot = args[0].ListItems()
	return args[0], nil
}

func builtinLen(args []expr.Value) (expr.Value, error) {
	if len(args) != 1 {
		return expr.Value{}, fmt.Errorf("len requires exactly 1 argument")
	}
	switch args[0].Kind() {
	case expr.List:
		return expr.IntValue(int64(len(args[0].ListItems()))), nil
	default:
		return expr.IntValue(int64(len(args[0].String()))), nil
	}
}

func builtinInt(args []expr.Value) (expr.Value, error) {
	if len(args) != 1 {
		return expr.Value{}, fmt.Errorf("int requires exactly 1 argument")
	}
	nv, ok := args[0].NumericString()
	if !ok {
		return expr.Value{}, fmt.Errorf("rbql: %w: cannot convert %q to int", ErrRuntime, args[0].String())
	}
	return expr.IntValue(int64(nv.Float64())), nil
}

func builtinFloat(args []expr.Value) (expr.Value, error) {
	if len(args) != 1 {
		return expr.Value{}, fmt.Errorf("float requires exactly 1 argument")
	}
	nv, ok := args[0].NumericString()
	if !ok {
		return expr.Value{}, fmt.Errorf("rbql: %w: cannot convert %q to float", ErrRuntime, args[0].String())
	}
	return expr.FloatValue(nv.Float64()), nil
}

func builtinStr(args []expr.Value) (expr.Value, error) {
	if len(args) != 1 {
		return expr.Value{}, fmt.Errorf("str requires exactly 1 argument")
	}
	return expr.StrValue(args[0].String()), nil
}
