// Copyright (c) RBQL contributors.

package rbql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rbql-lang/rbql-go/expr"
)

// Query is the engine's entry point (C9's caller): it compiles text
// against input/join/registry and drives records through the writer
// pipeline into output. Warnings collected from the iterator, join
// map, and writer are returned alongside any error.
func Query(text string, input InputIterator, join InputIterator, output OutputWriter, registry TableRegistry, opt ...Option) ([]string, error) {
	opts, err := getOpts(opt...)
	if err != nil {
		return nil, err
	}

	masked, literals := extractLiterals(text)
	masked = rewriteArrayIndexRefs(masked)
	am, err := separateActions(masked)
	if err != nil {
		return nil, err
	}

	if am.With != "" {
		if err := input.HandleQueryModifier(am.With); err != nil {
			return nil, fmt.Errorf("rbql: %w: %v", ErrIOHandling, err)
		}
	}

	if am.HasFrom() && registry != nil {
		resolved, err := registry.GetIterator(strings.TrimSpace(am.From), "a")
		if err != nil {
			return nil, fmt.Errorf("rbql: %w: %v", ErrIOHandling, err)
		}
		input = resolved
	}

	qc := newQueryContext(opts)
	qc.opts = opts
	qc.inputHeader = input.Header()

	if am.Join != nil {
		tableName, onClause, ferr := splitJoinClause(am.Join.Text)
		if ferr != nil {
			return nil, ferr
		}
		joinIter := join
		if joinIter == nil && registry != nil {
			resolved, err := registry.GetIterator(tableName, "b")
			if err != nil {
				return nil, fmt.Errorf("rbql: %w: %v", ErrIOHandling, err)
			}
			joinIter = resolved
		}
		if joinIter == nil {
			return nil, fmt.Errorf("rbql: %w: JOIN requires a join table iterator", ErrIOHandling)
		}
		qc.joinHeader = joinIter.Header()
		if (len(qc.inputHeader) == 0) != (len(qc.joinHeader) == 0) {
			return nil, fmt.Errorf("rbql: %w: input and join tables must agree on header presence", ErrIOHandling)
		}
		lhs, rhs, rerr := resolveJoinKeys(onClause, qc.inputHeader, qc.joinHeader)
		if rerr != nil {
			return nil, rerr
		}
		qc.lhsKeyIdx, qc.rhsKeyIdx = lhs, rhs
		jm, berr := buildJoinMap(joinIter, rhs)
		if berr != nil {
			return nil, berr
		}
		qc.joinMap = jm
		qc.joiner = joinerFor(am.Join.Subtype)
		qc.join = am.Join
		qc.warnings = append(qc.warnings, joinIter.Warnings()...)
	}

	// extractLiterals masks a["name"]-style keys along with every other
	// literal; put just those back so the static pass can check them.
	varText := masked
	for i, lit := range literals {
		for _, p := range []string{"a[", "b["} {
			varText = strings.ReplaceAll(varText, p+literalAt(i)+"]", p+lit+"]")
		}
	}
	if err := validateVariableReferences(varText, qc.inputHeader, qc.joinHeader); err != nil {
		return nil, err
	}
	if !opts.normalizeColumnNames {
		if err := validateDirectColumnAmbiguity(masked, qc.inputHeader, qc.joinHeader); err != nil {
			return nil, err
		}
	}

	if am.HasWhere() {
		w, werr := translateWhere(am.Where, literals)
		if werr != nil {
			return nil, werr
		}
		qc.where = w
	}
	if am.GroupBy != "" {
		g, gerr := translateGroupBy(am.GroupBy, literals)
		if gerr != nil {
			return nil, gerr
		}
		qc.groupBy = g
	}
	if am.OrderBy != nil {
		o, oerr := translateOrderBy(am.OrderBy.Text, literals)
		if oerr != nil {
			return nil, oerr
		}
		qc.orderBy = o
		qc.orderByDesc = am.OrderBy.Desc
	}

	isUpdate := am.Update != nil
	if !isUpdate {
		if am.HasExcept() {
			idx, eerr := translateExcept(am.Except, qc.inputHeader)
			if eerr != nil {
				return nil, eerr
			}
			qc.exceptIdx, qc.hasExcept = idx, true
		} else {
			items, serr := translateSelect(am.Select.Text, literals)
			if serr != nil {
				return nil, serr
			}
			qc.selectItems = items
		}
	} else {
		assigns, uerr := translateUpdate(am.Update.Text, literals, qc.inputHeader)
		if uerr != nil {
			return nil, uerr
		}
		qc.update = assigns
	}

	outHeader, herr := inferHeader(qc.selectItems, qc.exceptIdx, qc.hasExcept, qc.inputHeader, qc.joinHeader)
	if herr != nil {
		return nil, herr
	}
	if isUpdate {
		outHeader = qc.inputHeader
	}

	nCols := len(qc.selectItems)
	if qc.hasExcept {
		nCols = len(qc.inputHeader) - len(qc.exceptIdx)
	}

	var pipeline OutputWriter = output
	hasAggregation := am.GroupBy != "" || selectLooksAggregated(qc.selectItems)
	if hasAggregation && am.Select != nil && selectLooksUnnested(am.Select.Text) {
		return nil, fmt.Errorf("rbql: %w: %v", ErrParsing, errUnnestWithAggregation)
	}
	if hasAggregation {
		qc.aggWriter = NewAggregateWriter(pipeline, nCols)
		pipeline = qc.aggWriter
	}
	if am.Limit != nil {
		pipeline = NewTopWriter(pipeline, *am.Limit)
	}
	var uniqWriter *UniqWriter
	var uniqCountWriter *UniqCountWriter
	if am.Select != nil && am.Select.DistinctCount {
		uniqCountWriter = NewUniqCountWriter(pipeline)
		pipeline = uniqCountWriter
	} else if am.Select != nil && am.Select.Distinct {
		uniqWriter = NewUniqWriter(pipeline)
		pipeline = uniqWriter
	}
	var sortedWriter *SortedWriter
	if am.OrderBy != nil {
		sortedWriter = NewSortedWriter(pipeline, am.OrderBy.Desc)
		pipeline = sortedWriter
	}

	pipeline.SetHeader(outHeader)

	nr := 0
	for {
		recA, ok, nerr := input.NextRecord()
		if nerr != nil {
			return qc.warnings, nerr
		}
		if !ok {
			break
		}
		nr++

		stop, perr := qc.processRecord(recA, nr, isUpdate, pipeline, sortedWriter)
		if perr != nil {
			if opts.debugMode {
				return qc.warnings, perr
			}
			return qc.warnings, wrapRecordError(perr, nr)
		}
		if stop {
			break
		}
	}

	if err := pipeline.Finish(); err != nil {
		return qc.warnings, err
	}
	qc.warnings = append(qc.warnings, input.Warnings()...)
	qc.warnings = append(qc.warnings, output.Warnings()...)
	return qc.warnings, nil
}

func selectLooksAggregated(items []SelectItem) bool {
	for _, item := range items {
		if item.Expr != nil && sourceCallsAggregate(item.Expr.Source()) {
			return true
		}
	}
	return false
}

func sourceCallsAggregate(src string) bool {
	upper := strings.ToUpper(src)
	for name := range aggKindNames {
		if strings.Contains(upper, name+"(") {
			return true
		}
	}
	return false
}

// selectLooksUnnested is the static half of the UNNEST+aggregation
// rejection: a substring scan over the raw SELECT text, cheap enough
// to run before any record is read, matching how
// selectLooksAggregated/sourceCallsAggregate already detect aggregate
// calls from the action map without evaluating anything.
func selectLooksUnnested(selectText string) bool {
	return strings.Contains(strings.ToUpper(selectText), "UNNEST(")
}

// splitJoinClause separates a JOIN payload `T ON a2 == b1` into its
// table reference and ON-clause.
func splitJoinClause(text string) (table, onClause string, err error) {
	upper := strings.ToUpper(text)
	idx := strings.Index(upper, " ON ")
	if idx < 0 {
		return "", "", fmt.Errorf("rbql: %w: JOIN requires an ON clause", ErrParsing)
	}
	return strings.TrimSpace(text[:idx]), strings.TrimSpace(text[idx+4:]), nil
}

// processRecord runs one input record through the SELECT/UPDATE x
// Simple/Join path, returning true if the driver should
// stop pulling further records.
func (qc *QueryContext) processRecord(recA Record, nr int, isUpdate bool, pipeline OutputWriter, sortedWriter *SortedWriter) (bool, error) {
	var matches []joinEntry
	if qc.joinMap != nil {
		key, err := qc.joinLookupKeyFor(recA, nr)
		if err != nil {
			return false, err
		}
		matches, err = qc.joiner.GetRHS(qc.joinMap, key)
		if err != nil {
			return false, err
		}
	} else {
		matches = []joinEntry{{RecordNumber: -1, Record: nil}}
	}

	if isUpdate && qc.joinMap != nil && len(matches) > 1 {
		return false, fmt.Errorf("rbql: %w: %v", ErrRuntime, errMultipleJoinMatchesInUpdate)
	}

	for _, m := range matches {
		var recB Record
		bNum := -1
		if qc.joinMap != nil {
			recB, bNum = m.Record, m.RecordNumber
		}
		stop, err := qc.evalOne(recA, recB, nr, bNum, isUpdate, pipeline, sortedWriter)
		if err != nil {
			return false, err
		}
		if stop {
			return true, nil
		}
	}
	return false, nil
}

func (qc *QueryContext) joinLookupKeyFor(recA Record, nr int) (string, error) {
	vals := make([]expr.Value, len(qc.lhsKeyIdx))
	for i, idx := range qc.lhsKeyIdx {
		if idx == -1 {
			vals[i] = expr.IntValue(int64(nr))
			continue
		}
		v, err := safeGet(recA, idx)
		if err != nil {
			return "", err
		}
		vals[i] = v
	}
	return joinLookupKey(vals, qc.rhsKeyIdx), nil
}

func (qc *QueryContext) evalOne(recA, recB Record, nr, bNum int, isUpdate bool, pipeline OutputWriter, sortedWriter *SortedWriter) (bool, error) {
	env := qc.newEnv(recA, recB, nr, bNum)
	qc.unnestSet = false

	if qc.where != nil {
		wv, err := expr.Eval(qc.where, env)
		if err != nil {
			return false, err
		}
		if !wv.Truthy() {
			return false, nil
		}
	}

	if isUpdate {
		return qc.evalUpdate(recA, env, pipeline)
	}
	return qc.evalSelect(recA, recB, env, pipeline, sortedWriter)
}

func (qc *QueryContext) evalUpdate(recA Record, env *expr.Env, pipeline OutputWriter) (bool, error) {
	up := append(Record(nil), recA...)
	for _, a := range qc.update {
		v, err := expr.Eval(a.Value, env)
		if err != nil {
			return false, err
		}
		up = safeSet(up, a.TargetIndex, v)
	}
	ok, err := pipeline.Write(up)
	return !ok, err
}

func (qc *QueryContext) evalSelect(recA, recB Record, env *expr.Env, pipeline OutputWriter, sortedWriter *SortedWriter) (bool, error) {
	var out Record
	if qc.hasExcept {
		out = selectExcept(recA, qc.exceptIdx)
	} else {
		row, err := qc.evalSelectItems(env)
		if err != nil {
			return false, err
		}
		out = row
	}

	if qc.aggWriter != nil {
		return qc.foldAggregateRow(out, env)
	}

	if qc.unnestSet {
		return qc.emitUnnestFanout(out, env, pipeline, sortedWriter)
	}
	return qc.emitRow(out, env, pipeline, sortedWriter)
}

func (qc *QueryContext) evalSelectItems(env *expr.Env) (Record, error) {
	var out Record
	for i, item := range qc.selectItems {
		switch item.Star {
		case starAll:
			out = append(out, append(append(Record(nil), env.Vars["a"].RecordFields()...), joinFields(env)...)...)
			continue
		case starA:
			out = append(out, env.Vars["a"].RecordFields()...)
			continue
		case starB:
			out = append(out, joinFields(env)...)
			continue
		}
		qc.currentColumn = i
		v, err := expr.Eval(item.Expr, env)
		qc.currentColumn = -1
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func joinFields(env *expr.Env) []expr.Value {
	b, ok := env.Vars["b"]
	if !ok {
		return nil
	}
	return b.RecordFields()
}

func (qc *QueryContext) foldAggregateRow(out Record, env *expr.Env) (bool, error) {
	var key string
	var keyVal expr.Value
	if qc.groupBy != nil {
		kv, err := expr.Eval(qc.groupBy, env)
		if err != nil {
			return false, err
		}
		key = kv.String()
		keyVal = kv
	}
	for i, v := range out {
		if v.Kind() == expr.Agg {
			tok := v.AggToken()
			col := qc.aggWriter.columns[i]
			if col.agg == nil {
				kind := aggKindForMarker(qc.selectItems, i)
				agg := newAggregator(kind)
				qc.aggWriter.SetAggregator(i, agg)
				col = qc.aggWriter.columns[i]
			}
			if err := col.agg.Increment(key, keyVal, tok.Raw); err != nil {
				return false, err
			}
		} else {
			col := qc.aggWriter.columns[i]
			if col.verifier == nil {
				verifier := newConstGroupVerifier()
				qc.aggWriter.SetConstVerifier(i, verifier)
				col = qc.aggWriter.columns[i]
			}
			if err := col.verifier.Check(key, v); err != nil {
				return false, err
			}
		}
	}
	qc.aggWriter.noteKey(key, keyVal)
	qc.aggregationStage = 2
	return false, nil
}

func aggKindForMarker(items []SelectItem, col int) AggKind {
	if col >= len(items) || items[col].Expr == nil {
		return AggSum
	}
	upper := strings.ToUpper(items[col].Expr.Source())
	for name, kind := range aggKindNames {
		if strings.Contains(upper, name+"(") {
			return kind
		}
	}
	return AggSum
}

func (qc *QueryContext) emitRow(out Record, env *expr.Env, pipeline OutputWriter, sortedWriter *SortedWriter) (bool, error) {
	if sortedWriter != nil {
		kv, err := expr.Eval(qc.orderBy, env)
		if err != nil {
			return false, err
		}
		sortedWriter.WriteSorted(kv, out)
		return false, nil
	}
	ok, err := pipeline.Write(out)
	return !ok, err
}

func (qc *QueryContext) emitUnnestFanout(out Record, env *expr.Env, pipeline OutputWriter, sortedWriter *SortedWriter) (bool, error) {
	for _, v := range qc.unnestSlot {
		row := replaceAggOrUnnestPlaceholder(out, v)
		stop, err := qc.emitRow(row, env, pipeline, sortedWriter)
		if err != nil || stop {
			return stop, err
		}
	}
	return false, nil
}

// replaceAggOrUnnestPlaceholder substitutes each List-kind field
// (the value UNNEST was called with) with a single fanned-out value v.
func replaceAggOrUnnestPlaceholder(out Record, v expr.Value) Record {
	row := append(Record(nil), out...)
	for i, f := range row {
		if f.Kind() == expr.List {
			row[i] = v
		}
	}
	return row
}

// wrapRecordError implements the per-record error translation table,
// annotating an error with the record number it occurred at.
func wrapRecordError(err error, nr int) error {
	var unbound *expr.UnboundNameError
	if errors.As(err, &unbound) {
		return fmt.Errorf("rbql: %w: no %q field at record %d", ErrRuntime, unbound.Name, nr)
	}
	var badKey *expr.BadKeyError
	if errors.As(err, &badKey) {
		return fmt.Errorf("rbql: %w: no %q field at record %d", ErrRuntime, badKey.Key, nr)
	}
	var badField *expr.BadFieldError
	if errors.As(err, &badField) {
		return fmt.Errorf("rbql: %w: no \"a%d\" field at record %d", ErrRuntime, badField.Index, nr)
	}
	if errors.Is(err, ErrParsing) {
		return err
	}
	if errors.Is(err, ErrRuntime) || errors.Is(err, ErrIOHandling) || errors.Is(err, ErrSyntax) {
		return fmt.Errorf("%w (at record %d)", err, nr)
	}
	return fmt.Errorf("rbql: %w: at record %d, details: %v", ErrUnexpected, nr, err)
}
