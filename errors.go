// Copyright (c) RBQL contributors.
// SPDX-License-Identifier: MPL-2.0

package rbql

import "errors"

// Sentinel errors used to build the error taxonomy. Every user-facing
// error returned by the engine wraps exactly one of these, so callers
// can classify failures with errors.Is without parsing strings.
var (
	// ErrParsing marks a static error discovered while compiling the
	// query (C1-C5): duplicate clause, unknown column, ambiguous
	// variable, assignment in WHERE, EXCEPT+JOIN, etc. Never retryable.
	ErrParsing = errors.New("query parsing error")

	// ErrIOHandling marks a resource/format error at the iterator or
	// writer boundary: missing join table, undecodable bytes, header
	// mismatch between input and join tables, incompatible output
	// format.
	ErrIOHandling = errors.New("IO handling error")

	// ErrRuntime marks an error raised while a record is being
	// processed: bad field index, bad key, STRICT LEFT JOIN violation,
	// non-numeric aggregate input, multiple join matches in UPDATE,
	// misuse of an aggregate function inside a user expression.
	ErrRuntime = errors.New("query execution error")

	// ErrSyntax marks a syntax error reported by the host expression
	// evaluator (C11), annotated with actionable hints.
	ErrSyntax = errors.New("syntax error")

	// ErrUnexpected is the catch-all for anything that doesn't fit the
	// taxonomy above.
	ErrUnexpected = errors.New("unexpected error")
)

var (
	errAmbiguousVariable           = errors.New(`ambiguous variable name is present both in input and in join tables`)
	errAggregateKeywordConflict    = errors.New(`"ORDER BY", "UPDATE" and "DISTINCT" keywords are not allowed in aggregate queries`)
	errAggregationInUserExpression = errors.New("usage of aggregate functions inside non-aggregate host expressions is not allowed")
	errNumericConversion           = errors.New("unable to convert value to int or float")
	errSelectUpdateBoth            = errors.New(`query must contain exactly one of "SELECT" or "UPDATE"`)
	errDuplicateClause             = errors.New("duplicate clause in query")
	errUnknownColumn               = errors.New("unknown column reference")
	errAssignmentInWhere           = errors.New(`assignment "=" is not allowed in "WHERE"; use "==" for equality`)
	errExceptWithJoin              = errors.New(`"EXCEPT" and "JOIN" are not allowed in the same query`)
	errMultipleUnnest              = errors.New("only one UNNEST is allowed per query")
	errUnnestWithAggregation       = errors.New("UNNEST cannot be combined with aggregate queries")
	errStrictLeftJoinViolated      = errors.New(`in "STRICT LEFT JOIN" each key in the input table must have exactly one match in the join table`)
	errMultipleJoinMatchesInUpdate = errors.New("more than one record in the join table matched a key from the input table during UPDATE")
)

// expr.BadFieldError / expr.BadKeyError are control-flow-only errors
// raised inside the per-record evaluation loop; wrapRecordError in
// driver.go translates them to ErrRuntime with a record-number-aware
// message before ever reaching a caller.
