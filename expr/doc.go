// Copyright (c) RBQL contributors.

// Package expr is the embedded host expression evaluator: it compiles
// a small, dynamically typed expression language (arithmetic,
// comparisons, function calls, indexing/attribute access, list
// literals) once per query into an
// *expr.Node tree, and evaluates that tree once per record against an
// *expr.Env binding environment. The package knows nothing about RBQL
// clauses, records, joins or aggregation; the engine package wires
// domain-specific identifiers (a, b, NR, NF) and functions (MIN, LIKE,
// UNNEST, ...) into the Env before evaluating.
package expr
