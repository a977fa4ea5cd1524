// Copyright (c) RBQL contributors.

package expr_test

import (
	"testing"

	"github.com/rbql-lang/rbql-go/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalArithmeticAndLogic(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		source  string
		want    string
		wantErr bool
	}{
		{name: "add-ints", source: "1 + 2", want: "3"},
		{name: "mixed-float-promotes", source: "1 + 2.5", want: "3.5"},
		{name: "string-concat", source: `"a" + "b"`, want: "ab"},
		{name: "string-number-coercion", source: `"x" + 1`, want: "x1"},
		{name: "precedence", source: "2 + 3 * 4", want: "14"},
		{name: "comparison", source: "3 > 2", want: "1"},
		{name: "logical-and-short-circuit", source: "0 and (1/0)", want: "0"},
		{name: "logical-or-short-circuit", source: "1 or (1/0)", want: "1"},
		{name: "not", source: "not 0", want: "1"},
		{name: "division-by-zero", source: "1 / 0", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ex, err := expr.Compile(tt.source)
			require.NoError(t, err)
			env := expr.NewEnv()
			got, err := expr.Eval(ex, env)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestEvalIdentifiersAndIndex(t *testing.T) {
	t.Parallel()
	env := expr.NewEnv()
	env.Set("a1", expr.StrValue("hello"))
	env.Set("a2", expr.IntValue(42))
	env.Set("a", expr.RecordValueOf([]expr.Value{expr.StrValue("hello"), expr.IntValue(42)}, map[string]int{"name": 0, "age": 1}))

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{name: "flat-ident", source: "a1", want: "hello"},
		{name: "index-by-int", source: "a[1]", want: "42"},
		{name: "index-by-name", source: `a["name"]`, want: "hello"},
		{name: "attr", source: "a.age", want: "42"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ex, err := expr.Compile(tt.source)
			require.NoError(t, err)
			got, err := expr.Eval(ex, env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestEvalUnboundNameAndBadIndex(t *testing.T) {
	t.Parallel()
	env := expr.NewEnv()
	env.Set("a", expr.RecordValueOf([]expr.Value{expr.StrValue("x")}, map[string]int{"name": 0}))

	ex, err := expr.Compile("missing_name")
	require.NoError(t, err)
	_, err = expr.Eval(ex, env)
	require.Error(t, err)
	var unbound *expr.UnboundNameError
	assert.ErrorAs(t, err, &unbound)

	ex, err = expr.Compile("a[5]")
	require.NoError(t, err)
	_, err = expr.Eval(ex, env)
	require.Error(t, err)
	var badField *expr.BadFieldError
	assert.ErrorAs(t, err, &badField)

	ex, err = expr.Compile(`a["nope"]`)
	require.NoError(t, err)
	_, err = expr.Eval(ex, env)
	require.Error(t, err)
	var badKey *expr.BadKeyError
	assert.ErrorAs(t, err, &badKey)
}

func TestEvalFunctionCall(t *testing.T) {
	t.Parallel()
	env := expr.NewEnv()
	env.Funcs["double"] = func(args []expr.Value) (expr.Value, error) {
		return expr.IntValue(args[0].Int() * 2), nil
	}
	ex, err := expr.Compile("double(21)")
	require.NoError(t, err)
	got, err := expr.Eval(ex, env)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Int())
}
