// Copyright (c) RBQL contributors.

package expr_test

import (
	"testing"

	"github.com/rbql-lang/rbql-go/expr"
	"github.com/stretchr/testify/assert"
)

func TestValueCompareListTuplesCompareElementwise(t *testing.T) {
	t.Parallel()
	two := expr.ListValue([]expr.Value{expr.IntValue(2)})
	nine := expr.ListValue([]expr.Value{expr.IntValue(9)})
	ten := expr.ListValue([]expr.Value{expr.IntValue(10)})

	assert.Negative(t, two.Compare(nine))
	assert.Negative(t, nine.Compare(ten))
	assert.Positive(t, ten.Compare(two))
	assert.Zero(t, ten.Compare(ten))
}

func TestValueCompareListTuplesFallBackToStringOnTypeMismatch(t *testing.T) {
	t.Parallel()
	a := expr.ListValue([]expr.Value{expr.StrValue("x"), expr.IntValue(1)})
	b := expr.ListValue([]expr.Value{expr.StrValue("x"), expr.IntValue(2)})
	assert.Negative(t, a.Compare(b))
}
