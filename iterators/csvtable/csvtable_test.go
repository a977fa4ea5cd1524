// Copyright (c) RBQL contributors.

package csvtable_test

import (
	"bytes"
	"strings"
	"testing"

	rbql "github.com/rbql-lang/rbql-go"
	"github.com/rbql-lang/rbql-go/expr"
	"github.com/rbql-lang/rbql-go/iterators/csvtable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIteratorSplitsSimplePolicy(t *testing.T) {
	t.Parallel()
	it, err := csvtable.NewIterator(strings.NewReader("a\tb\tc\n1\t2\t3\n"), "\t", csvtable.PolicySimple, csvtable.EncodingUTF8)
	require.NoError(t, err)

	rec, ok, err := it.NextRecord()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, []string{rec[0].String(), rec[1].String(), rec[2].String()})
}

func TestIteratorQuotedPolicyHandlesEmbeddedDelimiter(t *testing.T) {
	t.Parallel()
	it, err := csvtable.NewIterator(strings.NewReader(`"hello, world",2`+"\n"), ",", csvtable.PolicyQuoted, csvtable.EncodingUTF8)
	require.NoError(t, err)

	rec, ok, err := it.NextRecord()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello, world", rec[0].String())
	assert.Equal(t, "2", rec[1].String())
}

func TestIteratorMonocolumnKeepsWholeLine(t *testing.T) {
	t.Parallel()
	it, err := csvtable.NewIterator(strings.NewReader("a,b,c\n"), ",", csvtable.PolicyMonocolumn, csvtable.EncodingUTF8)
	require.NoError(t, err)

	rec, ok, err := it.NextRecord()
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, rec, 1)
	assert.Equal(t, "a,b,c", rec[0].String())
}

func TestIteratorStripsUTF8BOM(t *testing.T) {
	t.Parallel()
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("a\tb\n")...)
	it, err := csvtable.NewIterator(bytes.NewReader(data), "\t", csvtable.PolicySimple, csvtable.EncodingUTF8)
	require.NoError(t, err)

	rec, ok, err := it.NextRecord()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", rec[0].String())
}

func TestWriterMonocolumnFallsBackToCSVOnMultiField(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w := csvtable.NewWriter(&buf, ",", csvtable.PolicyMonocolumn)
	ok, err := w.Write(rbql.Record{expr.StrValue("only")})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = w.Write(rbql.Record{expr.StrValue("x"), expr.StrValue("y")})
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, w.Finish())
	assert.NotEmpty(t, w.Warnings())
}
