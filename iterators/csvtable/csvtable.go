// Copyright (c) RBQL contributors.

// Package csvtable is the CSV line-splitter/writer collaborator: it
// reads/writes delimited text under one of five separator policies,
// decoding non-UTF-8 bytes and stripping a leading UTF-8 BOM the way
// the CLI's --encoding/--policy flags describe.
package csvtable

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	rbql "github.com/rbql-lang/rbql-go"
	"github.com/rbql-lang/rbql-go/expr"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Policy is one of the five field-separation strategies the CLI
// exposes via --policy.
type Policy string

const (
	PolicySimple      Policy = "simple"
	PolicyQuoted      Policy = "quoted"
	PolicyQuotedRFC   Policy = "quoted_rfc"
	PolicyWhitespace  Policy = "whitespace"
	PolicyMonocolumn  Policy = "monocolumn"
)

// Encoding selects the byte decoder applied before line splitting.
type Encoding string

const (
	EncodingUTF8   Encoding = "utf-8"
	EncodingLatin1 Encoding = "latin-1"
)

// Iterator reads records from r under policy/delim/encoding. It
// implements rbql.InputIterator.
type Iterator struct {
	scanner *bufio.Scanner
	delim   string
	policy  Policy
	header  rbql.Header
	warns   []string
}

// NewIterator wraps r in a BOM-aware decoder for encoding, then splits
// lines with bufio.Scanner.
func NewIterator(r io.Reader, delim string, policy Policy, enc Encoding) (*Iterator, error) {
	br := bufio.NewReader(r)
	var warns []string
	if enc == EncodingUTF8 || enc == "" {
		if head, _ := br.Peek(3); string(head) == "\xef\xbb\xbf" {
			warns = append(warns, "UTF-8 BOM detected and stripped")
		}
	}
	decoded, err := decode(br, enc)
	if err != nil {
		return nil, fmt.Errorf("csvtable: %w", err)
	}
	return &Iterator{scanner: bufio.NewScanner(decoded), delim: delim, policy: policy, warns: warns}, nil
}

func decode(r io.Reader, enc Encoding) (io.Reader, error) {
	switch enc {
	case EncodingLatin1:
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case EncodingUTF8, "":
		// BOMOverride strips a leading UTF-8 BOM if present and is a
		// no-op otherwise; NewIterator reports a stripped BOM via a
		// warning.
		return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", enc)
	}
}

func (it *Iterator) VariablesMap(string) (map[string]rbql.VariableInfo, error) { return nil, nil }

func (it *Iterator) NextRecord() (rbql.Record, bool, error) {
	if !it.scanner.Scan() {
		if err := it.scanner.Err(); err != nil {
			return nil, false, fmt.Errorf("rbql: %w: %v", rbql.ErrIOHandling, err)
		}
		return nil, false, nil
	}
	fields := splitLine(it.scanner.Text(), it.delim, it.policy)
	rec := make(rbql.Record, len(fields))
	for i, f := range fields {
		rec[i] = expr.StrValue(f)
	}
	return rec, true, nil
}

func splitLine(line, delim string, policy Policy) []string {
	switch policy {
	case PolicyMonocolumn:
		return []string{line}
	case PolicyWhitespace:
		return strings.Fields(line)
	case PolicyQuoted, PolicyQuotedRFC:
		return splitQuoted(line, delim)
	default:
		return strings.Split(line, delim)
	}
}

// splitQuoted is a minimal quoted-field splitter: a field wrapped in
// double quotes may contain the delimiter; "" inside a quoted field is
// an escaped quote.
func splitQuoted(line, delim string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case inQuotes && r == '"':
			if i+1 < len(runes) && runes[i+1] == '"' {
				cur.WriteRune('"')
				i++
			} else {
				inQuotes = false
			}
		case !inQuotes && r == '"' && cur.Len() == 0:
			inQuotes = true
		case !inQuotes && strings.HasPrefix(string(runes[i:]), delim):
			fields = append(fields, cur.String())
			cur.Reset()
			i += len(delim) - 1
		default:
			cur.WriteRune(r)
		}
	}
	fields = append(fields, cur.String())
	return fields
}

// UseHeader consumes the first record as the header (WITH (header)).
func (it *Iterator) UseHeader() error {
	rec, ok, err := it.NextRecord()
	if err != nil {
		return err
	}
	if ok {
		h := make(rbql.Header, len(rec))
		for i, v := range rec {
			h[i] = v.String()
		}
		it.header = h
	}
	return nil
}

func (it *Iterator) Header() rbql.Header { return it.header }

func (it *Iterator) HandleQueryModifier(name string) error {
	switch name {
	case "header", "headers":
		return it.UseHeader()
	case "noheader", "noheaders":
		it.header = nil
		return nil
	default:
		return fmt.Errorf("csvtable: unknown query modifier %q", name)
	}
}

func (it *Iterator) Warnings() []string { return it.warns }
func (it *Iterator) Finish() error      { return nil }

// Writer writes records to w under policy/delim, falling back from
// monocolumn to a quoted form on the configured delimiter, with a
// warning, if a multi-field row ever appears.
type Writer struct {
	w           *bufio.Writer
	delim       string
	policy      Policy
	switchedCSV bool
	warns       []string
}

func NewWriter(w io.Writer, delim string, policy Policy) *Writer {
	return &Writer{w: bufio.NewWriter(w), delim: delim, policy: policy}
}

func (w *Writer) SetHeader(h rbql.Header) {
	if len(h) == 0 {
		return
	}
	w.writeFields(stringsOf(h))
}

func (w *Writer) Write(rec rbql.Record) (bool, error) {
	fields := stringsOf(rec)
	if w.policy == PolicyMonocolumn && len(fields) > 1 && !w.switchedCSV {
		w.switchedCSV = true
		w.warns = append(w.warns, "output switched to CSV because monocolumn could not represent a multi-column row")
	}
	w.writeFields(fields)
	return true, nil
}

func stringsOf(rec []expr.Value) []string {
	out := make([]string, len(rec))
	for i, v := range rec {
		if v.IsNull() {
			out[i] = ""
			continue
		}
		out[i] = v.String()
	}
	return out
}

func (w *Writer) writeFields(fields []string) {
	delim := w.delim
	if w.policy == PolicyMonocolumn && !w.switchedCSV {
		delim = ""
	}
	for i, f := range fields {
		if i > 0 {
			w.w.WriteString(delim)
		}
		if strings.ContainsAny(f, delim+"\"\n") && w.policy != PolicySimple {
			w.w.WriteByte('"')
			w.w.WriteString(strings.ReplaceAll(f, `"`, `""`))
			w.w.WriteByte('"')
		} else {
			if w.policy == PolicySimple && strings.Contains(f, delim) {
				w.warns = append(w.warns, "separator character found inside a field under the simple output policy")
			}
			w.w.WriteString(f)
		}
	}
	w.w.WriteByte('\n')
}

func (w *Writer) Finish() error { return w.w.Flush() }
func (w *Writer) Warnings() []string { return w.warns }
