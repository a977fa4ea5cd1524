// Copyright (c) RBQL contributors.

package rbql

import (
	"fmt"
	"strings"

	"github.com/rbql-lang/rbql-go/lexer"
)

// literalPlaceholderPrefix/Suffix bracket an index so that later
// clause-splitting (separateActions, action translators) can treat a
// whole string literal as an opaque token and never accidentally
// split on a keyword or quote character that happens to live inside
// one, e.g. `a1 == "select one"`.
const (
	literalPlaceholderPrefix = "###RBQL_STRING_LITERAL###"
	literalPlaceholderSuffix = "###"
)

// extractLiterals is the C1 literal extractor. It walks the raw query
// text once, replacing every single- or double-quoted string literal
// with a numbered placeholder, and returns both the masked query and
// the literals in order so callers can restore them later with
// restoreLiterals. Backslash escapes the following character, same as
// the host expression lexer in package expr. An unterminated literal
// is never a parse-time error here: it is captured verbatim, up to
// end of input, and left to fail later when restoreLiterals splices
// it back into host expression text and the host lexer rejects it.
func extractLiterals(query string) (masked string, literals []string) {
	l := lexer.New(query)
	var out strings.Builder
	for {
		r := l.Peek()
		switch {
		case lexer.IsEOF(r):
			return out.String(), literals
		case lexer.IsDoubleQuote(r) || lexer.IsSingleQuote(r):
			lit := scanLiteral(l)
			fmt.Fprintf(&out, "%s%d%s", literalPlaceholderPrefix, len(literals), literalPlaceholderSuffix)
			literals = append(literals, lit)
		default:
			out.WriteRune(l.Shift())
			l.Reduce()
		}
	}
}

// scanLiteral consumes one quoted literal, including its quote
// characters, and returns it verbatim (quotes included) so that
// restoreLiterals can splice it back into host-expression text
// unchanged. If input ends before the closing quote, it returns
// whatever was captured, unterminated; the host expression lexer is
// the one that rejects it, once restoreLiterals puts it back.
func scanLiteral(l *lexer.Lexer) string {
	quote := l.Shift()
	var buf strings.Builder
	buf.WriteRune(quote)
	for {
		r := l.Shift()
		switch r {
		case lexer.RuneEOF:
			l.Reduce()
			return buf.String()
		case quote:
			buf.WriteRune(r)
			l.Reduce()
			return buf.String()
		case '\\':
			buf.WriteRune(r)
			buf.WriteRune(l.Shift())
		default:
			buf.WriteRune(r)
		}
	}
}

// restoreLiterals replaces every placeholder in s with its original
// literal text. Used once clause translation has produced final host
// expression source that still contains placeholders (e.g. inside a
// translated SELECT expression).
func restoreLiterals(s string, literals []string) string {
	for i, lit := range literals {
		placeholder := fmt.Sprintf("%s%d%s", literalPlaceholderPrefix, i, literalPlaceholderSuffix)
		s = strings.ReplaceAll(s, placeholder, lit)
	}
	return s
}

// literalAt returns the placeholder string for literal index i,
// without performing any substitution. Clause translators use this
// when synthesizing new expression text that should embed a literal
// by reference rather than by value.
func literalAt(i int) string {
	return fmt.Sprintf("%s%d%s", literalPlaceholderPrefix, i, literalPlaceholderSuffix)
}
