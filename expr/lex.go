// Copyright (c) RBQL contributors.

package expr

import (
	"fmt"
	"strings"

	"github.com/rbql-lang/rbql-go/lexer"
)

// tokenize scans source into a flat token slice, reusing the shared
// rune-scanning primitives (Shift/Backup/Peek/Some) from the lexer
// package instead of hand-rolling a second scanner from scratch.
func tokenize(source string) ([]token, error) {
	l := lexer.New(source)
	var tokens []token
	for {
		skipSpace(l)
		r := l.Peek()
		switch {
		case lexer.IsEOF(r):
			tokens = append(tokens, token{Type: eofToken})
			return tokens, nil
		case lexer.IsDoubleQuote(r) || lexer.IsSingleQuote(r):
			tok, err := scanString(l)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		case lexer.IsNumber(r):
			tokens = append(tokens, scanNumber(l))
		case lexer.IsIdentStart(r):
			tokens = append(tokens, scanIdent(l))
		default:
			tok, err := scanOperator(l)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		}
	}
}

func skipSpace(l *lexer.Lexer) {
	l.Some(lexer.IsSpace)
	l.Reduce()
}

func scanString(l *lexer.Lexer) (token, error) {
	quote := l.Shift()
	l.Reduce()
	var buf strings.Builder
	for {
		r := l.Shift()
		switch {
		case r == lexer.RuneEOF:
			return token{}, fmt.Errorf("unterminated string literal")
		case r == quote:
			l.Reduce()
			return token{Type: stringToken, Value: buf.String()}, nil
		case r == '\\':
			esc := l.Shift()
			buf.WriteRune(unescape(esc))
		default:
			buf.WriteRune(r)
		}
	}
}

func unescape(r rune) rune {
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return r
	}
}

func scanNumber(l *lexer.Lexer) token {
	l.Some(lexer.IsNumber)
	isFloat := false
	if l.Expect(lexer.IsDot) {
		isFloat = true
		l.Some(lexer.IsNumber)
	}
	if r := l.Peek(); r == 'e' || r == 'E' {
		l.Shift()
		if n := l.Peek(); n == '+' || n == '-' {
			l.Shift()
		}
		l.Some(lexer.IsNumber)
		isFloat = true
	}
	text := l.Reduce()
	if isFloat {
		return token{Type: floatToken, Value: text}
	}
	return token{Type: intToken, Value: text}
}

func scanIdent(l *lexer.Lexer) token {
	l.Some(lexer.IsIdentPart)
	text := l.Reduce()
	if tt, ok := keywords[text]; ok {
		return token{Type: tt, Value: text}
	}
	return token{Type: identToken, Value: text}
}

func scanOperator(l *lexer.Lexer) (token, error) {
	r := l.Shift()
	switch r {
	case '+':
		l.Reduce()
		return token{Type: plusToken, Value: "+"}, nil
	case '-':
		l.Reduce()
		return token{Type: minusToken, Value: "-"}, nil
	case '*':
		l.Reduce()
		return token{Type: starToken, Value: "*"}, nil
	case '/':
		l.Reduce()
		return token{Type: slashToken, Value: "/"}, nil
	case '%':
		l.Reduce()
		return token{Type: percentToken, Value: "%"}, nil
	case '(':
		l.Reduce()
		return token{Type: leftParenToken, Value: "("}, nil
	case ')':
		l.Reduce()
		return token{Type: rightParenToken, Value: ")"}, nil
	case '[':
		l.Reduce()
		return token{Type: leftBracketToken, Value: "["}, nil
	case ']':
		l.Reduce()
		return token{Type: rightBracketToken, Value: "]"}, nil
	case ',':
		l.Reduce()
		return token{Type: commaToken, Value: ","}, nil
	case '.':
		l.Reduce()
		return token{Type: dotToken, Value: "."}, nil
	case '=':
		if l.Expect(lexer.Eq('=')) {
			l.Reduce()
			return token{Type: equalToken, Value: "=="}, nil
		}
		return token{}, fmt.Errorf("unexpected %q, did you mean \"==\"?", "=")
	case '!':
		if l.Expect(lexer.Eq('=')) {
			l.Reduce()
			return token{Type: notEqualToken, Value: "!="}, nil
		}
		return token{}, fmt.Errorf(`unexpected "!", did you mean "!="?`)
	case '<':
		if l.Expect(lexer.Eq('=')) {
			l.Reduce()
			return token{Type: lessThanOrEqualToken, Value: "<="}, nil
		}
		l.Reduce()
		return token{Type: lessThanToken, Value: "<"}, nil
	case '>':
		if l.Expect(lexer.Eq('=')) {
			l.Reduce()
			return token{Type: greaterThanOrEqualToken, Value: ">="}, nil
		}
		l.Reduce()
		return token{Type: greaterThanToken, Value: ">"}, nil
	default:
		return token{}, fmt.Errorf("unexpected character %q", string(r))
	}
}
