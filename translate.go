// Copyright (c) RBQL contributors.

package rbql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rbql-lang/rbql-go/expr"
)

// StarKind distinguishes the three `*`-splice forms a SELECT item can
// take.
type StarKind int

const (
	starNone StarKind = iota
	starAll
	starA
	starB
)

// SelectItem is one translated SELECT column, carrying both its
// compiled expression (for evaluation) and the hints C5 needs to
// synthesize an output header.
type SelectItem struct {
	Expr      *expr.Expr
	Alias     string
	Star      StarKind
	ColumnRef *int
	NamedRef  string
	Source    string
}

// Assignment is one translated UPDATE `aRef = expr` pair.
type Assignment struct {
	TargetIndex int
	Value       *expr.Expr
}

var countStarRe = regexp.MustCompile(`(?i)\bCOUNT\(\s*\*\s*\)`)

// translateWhere compiles the WHERE payload as a boolean host
// expression. A bare top-level "=" (an assignment rather than "==") is
// rejected with ErrParsing before compilation.
func translateWhere(payload string, literals []string) (*expr.Expr, error) {
	if payload == "" {
		return nil, nil
	}
	if indexTopLevelEquals(payload) >= 0 {
		return nil, fmt.Errorf("rbql: %w: %v", ErrParsing, errAssignmentInWhere)
	}
	restored := restoreLiterals(payload, literals)
	ex, err := expr.Compile(restored)
	if err != nil {
		return nil, fmt.Errorf("rbql: %w: in WHERE: %v", ErrSyntax, err)
	}
	return ex, nil
}

// translateGroupBy/translateOrderBy wrap a comma-separated payload as
// a list literal so it compiles to a single tuple-like Value, used as
// the aggregation/sort key.
func translateGroupBy(payload string, literals []string) (*expr.Expr, error) {
	return compileTuple(payload, literals, "GROUP BY")
}

func translateOrderBy(payload string, literals []string) (*expr.Expr, error) {
	return compileTuple(payload, literals, "ORDER BY")
}

func compileTuple(payload string, literals []string, clause string) (*expr.Expr, error) {
	if payload == "" {
		return nil, nil
	}
	restored := restoreLiterals(payload, literals)
	ex, err := expr.Compile("[" + restored + "]")
	if err != nil {
		return nil, fmt.Errorf("rbql: %w: in %s: %v", ErrSyntax, clause, err)
	}
	return ex, nil
}

// translateExcept resolves a comma-separated list of plain column
// names to 0-based field indices against inputHeader.
func translateExcept(payload string, inputHeader Header) ([]int, error) {
	if payload == "" {
		return nil, nil
	}
	index := headerIndex(inputHeader)
	var out []int
	for _, name := range splitTopLevel(payload, ',') {
		name = strings.TrimSpace(name)
		idx, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("rbql: %w: EXCEPT: unknown column %q", ErrParsing, name)
		}
		out = append(out, idx)
	}
	return out, nil
}

// An "a[3]"-style reference never reaches these matchers:
// rewriteArrayIndexRefs (variables.go, run by Query) canonicalizes that spelling to the plain "a3"
// form in the masked query text before any clause is split out, so
// colRefRe alone covers both.
var (
	colRefRe  = regexp.MustCompile(`^([ab])([0-9]+)$`)
	colAttrRe = regexp.MustCompile(`^([ab])\.([A-Za-z_][A-Za-z0-9_]*)$`)
	colDictRe = regexp.MustCompile(`^([ab])\[(["'])((?:[^"'\\]|\\.)*)["']\]$`)
	asAliasRe = regexp.MustCompile(`(?i)\s+AS\s+([A-Za-z_][A-Za-z0-9_]*)\s*$`)
)

// translateSelect parses the comma-separated SELECT payload into
// SelectItems: stripping `AS alias`, rewriting `COUNT(*)` to
// `COUNT(1)`, recognizing `*`/`a.*`/`b.*` splice markers, and compiling
// everything else as a host expression.
func translateSelect(payload string, literals []string) ([]SelectItem, error) {
	payload = countStarRe.ReplaceAllString(payload, "COUNT(1)")
	parts := splitTopLevel(payload, ',')
	items := make([]SelectItem, 0, len(parts))
	sawBareStar := false
	sawAlias := false
	for _, part := range parts {
		item, err := translateSelectItem(strings.TrimSpace(part), literals)
		if err != nil {
			return nil, err
		}
		if item.Star != starNone {
			sawBareStar = true
		}
		if item.Alias != "" {
			sawAlias = true
		}
		items = append(items, item)
	}
	if sawBareStar && sawAlias {
		return nil, fmt.Errorf("rbql: %w: mixing bare \"*\" with \"AS\" aliases is not allowed", ErrParsing)
	}
	return items, nil
}

func translateSelectItem(raw string, literals []string) (SelectItem, error) {
	text := raw
	alias := ""
	if m := asAliasRe.FindStringSubmatchIndex(text); m != nil {
		alias = text[m[2]:m[3]]
		text = strings.TrimSpace(text[:m[0]])
	}

	switch text {
	case "*":
		return SelectItem{Star: starAll, Alias: alias, Source: raw}, nil
	case "a.*":
		return SelectItem{Star: starA, Alias: alias, Source: raw}, nil
	case "b.*":
		return SelectItem{Star: starB, Alias: alias, Source: raw}, nil
	}

	item := SelectItem{Alias: alias, Source: raw}
	restored := restoreLiterals(text, literals)
	if m := colRefRe.FindStringSubmatch(text); m != nil && m[1] == "a" {
		n, _ := strconv.Atoi(m[2])
		idx := n - 1
		item.ColumnRef = &idx
	} else if m := colAttrRe.FindStringSubmatch(text); m != nil {
		item.NamedRef = m[2]
	} else if m := colDictRe.FindStringSubmatch(restored); m != nil {
		item.NamedRef = unescapeDictKey(m[3])
	}

	ex, err := expr.Compile(restored)
	if err != nil {
		return SelectItem{}, fmt.Errorf("rbql: %w: in SELECT: %v", ErrSyntax, err)
	}
	item.Expr = ex
	return item, nil
}

// translateUpdate scans the UPDATE payload, left to right, for
// `aRef = expr` assignment prefixes separated by top-level commas;
// the first assignment must start at position 0.
func translateUpdate(payload string, literals []string, inputHeader Header) ([]Assignment, error) {
	parts := splitTopLevel(payload, ',')
	assignments := make([]Assignment, 0, len(parts))
	for i, part := range parts {
		eq := indexTopLevelEquals(part)
		if eq < 0 {
			if i == 0 {
				return nil, fmt.Errorf("rbql: %w: UPDATE must start with an \"aRef =\" assignment", ErrParsing)
			}
			return nil, fmt.Errorf("rbql: %w: malformed UPDATE assignment: %q", ErrParsing, part)
		}
		target := restoreLiterals(strings.TrimSpace(part[:eq]), literals)
		rhs := strings.TrimSpace(part[eq+1:])
		idx, err := resolveUpdateTarget(target, inputHeader)
		if err != nil {
			return nil, err
		}
		restored := restoreLiterals(rhs, literals)
		ex, err := expr.Compile(restored)
		if err != nil {
			return nil, fmt.Errorf("rbql: %w: in UPDATE: %v", ErrSyntax, err)
		}
		assignments = append(assignments, Assignment{TargetIndex: idx, Value: ex})
	}
	return assignments, nil
}

func resolveUpdateTarget(target string, inputHeader Header) (int, error) {
	if m := colRefRe.FindStringSubmatch(target); m != nil && m[1] == "a" {
		n, _ := strconv.Atoi(m[2])
		return n - 1, nil
	}
	if m := colAttrRe.FindStringSubmatch(target); m != nil && m[1] == "a" {
		idx, ok := headerIndex(inputHeader)[m[2]]
		if !ok {
			return 0, fmt.Errorf("rbql: %w: UPDATE target: unknown column %q", ErrParsing, m[2])
		}
		return idx, nil
	}
	if m := colDictRe.FindStringSubmatch(target); m != nil && m[1] == "a" {
		name := unescapeDictKey(m[3])
		idx, ok := headerIndex(inputHeader)[name]
		if !ok {
			return 0, fmt.Errorf("rbql: %w: UPDATE target: unknown column %q", ErrParsing, name)
		}
		return idx, nil
	}
	return 0, fmt.Errorf("rbql: %w: UPDATE target must be an input column reference, got %q", ErrParsing, target)
}

// indexTopLevelEquals finds the position of a bare "=" (not "==",
// "!=", "<=", ">=") outside any parenthesis/bracket/placeholder
// nesting.
func indexTopLevelEquals(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case '=':
			if depth != 0 {
				continue
			}
			prevOK := i == 0 || (s[i-1] != '=' && s[i-1] != '!' && s[i-1] != '<' && s[i-1] != '>')
			nextOK := i+1 >= len(s) || s[i+1] != '='
			if prevOK && nextOK {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits s on sep, ignoring occurrences nested inside
// parentheses or brackets (e.g. the comma in `f(x, y)` or `a[1,2]`
// does not split a SELECT list), tracking nesting depth with a generic
// stack.
func splitTopLevel(s string, sep rune) []string {
	var st stack[rune]
	var parts []string
	var cur strings.Builder
	for _, r := range s {
		switch r {
		case '(', '[':
			st.push(r)
		case ')', ']':
			st.pop()
		}
		if r == sep && st.len() == 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	parts = append(parts, cur.String())
	return parts
}
