// Copyright (c) RBQL contributors.

package rbql

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// JoinSubtype distinguishes the five join spellings the grammar
// accepts; they all parse to the same ActionMap slot.
type JoinSubtype int

const (
	JoinPlain JoinSubtype = iota
	JoinInner
	JoinLeft
	JoinLeftOuter
	JoinStrictLeft
)

func (s JoinSubtype) String() string {
	switch s {
	case JoinInner:
		return "INNER JOIN"
	case JoinLeft:
		return "LEFT JOIN"
	case JoinLeftOuter:
		return "LEFT OUTER JOIN"
	case JoinStrictLeft:
		return "STRICT LEFT JOIN"
	default:
		return "JOIN"
	}
}

// SelectClause is the SELECT payload plus its prefix flags, stripped
// by separateActions.
type SelectClause struct {
	Text          string
	Top           *int
	Distinct      bool
	DistinctCount bool
}

// UpdateClause is the UPDATE payload, with a leading SET stripped.
type UpdateClause struct {
	Text string
}

// JoinClause names the join table/alias text (e.g. `T ON a2 == b1`)
// and which of the five spellings introduced it.
type JoinClause struct {
	Subtype JoinSubtype
	Text    string
}

// OrderByClause is the ORDER BY payload with its trailing ASC/DESC
// stripped.
type OrderByClause struct {
	Text string
	Desc bool
}

// ActionMap is the parsed clause set produced by the action separator:
// each clause gets its own concrete, optional field instead of a
// generic map, since Go's type system expresses "at most one of each,
// each shaped differently" more directly that way.
type ActionMap struct {
	Select  *SelectClause
	Update  *UpdateClause
	Where   string
	hasWhere bool
	Join    *JoinClause
	GroupBy string
	hasGroupBy bool
	OrderBy *OrderByClause
	Limit   *int
	Except  string
	hasExcept bool
	From    string
	hasFrom bool
	With    string
}

func (a *ActionMap) HasWhere() bool   { return a.hasWhere }
func (a *ActionMap) HasGroupBy() bool { return a.hasGroupBy }
func (a *ActionMap) HasExcept() bool  { return a.hasExcept }
func (a *ActionMap) HasFrom() bool    { return a.hasFrom }

type clauseTag int

const (
	tagJoin clauseTag = iota
	tagSelect
	tagOrderBy
	tagWhere
	tagUpdate
	tagGroupBy
	tagLimit
	tagExcept
	tagFrom
)

// clauseKeywords lists, per tag in fixed precedence order, the keyword spellings that introduce it.
// JOIN variants are ordered longest-first so a longer spelling is
// preferred over a shorter one that it contains.
var clauseKeywords = []struct {
	tag      clauseTag
	keywords []string
}{
	{tagJoin, []string{"STRICT LEFT JOIN", "LEFT OUTER JOIN", "LEFT JOIN", "INNER JOIN", "JOIN"}},
	{tagSelect, []string{"SELECT"}},
	{tagOrderBy, []string{"ORDER BY"}},
	{tagWhere, []string{"WHERE"}},
	{tagUpdate, []string{"UPDATE"}},
	{tagGroupBy, []string{"GROUP BY"}},
	{tagLimit, []string{"LIMIT"}},
	{tagExcept, []string{"EXCEPT"}},
	{tagFrom, []string{"FROM"}},
}

type clauseMatch struct {
	tag      clauseTag
	keyword  string
	start    int
	end      int // exclusive, end of the matched keyword
}

// isIdentRune reports whether r can appear inside a bare identifier;
// used to enforce whitespace/punctuation-bounded keyword matches so
// "FROM" never matches inside "fromage".
func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func findWordMatches(text, kw string) []int {
	upper := strings.ToUpper(text)
	kwUpper := strings.ToUpper(kw)
	var out []int
	from := 0
	for {
		i := strings.Index(upper[from:], kwUpper)
		if i < 0 {
			return out
		}
		idx := from + i
		before := rune(' ')
		if idx > 0 {
			before = []rune(text)[idx-1]
		}
		afterIdx := idx + len(kw)
		after := rune(' ')
		if afterIdx < len(text) {
			after = []rune(text)[afterIdx]
		}
		if !isIdentRune(before) && !isIdentRune(after) {
			out = append(out, idx)
		}
		from = idx + 1
	}
}

// separateActions is the C2 action separator: it locates each clause
// keyword in the masked query text, validates precedence/uniqueness
// invariants, and slices the text between matches into clause
// payloads.
func separateActions(masked string) (*ActionMap, error) {
	// Tabs are normalized to spaces so clause regexes see a whitespace
	// boundary even when the original delimiter was a tab.
	masked = strings.ReplaceAll(masked, "\t", " ")
	withModifier := extractWithModifier(&masked)

	var matches []clauseMatch
	for _, group := range clauseKeywords {
		var claimed []clauseMatch
		for _, kw := range group.keywords {
			for _, pos := range findWordMatches(masked, kw) {
				overlaps := false
				for _, c := range claimed {
					if pos >= c.start && pos < c.end {
						overlaps = true
						break
					}
				}
				if !overlaps {
					claimed = append(claimed, clauseMatch{tag: group.tag, keyword: kw, start: pos, end: pos + len(kw)})
				}
			}
		}
		if len(claimed) > 1 {
			return nil, fmt.Errorf("rbql: %w: duplicate %q clause", ErrParsing, group.keywords[len(group.keywords)-1])
		}
		matches = append(matches, claimed...)
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("rbql: %w: %v", ErrParsing, errSelectUpdateBoth)
	}

	// Sort matches by their position in the query text to compute
	// payload spans.
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].start < matches[j-1].start; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}

	if matches[0].start != 0 || (matches[0].tag != tagSelect && matches[0].tag != tagUpdate) {
		return nil, fmt.Errorf("rbql: %w: query must start with SELECT or UPDATE", ErrParsing)
	}

	am := &ActionMap{}
	haveSelect, haveUpdate := false, false
	for i, m := range matches {
		payloadEnd := len(masked)
		if i+1 < len(matches) {
			payloadEnd = matches[i+1].start
		}
		payload := strings.TrimSpace(masked[m.end:payloadEnd])

		switch m.tag {
		case tagSelect:
			haveSelect = true
			sc, err := parseSelectPrefix(payload)
			if err != nil {
				return nil, err
			}
			am.Select = sc
		case tagUpdate:
			haveUpdate = true
			payload = stripLeadingKeyword(payload, "SET")
			am.Update = &UpdateClause{Text: payload}
		case tagWhere:
			am.Where, am.hasWhere = payload, true
		case tagJoin:
			subtype := joinSubtypeFor(m.keyword)
			am.Join = &JoinClause{Subtype: subtype, Text: payload}
		case tagGroupBy:
			am.GroupBy, am.hasGroupBy = payload, true
		case tagOrderBy:
			text, desc := stripOrderDirection(payload)
			am.OrderBy = &OrderByClause{Text: text, Desc: desc}
		case tagLimit:
			n, err := strconv.Atoi(strings.TrimSpace(payload))
			if err != nil {
				return nil, fmt.Errorf("rbql: %w: LIMIT must be an integer, got %q", ErrParsing, payload)
			}
			am.Limit = &n
		case tagExcept:
			am.Except, am.hasExcept = payload, true
		case tagFrom:
			am.From, am.hasFrom = payload, true
		}
	}

	if haveSelect == haveUpdate {
		return nil, fmt.Errorf("rbql: %w: %v", ErrParsing, errSelectUpdateBoth)
	}
	if am.Join != nil && am.hasExcept {
		return nil, fmt.Errorf("rbql: %w: %v", ErrParsing, errExceptWithJoin)
	}
	if am.hasGroupBy {
		if am.OrderBy != nil || haveUpdate || (am.Select != nil && (am.Select.Distinct || am.Select.DistinctCount)) {
			return nil, fmt.Errorf("rbql: %w: %v", ErrParsing, errAggregateKeywordConflict)
		}
	}
	if am.OrderBy != nil && haveUpdate {
		return nil, fmt.Errorf("rbql: %w: ORDER BY is not permitted with UPDATE", ErrParsing)
	}

	am.With = withModifier
	return am, nil
}

func joinSubtypeFor(keyword string) JoinSubtype {
	switch strings.ToUpper(keyword) {
	case "STRICT LEFT JOIN":
		return JoinStrictLeft
	case "LEFT OUTER JOIN":
		return JoinLeftOuter
	case "LEFT JOIN":
		return JoinLeft
	case "INNER JOIN":
		return JoinInner
	default:
		return JoinPlain
	}
}

func stripLeadingKeyword(payload, kw string) string {
	trimmed := strings.TrimLeft(payload, " ")
	if len(trimmed) >= len(kw) && strings.EqualFold(trimmed[:len(kw)], kw) {
		rest := trimmed[len(kw):]
		if rest == "" || !isIdentRune([]rune(rest)[0]) {
			return strings.TrimSpace(rest)
		}
	}
	return payload
}

func parseSelectPrefix(payload string) (*SelectClause, error) {
	sc := &SelectClause{}
	text := payload

	if upper := strings.ToUpper(text); strings.HasPrefix(upper, "TOP ") || upper == "TOP" {
		rest := strings.TrimSpace(text[3:])
		fields := strings.SplitN(rest, " ", 2)
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("rbql: %w: TOP must be followed by an integer", ErrParsing)
		}
		sc.Top = &n
		if len(fields) > 1 {
			text = strings.TrimSpace(fields[1])
		} else {
			text = ""
		}
	}

	if upper := strings.ToUpper(text); strings.HasPrefix(upper, "DISTINCT") {
		rest := strings.TrimSpace(text[len("DISTINCT"):])
		if upper2 := strings.ToUpper(rest); strings.HasPrefix(upper2, "COUNT") {
			next := strings.TrimSpace(rest[len("COUNT"):])
			if next == "" || !isIdentRune([]rune(next)[0]) {
				sc.DistinctCount = true
				text = next
			} else {
				sc.Distinct = true
				text = rest
			}
		} else {
			sc.Distinct = true
			text = rest
		}
	}

	sc.Text = strings.TrimSpace(text)
	return sc, nil
}

func stripOrderDirection(payload string) (string, bool) {
	trimmed := strings.TrimRight(payload, " ")
	upper := strings.ToUpper(trimmed)
	if strings.HasSuffix(upper, " ASC") {
		return strings.TrimSpace(trimmed[:len(trimmed)-4]), false
	}
	if strings.HasSuffix(upper, " DESC") {
		return strings.TrimSpace(trimmed[:len(trimmed)-5]), true
	}
	return strings.TrimSpace(trimmed), false
}

// extractWithModifier pulls a trailing `WITH (name)` suffix off
// *masked and returns the recognized modifier name, or "" if none was
// present. Only the first occurrence from the end is honored; a
// second trailing WITH(...) is left untouched as plain text.
func extractWithModifier(masked *string) string {
	text := strings.TrimRight(*masked, " ")
	upper := strings.ToUpper(text)
	idx := strings.LastIndex(upper, "WITH")
	if idx < 0 {
		return ""
	}
	rest := strings.TrimSpace(text[idx+len("WITH"):])
	if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
		return ""
	}
	name := strings.ToLower(strings.TrimSpace(rest[1 : len(rest)-1]))
	switch name {
	case "header", "headers", "noheader", "noheaders":
		*masked = strings.TrimSpace(text[:idx])
		return name
	default:
		return ""
	}
}
