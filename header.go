// Copyright (c) RBQL contributors.

package rbql

import "fmt"

// inferHeader is the header inference step: given the translated,
// alias-preserving SELECT items (or an EXCEPT column list), synthesize
// the output header. Returns nil if the input table has no header (no
// header can be synthesized).
func inferHeader(items []SelectItem, exceptIdx []int, hasExcept bool, inputHeader, joinHeader Header) (Header, error) {
	if len(inputHeader) == 0 {
		return nil, nil
	}
	if hasExcept {
		return selectExceptHeader(inputHeader, exceptIdx), nil
	}

	var out Header
	pos := 0
	for _, item := range items {
		switch item.Star {
		case starAll:
			out = append(out, inputHeader...)
			out = append(out, joinHeader...)
			pos += len(inputHeader) + len(joinHeader)
			continue
		case starA:
			out = append(out, inputHeader...)
			pos += len(inputHeader)
			continue
		case starB:
			if len(joinHeader) == 0 {
				return nil, fmt.Errorf("rbql: %w: \"b.*\" used but the join table has no header", ErrIOHandling)
			}
			out = append(out, joinHeader...)
			pos += len(joinHeader)
			continue
		}

		pos++
		switch {
		case item.Alias != "":
			out = append(out, item.Alias)
		case item.NamedRef != "":
			out = append(out, item.NamedRef)
		case item.ColumnRef != nil:
			if *item.ColumnRef >= 0 && *item.ColumnRef < len(inputHeader) {
				out = append(out, inputHeader[*item.ColumnRef])
			} else {
				out = append(out, fmt.Sprintf("col%d", pos))
			}
		default:
			out = append(out, fmt.Sprintf("col%d", pos))
		}
	}
	return out, nil
}

func selectExceptHeader(inputHeader Header, exceptIdx []int) Header {
	excluded := make(map[int]bool, len(exceptIdx))
	for _, i := range exceptIdx {
		excluded[i] = true
	}
	var out Header
	for i, name := range inputHeader {
		if !excluded[i] {
			out = append(out, name)
		}
	}
	return out
}
