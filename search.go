package datagrid

import "strings"

// SearchIndex holds the ordered set of cell coordinates whose value
// contains a query substring, plus a cursor for next/prev navigation
// with wraparound.
//
// Matching is a case-insensitive substring test against each cell's
// string conversion. Null cells never match. Matches are ordered
// row-major in column display order.
type SearchIndex struct {
	query   string
	matches []CellCoord
	current int // index into matches, -1 before first navigation
}

// BuildSearchIndex scans the visible rows for the query.
// An empty query yields an empty index.
func BuildSearchIndex(query string, rowCount int, colOrder []string, valueAt func(row int, col string) CellValue) *SearchIndex {
	idx := &SearchIndex{query: query, current: -1}
	if query == "" {
		return idx
	}
	needle := strings.ToLower(query)
	for row := 0; row < rowCount; row++ {
		for _, col := range colOrder {
			v := valueAt(row, col)
			if v.IsNull() {
				continue
			}
			if strings.Contains(strings.ToLower(v.String()), needle) {
				idx.matches = append(idx.matches, CellCoord{Row: row, Col: col})
			}
		}
	}
	return idx
}

// Query returns the query the index was built for.
func (x *SearchIndex) Query() string { return x.query }

// MatchCount returns the number of matches.
func (x *SearchIndex) MatchCount() int { return len(x.matches) }

// Matches returns the ordered match list. Must not be modified.
func (x *SearchIndex) Matches() []CellCoord { return x.matches }

// Current returns the match the cursor is on, if any.
func (x *SearchIndex) Current() (CellCoord, bool) {
	if x.current < 0 || x.current >= len(x.matches) {
		return CellCoord{}, false
	}
	return x.matches[x.current], true
}

// CurrentIndex returns the zero-based cursor position, -1 before the
// first navigation. Used for "n of m" style UI badges.
func (x *SearchIndex) CurrentIndex() int { return x.current }

// Next advances the cursor to the next match, wrapping to the first
// match past the end.
func (x *SearchIndex) Next() (CellCoord, bool) {
	if len(x.matches) == 0 {
		return CellCoord{}, false
	}
	x.current = (x.current + 1) % len(x.matches)
	return x.matches[x.current], true
}

// Prev moves the cursor to the previous match, wrapping to the last
// match before the beginning.
func (x *SearchIndex) Prev() (CellCoord, bool) {
	if len(x.matches) == 0 {
		return CellCoord{}, false
	}
	if x.current <= 0 {
		x.current = len(x.matches) - 1
	} else {
		x.current--
	}
	return x.matches[x.current], true
}

// IsMatch reports if the coordinate is in the match set.
func (x *SearchIndex) IsMatch(c CellCoord) bool {
	for _, m := range x.matches {
		if m == c {
			return true
		}
	}
	return false
}
