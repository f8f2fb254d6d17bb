package sources

import (
	"strings"

	"cardmarket-bi/internal/core"
)

// RawTable is a parsed but untyped table. Every row has exactly
// len(Headers) cells.
type RawTable struct {
	Headers []string
	Rows    [][]string
	Format  Format

	// Date1904 is set for workbooks whose serial dates count from 1904.
	Date1904 bool

	numeric []bool

	// source holds the 1-based data row each kept row had in the input.
	source []int
}

// NewRawTable normalizes headers, pads short rows, truncates long ones and
// drops rows that are entirely empty. Rows are numbered by their position
// in rows.
func NewRawTable(format Format, headers []string, rows [][]string) *RawTable {
	return newRawTable(format, headers, rows, nil)
}

// newRawTable is NewRawTable with explicit source row numbers, used when the
// parser has already skipped lines. A nil nums numbers rows by position.
func newRawTable(format Format, headers []string, rows [][]string, nums []int) *RawTable {
	hs := make([]string, len(headers))
	for i, h := range headers {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		hs[i] = strings.TrimSpace(h)
	}

	out := make([][]string, 0, len(rows))
	source := make([]int, 0, len(rows))
	for i, r := range rows {
		if blank(r) {
			continue
		}
		row := make([]string, len(hs))
		copy(row, r)
		out = append(out, row)
		if nums != nil {
			source = append(source, nums[i])
		} else {
			source = append(source, i+1)
		}
	}

	t := &RawTable{Headers: hs, Rows: out, Format: format, source: source}
	t.numeric = make([]bool, len(hs))
	for i := range hs {
		t.numeric[i] = t.inferNumeric(i)
	}
	return t
}

// Len returns the number of data rows.
func (t *RawTable) Len() int {
	return len(t.Rows)
}

// SourceRow returns the 1-based data row that kept row i occupied in the
// input, counting the blank rows that were dropped.
func (t *RawTable) SourceRow(i int) int {
	if i < 0 || i >= len(t.source) {
		return i + 1
	}
	return t.source[i]
}

// Index returns the position of the named column or -1.
func (t *RawTable) Index(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the cells of column i.
func (t *RawTable) Column(i int) []string {
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}

// IsNumeric reports whether column i already holds plain numbers, i.e.
// every non-empty cell parses without rewriting separators.
func (t *RawTable) IsNumeric(i int) bool {
	return t.numeric[i]
}

func (t *RawTable) inferNumeric(col int) bool {
	for _, row := range t.Rows {
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		if !core.IsPlainNumber(v) {
			return false
		}
	}
	return true
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
