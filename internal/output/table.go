package output

import (
	"io"
	"strings"
	"unicode/utf8"
)

const ellipsis = "..."

// Table lays out rows of text in aligned columns under an underlined header.
type Table struct {
	headers []string
	rows    [][]string
	right   map[int]bool
	limit   map[int]int
}

// NewTable creates a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers, right: map[int]bool{}, limit: map[int]int{}}
}

// AddRow appends a row. Missing cells render empty; extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// AlignRight right-aligns column col, for amounts.
func (t *Table) AlignRight(col int) *Table {
	t.right[col] = true
	return t
}

// Truncate caps column col at width runes, ending cut cells with "...".
func (t *Table) Truncate(col, width int) *Table {
	if width > len(ellipsis) {
		t.limit[col] = width
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Render writes the table to w. A table without headers writes nothing.
func (t *Table) Render(w io.Writer) error {
	if len(t.headers) == 0 {
		return nil
	}

	cells := make([][]string, 0, len(t.rows)+1)
	cells = append(cells, t.headers)
	for _, row := range t.rows {
		cells = append(cells, t.fit(row))
	}

	widths := make([]int, len(t.headers))
	for _, row := range cells {
		for i, c := range row {
			widths[i] = max(widths[i], utf8.RuneCountInString(c))
		}
	}

	var sb strings.Builder
	for n, row := range cells {
		t.writeLine(&sb, row, widths)
		if n == 0 {
			rule := make([]string, len(widths))
			for i, width := range widths {
				rule[i] = strings.Repeat("-", width)
			}
			t.writeLine(&sb, rule, widths)
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// String returns the rendered table.
func (t *Table) String() string {
	var sb strings.Builder
	_ = t.Render(&sb)
	return sb.String()
}

// fit pads or cuts row to the header count and applies column limits.
func (t *Table) fit(row []string) []string {
	out := make([]string, len(t.headers))
	for i := range out {
		if i >= len(row) {
			continue
		}
		out[i] = row[i]
		if limit, ok := t.limit[i]; ok && utf8.RuneCountInString(out[i]) > limit {
			r := []rune(out[i])
			out[i] = string(r[:limit-len(ellipsis)]) + ellipsis
		}
	}
	return out
}

func (t *Table) writeLine(sb *strings.Builder, row []string, widths []int) {
	line := make([]string, len(row))
	for i, c := range row {
		pad := strings.Repeat(" ", widths[i]-utf8.RuneCountInString(c))
		if t.right[i] {
			line[i] = pad + c
		} else {
			line[i] = c + pad
		}
	}
	sb.WriteString(strings.TrimRight(strings.Join(line, "  "), " "))
	sb.WriteByte('\n')
}
