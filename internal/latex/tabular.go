package latex

import (
	"fmt"
	"strings"
)

// Table is a fully formatted grid ready for rendering: row labels are
// configurations, column labels are metrics. The renderer does no
// numeric work, it only lays out what FormatCell produced.
type Table struct {
	RowHead string
	Rows    []string
	Cols    []string
	Cells   [][]Cell
}

// Tabular renders a booktabs tabular. The grid shape is checked
// against the labels before anything is written: a mismatch is a
// programming error upstream and fails immediately.
func Tabular(t Table) (string, error) {
	if len(t.Cells) != len(t.Rows) {
		return "", fmt.Errorf("table shape: %d cell rows for %d row labels", len(t.Cells), len(t.Rows))
	}
	for i, row := range t.Cells {
		if len(row) != len(t.Cols) {
			return "", fmt.Errorf("table shape: row %q has %d cells for %d columns", t.Rows[i], len(row), len(t.Cols))
		}
	}
	winners := make([]int, len(t.Cols))
	for _, row := range t.Cells {
		for j, c := range row {
			if c.Winner {
				winners[j]++
			}
		}
	}
	for j, n := range winners {
		if n > 1 {
			return "", fmt.Errorf("table shape: column %q has %d winner cells", t.Cols[j], n)
		}
	}

	rowHead := t.RowHead
	if rowHead == "" {
		rowHead = "Configuration"
	}

	var b strings.Builder
	b.WriteString(`\begin{tabular}{l`)
	b.WriteString(strings.Repeat("c", len(t.Cols)))
	b.WriteString("}\n")
	b.WriteString("\\toprule\n")
	b.WriteString(Escape(rowHead))
	for _, col := range t.Cols {
		b.WriteString(" & ")
		b.WriteString(Escape(col))
	}
	b.WriteString(" \\\\\n")
	b.WriteString("\\midrule\n")
	for i, row := range t.Cells {
		b.WriteString(Escape(t.Rows[i]))
		for _, c := range row {
			b.WriteString(" & ")
			b.WriteString(c.Text)
		}
		b.WriteString(" \\\\\n")
	}
	b.WriteString("\\bottomrule\n")
	b.WriteString("\\end{tabular}\n")
	return b.String(), nil
}

// Fragment wraps a tabular in a table environment with caption and
// label, the form meant for \input from a paper.
func Fragment(t Table, caption, label string) (string, error) {
	tab, err := Tabular(t)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("\\begin{table}[ht]\n\\centering\n")
	b.WriteString(tab)
	if caption != "" {
		fmt.Fprintf(&b, "\\caption{%s}\n", Escape(caption))
	}
	if label != "" {
		fmt.Fprintf(&b, "\\label{tab:%s}\n", label)
	}
	b.WriteString("\\end{table}\n")
	return b.String(), nil
}
