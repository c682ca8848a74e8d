package dataset

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTableWriter(w io.Writer) table.Writer {
	if w == nil {
		w = os.Stdout
	}
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// RenderConstantReport prints the removal candidates, or a note that there
// are none.
func RenderConstantReport(w io.Writer, cols []ConstantColumn) {
	if w == nil {
		w = os.Stdout
	}
	if len(cols) == 0 {
		fmt.Fprintln(w, "No problematic constant columns found.")
		return
	}
	t := newTableWriter(w)
	t.SetTitle(fmt.Sprintf("Suggestion: remove these %d columns", len(cols)))
	t.AppendHeader(table.Row{"Column", "Reason", "Value", "Share", "Other"})
	for _, c := range cols {
		share := ""
		if c.Reason != ReasonAllEmpty {
			share = fmt.Sprintf("%.0f%%", c.Share)
		}
		t.AppendRow(table.Row{c.Name, string(c.Reason), c.Value, share, strings.Join(c.Others, ", ")})
	}
	t.Render()
}

// RenderSummary prints the row and column counts of a step's output with
// the coverage of each column.
func RenderSummary(w io.Writer, title string, d *Table) {
	t := newTableWriter(w)
	t.SetTitle(fmt.Sprintf("%s: %d rows, %d columns", title, len(d.Rows), len(d.Columns)))
	t.AppendHeader(table.Row{"#", "Column", "Coverage"})
	for i, c := range d.Columns {
		t.AppendRow(table.Row{i + 1, c, fmt.Sprintf("%.1f%%", Coverage(d, c))})
	}
	t.Render()
}
