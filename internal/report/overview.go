package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dvloznov/brokerage-insights/internal/domain"
)

// Overview is the dataset overview printed by the inspect command.
type Overview struct {
	Rows       int
	Columns    []string
	NullCounts []domain.ColumnCount
	Head       []domain.Transaction
}

// NewOverview summarises t, keeping the first n rows.
func NewOverview(t *domain.Table, n int) Overview {
	var head []domain.Transaction
	if t != nil {
		head = t.Rows
	}
	if len(head) > n {
		head = head[:n]
	}
	return Overview{
		Rows:       t.Len(),
		Columns:    t.Columns(),
		NullCounts: t.NullCounts(),
		Head:       head,
	}
}

// WriteTo prints the overview as aligned text.
func (o Overview) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Dataset Overview ===\n")
	fmt.Fprintf(&b, "%d rows, %d columns\n\n", o.Rows, len(o.Columns))

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Column\tNon-Null\tNull")
	for _, c := range o.NullCounts {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", c.Column, o.Rows-c.Count, c.Count)
	}
	_ = tw.Flush()

	fmt.Fprintf(&b, "\n=== First %d Rows ===\n", len(o.Head))
	tw = tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(o.Columns, "\t"))
	for _, row := range o.Head {
		cells := make([]string, len(o.Columns))
		for i, col := range o.Columns {
			v, ok := row.Value(col)
			if !ok {
				v = "NaN"
			}
			cells[i] = v
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
