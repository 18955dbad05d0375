package cleaning

import (
	"fmt"
	"strings"

	"github.com/dvloznov/brokerage-insights/internal/domain"
)

// ImputationReport describes what Impute changed.
type ImputationReport struct {
	NullsBefore []domain.ColumnCount
	NullsAfter  []domain.ColumnCount
	// Filled maps each imputed column to the mode written into its null cells.
	Filled map[string]string
	// FilledCells counts the cells written per column.
	FilledCells map[string]int
	// Unfillable lists fixed columns that had nulls but no non-null value.
	Unfillable []string
}

// Impute fills nulls in the fixed categorical columns (Broker, CustomerGender,
// InvestmentHorizon) with each column's mode. Other columns are left as they are.
func Impute(t *domain.Table) (*domain.Table, ImputationReport, error) {
	out := t.Clone()
	report := ImputationReport{
		NullsBefore: out.NullCounts(),
		Filled:      make(map[string]string),
		FilledCells: make(map[string]int),
	}

	for _, col := range domain.ImputableColumns {
		values := make([]*string, len(out.Rows))
		nulls := 0
		for i, row := range out.Rows {
			v, err := row.Nullable(col)
			if err != nil {
				return nil, ImputationReport{}, fmt.Errorf("Impute: %w", err)
			}
			values[i] = v
			if v == nil {
				nulls++
			}
		}
		if nulls == 0 {
			continue
		}

		mode, ok := Mode(values)
		if !ok {
			report.Unfillable = append(report.Unfillable, col)
			continue
		}
		for i := range out.Rows {
			if values[i] != nil {
				continue
			}
			if err := out.Rows[i].SetNullable(col, &mode); err != nil {
				return nil, ImputationReport{}, fmt.Errorf("Impute: %w", err)
			}
		}
		report.Filled[col] = mode
		report.FilledCells[col] = nulls
	}

	report.NullsAfter = out.NullCounts()
	return out, report, nil
}

// String renders the before/after null counts as an aligned two-column listing.
func (r ImputationReport) String() string {
	var b strings.Builder
	b.WriteString("=== Missing Values Before Cleaning ===\n")
	writeCounts(&b, r.NullsBefore)
	for _, col := range domain.ImputableColumns {
		if mode, ok := r.Filled[col]; ok {
			fmt.Fprintf(&b, "Filled missing values in '%s' with mode: %s\n", col, mode)
		}
	}
	b.WriteString("=== Missing Values After Cleaning ===\n")
	writeCounts(&b, r.NullsAfter)
	return b.String()
}

func writeCounts(b *strings.Builder, counts []domain.ColumnCount) {
	width := 0
	for _, c := range counts {
		if len(c.Column) > width {
			width = len(c.Column)
		}
	}
	for _, c := range counts {
		fmt.Fprintf(b, "%-*s %d\n", width, c.Column, c.Count)
	}
}
