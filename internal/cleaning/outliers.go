package cleaning

import (
	"github.com/shopspring/decimal"

	"github.com/dvloznov/brokerage-insights/internal/domain"
)

// IQRMultiplier scales the interquartile range into the outlier fences.
var IQRMultiplier = decimal.NewFromFloat(1.5)

// OutlierReport carries the TotalAmount fences and how many rows fell outside them.
type OutlierReport struct {
	Q1       decimal.Decimal
	Q3       decimal.Decimal
	IQR      decimal.Decimal
	Lower    decimal.Decimal
	Upper    decimal.Decimal
	Detected int
}

// Fences computes Q1, Q3 and the [Q1 − 1.5·IQR, Q3 + 1.5·IQR] bounds of values.
func Fences(values []decimal.Decimal) (OutlierReport, error) {
	q1, err := Quantile(values, 0.25)
	if err != nil {
		return OutlierReport{}, err
	}
	q3, err := Quantile(values, 0.75)
	if err != nil {
		return OutlierReport{}, err
	}
	iqr := q3.Sub(q1)
	spread := iqr.Mul(IQRMultiplier)
	return OutlierReport{
		Q1:    q1,
		Q3:    q3,
		IQR:   iqr,
		Lower: q1.Sub(spread),
		Upper: q3.Add(spread),
	}, nil
}

// CapOutliers clamps TotalAmount into the IQR fences of the table's current
// distribution. Rows are never removed. Detected counts rows strictly outside
// the fences before clamping. An empty table is returned unchanged.
func CapOutliers(t *domain.Table) (*domain.Table, OutlierReport) {
	out := t.Clone()
	if out.Len() == 0 {
		return out, OutlierReport{}
	}

	amounts := make([]decimal.Decimal, len(out.Rows))
	for i, row := range out.Rows {
		amounts[i] = row.TotalAmount
	}
	report, err := Fences(amounts)
	if err != nil {
		return out, OutlierReport{}
	}

	for i := range out.Rows {
		amount := out.Rows[i].TotalAmount
		switch {
		case amount.GreaterThan(report.Upper):
			out.Rows[i].TotalAmount = report.Upper
			report.Detected++
		case amount.LessThan(report.Lower):
			out.Rows[i].TotalAmount = report.Lower
			report.Detected++
		}
	}
	return out, report
}
