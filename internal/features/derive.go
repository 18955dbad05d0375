package features

import (
	"github.com/shopspring/decimal"

	"github.com/dvloznov/brokerage-insights/internal/domain"
)

// ProfitLoss returns TotalAmount − Quantity × PricePerShare for a Sell row and
// zero for every other transaction type.
func ProfitLoss(tx domain.Transaction) decimal.Decimal {
	if !tx.IsSell() {
		return decimal.Zero
	}
	cost := tx.PricePerShare.Mul(decimal.NewFromInt(tx.Quantity))
	return tx.TotalAmount.Sub(cost)
}

// Derive returns a copy of t with ProfitLoss, Year and Month populated on
// every row. Month is the English month name.
func Derive(t *domain.Table) *domain.Table {
	out := t.Clone()
	for i := range out.Rows {
		row := &out.Rows[i]
		row.ProfitLoss = ProfitLoss(*row)
		row.Year = row.Date.Year()
		row.Month = row.Date.Month().String()
	}
	out.Derived = true
	return out
}
