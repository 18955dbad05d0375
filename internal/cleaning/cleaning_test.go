package cleaning

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/brokerage-insights/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tx(id int64, date string, symbol string, typ domain.TransactionType, qty int64, price, total string) domain.Transaction {
	d, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return domain.Transaction{
		TransactionID:     id,
		Date:              d,
		StockSymbol:       symbol,
		CompanyName:       symbol + " Corp.",
		Sector:            "Technology",
		TransactionType:   typ,
		Quantity:          qty,
		PricePerShare:     dec(price),
		TotalAmount:       dec(total),
		Broker:            domain.StringPtr("Fidelity"),
		PortfolioName:     "Retirement",
		CustomerAge:       35,
		CustomerGender:    domain.StringPtr("M"),
		InvestmentHorizon: domain.StringPtr("Long-Term"),
	}
}

// sampleTable mirrors the six-row fixture: row 6 duplicates row 5 and both
// lack CustomerGender and InvestmentHorizon.
func sampleTable() *domain.Table {
	rows := []domain.Transaction{
		tx(5001, "2021-11-15", "AAPL", domain.TransactionTypeBuy, 50, "150.00", "7500.00"),
		tx(5002, "2020-05-22", "MSFT", domain.TransactionTypeBuy, 30, "250.00", "7500.00"),
		tx(5003, "2019-07-10", "GOOGL", domain.TransactionTypeBuy, 20, "2800.00", "56000.00"),
		tx(5004, "2022-03-18", "AMZN", domain.TransactionTypeBuy, 10, "3300.00", "33000.00"),
		tx(5005, "2023-01-25", "JPM", domain.TransactionTypeSell, 15, "160.00", "2400.00"),
		tx(5005, "2023-01-25", "JPM", domain.TransactionTypeSell, 15, "160.00", "2400.00"),
	}
	rows[1].Broker = domain.StringPtr("Charles Schwab")
	rows[3].Broker = domain.StringPtr("TD Ameritrade")
	for _, i := range []int{4, 5} {
		rows[i].CustomerGender = nil
		rows[i].InvestmentHorizon = nil
	}
	return domain.NewTable(rows)
}

func countFor(counts []domain.ColumnCount, col string) int {
	for _, c := range counts {
		if c.Column == col {
			return c.Count
		}
	}
	return -1
}

func TestMode(t *testing.T) {
	s := domain.StringPtr
	tests := []struct {
		name   string
		values []*string
		want   string
		wantOK bool
	}{
		{name: "clear winner", values: []*string{s("a"), s("b"), s("b")}, want: "b", wantOK: true},
		{name: "tie goes to first seen", values: []*string{s("x"), s("y"), s("y"), s("x")}, want: "x", wantOK: true},
		{name: "tie with later first", values: []*string{nil, s("y"), s("x"), s("x"), s("y")}, want: "y", wantOK: true},
		{name: "nulls ignored", values: []*string{nil, nil, s("z")}, want: "z", wantOK: true},
		{name: "all null", values: []*string{nil, nil}, wantOK: false},
		{name: "empty", values: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Mode(tt.values)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuantile(t *testing.T) {
	values := []decimal.Decimal{dec("4"), dec("1"), dec("3"), dec("2")}

	tests := []struct {
		q    float64
		want string
	}{
		{q: 0, want: "1"},
		{q: 0.25, want: "1.75"},
		{q: 0.5, want: "2.5"},
		{q: 0.75, want: "3.25"},
		{q: 1, want: "4"},
	}
	for _, tt := range tests {
		got, err := Quantile(values, tt.q)
		require.NoError(t, err)
		assert.True(t, dec(tt.want).Equal(got), "q=%v: got %s", tt.q, got)
	}

	assert.Equal(t, "4", values[0].String(), "input must not be reordered")

	_, err := Quantile(nil, 0.5)
	assert.ErrorIs(t, err, ErrNoValues)

	_, err = Quantile(values, 1.5)
	assert.Error(t, err)
}

func TestImpute(t *testing.T) {
	in := sampleTable()

	out, report, err := Impute(in)
	require.NoError(t, err)

	assert.Equal(t, "M", report.Filled[domain.ColCustomerGender])
	assert.Equal(t, "Long-Term", report.Filled[domain.ColInvestmentHorizon])
	assert.Equal(t, 2, report.FilledCells[domain.ColCustomerGender])
	assert.NotContains(t, report.Filled, domain.ColBroker)

	assert.Equal(t, 2, countFor(report.NullsBefore, domain.ColCustomerGender))
	for _, col := range domain.ImputableColumns {
		assert.Equal(t, 0, countFor(report.NullsAfter, col), col)
	}

	for _, row := range out.Rows[4:] {
		require.NotNil(t, row.CustomerGender)
		assert.Equal(t, "M", *row.CustomerGender)
		assert.Equal(t, "Long-Term", *row.InvestmentHorizon)
	}

	assert.Nil(t, in.Rows[4].CustomerGender, "input table must not change")
	assert.Contains(t, report.String(), "Filled missing values in 'CustomerGender' with mode: M")
}

func TestImpute_OnlyFixedColumns(t *testing.T) {
	in := sampleTable()
	in.Rows[0].Sector = ""

	out, report, err := Impute(in)
	require.NoError(t, err)
	assert.Equal(t, "", out.Rows[0].Sector)
	assert.Equal(t, 1, countFor(report.NullsAfter, domain.ColSector))
}

func TestImpute_AllNullColumnStaysNull(t *testing.T) {
	in := sampleTable()
	for i := range in.Rows {
		in.Rows[i].Broker = nil
	}

	out, report, err := Impute(in)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.ColBroker}, report.Unfillable)
	for _, row := range out.Rows {
		assert.Nil(t, row.Broker)
	}
}

func TestRemoveDuplicates(t *testing.T) {
	in := sampleTable()

	out, removed := RemoveDuplicates(in)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 5, out.Len())
	assert.Equal(t, in.Len()-out.Len(), removed)
	assert.Equal(t, 6, in.Len())

	again, removedAgain := RemoveDuplicates(out)
	assert.Equal(t, 0, removedAgain)
	assert.Equal(t, out, again)
}

func TestRemoveDuplicates_AllColumnsCompared(t *testing.T) {
	in := sampleTable()
	in.Rows[5].CustomerAge = 36

	_, removed := RemoveDuplicates(in)
	assert.Equal(t, 0, removed)
}

func TestRemoveDuplicates_TimeOfDayIsCompared(t *testing.T) {
	morning := tx(5005, "2023-01-25", "JPM", domain.TransactionTypeSell, 15, "160.00", "2400.00")
	afternoon := morning
	morning.Date = morning.Date.Add(9 * time.Hour)
	afternoon.Date = afternoon.Date.Add(15*time.Hour + 30*time.Minute)

	out, removed := RemoveDuplicates(domain.NewTable([]domain.Transaction{morning, afternoon, morning}))
	assert.Equal(t, 1, removed)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, morning.Date, out.Rows[0].Date)
	assert.Equal(t, afternoon.Date, out.Rows[1].Date)
}

func TestRemoveDuplicates_KeepsFirstOccurrence(t *testing.T) {
	a := tx(1, "2023-01-01", "AAPL", domain.TransactionTypeBuy, 1, "10", "10")
	b := tx(2, "2023-01-02", "MSFT", domain.TransactionTypeBuy, 1, "10", "10")
	in := domain.NewTable([]domain.Transaction{a, b, a, b, a})

	out, removed := RemoveDuplicates(in)
	assert.Equal(t, 3, removed)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, int64(1), out.Rows[0].TransactionID)
	assert.Equal(t, int64(2), out.Rows[1].TransactionID)
}

func amountsTable(amounts ...string) *domain.Table {
	rows := make([]domain.Transaction, len(amounts))
	for i, a := range amounts {
		rows[i] = tx(int64(i+1), "2023-01-01", "AAPL", domain.TransactionTypeBuy, 1, a, a)
	}
	return domain.NewTable(rows)
}

func TestCapOutliers(t *testing.T) {
	in := amountsTable("1", "2", "3", "4", "100", "-50")

	out, report := CapOutliers(in)
	require.Equal(t, in.Len(), out.Len())
	assert.Equal(t, 2, report.Detected)

	for _, row := range out.Rows {
		assert.False(t, row.TotalAmount.GreaterThan(report.Upper))
		assert.False(t, row.TotalAmount.LessThan(report.Lower))
	}
	assert.True(t, report.Upper.Equal(out.Rows[4].TotalAmount))
	assert.True(t, report.Lower.Equal(out.Rows[5].TotalAmount))
	assert.True(t, dec("100").Equal(in.Rows[4].TotalAmount), "input table must not change")
	assert.True(t, report.IQR.Equal(report.Q3.Sub(report.Q1)))
}

func TestCapOutliers_Fences(t *testing.T) {
	_, report := CapOutliers(amountsTable("1", "2", "3", "4", "100"))

	assert.True(t, dec("2").Equal(report.Q1))
	assert.True(t, dec("4").Equal(report.Q3))
	assert.True(t, dec("-1").Equal(report.Lower))
	assert.True(t, dec("7").Equal(report.Upper))
	assert.Equal(t, 1, report.Detected)
}

func TestCapOutliers_Idempotent(t *testing.T) {
	first, _ := CapOutliers(amountsTable("1", "2", "3", "4", "100"))

	second, report := CapOutliers(first)
	assert.Equal(t, 0, report.Detected)
	assert.Equal(t, first, second)
}

func TestCapOutliers_Empty(t *testing.T) {
	out, report := CapOutliers(domain.NewTable(nil))
	assert.Equal(t, 0, out.Len())
	assert.Equal(t, 0, report.Detected)
}

func TestCleaning_SampleEndToEnd(t *testing.T) {
	imputed, _, err := Impute(sampleTable())
	require.NoError(t, err)

	deduped, removed := RemoveDuplicates(imputed)
	assert.Equal(t, 1, removed)
	require.Equal(t, 5, deduped.Len())

	capped, report := CapOutliers(deduped)
	assert.Equal(t, 0, report.Detected)
	assert.Equal(t, deduped, capped)
	assert.Equal(t, "M", *capped.Rows[4].CustomerGender)
}
