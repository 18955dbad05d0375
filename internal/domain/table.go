package domain

// Column names as they appear in the source header.
const (
	ColTransactionID     = "TransactionID"
	ColDate              = "Date"
	ColStockSymbol       = "StockSymbol"
	ColCompanyName       = "CompanyName"
	ColSector            = "Sector"
	ColTransactionType   = "TransactionType"
	ColQuantity          = "Quantity"
	ColPricePerShare     = "PricePerShare"
	ColTotalAmount       = "TotalAmount"
	ColBroker            = "Broker"
	ColPortfolioName     = "PortfolioName"
	ColCustomerAge       = "CustomerAge"
	ColCustomerGender    = "CustomerGender"
	ColInvestmentHorizon = "InvestmentHorizon"

	ColProfitLoss = "ProfitLoss"
	ColYear       = "Year"
	ColMonth      = "Month"
)

// SourceColumns lists the columns a source file must provide, in file order.
var SourceColumns = []string{
	ColTransactionID,
	ColDate,
	ColStockSymbol,
	ColCompanyName,
	ColSector,
	ColTransactionType,
	ColQuantity,
	ColPricePerShare,
	ColTotalAmount,
	ColBroker,
	ColPortfolioName,
	ColCustomerAge,
	ColCustomerGender,
	ColInvestmentHorizon,
}

// DerivedColumns are appended by the feature deriver.
var DerivedColumns = []string{ColProfitLoss, ColYear, ColMonth}

// ImputableColumns is the fixed set of categorical columns whose nulls are
// filled with the column mode. No other column is ever imputed.
var ImputableColumns = []string{ColBroker, ColCustomerGender, ColInvestmentHorizon}

// ColumnCount pairs a column name with a count.
type ColumnCount struct {
	Column string
	Count  int
}

// Table is the in-memory transaction table passed between pipeline stages.
// Stages never modify a table they receive; they return a new one.
type Table struct {
	Rows    []Transaction
	Derived bool
}

// NewTable wraps rows in a table.
func NewTable(rows []Transaction) *Table {
	return &Table{Rows: rows}
}

// Len returns the number of rows; a nil table has none.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	if t == nil {
		return &Table{}
	}
	rows := make([]Transaction, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = r.Clone()
	}
	return &Table{Rows: rows, Derived: t.Derived}
}

// Columns returns the column names present in the table, derived ones last.
func (t *Table) Columns() []string {
	cols := make([]string, 0, len(SourceColumns)+len(DerivedColumns))
	cols = append(cols, SourceColumns...)
	if t != nil && t.Derived {
		cols = append(cols, DerivedColumns...)
	}
	return cols
}

// NullCounts returns the number of null cells per column, in column order.
// Empty text in non-nullable string columns counts as null.
func (t *Table) NullCounts() []ColumnCount {
	cols := t.Columns()
	counts := make([]ColumnCount, len(cols))
	for i, col := range cols {
		counts[i].Column = col
	}
	if t == nil {
		return counts
	}
	for _, row := range t.Rows {
		for i, col := range cols {
			if _, ok := row.Value(col); !ok {
				counts[i].Count++
			}
		}
	}
	return counts
}

// Filter returns a new table holding deep copies of the rows for which keep is true.
func (t *Table) Filter(keep func(Transaction) bool) *Table {
	out := &Table{Rows: make([]Transaction, 0, t.Len())}
	if t == nil {
		return out
	}
	out.Derived = t.Derived
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r.Clone())
		}
	}
	return out
}
