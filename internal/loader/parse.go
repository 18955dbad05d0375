package loader

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/brokerage-insights/internal/domain"
)

// dateLayouts are tried in order when parsing the Date column.
var dateLayouts = []string{
	domain.DateLayout,
	domain.DateTimeLayout,
	time.RFC3339,
	"01/02/2006",
}

var errEmptyCell = errors.New("empty value")

// parseRecords converts raw records (header first) into a table.
func parseRecords(records [][]string) (*domain.Table, error) {
	if len(records) == 0 {
		return nil, ErrEmptySource
	}

	index := headerIndex(records[0])
	if err := validateSchema(index); err != nil {
		return nil, err
	}

	rows := make([]domain.Transaction, 0, len(records)-1)
	for i, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		tx, err := parseRow(i+1, rec, index)
		if err != nil {
			return nil, err
		}
		rows = append(rows, tx)
	}
	return domain.NewTable(rows), nil
}

// headerIndex maps trimmed header names to their column index. The first
// occurrence of a repeated name wins.
func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, col := range header {
		name := strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}
	return index
}

// validateSchema reports the first source column missing from the header.
func validateSchema(index map[string]int) error {
	for _, col := range domain.SourceColumns {
		if _, ok := index[col]; !ok {
			return &MissingColumnError{Column: col}
		}
	}
	return nil
}

func blank(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// rowReader extracts typed cells from one record and keeps the first error.
type rowReader struct {
	row   int
	rec   []string
	index map[string]int
	err   error
}

func (r *rowReader) cell(col string) string {
	i := r.index[col]
	if i >= len(r.rec) {
		return ""
	}
	return strings.TrimSpace(r.rec[i])
}

func (r *rowReader) fail(col, value string, err error) {
	if r.err == nil {
		r.err = &ParseError{Row: r.row, Column: col, Value: value, Err: err}
	}
}

func (r *rowReader) text(col string) string {
	return r.cell(col)
}

func (r *rowReader) nullable(col string) *string {
	v := r.cell(col)
	if v == "" {
		return nil
	}
	return &v
}

func (r *rowReader) integer(col string) int64 {
	v := r.cell(col)
	n, err := parseInteger(v)
	if err != nil {
		r.fail(col, v, err)
	}
	return n
}

func (r *rowReader) amount(col string) decimal.Decimal {
	v := r.cell(col)
	if v == "" {
		r.fail(col, v, errEmptyCell)
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		r.fail(col, v, err)
	}
	return d
}

func (r *rowReader) date(col string) time.Time {
	v := r.cell(col)
	d, err := parseDate(v)
	if err != nil {
		r.fail(col, v, err)
	}
	return d
}

func parseRow(row int, rec []string, index map[string]int) (domain.Transaction, error) {
	r := &rowReader{row: row, rec: rec, index: index}
	tx := domain.Transaction{
		TransactionID:     r.integer(domain.ColTransactionID),
		Date:              r.date(domain.ColDate),
		StockSymbol:       r.text(domain.ColStockSymbol),
		CompanyName:       r.text(domain.ColCompanyName),
		Sector:            r.text(domain.ColSector),
		TransactionType:   domain.TransactionType(r.text(domain.ColTransactionType)),
		Quantity:          r.integer(domain.ColQuantity),
		PricePerShare:     r.amount(domain.ColPricePerShare),
		TotalAmount:       r.amount(domain.ColTotalAmount),
		Broker:            r.nullable(domain.ColBroker),
		PortfolioName:     r.text(domain.ColPortfolioName),
		CustomerAge:       r.integer(domain.ColCustomerAge),
		CustomerGender:    r.nullable(domain.ColCustomerGender),
		InvestmentHorizon: r.nullable(domain.ColInvestmentHorizon),
	}
	return tx, r.err
}

// parseInteger accepts plain integers and integral floats such as "35.0",
// which spreadsheet exports produce for integer columns.
func parseInteger(v string) (int64, error) {
	if v == "" {
		return 0, errEmptyCell
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, errors.New("not an integer")
	}
	return int64(f), nil
}

// parseDate keeps the date and time of day as written and labels them UTC.
// An RFC3339 offset is dropped rather than applied, so a value never moves to
// another calendar day.
func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, errEmptyCell
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(),
				t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
		}
	}
	return time.Time{}, errors.New("unrecognised date format")
}
