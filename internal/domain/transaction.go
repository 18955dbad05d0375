package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical calendar-date format used when rendering dates.
const DateLayout = "2006-01-02"

// DateTimeLayout renders dates that carry a time of day. Fractional seconds
// are printed only when present.
const DateTimeLayout = "2006-01-02 15:04:05.999999999"

// TransactionType is the side of a brokerage event.
type TransactionType string

const (
	TransactionTypeBuy  TransactionType = "Buy"
	TransactionTypeSell TransactionType = "Sell"
)

// ErrNotNullable is returned when a nullable accessor is used on a column
// that is not one of the nullable categorical columns.
var ErrNotNullable = errors.New("column is not nullable")

// Transaction represents one brokerage event as loaded from the source file.
// Broker, CustomerGender and InvestmentHorizon are nil when the source cell was empty.
// ProfitLoss, Year and Month are zero until the feature deriver runs.
type Transaction struct {
	TransactionID     int64
	Date              time.Time
	StockSymbol       string
	CompanyName       string
	Sector            string
	TransactionType   TransactionType
	Quantity          int64
	PricePerShare     decimal.Decimal
	TotalAmount       decimal.Decimal
	Broker            *string
	PortfolioName     string
	CustomerAge       int64
	CustomerGender    *string
	InvestmentHorizon *string

	ProfitLoss decimal.Decimal
	Year       int
	Month      string
}

// Clone returns a copy that shares no pointers with t.
func (t Transaction) Clone() Transaction {
	c := t
	c.Broker = cloneString(t.Broker)
	c.CustomerGender = cloneString(t.CustomerGender)
	c.InvestmentHorizon = cloneString(t.InvestmentHorizon)
	return c
}

// Key encodes every source column into a string so that two transactions
// have the same key exactly when all their source columns are equal.
// Decimals are compared by value, so "7500" and "7500.00" collide.
func (t Transaction) Key() string {
	var b strings.Builder
	for i, col := range SourceColumns {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		v, ok := t.Value(col)
		if !ok {
			b.WriteByte(0x00)
			continue
		}
		b.WriteString(v)
	}
	return b.String()
}

// Value renders a column as text. The boolean is false when the column is null.
// Unknown columns are reported as null.
func (t Transaction) Value(column string) (string, bool) {
	switch column {
	case ColTransactionID:
		return strconv.FormatInt(t.TransactionID, 10), true
	case ColDate:
		return FormatDate(t.Date), true
	case ColStockSymbol:
		return t.StockSymbol, t.StockSymbol != ""
	case ColCompanyName:
		return t.CompanyName, t.CompanyName != ""
	case ColSector:
		return t.Sector, t.Sector != ""
	case ColTransactionType:
		return string(t.TransactionType), t.TransactionType != ""
	case ColQuantity:
		return strconv.FormatInt(t.Quantity, 10), true
	case ColPricePerShare:
		return t.PricePerShare.String(), true
	case ColTotalAmount:
		return t.TotalAmount.String(), true
	case ColBroker:
		return deref(t.Broker)
	case ColPortfolioName:
		return t.PortfolioName, t.PortfolioName != ""
	case ColCustomerAge:
		return strconv.FormatInt(t.CustomerAge, 10), true
	case ColCustomerGender:
		return deref(t.CustomerGender)
	case ColInvestmentHorizon:
		return deref(t.InvestmentHorizon)
	case ColProfitLoss:
		return t.ProfitLoss.String(), true
	case ColYear:
		return strconv.Itoa(t.Year), true
	case ColMonth:
		return t.Month, t.Month != ""
	}
	return "", false
}

// Nullable returns the value of one of the nullable categorical columns.
func (t Transaction) Nullable(column string) (*string, error) {
	switch column {
	case ColBroker:
		return t.Broker, nil
	case ColCustomerGender:
		return t.CustomerGender, nil
	case ColInvestmentHorizon:
		return t.InvestmentHorizon, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotNullable, column)
}

// SetNullable stores value into one of the nullable categorical columns.
func (t *Transaction) SetNullable(column string, value *string) error {
	v := cloneString(value)
	switch column {
	case ColBroker:
		t.Broker = v
	case ColCustomerGender:
		t.CustomerGender = v
	case ColInvestmentHorizon:
		t.InvestmentHorizon = v
	default:
		return fmt.Errorf("%w: %s", ErrNotNullable, column)
	}
	return nil
}

// IsSell reports whether the transaction is a sale.
func (t Transaction) IsSell() bool {
	return t.TransactionType == TransactionTypeSell
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func deref(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}

// FormatDate renders midnight as a plain calendar date and anything else with
// its time of day, so distinct instants never render the same.
func FormatDate(d time.Time) string {
	if d.Hour() == 0 && d.Minute() == 0 && d.Second() == 0 && d.Nanosecond() == 0 {
		return d.Format(DateLayout)
	}
	return d.Format(DateTimeLayout)
}
