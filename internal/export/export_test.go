package export

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/brokerage-insights/internal/domain"
	"github.com/dvloznov/brokerage-insights/internal/loader"
)

func sampleTable(derived bool) *domain.Table {
	tx := domain.Transaction{
		TransactionID:     5005,
		Date:              time.Date(2023, 1, 25, 0, 0, 0, 0, time.UTC),
		StockSymbol:       "JPM",
		CompanyName:       "JPMorgan Chase & Co.",
		Sector:            "Financials",
		TransactionType:   domain.TransactionTypeSell,
		Quantity:          15,
		PricePerShare:     decimal.RequireFromString("160.00"),
		TotalAmount:       decimal.RequireFromString("2400.00"),
		Broker:            domain.StringPtr("Fidelity"),
		PortfolioName:     "Retirement",
		CustomerAge:       35,
		CustomerGender:    nil,
		InvestmentHorizon: domain.StringPtr("Long-Term"),
		Year:              2023,
		Month:             "January",
	}
	t := domain.NewTable([]domain.Transaction{tx})
	t.Derived = derived
	return t
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTable(true)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], ",ProfitLoss,Year,Month"))
	assert.Equal(t, "5005,2023-01-25,JPM,JPMorgan Chase & Co.,Financials,Sell,15,160,2400,Fidelity,Retirement,35,,Long-Term,0,2023,January", lines[1])
}

func TestWriteCSV_SourceColumnsOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTable(false)))

	header := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.Equal(t, strings.Join(domain.SourceColumns, ","), header)
}

func TestWrite_RoundTripThroughLoader(t *testing.T) {
	for _, name := range []string{"out/clean.csv", "out/clean.xlsx"} {
		t.Run(filepath.Ext(name), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Write(path, sampleTable(true)))

			got, err := loader.New(nil, loader.Options{}).Load(context.Background(), path)
			require.NoError(t, err)
			require.Equal(t, 1, got.Len())
			assert.Equal(t, "JPMorgan Chase & Co.", got.Rows[0].CompanyName)
			assert.Nil(t, got.Rows[0].CustomerGender)
			assert.True(t, decimal.RequireFromString("2400").Equal(got.Rows[0].TotalAmount))
		})
	}
}

func TestWrite_TimeOfDaySurvivesRoundTrip(t *testing.T) {
	for _, name := range []string{"clean.csv", "clean.xlsx"} {
		t.Run(filepath.Ext(name), func(t *testing.T) {
			in := sampleTable(false)
			in.Rows = append(in.Rows, in.Rows[0])
			in.Rows[0].Date = time.Date(2023, 1, 25, 9, 0, 0, 0, time.UTC)
			in.Rows[1].Date = time.Date(2023, 1, 25, 15, 30, 0, 0, time.UTC)

			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Write(path, in))

			got, err := loader.New(nil, loader.Options{}).Load(context.Background(), path)
			require.NoError(t, err)
			require.Equal(t, 2, got.Len())
			assert.Equal(t, in.Rows[0].Date, got.Rows[0].Date)
			assert.Equal(t, in.Rows[1].Date, got.Rows[1].Date)
			assert.NotEqual(t, got.Rows[0].Key(), got.Rows[1].Key())
		})
	}
}

func TestWriteXLSX_Sheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clean.xlsx")
	require.NoError(t, WriteXLSX(path, sampleTable(true)))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	v, err := f.GetCellValue(SheetName, "Q2")
	require.NoError(t, err)
	assert.Equal(t, "January", v)
}
