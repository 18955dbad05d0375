package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dvloznov/brokerage-insights/internal/domain"
	"github.com/dvloznov/brokerage-insights/internal/logger"
)

// Logical chart names. Each chart is written to <dir>/<name>.png.
const (
	ChartPortfolioAllocation        = "portfolio_allocation"
	ChartSectorPerformance          = "sector_performance"
	ChartStockTrend                 = "stock_trend"
	ChartRiskAnalysis               = "risk_analysis"
	ChartReturnAnalysis             = "return_analysis"
	ChartTopInvestments             = "top_investments"
	ChartCustomerAgeDistribution    = "customer_age_distribution"
	ChartCustomerGenderDistribution = "customer_gender_distribution"
	ChartTransactionVolume          = "transaction_volume"
	ChartProfitLossAnalysis         = "profit_loss_analysis"
	ChartBrokerPerformance          = "broker_performance"
)

const (
	chartWidth  = 1200
	chartHeight = 800
	barWidth    = 60
	topN        = 5
	ageBins     = 15
)

// Chart describes a rendered chart file.
type Chart struct {
	Name  string
	Title string
	File  string
	Path  string
}

// renderable is satisfied by every go-chart chart type.
type renderable interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

type chartSpec struct {
	name  string
	build func(r *Renderer, t *domain.Table) (renderable, bool)
}

// chartSpecs lists the charts in report order.
var chartSpecs = []chartSpec{
	{ChartPortfolioAllocation, buildPortfolioAllocation},
	{ChartSectorPerformance, buildSectorPerformance},
	{ChartStockTrend, buildStockTrend},
	{ChartRiskAnalysis, buildRiskAnalysis},
	{ChartReturnAnalysis, buildReturnAnalysis},
	{ChartTopInvestments, buildTopInvestments},
	{ChartCustomerAgeDistribution, buildAgeDistribution},
	{ChartCustomerGenderDistribution, buildGenderDistribution},
	{ChartTransactionVolume, buildTransactionVolume},
	{ChartProfitLossAnalysis, buildProfitLoss},
	{ChartBrokerPerformance, buildBrokerPerformance},
}

// ChartNames returns the logical chart names in report order.
func ChartNames() []string {
	names := make([]string, len(chartSpecs))
	for i, s := range chartSpecs {
		names[i] = s.name
	}
	return names
}

// ChartTitle turns a logical name into a heading, e.g. "stock_trend" → "Stock Trend".
func ChartTitle(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}

// Renderer draws the report charts as PNG files.
type Renderer struct {
	Dir string
	// WindowYears is shown in the monthly trend caption when positive.
	WindowYears int
}

// NewRenderer creates a renderer writing into dir.
func NewRenderer(dir string, windowYears int) *Renderer {
	return &Renderer{Dir: dir, WindowYears: windowYears}
}

// RenderAll draws every chart that has data and returns them in report order.
// Charts without data are skipped with a warning.
func (r *Renderer) RenderAll(ctx context.Context, t *domain.Table) ([]Chart, error) {
	log := logger.FromContext(ctx)

	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("RenderAll: creating charts dir: %w", err)
	}

	var charts []Chart
	for _, spec := range chartSpecs {
		if err := ctx.Err(); err != nil {
			return charts, fmt.Errorf("RenderAll: %w", err)
		}

		c, ok := spec.build(r, t)
		if !ok {
			log.Warn().Str("chart", spec.name).Msg("Skipping chart with no data")
			continue
		}

		out := Chart{
			Name:  spec.name,
			Title: ChartTitle(spec.name),
			File:  spec.name + ".png",
		}
		out.Path = filepath.Join(r.Dir, out.File)
		if err := writePNG(out.Path, c); err != nil {
			return charts, fmt.Errorf("RenderAll: %s: %w", spec.name, err)
		}
		log.Debug().Str("chart", spec.name).Str("path", out.Path).Msg("Chart saved")
		charts = append(charts, out)
	}
	return charts, nil
}

func writePNG(path string, c renderable) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.Render(chart.PNG, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func buildPortfolioAllocation(_ *Renderer, t *domain.Table) (renderable, bool) {
	return barChart("Portfolio Allocation by Sector", "Total Investment ($)",
		SumBy(t, bySector, totalAmount), 45)
}

func buildSectorPerformance(_ *Renderer, t *domain.Table) (renderable, bool) {
	return barChart("Sector Performance", "Total Investment ($)",
		SortDesc(SumBy(t, bySector, totalAmount)), 45)
}

func buildStockTrend(r *Renderer, t *domain.Table) (renderable, bool) {
	monthly := MonthlyTotals(t)
	if len(monthly) == 0 {
		return nil, false
	}
	title := "Monthly Investment Trend"
	if r.WindowYears > 0 {
		title = fmt.Sprintf("%s (Last %d Years)", title, r.WindowYears)
	}

	xs := make([]float64, len(monthly))
	ys := make([]float64, len(monthly))
	ticks := make([]chart.Tick, len(monthly))
	for i, p := range monthly {
		xs[i] = float64(i)
		ys[i] = p.Value.InexactFloat64()
		ticks[i] = chart.Tick{Value: float64(i), Label: p.Label}
	}

	return chart.Chart{
		Title:  title,
		Width:  chartWidth,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "Month",
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: -0.5, Max: float64(len(monthly)) - 0.5},
			Style: chart.Style{TextRotationDegrees: 45},
		},
		YAxis: chart.YAxis{
			Name:           "Total Investment ($)",
			Range:          valueRange(ys),
			ValueFormatter: moneyFormatter,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Total Investment",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: drawing.ColorBlue,
					StrokeWidth: 2,
					DotColor:    drawing.ColorBlue,
					DotWidth:    5,
				},
			},
		},
	}, true
}

func buildRiskAnalysis(_ *Renderer, t *domain.Table) (renderable, bool) {
	byType := SumBy(t, func(tx domain.Transaction) string { return string(tx.TransactionType) }, totalAmount)
	if len(byType) == 0 {
		return nil, false
	}
	total := Sum(byType)
	values := make([]chart.Value, len(byType))
	for i, p := range byType {
		if !p.Value.IsPositive() {
			return nil, false
		}
		values[i] = chart.Value{
			Value: p.Value.InexactFloat64(),
			Label: fmt.Sprintf("%s (%s%%)", p.Label, Share(p.Value, total).StringFixed(1)),
		}
	}
	return chart.PieChart{
		Title:  "Buy vs. Sell Transactions",
		Width:  chartHeight,
		Height: chartHeight,
		Values: values,
	}, true
}

func buildReturnAnalysis(_ *Renderer, t *domain.Table) (renderable, bool) {
	return barChart("Average Investment per Sector", "Average Investment ($)",
		MeanBy(t, bySector, totalAmount), 45)
}

func buildTopInvestments(_ *Renderer, t *domain.Table) (renderable, bool) {
	bySymbol := SumBy(t, func(tx domain.Transaction) string { return tx.StockSymbol }, totalAmount)
	return barChart(fmt.Sprintf("Top %d Investments by Total Amount", topN), "Total Investment ($)",
		TopN(bySymbol, topN), 0)
}

func buildAgeDistribution(_ *Renderer, t *domain.Table) (renderable, bool) {
	ages := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		ages[i] = float64(row.CustomerAge)
	}
	bins := Histogram(ages, ageBins)
	if len(bins) == 0 {
		return nil, false
	}
	points := make([]Point, len(bins))
	for i, b := range bins {
		points[i] = Point{
			Label: fmt.Sprintf("%.0f-%.0f", b.Lo, b.Hi),
			Value: decimal.NewFromInt(int64(b.N)),
		}
	}
	return countChart("Customer Age Distribution", "Number of Transactions", points, 45)
}

func buildGenderDistribution(_ *Renderer, t *domain.Table) (renderable, bool) {
	counts := CountBy(t, func(tx domain.Transaction) (string, bool) {
		return tx.Value(domain.ColCustomerGender)
	})
	points := make([]Point, len(counts))
	for i, c := range counts {
		points[i] = Point{Label: c.Label, Value: decimal.NewFromInt(int64(c.N))}
	}
	return countChart("Customer Gender Distribution", "Count", points, 0)
}

func buildTransactionVolume(_ *Renderer, t *domain.Table) (renderable, bool) {
	volume := VolumeByDate(t)
	if len(volume) == 0 {
		return nil, false
	}
	xs := make([]time.Time, len(volume))
	ys := make([]float64, len(volume))
	for i, v := range volume {
		xs[i] = v.Date
		ys[i] = float64(v.N)
	}
	first, last := xs[0], xs[len(xs)-1]
	if !last.After(first) {
		first, last = first.AddDate(0, 0, -1), last.AddDate(0, 0, 1)
	}

	return chart.Chart{
		Title:  "Transaction Volume Over Time",
		Width:  chartWidth,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:           "Date",
			Range:          &chart.ContinuousRange{Min: chart.TimeToFloat64(first), Max: chart.TimeToFloat64(last)},
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:  "Number of Transactions",
			Range: valueRange(ys),
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Transactions",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: drawing.ColorGreen,
					StrokeWidth: 2,
					DotColor:    drawing.ColorGreen,
					DotWidth:    4,
				},
			},
		},
	}, true
}

func buildProfitLoss(_ *Renderer, t *domain.Table) (renderable, bool) {
	return barChart("Profit/Loss from Sell Transactions by Stock", "Total Profit/Loss ($)",
		ProfitLossBySymbol(t), 0)
}

func buildBrokerPerformance(_ *Renderer, t *domain.Table) (renderable, bool) {
	withBroker := t.Filter(func(tx domain.Transaction) bool { return tx.Broker != nil })
	byBroker := SumBy(withBroker, func(tx domain.Transaction) string { return *tx.Broker }, totalAmount)
	return barChart("Broker Performance", "Total Investment ($)", SortDesc(byBroker), 0)
}

func barChart(title, yName string, points []Point, rotation float64) (renderable, bool) {
	return bars(title, yName, points, rotation, moneyFormatter)
}

func countChart(title, yName string, points []Point, rotation float64) (renderable, bool) {
	return bars(title, yName, points, rotation, countFormatter)
}

func bars(title, yName string, points []Point, rotation float64, format chart.ValueFormatter) (renderable, bool) {
	if len(points) == 0 {
		return nil, false
	}
	values := make([]chart.Value, len(points))
	ys := make([]float64, len(points))
	negative := false
	for i, p := range points {
		ys[i] = p.Value.InexactFloat64()
		values[i] = chart.Value{Label: p.Label, Value: ys[i]}
		negative = negative || ys[i] < 0
	}
	return chart.BarChart{
		Title:  title,
		Width:  chartWidth,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 60, Left: 20, Right: 20, Bottom: 40},
		},
		BarWidth: barWidth,
		XAxis:    chart.Style{TextRotationDegrees: rotation},
		YAxis: chart.YAxis{
			Name:           yName,
			Range:          valueRange(ys),
			ValueFormatter: format,
		},
		UseBaseValue: negative,
		BaseValue:    0,
		Bars:         values,
	}, true
}

// valueRange spans zero and every value with some headroom, and is never empty.
func valueRange(values []float64) *chart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		hi = lo + 1
	}
	pad := (hi - lo) * 0.1
	if lo < 0 {
		lo -= pad
	}
	return &chart.ContinuousRange{Min: lo, Max: hi + pad}
}

func moneyFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return formatMoney(decimal.NewFromFloat(f).Round(0))
	}
	return ""
}

func countFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.0f", f)
	}
	return ""
}
