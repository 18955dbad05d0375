package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dvloznov/brokerage-insights/internal/cleaning"
	"github.com/dvloznov/brokerage-insights/internal/domain"
)

var printer = message.NewPrinter(language.English)

// CleaningMetrics are the row-level counts the cleaner reports.
type CleaningMetrics struct {
	DuplicatesRemoved int
	OutliersDetected  int
}

// Bullets returns the executive summary bullets for the filtered table.
// Every bullet is computed from the data; the final one reports what
// cleaning changed.
func Bullets(t *domain.Table, m CleaningMetrics) []string {
	var out []string
	add := func(heading, text string) {
		if text != "" {
			out = append(out, fmt.Sprintf("• **%s:** %s", heading, text))
		}
	}

	if t.Len() == 0 {
		add("Reporting Window", "No transactions fell within the reporting window.")
	} else {
		sectors := SumBy(t, bySector, totalAmount)
		add("Portfolio Allocation by Sector", allocationText(sectors))
		add("Sector Performance", performanceText(sectors))
		add("Monthly Investment Trend", trendText(MonthlyTotals(t)))
		add("Risk Analysis", riskText(t))
		add("Return Analysis", returnText(MeanBy(t, bySector, totalAmount)))
		add("Top 5 Investments", topText(t))
		add("Transaction Volume Over Time", volumeText(VolumeByDate(t)))
		add("Profit/Loss Analysis", profitLossText(ProfitLossBySymbol(t)))
		add("Broker Performance", brokerText(t))
		add("Customer Demographics", demographicsText(t))
	}
	add("Data Quality", qualityText(m))
	return out
}

func allocationText(sectors []Point) string {
	ranked := SortDesc(sectors)
	if len(ranked) == 0 {
		return ""
	}
	share := Share(ranked[0].Value, Sum(ranked)).StringFixed(1)
	text := fmt.Sprintf("The %s sector constitutes the largest portion of the investment portfolio (%s%%)", ranked[0].Label, share)
	if len(ranked) > 1 {
		followers := make([]string, 0, 2)
		for _, p := range ranked[1:min(3, len(ranked))] {
			followers = append(followers, p.Label)
		}
		text += ", followed by " + strings.Join(followers, " and ")
	}
	return text + "."
}

func performanceText(sectors []Point) string {
	ranked := SortDesc(sectors)
	if len(ranked) == 0 {
		return ""
	}
	return fmt.Sprintf("The %s sector leads in total investments with %s across the reporting window.",
		ranked[0].Label, formatMoney(ranked[0].Value))
}

func trendText(monthly []Point) string {
	if len(monthly) == 0 {
		return ""
	}
	if len(monthly) == 1 {
		return fmt.Sprintf("All investment activity fell in %s (%s).", monthly[0].Label, formatMoney(monthly[0].Value))
	}
	ranked := SortDesc(monthly)
	high, low := ranked[0], ranked[len(ranked)-1]
	return fmt.Sprintf("Total investment peaked in %s (%s) and was lowest in %s (%s).",
		high.Label, formatMoney(high.Value), low.Label, formatMoney(low.Value))
}

func riskText(t *domain.Table) string {
	buys := decimal.Zero
	total := decimal.Zero
	for _, row := range t.Rows {
		total = total.Add(row.TotalAmount)
		if row.TransactionType == domain.TransactionTypeBuy {
			buys = buys.Add(row.TotalAmount)
		}
	}
	if total.IsZero() {
		return ""
	}
	share := Share(buys, total)
	text := fmt.Sprintf("Buy operations account for %s%% of transaction value", share.StringFixed(1))
	if share.GreaterThan(decimal.NewFromInt(50)) {
		return text + ", suggesting a growth-oriented investment strategy."
	}
	return text + ", indicating that positions are being realised more than built."
}

func returnText(means []Point) string {
	ranked := SortDesc(means)
	if len(ranked) == 0 {
		return ""
	}
	return fmt.Sprintf("On average, the %s sector attracts the highest investment per transaction (%s).",
		ranked[0].Label, formatMoney(ranked[0].Value))
}

func topText(t *domain.Table) string {
	top := TopN(SumBy(t, func(tx domain.Transaction) string { return tx.StockSymbol }, totalAmount), topN)
	labels := make([]string, len(top))
	for i, p := range top {
		labels[i] = p.Label
	}
	switch len(labels) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("%s is the only stock in the portfolio by total investment amount.", labels[0])
	}
	return fmt.Sprintf("%s are the top stocks in the portfolio based on total investment amounts.", joinList(labels))
}

func volumeText(volume []DateCount) string {
	if len(volume) == 0 {
		return ""
	}
	total := 0
	peak := volume[0]
	for _, v := range volume {
		total += v.N
		if v.N > peak.N {
			peak = v
		}
	}
	return fmt.Sprintf("%s transactions were recorded on %s distinct dates, with the busiest day on %s (%d).",
		printer.Sprintf("%d", total), printer.Sprintf("%d", len(volume)), peak.Date.Format(domain.DateLayout), peak.N)
}

func profitLossText(bySymbol []Point) string {
	if len(bySymbol) == 0 {
		return "No sell transactions fell within the reporting window."
	}
	net := Sum(bySymbol)
	if net.IsZero() {
		return fmt.Sprintf("Sell transactions broke even across %s.", plural(len(bySymbol), "stock", "stocks"))
	}
	outcome := "a net profit"
	if net.IsNegative() {
		outcome = "a net loss"
	}
	best := SortDesc(bySymbol)[0]
	return fmt.Sprintf("Sell transactions generated %s of %s, with the strongest result from %s (%s).",
		outcome, formatMoney(net.Abs()), best.Label, formatMoney(best.Value))
}

func brokerText(t *domain.Table) string {
	withBroker := t.Filter(func(tx domain.Transaction) bool { return tx.Broker != nil })
	ranked := SortDesc(SumBy(withBroker, func(tx domain.Transaction) string { return *tx.Broker }, totalAmount))
	switch len(ranked) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("%s handles all of the investment transactions.", ranked[0].Label)
	}
	top := Sum(ranked[:2])
	return fmt.Sprintf("%s and %s handle %s%% of the investment value, indicating their popularity among investors.",
		ranked[0].Label, ranked[1].Label, Share(top, Sum(ranked)).StringFixed(1))
}

func demographicsText(t *domain.Table) string {
	ages := make([]*string, len(t.Rows))
	genders := make([]*string, len(t.Rows))
	horizons := make([]*string, len(t.Rows))
	for i, row := range t.Rows {
		age := fmt.Sprintf("%d", row.CustomerAge)
		ages[i] = &age
		genders[i] = row.CustomerGender
		horizons[i] = row.InvestmentHorizon
	}
	age, okAge := cleaning.Mode(ages)
	gender, okGender := cleaning.Mode(genders)
	horizon, okHorizon := cleaning.Mode(horizons)
	if !okAge || !okGender || !okHorizon {
		return ""
	}
	return fmt.Sprintf("The primary investor is a %s-year-old %s with a %s investment horizon.",
		age, strings.ToLower(gender), strings.ToLower(horizon))
}

func qualityText(m CleaningMetrics) string {
	return fmt.Sprintf("%s removed and %s in TotalAmount capped to the IQR bounds.",
		plural(m.DuplicatesRemoved, "duplicate record was", "duplicate records were"),
		plural(m.OutliersDetected, "outlier", "outliers"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return printer.Sprintf("%d", n) + " " + many
}

// joinList renders "A", "A and B" or "A, B, and C".
func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
}

// formatMoney renders d as dollars with thousands separators, e.g. $56,000.00.
func formatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	whole := d.Truncate(0)
	cents := d.Sub(whole).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if cents == 100 {
		whole = whole.Add(decimal.NewFromInt(1))
		cents = 0
	}
	return fmt.Sprintf("%s$%s.%02d", sign, printer.Sprintf("%d", whole.IntPart()), cents)
}
