package report

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/brokerage-insights/internal/domain"
)

// Point is one labelled value of an aggregation.
type Point struct {
	Label string
	Value decimal.Decimal
}

// Count is one labelled frequency.
type Count struct {
	Label string
	N     int
}

// DateCount is the number of transactions on one calendar date.
type DateCount struct {
	Date time.Time
	N    int
}

// Bin is one histogram bucket covering [Lo, Hi), the last bucket closed on both ends.
type Bin struct {
	Lo, Hi float64
	N      int
}

func totalAmount(tx domain.Transaction) decimal.Decimal { return tx.TotalAmount }

func bySector(tx domain.Transaction) string { return tx.Sector }

// SumBy groups rows by key and sums value within each group. Groups are
// returned in ascending label order.
func SumBy(t *domain.Table, key func(domain.Transaction) string, value func(domain.Transaction) decimal.Decimal) []Point {
	sums := make(map[string]decimal.Decimal)
	for _, row := range t.Rows {
		k := key(row)
		sums[k] = sums[k].Add(value(row))
	}
	return sortedPoints(sums)
}

// MeanBy groups rows by key and averages value within each group, in
// ascending label order.
func MeanBy(t *domain.Table, key func(domain.Transaction) string, value func(domain.Transaction) decimal.Decimal) []Point {
	sums := make(map[string]decimal.Decimal)
	counts := make(map[string]int64)
	for _, row := range t.Rows {
		k := key(row)
		sums[k] = sums[k].Add(value(row))
		counts[k]++
	}
	for k, s := range sums {
		sums[k] = s.Div(decimal.NewFromInt(counts[k]))
	}
	return sortedPoints(sums)
}

func sortedPoints(m map[string]decimal.Decimal) []Point {
	points := make([]Point, 0, len(m))
	for k, v := range m {
		points = append(points, Point{Label: k, Value: v})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Label < points[j].Label })
	return points
}

// SortDesc returns points ordered by value, largest first. Equal values keep
// their relative order.
func SortDesc(points []Point) []Point {
	out := make([]Point, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value.GreaterThan(out[j].Value) })
	return out
}

// TopN returns the n largest points, largest first.
func TopN(points []Point, n int) []Point {
	sorted := SortDesc(points)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// MonthlyTotals sums TotalAmount by month name in calendar order, January
// first. Months with no rows are omitted.
func MonthlyTotals(t *domain.Table) []Point {
	var sums [12]decimal.Decimal
	var seen [12]bool
	for _, row := range t.Rows {
		m := row.Date.Month() - 1
		sums[m] = sums[m].Add(row.TotalAmount)
		seen[m] = true
	}
	var points []Point
	for i := range sums {
		if seen[i] {
			points = append(points, Point{Label: time.Month(i + 1).String(), Value: sums[i]})
		}
	}
	return points
}

// CountBy counts rows per key in order of first appearance.
func CountBy(t *domain.Table, key func(domain.Transaction) (string, bool)) []Count {
	index := make(map[string]int)
	var counts []Count
	for _, row := range t.Rows {
		k, ok := key(row)
		if !ok {
			continue
		}
		i, seen := index[k]
		if !seen {
			i = len(counts)
			index[k] = i
			counts = append(counts, Count{Label: k})
		}
		counts[i].N++
	}
	return counts
}

// VolumeByDate counts transactions per calendar date, oldest first.
func VolumeByDate(t *domain.Table) []DateCount {
	counts := make(map[time.Time]int)
	for _, row := range t.Rows {
		y, m, d := row.Date.Date()
		counts[time.Date(y, m, d, 0, 0, 0, 0, time.UTC)]++
	}
	out := make([]DateCount, 0, len(counts))
	for d, n := range counts {
		out = append(out, DateCount{Date: d, N: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// ProfitLossBySymbol sums ProfitLoss of Sell rows by StockSymbol.
func ProfitLossBySymbol(t *domain.Table) []Point {
	sells := t.Filter(domain.Transaction.IsSell)
	return SumBy(sells, func(tx domain.Transaction) string { return tx.StockSymbol },
		func(tx domain.Transaction) decimal.Decimal { return tx.ProfitLoss })
}

// Histogram splits values into bins equal-width buckets spanning their range.
// A single distinct value gets the range [v−0.5, v+0.5].
func Histogram(values []float64, bins int) []Bin {
	if len(values) == 0 || bins <= 0 {
		return nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lo = lo + float64(i)*width
		out[i].Hi = lo + float64(i+1)*width
	}
	out[bins-1].Hi = hi

	for _, v := range values {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].N++
	}
	return out
}

// Share returns part as a percentage of whole, or zero when whole is zero.
func Share(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100))
}

// Sum adds the values of points.
func Sum(points []Point) decimal.Decimal {
	total := decimal.Zero
	for _, p := range points {
		total = total.Add(p.Value)
	}
	return total
}
