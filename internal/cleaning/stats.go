package cleaning

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ErrNoValues is returned by Quantile for an empty input.
var ErrNoValues = errors.New("no values")

// Mode returns the most frequent non-nil value. Ties go to the value
// encountered first. The boolean is false when every value is nil.
func Mode(values []*string) (string, bool) {
	counts := make(map[string]int)
	var order []string
	for _, v := range values {
		if v == nil {
			continue
		}
		if counts[*v] == 0 {
			order = append(order, *v)
		}
		counts[*v]++
	}

	best, bestCount := "", 0
	for _, v := range order {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best, bestCount > 0
}

// Quantile returns the q-th quantile of values, interpolating linearly
// between the two closest ranks at position q·(n−1).
func Quantile(values []decimal.Decimal, q float64) (decimal.Decimal, error) {
	if len(values) == 0 {
		return decimal.Zero, ErrNoValues
	}
	if q < 0 || q > 1 {
		return decimal.Zero, fmt.Errorf("Quantile: q=%v outside [0, 1]", q)
	}

	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	pos := decimal.NewFromFloat(q).Mul(decimal.NewFromInt(int64(len(sorted) - 1)))
	lo := pos.Floor()
	frac := pos.Sub(lo)
	i := int(lo.IntPart())
	if frac.IsZero() || i+1 >= len(sorted) {
		return sorted[i], nil
	}
	return sorted[i].Add(sorted[i+1].Sub(sorted[i]).Mul(frac)), nil
}
