package cleaning

import "github.com/dvloznov/brokerage-insights/internal/domain"

// RemoveDuplicates drops rows equal to an earlier row across every source
// column, keeping the first occurrence. It returns the new table and the
// number of rows removed.
func RemoveDuplicates(t *domain.Table) (*domain.Table, int) {
	seen := make(map[string]struct{}, t.Len())
	out := t.Filter(func(row domain.Transaction) bool {
		k := row.Key()
		if _, dup := seen[k]; dup {
			return false
		}
		seen[k] = struct{}{}
		return true
	})
	return out, t.Len() - out.Len()
}
