package quality

import (
	"sort"

	"github.com/mzee2025/rdi-dashboard/internal/model"
)

// CompletionByGroup aggregates completed and total records per value of
// the group column. Records without a group value form their own group,
// ordered last. Returns ok=false if the column is absent.
func CompletionByGroup(rs *model.RecordSet, s model.Settings, column string) ([]model.CompletionRow, bool) {
	if !rs.HasColumn(column) {
		return nil, false
	}

	type bucket struct {
		key       model.Value
		completed int
		total     int
	}
	byKey := make(map[string]*bucket)
	var missing *bucket
	var order []*bucket

	mask := CompletenessMask(rs, s)
	for i := 0; i < rs.Len(); i++ {
		key := rs.Get(i, column)
		var b *bucket
		if key.IsMissing() {
			if missing == nil {
				missing = &bucket{key: key}
			}
			b = missing
		} else {
			k := key.String()
			if b = byKey[k]; b == nil {
				b = &bucket{key: key}
				byKey[k] = b
				order = append(order, b)
			}
		}
		b.total++
		if mask[i] {
			b.completed++
		}
	}

	sort.SliceStable(order, func(a, b int) bool {
		return model.Compare(order[a].key, order[b].key) < 0
	})
	if missing != nil {
		order = append(order, missing)
	}

	rows := make([]model.CompletionRow, 0, len(order))
	for _, b := range order {
		rows = append(rows, model.CompletionRow{
			Group:          b.key.String(),
			GroupMissing:   b.key.IsMissing(),
			Completed:      b.completed,
			Total:          b.total,
			CompletionRate: percent(b.completed, b.total),
		})
	}
	return rows, true
}
