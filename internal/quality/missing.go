package quality

import (
	"sort"

	"github.com/mzee2025/rdi-dashboard/internal/model"
)

// MissingProfile counts missing cells per column over the whole RecordSet.
// Only columns with at least one missing value are returned, ordered by
// missing percentage descending; ties keep column order.
func MissingProfile(rs *model.RecordSet) []model.MissingRow {
	n := rs.Len()
	if n == 0 {
		return nil
	}
	var rows []model.MissingRow
	for _, col := range rs.ColumnNames() {
		count := 0
		for _, v := range rs.Column(col) {
			if v.IsMissing() {
				count++
			}
		}
		if count == 0 {
			continue
		}
		rows = append(rows, model.MissingRow{
			Field:             col,
			MissingCount:      count,
			MissingPercentage: percent(count, n),
		})
	}
	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].MissingPercentage > rows[b].MissingPercentage
	})
	return rows
}
