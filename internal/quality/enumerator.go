package quality

import (
	"math"
	"sort"

	"github.com/mzee2025/rdi-dashboard/internal/model"
)

// EnumeratorPerformance builds one row per distinct non-missing enumerator
// identifier. Duration, GPS, and completion issues are recounted over the
// enumerator's own records; total_errors is their sum and excludes the
// missing-cell count. Rows are ordered by error rate descending, then total
// errors descending, then first appearance. Returns ok=false if the
// enumerator column is absent.
func EnumeratorPerformance(rs *model.RecordSet, s model.Settings) ([]model.EnumeratorRow, bool) {
	column := s.Column(model.RoleEnumerator)
	if !rs.HasColumn(column) {
		return nil, false
	}

	durationColumn := s.Column(model.RoleDuration)
	hasDuration := rs.HasColumn(durationColumn)
	hasGPS := HasGPSColumns(rs)

	// Identifiers are keyed by kind and payload, so a numeric 1 and a
	// string "1" stay separate enumerators.
	type enumeratorKey struct {
		kind model.Kind
		id   string
	}
	index := make(map[enumeratorKey]int)
	var rows []model.EnumeratorRow
	for i := 0; i < rs.Len(); i++ {
		id := rs.Get(i, column)
		if id.IsMissing() {
			continue
		}
		key := enumeratorKey{kind: id.Kind(), id: id.String()}
		pos, ok := index[key]
		if !ok {
			pos = len(rows)
			index[key] = pos
			rows = append(rows, model.EnumeratorRow{EnumeratorID: key.id})
		}
		row := &rows[pos]

		row.TotalInterviews++
		if hasDuration {
			if d, ok := durationOf(rs, i, durationColumn); ok && DurationOutOfRange(d, s) {
				row.DurationIssues++
			}
		}
		if hasGPS {
			if _, ok := PointAt(rs, i); !ok {
				row.GPSIssues++
			}
		}
		if !IsComplete(rs, s, i) {
			row.CompletionIssues++
		}
		row.MissingDataCount += rs.MissingInRow(i)
	}

	for i := range rows {
		rows[i].TotalErrors = rows[i].DurationIssues + rows[i].GPSIssues + rows[i].CompletionIssues
		rows[i].ErrorRate = ErrorRate(rows[i].TotalErrors, rows[i].TotalInterviews)
	}

	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].ErrorRate != rows[b].ErrorRate {
			return rows[a].ErrorRate > rows[b].ErrorRate
		}
		return rows[a].TotalErrors > rows[b].TotalErrors
	})
	return rows, true
}

// ErrorRate is totalErrors/interviews*100 rounded to two decimals and
// capped at 100. Zero interviews yield 0.
func ErrorRate(totalErrors, interviews int) float64 {
	if interviews == 0 {
		return 0
	}
	return math.Min(percent(totalErrors, interviews), 100)
}
