// Package quality computes the survey data-quality metrics: completion by
// group, missing-data profile, duration flags, GPS quality, and enumerator
// performance. Every metric is a pure function of a RecordSet and Settings.
package quality

import (
	"math"

	"github.com/mzee2025/rdi-dashboard/internal/model"
)

// DensityThreshold is the fraction of non-missing fields a record must
// exceed to count as complete when no required fields are configured.
const DensityThreshold = 0.8

// IsComplete reports whether record i satisfies the completeness rule:
// all required fields present, or more than DensityThreshold of all fields
// present when none are configured. A required field that is not a column
// counts as missing.
func IsComplete(rs *model.RecordSet, s model.Settings, i int) bool {
	if len(s.RequiredFields) > 0 {
		for _, f := range s.RequiredFields {
			if rs.Get(i, f).IsMissing() {
				return false
			}
		}
		return true
	}
	cols := rs.NumColumns()
	if cols == 0 {
		return false
	}
	present := cols - rs.MissingInRow(i)
	return float64(present)/float64(cols) > DensityThreshold
}

// CompletenessMask evaluates IsComplete for every record.
func CompletenessMask(rs *model.RecordSet, s model.Settings) []bool {
	mask := make([]bool, rs.Len())
	for i := range mask {
		mask[i] = IsComplete(rs, s, i)
	}
	return mask
}

// round2 rounds half away from zero to two decimals.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// percent returns part/whole*100 rounded to two decimals, or 0 for an empty whole.
func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round2(float64(part) / float64(whole) * 100)
}
