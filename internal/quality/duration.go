package quality

import (
	"fmt"

	"github.com/mzee2025/rdi-dashboard/internal/model"
)

// DurationOutOfRange reports whether d lies strictly outside [min, max].
func DurationOutOfRange(d float64, s model.Settings) bool {
	return d < s.MinDuration || d > s.MaxDuration
}

// DurationReason returns the flag reason for an out-of-range duration.
func DurationReason(d float64, s model.Settings) string {
	if d < s.MinDuration {
		return fmt.Sprintf("Too short (<%s min)", model.FormatNumber(s.MinDuration))
	}
	return fmt.Sprintf("Too long (>%s min)", model.FormatNumber(s.MaxDuration))
}

// durationOf returns the numeric duration of record i, if any.
func durationOf(rs *model.RecordSet, i int, column string) (float64, bool) {
	return rs.Get(i, column).Float()
}

// DurationFlags selects records whose duration is strictly below the
// minimum or above the maximum. Records without a numeric duration are
// never flagged. Returns ok=false if the column is absent.
func DurationFlags(rs *model.RecordSet, s model.Settings, column string) ([]model.DurationFlag, bool) {
	if !rs.HasColumn(column) {
		return nil, false
	}
	var flags []model.DurationFlag
	for i := 0; i < rs.Len(); i++ {
		d, ok := durationOf(rs, i, column)
		if !ok || !DurationOutOfRange(d, s) {
			continue
		}
		flags = append(flags, model.DurationFlag{
			Row:      i,
			Duration: d,
			Reason:   DurationReason(d, s),
		})
	}
	return flags, true
}
