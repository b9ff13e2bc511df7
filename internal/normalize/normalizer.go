package normalize

import (
	"time"

	"go.uber.org/zap"

	"github.com/mzee2025/rdi-dashboard/internal/model"
)

// Stats reports what normalization did to one export.
type Stats struct {
	Fetched            int `json:"fetched"`
	Dropped            int `json:"dropped"`
	Kept               int `json:"kept"`
	MalformedGeopoints int `json:"malformed_geopoints"`
}

// Normalizer derives the canonical columns for one refresh cycle.
type Normalizer struct {
	settings model.Settings
	log      *zap.Logger
}

// New creates a Normalizer bound to the cycle's settings.
func New(settings model.Settings) *Normalizer {
	return &Normalizer{
		settings: settings,
		log:      zap.L().With(zap.String("component", "normalize")),
	}
}

// Normalize builds the RecordSet, coerces temporal columns, applies the
// retention filter, converts duration to minutes, and splits the geopoint.
func (n *Normalizer) Normalize(records []map[string]any) (*model.RecordSet, Stats) {
	return n.NormalizeSet(FromRaw(records))
}

// NormalizeSet runs every step after construction on an already built
// RecordSet. rs may be modified; the returned set is the one to use.
func (n *Normalizer) NormalizeSet(rs *model.RecordSet) (*model.RecordSet, Stats) {
	if rs == nil {
		rs = model.NewRecordSet()
	}
	stats := Stats{Fetched: rs.Len()}

	n.coerceTimes(rs)

	rs, stats.Dropped = n.retain(rs)
	stats.Kept = rs.Len()
	if stats.Dropped > 0 {
		n.log.Info("filtered records before start date",
			zap.Int("dropped", stats.Dropped),
			zap.String("start_date", n.settings.StartDate.Format(time.DateOnly)),
		)
	}

	n.convertDuration(rs)

	if col := n.settings.Column(model.RoleGeopoint); rs.HasColumn(col) {
		malformed, err := SplitGeopoints(rs, col)
		if err != nil {
			n.log.Warn("geopoint split failed", zap.String("column", col), zap.Error(err))
		}
		stats.MalformedGeopoints = malformed
		if malformed > 0 {
			n.log.Warn("malformed geopoints treated as missing",
				zap.String("column", col), zap.Int("count", malformed))
		}
	}

	return rs, stats
}

func (n *Normalizer) coerceTimes(rs *model.RecordSet) {
	for _, col := range rs.ColumnNames() {
		if !IsTimeColumn(col) {
			continue
		}
		if err := CoerceTimeColumn(rs, col); err != nil {
			n.log.Debug("left column unparsed", zap.String("column", col), zap.Error(err))
		}
	}
}

// retain keeps records submitted on or after the start date (UTC midnight).
// Records without a submission timestamp cannot be placed after the cutoff
// and are dropped too.
func (n *Normalizer) retain(rs *model.RecordSet) (*model.RecordSet, int) {
	col := n.settings.Column(model.RoleSubmissionTime)
	typ, ok := rs.ColumnType(col)
	if !ok {
		n.log.Warn("submission time column absent, retention filter skipped", zap.String("column", col))
		return rs, 0
	}
	if typ != model.ColumnTime && rs.Len() > 0 {
		n.log.Warn("submission time column is not a timestamp, retention filter skipped",
			zap.String("column", col), zap.String("type", string(typ)))
		return rs, 0
	}

	cutoff := RetentionCutoff(n.settings.StartDate)
	kept := rs.Filter(func(i int) bool {
		t, ok := rs.Get(i, col).Timestamp()
		return ok && !t.Before(cutoff)
	})
	return kept, rs.Len() - kept.Len()
}

// RetentionCutoff returns UTC midnight of the start date.
func RetentionCutoff(start time.Time) time.Time {
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
}

func (n *Normalizer) convertDuration(rs *model.RecordSet) {
	src := n.settings.Column(model.RoleDurationSeconds)
	seconds := rs.Column(src)
	if seconds == nil {
		return
	}
	minutes := make([]model.Value, len(seconds))
	for i, v := range seconds {
		f, ok := v.Float()
		if !ok {
			minutes[i] = model.Missing()
			continue
		}
		minutes[i] = model.Number(f / 60)
	}
	if err := rs.SetColumn(model.ColumnDurationMinutes, model.ColumnNumber, minutes); err != nil {
		n.log.Warn("duration conversion failed", zap.String("column", src), zap.Error(err))
		return
	}
	n.log.Debug("converted duration from seconds to minutes", zap.String("column", src))
}
