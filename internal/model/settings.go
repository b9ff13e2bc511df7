package model

import "time"

// Logical column roles resolved through Settings.ColumnMapping.
const (
	RoleDistrict        = "district_column"
	RoleDuration        = "duration_column"
	RoleEnumerator      = "enumerator_column"
	RoleSubmissionTime  = "submission_time_column"
	RoleDurationSeconds = "duration_seconds_column"
	RoleGeopoint        = "geopoint_column"
)

// Derived column names added by the normalizer.
const (
	ColumnDurationMinutes = "duration_minutes"
	ColumnLatitude        = "latitude"
	ColumnLongitude       = "longitude"
)

// DefaultColumns maps each role to the column used when the mapping is silent.
var DefaultColumns = map[string]string{
	RoleDistrict:        "district",
	RoleDuration:        ColumnDurationMinutes,
	RoleEnumerator:      "enumerator_id",
	RoleSubmissionTime:  "_submission_time",
	RoleDurationSeconds: "_duration",
	RoleGeopoint:        "hh_geopoint",
}

// Bounds is an inclusive geographic bounding box in decimal degrees.
type Bounds struct {
	LatMin float64 `json:"lat_min" yaml:"lat_min"`
	LatMax float64 `json:"lat_max" yaml:"lat_max"`
	LonMin float64 `json:"lon_min" yaml:"lon_min"`
	LonMax float64 `json:"lon_max" yaml:"lon_max"`
}

// Settings are the quality-check options for one refresh cycle. A Settings
// value is read-only once loaded.
type Settings struct {
	MinDuration      float64
	MaxDuration      float64
	StartDate        time.Time
	RequiredFields   []string
	TargetBoundaries *Bounds
	GPSTolerance     float64
	ColumnMapping    map[string]string
	TargetDistricts  []string
}

// Default quality-check values.
const (
	DefaultMinDuration  = 30
	DefaultMaxDuration  = 120
	DefaultStartDate    = "2025-11-01"
	DefaultGPSTolerance = 0.01
)

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	start, _ := time.Parse(time.DateOnly, DefaultStartDate)
	return Settings{
		MinDuration:   DefaultMinDuration,
		MaxDuration:   DefaultMaxDuration,
		StartDate:     start,
		GPSTolerance:  DefaultGPSTolerance,
		ColumnMapping: map[string]string{},
	}
}

// Column resolves a logical role to the actual column name.
func (s Settings) Column(role string) string {
	if name, ok := s.ColumnMapping[role]; ok && name != "" {
		return name
	}
	return DefaultColumns[role]
}
