package model

// CompletionRow is the completion summary for one grouping key.
type CompletionRow struct {
	Group          string  `json:"group"`
	GroupMissing   bool    `json:"group_missing,omitempty"`
	Completed      int     `json:"completed"`
	Total          int     `json:"total"`
	CompletionRate float64 `json:"completion_rate"`
}

// MissingGroupLabel labels the group of records without a grouping key.
const MissingGroupLabel = "(missing)"

// Label returns the display label of the group.
func (r CompletionRow) Label() string {
	if r.GroupMissing {
		return MissingGroupLabel
	}
	return r.Group
}

// MissingRow is the missing-data profile of one field.
type MissingRow struct {
	Field             string  `json:"field"`
	MissingCount      int     `json:"missing_count"`
	MissingPercentage float64 `json:"missing_percentage"`
}

// DurationFlag marks one record whose duration is outside the configured range.
type DurationFlag struct {
	Row      int     `json:"row"`
	Duration float64 `json:"duration"`
	Reason   string  `json:"flag_reason"`
}

// GPSSummary holds the three independent GPS quality counts.
type GPSSummary struct {
	Missing          int  `json:"missing"`
	OutOfBounds      int  `json:"out_of_bounds"`
	BoundsConfigured bool `json:"bounds_configured"`
	Duplicates       int  `json:"duplicates"`
}

// EnumeratorRow is the performance summary of one enumerator.
type EnumeratorRow struct {
	EnumeratorID     string  `json:"enumerator_id"`
	TotalInterviews  int     `json:"total_interviews"`
	DurationIssues   int     `json:"duration_issues"`
	GPSIssues        int     `json:"gps_issues"`
	CompletionIssues int     `json:"completion_issues"`
	MissingDataCount int     `json:"missing_data_count"`
	TotalErrors      int     `json:"total_errors"`
	ErrorRate        float64 `json:"error_rate"`
}

// Metric names used for diagnostics and failure reporting.
const (
	MetricCompletion = "completion"
	MetricMissing    = "missing_data"
	MetricDuration   = "duration_flags"
	MetricGPS        = "gps_quality"
	MetricEnumerator = "enumerator_performance"
)

// QualityResult bundles the outputs of the five quality metrics. A nil or
// empty field means the metric produced nothing, either because its input
// column was absent or because it failed; Failures names the latter.
type QualityResult struct {
	Completion    []CompletionRow   `json:"completion"`
	Missing       []MissingRow      `json:"missing"`
	DurationFlags []DurationFlag    `json:"duration_flags"`
	GPS           *GPSSummary       `json:"gps,omitempty"`
	Enumerators   []EnumeratorRow   `json:"enumerators"`
	Failures      map[string]string `json:"failures,omitempty"`
}
