package report

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/twpayne/go-geom"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mzee2025/rdi-dashboard/internal/model"
	"github.com/mzee2025/rdi-dashboard/internal/quality"
)

// Kind is the visual form of a dashboard panel.
type Kind string

const (
	KindBar           Kind = "bar"
	KindHistogram     Kind = "histogram"
	KindHorizontalBar Kind = "hbar"
	KindLine          Kind = "line"
	KindTable         Kind = "table"
	KindMap           Kind = "map"
)

// Panel colors.
const (
	colorPrimary  = "#2E86AB"
	colorGreen    = "#06A77D"
	colorOrange   = "#F18F01"
	colorRed      = "#D62828"
	colorRedLight = "#FFE5E5"
	colorGrey     = "#F0F0F0"
)

// TopN caps the missing-field and enumerator panels.
const TopN = 10

// HistogramBins is the bin count of the duration distribution.
const HistogramBins = 30

// Panel is one chart or table of the dashboard. Which fields are set
// depends on Kind.
type Panel struct {
	ID    string
	Title string
	Kind  Kind
	Color string

	// bar, hbar, line, histogram
	Labels []string
	Values []float64
	Text   []string
	Bins   int

	// table
	Header     []string
	Rows       [][]string
	HeaderFill string
	CellFill   string

	// map
	Points []quality.Point
	Hover  []string
	Center quality.Point
	Zoom   float64
}

// Empty reports whether the panel has nothing to draw.
func (p Panel) Empty() bool {
	switch p.Kind {
	case KindTable:
		return len(p.Rows) == 0
	case KindMap:
		return len(p.Points) == 0
	default:
		return len(p.Values) == 0
	}
}

// printer formats counts with thousands separators.
var printer = message.NewPrinter(language.English)

func formatCount(n int) string {
	return printer.Sprintf("%d", n)
}

func formatPercent(f float64) string {
	return printer.Sprintf("%.1f%%", f)
}

// BuildPanels lays out the eight dashboard panels from the metric outputs.
// A metric that produced nothing yields an empty panel in its slot.
func BuildPanels(rs *model.RecordSet, res *model.QualityResult, s model.Settings) []Panel {
	return []Panel{
		completionPanel(res.Completion),
		durationPanel(rs, s),
		missingPanel(res.Missing),
		dailyPanel(rs, s),
		errorRatePanel(res.Enumerators),
		enumeratorTablePanel(res.Enumerators),
		mapPanel(rs, s),
		SummaryPanel(rs, res, s),
	}
}

func completionPanel(rows []model.CompletionRow) Panel {
	p := Panel{ID: "completion", Title: "Completion Rates by District", Kind: KindBar, Color: colorPrimary}
	for _, r := range rows {
		p.Labels = append(p.Labels, r.Label())
		p.Values = append(p.Values, r.CompletionRate)
		p.Text = append(p.Text, formatPercent(r.CompletionRate))
	}
	return p
}

func durationPanel(rs *model.RecordSet, s model.Settings) Panel {
	p := Panel{ID: "duration", Title: "Interview Duration Distribution", Kind: KindHistogram, Color: colorGreen, Bins: HistogramBins}
	for _, v := range rs.Column(s.Column(model.RoleDuration)) {
		if f, ok := v.Float(); ok {
			p.Values = append(p.Values, f)
		}
	}
	return p
}

func missingPanel(rows []model.MissingRow) Panel {
	p := Panel{ID: "missing", Title: "Top 10 Fields with Missing Data", Kind: KindHorizontalBar, Color: colorOrange}
	for _, r := range rows[:min(len(rows), TopN)] {
		p.Labels = append(p.Labels, r.Field)
		p.Values = append(p.Values, r.MissingPercentage)
		p.Text = append(p.Text, formatPercent(r.MissingPercentage))
	}
	return p
}

// DailyCounts returns submissions per calendar day of the submission-time
// column, in date order.
func DailyCounts(rs *model.RecordSet, s model.Settings) ([]string, []int) {
	counts := make(map[string]int)
	for _, v := range rs.Column(s.Column(model.RoleSubmissionTime)) {
		if t, ok := v.Timestamp(); ok {
			counts[t.Format(time.DateOnly)]++
		}
	}
	days := make([]string, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	sort.Strings(days)
	n := make([]int, len(days))
	for i, d := range days {
		n[i] = counts[d]
	}
	return days, n
}

func dailyPanel(rs *model.RecordSet, s model.Settings) Panel {
	p := Panel{ID: "daily", Title: "Daily Submission Trends", Kind: KindLine, Color: colorGreen}
	days, counts := DailyCounts(rs, s)
	p.Labels = days
	for _, c := range counts {
		p.Values = append(p.Values, float64(c))
	}
	return p
}

func errorRatePanel(rows []model.EnumeratorRow) Panel {
	p := Panel{ID: "error_rates", Title: "Enumerator Error Rates", Kind: KindHorizontalBar, Color: colorRed}
	for _, r := range rows[:min(len(rows), TopN)] {
		p.Labels = append(p.Labels, r.EnumeratorID)
		p.Values = append(p.Values, r.ErrorRate)
		p.Text = append(p.Text, formatPercent(r.ErrorRate))
	}
	return p
}

func enumeratorTablePanel(rows []model.EnumeratorRow) Panel {
	p := Panel{
		ID:         "enumerators",
		Title:      "Enumerator Performance Summary",
		Kind:       KindTable,
		Header:     []string{"Enumerator", "Interviews", "Duration Issues", "GPS Issues", "Error Rate %"},
		HeaderFill: colorRed,
		CellFill:   colorRedLight,
	}
	for _, r := range rows[:min(len(rows), TopN)] {
		p.Rows = append(p.Rows, []string{
			r.EnumeratorID,
			formatCount(r.TotalInterviews),
			formatCount(r.DurationIssues),
			formatCount(r.GPSIssues),
			formatPercent(r.ErrorRate),
		})
	}
	return p
}

func mapPanel(rs *model.RecordSet, s model.Settings) Panel {
	p := Panel{ID: "map", Title: "GPS Coordinate Map", Kind: KindMap, Color: colorPrimary}
	if !quality.HasGPSColumns(rs) {
		return p
	}
	enumCol := s.Column(model.RoleEnumerator)
	for i := 0; i < rs.Len(); i++ {
		pt, ok := quality.PointAt(rs, i)
		if !ok {
			continue
		}
		p.Points = append(p.Points, pt)
		hover := "Location"
		if v := rs.Get(i, enumCol); !v.IsMissing() {
			hover = v.String()
		}
		p.Hover = append(p.Hover, hover)
	}
	p.Center, p.Zoom = mapView(p.Points)
	return p
}

// mapView returns the mean position of pts and a zoom level that fits
// their extent.
func mapView(pts []quality.Point) (quality.Point, float64) {
	if len(pts) == 0 {
		return quality.Point{}, 1
	}
	flat := make([]float64, 0, 2*len(pts))
	var sumLat, sumLon float64
	for _, pt := range pts {
		flat = append(flat, pt.Lon, pt.Lat)
		sumLat += pt.Lat
		sumLon += pt.Lon
	}
	center := quality.Point{Lat: sumLat / float64(len(pts)), Lon: sumLon / float64(len(pts))}

	b := geom.NewMultiPointFlat(geom.XY, flat).Bounds()
	extent := math.Max(b.Max(0)-b.Min(0), b.Max(1)-b.Min(1))
	if extent <= 0 {
		return center, 10
	}
	zoom := math.Floor(math.Log2(360 / extent))
	return center, math.Max(1, math.Min(zoom, 14))
}

// SummaryPanel is the key/value table of headline figures.
func SummaryPanel(rs *model.RecordSet, res *model.QualityResult, s model.Settings) Panel {
	na := "N/A"

	completion := na
	if len(res.Completion) > 0 {
		var sum float64
		for _, r := range res.Completion {
			sum += r.CompletionRate
		}
		completion = formatPercent(sum / float64(len(res.Completion)))
	}

	gpsIssues := na
	if res.GPS != nil {
		gpsIssues = formatCount(res.GPS.Missing)
	}

	enumerators, avgError := na, na
	if len(res.Enumerators) > 0 {
		var sum float64
		for _, r := range res.Enumerators {
			sum += r.ErrorRate
		}
		enumerators = formatCount(len(res.Enumerators))
		avgError = formatPercent(sum / float64(len(res.Enumerators)))
	}

	period := na
	if lo, hi, ok := rs.TimeRange(s.Column(model.RoleSubmissionTime)); ok {
		period = fmt.Sprintf("%s to %s", lo.Format(time.DateOnly), hi.Format(time.DateOnly))
	}

	return Panel{
		ID:         "summary",
		Title:      "Summary Statistics",
		Kind:       KindTable,
		Header:     []string{"Metric", "Value"},
		HeaderFill: colorPrimary,
		CellFill:   colorGrey,
		Rows: [][]string{
			{"Total Submissions", formatCount(rs.Len())},
			{"Completion Rate", completion},
			{"Duration Flags", formatCount(len(res.DurationFlags))},
			{"GPS Issues", gpsIssues},
			{"Total Enumerators", enumerators},
			{"Avg Error Rate", avgError},
			{"Data Collection Period", period},
		},
	}
}
