// Package report renders the quality metrics as an HTML dashboard and as a
// multi-sheet spreadsheet. It performs no analysis of its own.
package report

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"

	"github.com/mzee2025/rdi-dashboard/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// DefaultPlotlyURL is the Plotly.js bundle loaded by the dashboard.
const DefaultPlotlyURL = "https://cdn.plot.ly/plotly-2.35.2.min.js"

// DefaultTitle heads the dashboard page.
const DefaultTitle = "RDI Dashboard - Research & Data Insights"

// Options configures an Assembler.
type Options struct {
	Title     string
	PlotlyURL string
	// RefreshInterval is the cron spec of the refresh schedule, shown on the
	// placeholder page.
	RefreshInterval string
	Now             func() time.Time
}

// Assembler turns metric outputs into documents.
type Assembler struct {
	opts Options
}

// NewAssembler fills unset options with defaults.
func NewAssembler(opts Options) *Assembler {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.PlotlyURL == "" {
		opts.PlotlyURL = DefaultPlotlyURL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Assembler{opts: opts}
}

type dashboardData struct {
	Title       string
	PlotlyURL   string
	GeneratedAt string
	Records     string
	Panels      []Panel
	Specs       []plotlyPanel
}

// Dashboard renders the HTML dashboard. An empty RecordSet yields the
// placeholder page instead.
func (a *Assembler) Dashboard(rs *model.RecordSet, res *model.QualityResult, s model.Settings) ([]byte, error) {
	if rs == nil || rs.Len() == 0 {
		return a.Placeholder(s)
	}
	if res == nil {
		res = &model.QualityResult{}
	}

	panels := BuildPanels(rs, res, s)
	specs := make([]plotlyPanel, len(panels))
	for i, p := range panels {
		specs[i] = toPlotly(p)
	}

	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, "dashboard.html.tmpl", dashboardData{
		Title:       a.opts.Title,
		PlotlyURL:   a.opts.PlotlyURL,
		GeneratedAt: a.opts.Now().UTC().Format(model.TimeLayout) + " UTC",
		Records:     formatCount(rs.Len()),
		Panels:      panels,
		Specs:       specs,
	})
	if err != nil {
		return nil, eris.Wrap(err, "report: render dashboard")
	}
	return buf.Bytes(), nil
}

type placeholderData struct {
	StartDate string
	Refresh   string
}

// Placeholder renders the static page shown while no records exist.
func (a *Assembler) Placeholder(s model.Settings) ([]byte, error) {
	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, "placeholder.html.tmpl", placeholderData{
		StartDate: s.StartDate.Format("January 2, 2006"),
		Refresh:   DescribeInterval(a.opts.RefreshInterval),
	})
	if err != nil {
		return nil, eris.Wrap(err, "report: render placeholder")
	}
	return buf.Bytes(), nil
}

// DescribeInterval renders a cron spec for people, e.g. "@every 1h" as
// "Every hour".
func DescribeInterval(spec string) string {
	spec = strings.TrimSpace(spec)
	switch spec {
	case "":
		return "Manual only"
	case "@hourly":
		return "Every hour"
	case "@daily", "@midnight":
		return "Every day"
	}
	if d, ok := strings.CutPrefix(spec, "@every "); ok {
		dur, err := time.ParseDuration(strings.TrimSpace(d))
		if err == nil {
			switch dur {
			case time.Hour:
				return "Every hour"
			case 24 * time.Hour:
				return "Every day"
			}
			return "Every " + dur.String()
		}
	}
	if _, err := cron.ParseStandard(spec); err == nil {
		return "Cron " + spec
	}
	return spec
}
