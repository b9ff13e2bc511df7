package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/mzee2025/rdi-dashboard/internal/model"
)

// Sheet names of the quality report.
const (
	SheetOverview    = "Overview"
	SheetCompletion  = "Completion Rates"
	SheetMissing     = "Missing Data"
	SheetDuration    = "Duration Flags"
	SheetGPS         = "GPS Quality"
	SheetEnumerators = "Enumerator Performance"
)

// Spreadsheet renders the quality report workbook. Metric sheets whose
// table is empty are omitted; the overview sheet is always present.
func (a *Assembler) Spreadsheet(rs *model.RecordSet, res *model.QualityResult, s model.Settings) ([]byte, error) {
	if rs == nil {
		rs = model.NewRecordSet()
	}
	if res == nil {
		res = &model.QualityResult{}
	}

	f := xlsx.NewFile()
	w := &workbook{file: f}

	w.sheet(SheetOverview, []string{"Metric", "Value"}, overviewRows(rs, s))

	if len(res.Completion) > 0 {
		rows := make([][]any, len(res.Completion))
		for i, r := range res.Completion {
			rows[i] = []any{r.Label(), r.Completed, r.Total, r.CompletionRate}
		}
		w.sheet(SheetCompletion, []string{s.Column(model.RoleDistrict), "completed", "total", "completion_rate"}, rows)
	}

	if len(res.Missing) > 0 {
		rows := make([][]any, len(res.Missing))
		for i, r := range res.Missing {
			rows[i] = []any{r.Field, r.MissingCount, r.MissingPercentage}
		}
		w.sheet(SheetMissing, []string{"field", "missing_count", "missing_percentage"}, rows)
	}

	if len(res.DurationFlags) > 0 {
		header := append(rs.ColumnNames(), "flag_reason")
		rows := make([][]any, len(res.DurationFlags))
		for i, fl := range res.DurationFlags {
			row := make([]any, 0, len(header))
			for _, v := range rs.Row(fl.Row) {
				row = append(row, v)
			}
			rows[i] = append(row, fl.Reason)
		}
		w.sheet(SheetDuration, header, rows)
	}

	if res.GPS != nil {
		var outOfBounds any = "N/A"
		if res.GPS.BoundsConfigured {
			outOfBounds = res.GPS.OutOfBounds
		}
		w.sheet(SheetGPS, []string{"Metric", "Value"}, [][]any{
			{"Missing Coordinates", res.GPS.Missing},
			{"Out of Bounds", outOfBounds},
			{"Duplicate Coordinates", res.GPS.Duplicates},
		})
	}

	if len(res.Enumerators) > 0 {
		rows := make([][]any, len(res.Enumerators))
		for i, r := range res.Enumerators {
			rows[i] = []any{
				r.EnumeratorID, r.TotalInterviews, r.DurationIssues, r.GPSIssues,
				r.CompletionIssues, r.MissingDataCount, r.TotalErrors, r.ErrorRate,
			}
		}
		w.sheet(SheetEnumerators, []string{
			"enumerator_id", "total_interviews", "duration_issues", "gps_issues",
			"completion_issues", "missing_data_count", "total_errors", "error_rate",
		}, rows)
	}

	if w.err != nil {
		return nil, w.err
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "report: write workbook")
	}
	return buf.Bytes(), nil
}

func overviewRows(rs *model.RecordSet, s model.Settings) [][]any {
	var dateRange any = "N/A"
	if lo, hi, ok := rs.TimeRange(s.Column(model.RoleSubmissionTime)); ok {
		dateRange = fmt.Sprintf("%s to %s", lo.Format(model.TimeLayout), hi.Format(model.TimeLayout))
	}

	var districts any = "N/A"
	if col := s.Column(model.RoleDistrict); rs.HasColumn(col) {
		seen := make(map[string]bool)
		for _, v := range rs.Column(col) {
			if !v.IsMissing() {
				seen[v.String()] = true
			}
		}
		districts = len(seen)
	}

	return [][]any{
		{"Total Submissions", rs.Len()},
		{"Date Range", dateRange},
		{"Districts", districts},
	}
}

// workbook keeps the first sheet error so the caller checks once.
type workbook struct {
	file *xlsx.File
	err  error
}

func (w *workbook) sheet(name string, header []string, rows [][]any) {
	if w.err != nil {
		return
	}
	sh, err := w.file.AddSheet(name)
	if err != nil {
		w.err = eris.Wrapf(err, "report: add sheet %q", name)
		return
	}
	hr := sh.AddRow()
	for _, h := range header {
		hr.AddCell().SetString(h)
	}
	for _, row := range rows {
		r := sh.AddRow()
		for _, v := range row {
			setCell(r.AddCell(), v)
		}
	}
}

func setCell(c *xlsx.Cell, v any) {
	switch x := v.(type) {
	case string:
		c.SetString(x)
	case int:
		c.SetInt(x)
	case float64:
		c.SetFloat(x)
	case time.Time:
		c.SetDateTime(x)
	case model.Value:
		switch x.Kind() {
		case model.KindNumber:
			f, _ := x.Num()
			c.SetFloat(f)
		case model.KindTime:
			t, _ := x.Timestamp()
			c.SetDateTime(t)
		case model.KindString:
			c.SetString(x.String())
		}
	default:
		c.SetString(fmt.Sprint(x))
	}
}
