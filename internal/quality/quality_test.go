package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzee2025/rdi-dashboard/internal/model"
)

var (
	str = model.String
	num = model.Number
	na  = model.Missing()
)

func buildSet(t *testing.T, columns []string, rows ...[]model.Value) *model.RecordSet {
	t.Helper()
	rs := model.NewRecordSet(columns...)
	for _, r := range rows {
		require.NoError(t, rs.AppendRow(r))
	}
	rs.InferTypes()
	return rs
}

func TestIsComplete(t *testing.T) {
	t.Parallel()

	rs := buildSet(t, []string{"a", "b", "c", "d", "e"},
		[]model.Value{str("x"), str("x"), str("x"), str("x"), str("x")},
		[]model.Value{str("x"), str("x"), str("x"), str("x"), na},
		[]model.Value{na, na, na, na, na},
	)

	t.Run("density rule", func(t *testing.T) {
		t.Parallel()
		s := model.DefaultSettings()
		assert.True(t, IsComplete(rs, s, 0))
		// 4/5 is exactly 0.8, which does not exceed the threshold.
		assert.False(t, IsComplete(rs, s, 1))
		assert.False(t, IsComplete(rs, s, 2))
	})

	t.Run("required fields", func(t *testing.T) {
		t.Parallel()
		s := model.DefaultSettings()
		s.RequiredFields = []string{"a", "b"}
		assert.True(t, IsComplete(rs, s, 1))
		assert.False(t, IsComplete(rs, s, 2))
	})

	t.Run("absent required field counts as missing", func(t *testing.T) {
		t.Parallel()
		s := model.DefaultSettings()
		s.RequiredFields = []string{"a", "nope"}
		assert.False(t, IsComplete(rs, s, 0))
	})

	t.Run("no columns", func(t *testing.T) {
		t.Parallel()
		empty := buildSet(t, nil, []model.Value{})
		assert.False(t, IsComplete(empty, model.DefaultSettings(), 0))
	})
}

func TestCompletionByGroup(t *testing.T) {
	t.Parallel()

	rs := buildSet(t, []string{"district", "q1"},
		[]model.Value{str("A"), str("yes")},
		[]model.Value{str("A"), na},
		[]model.Value{str("B"), str("yes")},
	)
	s := model.DefaultSettings()
	s.RequiredFields = []string{"q1"}

	rows, ok := CompletionByGroup(rs, s, "district")
	require.True(t, ok)
	assert.Equal(t, []model.CompletionRow{
		{Group: "A", Completed: 1, Total: 2, CompletionRate: 50.0},
		{Group: "B", Completed: 1, Total: 1, CompletionRate: 100.0},
	}, rows)
}

func TestCompletionByGroupMissingKey(t *testing.T) {
	t.Parallel()

	rs := buildSet(t, []string{"district", "q1"},
		[]model.Value{na, str("yes")},
		[]model.Value{str("Z"), str("yes")},
		[]model.Value{str("C"), na},
		[]model.Value{na, na},
		[]model.Value{str("C"), str("yes")},
	)
	s := model.DefaultSettings()
	s.RequiredFields = []string{"q1"}

	rows, ok := CompletionByGroup(rs, s, "district")
	require.True(t, ok)
	require.Len(t, rows, 3)

	assert.Equal(t, "C", rows[0].Label())
	assert.Equal(t, 50.0, rows[0].CompletionRate)
	assert.Equal(t, "Z", rows[1].Label())
	assert.True(t, rows[2].GroupMissing)
	assert.Equal(t, model.MissingGroupLabel, rows[2].Label())
	assert.Equal(t, 2, rows[2].Total)
	assert.Equal(t, 1, rows[2].Completed)

	total := 0
	for _, r := range rows {
		total += r.Total
		assert.GreaterOrEqual(t, r.CompletionRate, 0.0)
		assert.LessOrEqual(t, r.CompletionRate, 100.0)
	}
	assert.Equal(t, rs.Len(), total)
}

func TestCompletionByGroupRounding(t *testing.T) {
	t.Parallel()

	rs := buildSet(t, []string{"district", "q1"},
		[]model.Value{str("A"), str("yes")},
		[]model.Value{str("A"), na},
		[]model.Value{str("A"), na},
	)
	s := model.DefaultSettings()
	s.RequiredFields = []string{"q1"}

	rows, ok := CompletionByGroup(rs, s, "district")
	require.True(t, ok)
	assert.Equal(t, 33.33, rows[0].CompletionRate)
}

func TestCompletionByGroupAbsentColumn(t *testing.T) {
	t.Parallel()

	rs := buildSet(t, []string{"q1"}, []model.Value{str("yes")})
	rows, ok := CompletionByGroup(rs, model.DefaultSettings(), "district")
	assert.False(t, ok)
	assert.Empty(t, rows)
}

func TestMissingProfile(t *testing.T) {
	t.Parallel()

	rs := buildSet(t, []string{"full", "half_a", "most", "half_b"},
		[]model.Value{num(1), na, na, str("x")},
		[]model.Value{num(2), str("x"), na, na},
		[]model.Value{num(3), na, na, str("x")},
		[]model.Value{num(4), str("x"), str("x"), na},
	)

	rows := MissingProfile(rs)
	assert.Equal(t, []model.MissingRow{
		{Field: "most", MissingCount: 3, MissingPercentage: 75},
		{Field: "half_a", MissingCount: 2, MissingPercentage: 50},
		{Field: "half_b", MissingCount: 2, MissingPercentage: 50},
	}, rows)
}

func TestMissingProfileEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, MissingProfile(model.NewRecordSet("a")))
	rs := buildSet(t, []string{"a"}, []model.Value{str("x")})
	assert.Empty(t, MissingProfile(rs))
}

func TestDurationFlags(t *testing.T) {
	t.Parallel()

	rs := buildSet(t, []string{"duration_minutes"},
		[]model.Value{num(10)},
		[]model.Value{num(45)},
		[]model.Value{num(150)},
		[]model.Value{num(30)},
		[]model.Value{num(120)},
		[]model.Value{na},
	)
	s := model.DefaultSettings()

	flags, ok := DurationFlags(rs, s, "duration_minutes")
	require.True(t, ok)
	assert.Equal(t, []model.DurationFlag{
		{Row: 0, Duration: 10, Reason: "Too short (<30 min)"},
		{Row: 2, Duration: 150, Reason: "Too long (>120 min)"},
	}, flags)
}

func TestDurationFlagsFractionalBounds(t *testing.T) {
	t.Parallel()

	rs := buildSet(t, []string{"d"},
		[]model.Value{str("7")},
		[]model.Value{str("n/a")},
		[]model.Value{str("20.25")},
	)
	s := model.DefaultSettings()
	s.MinDuration = 7.5
	s.MaxDuration = 20

	flags, ok := DurationFlags(rs, s, "d")
	require.True(t, ok)
	require.Len(t, flags, 2)
	assert.Equal(t, "Too short (<7.5 min)", flags[0].Reason)
	assert.Equal(t, "Too long (>20 min)", flags[1].Reason)
	assert.Equal(t, 2, flags[1].Row)
}

func TestDurationFlagsAbsentColumn(t *testing.T) {
	t.Parallel()

	rs := buildSet(t, []string{"x"}, []model.Value{num(1)})
	_, ok := DurationFlags(rs, model.DefaultSettings(), "duration_minutes")
	assert.False(t, ok)
}

func gpsSet(t *testing.T, coords ...[2]model.Value) *model.RecordSet {
	t.Helper()
	rows := make([][]model.Value, 0, len(coords))
	for _, c := range coords {
		rows = append(rows, []model.Value{c[0], c[1]})
	}
	return buildSet(t, []string{model.ColumnLatitude, model.ColumnLongitude}, rows...)
}

func TestGPSQualityDuplicates(t *testing.T) {
	t.Parallel()

	rs := gpsSet(t,
		[2]model.Value{num(1.234), num(2.344)},
		[2]model.Value{num(1.226), num(2.336)},
	)
	summary, ok := GPSQuality(rs, model.DefaultSettings())
	require.True(t, ok)
	assert.Equal(t, 2, summary.Duplicates)
	assert.Equal(t, 0, summary.Missing)
	assert.False(t, summary.BoundsConfigured)
	assert.Equal(t, 0, summary.OutOfBounds)
}

func TestGPSQualityDuplicatesRoundToNearest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b [2]float64
		want int
	}{
		{"both round up to 1.24", [2]float64{1.239, 2.0}, [2]float64{1.241, 2.0}, 2},
		{"round to 1.23 and 1.24", [2]float64{1.2301, 2.0}, [2]float64{1.2399, 2.0}, 0},
		{"1.236 rounds to 1.24", [2]float64{1.234, 2.34}, [2]float64{1.236, 2.34}, 0},
		{"negative coordinates", [2]float64{-1.284, 36.816}, [2]float64{-1.276, 36.824}, 2},
		{"longitude differs", [2]float64{1.23, 2.344}, [2]float64{1.23, 2.346}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rs := gpsSet(t,
				[2]model.Value{num(tt.a[0]), num(tt.a[1])},
				[2]model.Value{num(tt.b[0]), num(tt.b[1])},
			)
			summary, ok := GPSQuality(rs, model.DefaultSettings())
			require.True(t, ok)
			assert.Equal(t, tt.want, summary.Duplicates)
		})
	}
}

func TestGPSQualityMissingNotDuplicates(t *testing.T) {
	t.Parallel()

	rs := gpsSet(t,
		[2]model.Value{na, na},
		[2]model.Value{na, na},
		[2]model.Value{num(1), na},
	)
	summary, ok := GPSQuality(rs, model.DefaultSettings())
	require.True(t, ok)
	assert.Equal(t, 3, summary.Missing)
	assert.Equal(t, 0, summary.Duplicates)
}

func TestGPSQualityCountsAreIndependent(t *testing.T) {
	t.Parallel()

	rs := gpsSet(t,
		[2]model.Value{num(5.001), num(5.002)},
		[2]model.Value{num(5.004), num(5.009)},
		[2]model.Value{num(5.004), num(5.009)},
		[2]model.Value{num(-1.2), num(36.8)},
		[2]model.Value{na, num(36.8)},
		[2]model.Value{num(-1.2), na},
		[2]model.Value{na, na},
	)
	s := model.DefaultSettings()
	s.TargetBoundaries = &model.Bounds{LatMin: -5, LatMax: 0, LonMin: 30, LonMax: 40}

	summary, ok := GPSQuality(rs, s)
	require.True(t, ok)
	assert.Equal(t, 3, summary.Missing)
	assert.True(t, summary.BoundsConfigured)
	assert.Equal(t, 3, summary.OutOfBounds)
	// 5.009 rounds to 5.01, so only the identical pair collides.
	assert.Equal(t, 2, summary.Duplicates)
}

func TestGPSQualityBoundsInclusive(t *testing.T) {
	t.Parallel()

	rs := gpsSet(t,
		[2]model.Value{num(0), num(30)},
		[2]model.Value{num(-5), num(40)},
		[2]model.Value{num(0.0001), num(35)},
	)
	s := model.DefaultSettings()
	s.TargetBoundaries = &model.Bounds{LatMin: -5, LatMax: 0, LonMin: 30, LonMax: 40}

	summary, ok := GPSQuality(rs, s)
	require.True(t, ok)
	assert.Equal(t, 1, summary.OutOfBounds)
}

func TestGPSQualityTolerance(t *testing.T) {
	t.Parallel()

	rs := gpsSet(t,
		[2]model.Value{num(1.21), num(2.0)},
		[2]model.Value{num(1.24), num(2.0)},
	)

	s := model.DefaultSettings()
	summary, _ := GPSQuality(rs, s)
	assert.Equal(t, 0, summary.Duplicates)

	s.GPSTolerance = 0.1
	summary, _ = GPSQuality(rs, s)
	assert.Equal(t, 2, summary.Duplicates)
}

func TestGPSQualityAbsentColumns(t *testing.T) {
	t.Parallel()

	rs := buildSet(t, []string{model.ColumnLatitude}, []model.Value{num(1)})
	summary, ok := GPSQuality(rs, model.DefaultSettings())
	assert.False(t, ok)
	assert.Nil(t, summary)
	assert.Empty(t, ValidPoints(rs))
}

func TestValidPoints(t *testing.T) {
	t.Parallel()

	rs := gpsSet(t,
		[2]model.Value{num(1), num(2)},
		[2]model.Value{na, num(2)},
		[2]model.Value{num(3), num(4)},
	)
	assert.Equal(t, []Point{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}}, ValidPoints(rs))
}

func TestEnumeratorPerformance(t *testing.T) {
	t.Parallel()

	cols := []string{"enumerator_id", "duration_minutes", model.ColumnLatitude, model.ColumnLongitude, "q1"}
	rs := buildSet(t, cols,
		[]model.Value{str("E1"), num(10), num(1), num(2), str("y")},
		[]model.Value{str("E1"), num(45), na, num(2), na},
		[]model.Value{str("E2"), num(60), num(1), num(2), str("y")},
		[]model.Value{na, num(5), na, na, na},
		[]model.Value{str("E2"), num(60), num(1), num(2), str("y")},
		[]model.Value{str("E3"), num(200), num(1), num(2), str("y")},
		[]model.Value{str("E3"), num(60), num(1), num(2), str("y")},
	)
	s := model.DefaultSettings()
	s.RequiredFields = []string{"q1"}

	rows, ok := EnumeratorPerformance(rs, s)
	require.True(t, ok)
	require.Len(t, rows, 3)

	assert.Equal(t, model.EnumeratorRow{
		EnumeratorID:     "E1",
		TotalInterviews:  2,
		DurationIssues:   1,
		GPSIssues:        1,
		CompletionIssues: 1,
		MissingDataCount: 2,
		TotalErrors:      3,
		ErrorRate:        100,
	}, rows[0])
	assert.Equal(t, "E3", rows[1].EnumeratorID)
	assert.Equal(t, 50.0, rows[1].ErrorRate)
	assert.Equal(t, "E2", rows[2].EnumeratorID)
	assert.Equal(t, 0.0, rows[2].ErrorRate)

	interviews := 0
	for _, r := range rows {
		interviews += r.TotalInterviews
		assert.GreaterOrEqual(t, r.ErrorRate, 0.0)
		assert.LessOrEqual(t, r.ErrorRate, 100.0)
		assert.Equal(t, r.DurationIssues+r.GPSIssues+r.CompletionIssues, r.TotalErrors)
	}
	assert.Equal(t, 6, interviews)
}

func TestEnumeratorPerformanceTieBreak(t *testing.T) {
	t.Parallel()

	cols := []string{"enumerator_id", "duration_minutes", model.ColumnLatitude, model.ColumnLongitude, "q1"}
	rs := buildSet(t, cols,
		[]model.Value{str("single"), num(10), num(1), num(2), str("y")},
		[]model.Value{str("triple"), num(10), na, num(2), na},
		[]model.Value{str("first_zero"), num(60), num(1), num(2), str("y")},
		[]model.Value{str("second_zero"), num(60), num(1), num(2), str("y")},
	)
	s := model.DefaultSettings()
	s.RequiredFields = []string{"q1"}

	rows, ok := EnumeratorPerformance(rs, s)
	require.True(t, ok)

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.EnumeratorID)
	}
	assert.Equal(t, []string{"triple", "single", "first_zero", "second_zero"}, ids)
}

func TestEnumeratorPerformanceOptionalColumns(t *testing.T) {
	t.Parallel()

	rs := buildSet(t, []string{"enumerator_id", "q1"},
		[]model.Value{num(7), str("y")},
		[]model.Value{num(7), na},
	)
	s := model.DefaultSettings()
	s.RequiredFields = []string{"q1"}

	rows, ok := EnumeratorPerformance(rs, s)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, "7", rows[0].EnumeratorID)
	assert.Equal(t, 0, rows[0].DurationIssues)
	assert.Equal(t, 0, rows[0].GPSIssues)
	assert.Equal(t, 1, rows[0].CompletionIssues)
	assert.Equal(t, 50.0, rows[0].ErrorRate)
}

func TestEnumeratorPerformanceMixedKinds(t *testing.T) {
	t.Parallel()

	rs := buildSet(t, []string{"enumerator_id", "q1"},
		[]model.Value{num(1), str("y")},
		[]model.Value{str("1"), na},
		[]model.Value{num(1), str("y")},
	)
	s := model.DefaultSettings()
	s.RequiredFields = []string{"q1"}

	rows, ok := EnumeratorPerformance(rs, s)
	require.True(t, ok)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0].EnumeratorID)
	assert.Equal(t, 1, rows[0].TotalInterviews)
	assert.Equal(t, 100.0, rows[0].ErrorRate)
	assert.Equal(t, "1", rows[1].EnumeratorID)
	assert.Equal(t, 2, rows[1].TotalInterviews)
	assert.Equal(t, 0.0, rows[1].ErrorRate)
}

func TestEnumeratorPerformanceColumnMapping(t *testing.T) {
	t.Parallel()

	rs := buildSet(t, []string{"staff"}, []model.Value{str("S1")})
	s := model.DefaultSettings()

	_, ok := EnumeratorPerformance(rs, s)
	assert.False(t, ok)

	s.ColumnMapping = map[string]string{model.RoleEnumerator: "staff"}
	rows, ok := EnumeratorPerformance(rs, s)
	require.True(t, ok)
	assert.Equal(t, "S1", rows[0].EnumeratorID)
}

func TestErrorRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		errors     int
		interviews int
		want       float64
	}{
		{"no interviews", 0, 0, 0},
		{"no errors", 0, 4, 0},
		{"one third", 1, 3, 33.33},
		{"two thirds", 2, 3, 66.67},
		{"all", 4, 4, 100},
		{"capped", 9, 4, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ErrorRate(tt.errors, tt.interviews))
		})
	}
}
