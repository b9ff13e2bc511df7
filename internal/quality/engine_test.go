package quality

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzee2025/rdi-dashboard/internal/model"
)

func surveySet(t *testing.T) *model.RecordSet {
	t.Helper()
	cols := []string{"district", "enumerator_id", "duration_minutes", model.ColumnLatitude, model.ColumnLongitude, "q1"}
	return buildSet(t, cols,
		[]model.Value{str("A"), str("E1"), num(10), num(1.234), num(2.344), str("y")},
		[]model.Value{str("A"), str("E1"), num(45), num(1.226), num(2.336), na},
		[]model.Value{str("B"), str("E2"), num(150), na, na, str("y")},
	)
}

func TestEngineCompute(t *testing.T) {
	t.Parallel()

	s := model.DefaultSettings()
	s.RequiredFields = []string{"q1"}
	rs := surveySet(t)

	res := NewEngine(s).Compute(context.Background(), rs)
	require.NotNil(t, res)
	assert.Empty(t, res.Failures)

	require.Len(t, res.Completion, 2)
	assert.Equal(t, 50.0, res.Completion[0].CompletionRate)
	assert.Equal(t, 100.0, res.Completion[1].CompletionRate)

	require.Len(t, res.DurationFlags, 2)
	assert.Equal(t, 0, res.DurationFlags[0].Row)
	assert.Equal(t, 2, res.DurationFlags[1].Row)

	require.NotNil(t, res.GPS)
	assert.Equal(t, 1, res.GPS.Missing)
	assert.Equal(t, 2, res.GPS.Duplicates)

	require.Len(t, res.Enumerators, 2)
	// Both enumerators are capped at 100 with two errors; first appearance wins.
	assert.Equal(t, "E1", res.Enumerators[0].EnumeratorID)
	assert.Equal(t, 100.0, res.Enumerators[0].ErrorRate)
	assert.Equal(t, 100.0, res.Enumerators[1].ErrorRate)

	fields := make([]string, 0, len(res.Missing))
	for _, m := range res.Missing {
		fields = append(fields, m.Field)
	}
	assert.Equal(t, []string{model.ColumnLatitude, model.ColumnLongitude, "q1"}, fields)

	// Inputs are not mutated.
	assert.Equal(t, 6, rs.NumColumns())
	assert.Equal(t, 3, rs.Len())
}

func TestEngineComputeMissingColumns(t *testing.T) {
	t.Parallel()

	rs := buildSet(t, []string{"other"}, []model.Value{str("x")}, []model.Value{na})
	res := NewEngine(model.DefaultSettings()).Compute(context.Background(), rs)

	assert.Empty(t, res.Failures)
	assert.Empty(t, res.Completion)
	assert.Empty(t, res.DurationFlags)
	assert.Nil(t, res.GPS)
	assert.Empty(t, res.Enumerators)
	require.Len(t, res.Missing, 1)
	assert.Equal(t, "other", res.Missing[0].Field)
}

func TestEngineComputeEmptySet(t *testing.T) {
	t.Parallel()

	res := NewEngine(model.DefaultSettings()).Compute(context.Background(), model.NewRecordSet())
	assert.Empty(t, res.Failures)
	assert.Empty(t, res.Missing)
}

func TestEngineComputeCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewEngine(model.DefaultSettings()).Compute(ctx, surveySet(t))
	assert.Len(t, res.Failures, 5)
	assert.Contains(t, res.Failures, model.MetricGPS)
}

func TestGuardRecoversPanic(t *testing.T) {
	t.Parallel()

	ok, err := guard(func() bool {
		panic("boom")
	})
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "boom")

	ok, err = guard(func() bool { return true })
	require.NoError(t, err)
	assert.True(t, ok)
}
