package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzee2025/rdi-dashboard/internal/resilience"
)

func TestGuarded(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "export.json")
	g := NewGuarded(NewFileSource(path), resilience.Config{FailureThreshold: 2, ResetTimeout: time.Hour})
	assert.Equal(t, "file:export.json", g.Name())

	ctx := context.Background()
	for range 2 {
		_, err := g.Fetch(ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, resilience.ErrOpen)
	}
	assert.Equal(t, resilience.Open, g.Breaker().State())

	// The file now exists but the open breaker still rejects the call.
	require.NoError(t, os.WriteFile(path, []byte(`[{"district": "Kampala"}]`), 0o644))
	_, err := g.Fetch(ctx)
	assert.ErrorIs(t, err, resilience.ErrOpen)

	g.Breaker().Reset()
	rs, err := g.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Len())
}
