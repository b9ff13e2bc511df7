package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzee2025/rdi-dashboard/internal/model"
)

func TestParseGeopoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    Geopoint
		wantErr error
	}{
		{"lat lon", "1.5 2.5", Geopoint{Lat: 1.5, Lon: 2.5}, nil},
		{"with altitude and accuracy", "-1.2921 36.8219 1650.0 4.5", Geopoint{Lat: -1.2921, Lon: 36.8219}, nil},
		{"extra whitespace", "  0.1\t0.2  ", Geopoint{Lat: 0.1, Lon: 0.2}, nil},
		{"empty", "", Geopoint{}, ErrGeopointEmpty},
		{"blank", "   ", Geopoint{}, ErrGeopointEmpty},
		{"single token", "12.3", Geopoint{}, ErrGeopointMalformed},
		{"non numeric", "abc def", Geopoint{}, ErrGeopointMalformed},
		{"bad longitude", "1.0 east", Geopoint{}, ErrGeopointMalformed},
		{"nan", "NaN 1", Geopoint{}, ErrGeopointMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseGeopoint(tt.raw)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, Geopoint{}, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGeopointValueMissing(t *testing.T) {
	t.Parallel()

	_, err := GeopointValue(model.Missing())
	assert.ErrorIs(t, err, ErrGeopointEmpty)
}

func TestSplitGeopointsUnknownColumn(t *testing.T) {
	t.Parallel()

	rs := model.NewRecordSet("a")
	_, err := SplitGeopoints(rs, "hh_geopoint")
	require.Error(t, err)
	assert.False(t, rs.HasColumn(model.ColumnLatitude))
}
