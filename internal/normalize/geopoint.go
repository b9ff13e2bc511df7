package normalize

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/mzee2025/rdi-dashboard/internal/model"
)

var (
	// ErrGeopointEmpty is returned for a missing or blank geopoint.
	ErrGeopointEmpty = errors.New("geopoint: empty")
	// ErrGeopointMalformed is returned when fewer than two numeric tokens lead the value.
	ErrGeopointMalformed = errors.New("geopoint: malformed")
)

// Geopoint is a parsed "lat lon[ alt[ accuracy]]" value. Altitude and
// accuracy are ignored.
type Geopoint struct {
	Lat float64
	Lon float64
}

// ParseGeopoint parses the leading latitude and longitude tokens.
func ParseGeopoint(raw string) (Geopoint, error) {
	parts := strings.Fields(raw)
	if len(parts) == 0 {
		return Geopoint{}, ErrGeopointEmpty
	}
	if len(parts) < 2 {
		return Geopoint{}, eris.Wrapf(ErrGeopointMalformed, "%d token(s)", len(parts))
	}
	lat, err := parseCoord(parts[0])
	if err != nil {
		return Geopoint{}, eris.Wrapf(ErrGeopointMalformed, "latitude %q", parts[0])
	}
	lon, err := parseCoord(parts[1])
	if err != nil {
		return Geopoint{}, eris.Wrapf(ErrGeopointMalformed, "longitude %q", parts[1])
	}
	return Geopoint{Lat: lat, Lon: lon}, nil
}

func parseCoord(tok string) (float64, error) {
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrRange
	}
	return f, nil
}

// GeopointValue parses a geopoint cell. A missing cell reports ErrGeopointEmpty.
func GeopointValue(v model.Value) (Geopoint, error) {
	if v.IsMissing() {
		return Geopoint{}, ErrGeopointEmpty
	}
	return ParseGeopoint(v.String())
}

// SplitGeopoints derives latitude and longitude columns from a combined
// geopoint column. Cells that fail to parse yield missing coordinates for
// both outputs. It returns the number of cells that failed to parse,
// excluding empty ones.
func SplitGeopoints(rs *model.RecordSet, column string) (int, error) {
	values := rs.Column(column)
	if values == nil {
		return 0, eris.Errorf("normalize: geopoint column %q not found", column)
	}
	lats := make([]model.Value, len(values))
	lons := make([]model.Value, len(values))
	malformed := 0
	for i, v := range values {
		gp, err := GeopointValue(v)
		if err != nil {
			if errors.Is(err, ErrGeopointMalformed) {
				malformed++
			}
			lats[i], lons[i] = model.Missing(), model.Missing()
			continue
		}
		lats[i], lons[i] = model.Number(gp.Lat), model.Number(gp.Lon)
	}
	if err := rs.SetColumn(model.ColumnLatitude, model.ColumnNumber, lats); err != nil {
		return malformed, err
	}
	if err := rs.SetColumn(model.ColumnLongitude, model.ColumnNumber, lons); err != nil {
		return malformed, err
	}
	return malformed, nil
}
