package quality

import (
	"math"

	"github.com/twpayne/go-geom"

	"github.com/mzee2025/rdi-dashboard/internal/model"
)

// Point is a coordinate pair in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// PointAt returns the coordinates of record i. ok is false when either
// latitude or longitude is missing or non-numeric.
func PointAt(rs *model.RecordSet, i int) (Point, bool) {
	lat, okLat := rs.Get(i, model.ColumnLatitude).Float()
	lon, okLon := rs.Get(i, model.ColumnLongitude).Float()
	if !okLat || !okLon {
		return Point{}, false
	}
	return Point{Lat: lat, Lon: lon}, true
}

// BoundsOf converts configured bounds to a go-geom XY box (x = lon, y = lat).
func BoundsOf(b model.Bounds) *geom.Bounds {
	return geom.NewBounds(geom.XY).Set(b.LonMin, b.LatMin, b.LonMax, b.LatMax)
}

// InBounds reports whether p lies inside box, edges inclusive.
func InBounds(box *geom.Bounds, p Point) bool {
	return box.OverlapsPoint(geom.XY, geom.Coord{p.Lon, p.Lat})
}

type gridCell struct {
	lat int64
	lon int64
}

// snap rounds p to the nearest multiple of tolerance. At 0.01 this is
// rounding to two decimals.
func snap(p Point, tolerance float64) gridCell {
	return gridCell{
		lat: int64(math.Round(p.Lat / tolerance)),
		lon: int64(math.Round(p.Lon / tolerance)),
	}
}

// HasGPSColumns reports whether the derived coordinate columns exist.
func HasGPSColumns(rs *model.RecordSet) bool {
	return rs.HasColumn(model.ColumnLatitude) && rs.HasColumn(model.ColumnLongitude)
}

// GPSQuality counts records with missing coordinates, records outside the
// target boundaries, and records whose coordinates round to the same
// multiple of the tolerance as at least one other record. Records with
// missing coordinates are not duplicate candidates. The counts are
// independent. Returns ok=false if the coordinate columns are absent.
func GPSQuality(rs *model.RecordSet, s model.Settings) (*model.GPSSummary, bool) {
	if !HasGPSColumns(rs) {
		return nil, false
	}

	tolerance := s.GPSTolerance
	if tolerance <= 0 {
		tolerance = model.DefaultGPSTolerance
	}

	var box *geom.Bounds
	if s.TargetBoundaries != nil {
		box = BoundsOf(*s.TargetBoundaries)
	}

	summary := &model.GPSSummary{BoundsConfigured: box != nil}
	cells := make(map[gridCell]int)
	for i := 0; i < rs.Len(); i++ {
		p, ok := PointAt(rs, i)
		if !ok {
			summary.Missing++
			continue
		}
		if box != nil && !InBounds(box, p) {
			summary.OutOfBounds++
		}
		cells[snap(p, tolerance)]++
	}
	for _, n := range cells {
		if n > 1 {
			summary.Duplicates += n
		}
	}
	return summary, true
}

// ValidPoints returns the coordinates of every record with both latitude
// and longitude present.
func ValidPoints(rs *model.RecordSet) []Point {
	if !HasGPSColumns(rs) {
		return nil
	}
	var pts []Point
	for i := 0; i < rs.Len(); i++ {
		if p, ok := PointAt(rs, i); ok {
			pts = append(pts, p)
		}
	}
	return pts
}
