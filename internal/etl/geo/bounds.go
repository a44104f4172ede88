// Package geo holds the plausible coordinate region for Ecuadorian mainland
// records and the point encoding stored alongside a location.
package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// Spatial reference ids for the two conventions found in the source sheets.
const (
	SRIDWGS84  = 4326
	SRIDUTM17S = 32717
)

var (
	// Degrees is the longitude/latitude box.
	Degrees = geom.NewBounds(geom.XY).Set(-82, -5, -75, 2)
	// UTM is the same region in UTM zone 17S meters.
	UTM = geom.NewBounds(geom.XY).Set(500000, 9700000, 800000, 10100000)
)

// XInRange reports whether x is a plausible easting or longitude.
func XInRange(x float64) bool {
	return axisIn(Degrees, 0, x) || axisIn(UTM, 0, x)
}

// YInRange reports whether y is a plausible northing or latitude.
func YInRange(y float64) bool {
	return axisIn(Degrees, 1, y) || axisIn(UTM, 1, y)
}

func axisIn(b *geom.Bounds, dim int, v float64) bool {
	return b.Min(dim) <= v && v <= b.Max(dim)
}

// SRID returns the reference system a point falls in, or 0 when the pair
// is outside both boxes. Mixed conventions (degree x, metric y) are rejected.
func SRID(x, y float64) int {
	c := geom.Coord{x, y}
	switch {
	case Degrees.OverlapsPoint(geom.XY, c):
		return SRIDWGS84
	case UTM.OverlapsPoint(geom.XY, c):
		return SRIDUTM17S
	}
	return 0
}

// EncodePoint returns the EWKB for (x, y) tagged with its SRID.
func EncodePoint(x, y float64) ([]byte, int, error) {
	srid := SRID(x, y)
	if srid == 0 {
		return nil, 0, eris.Errorf("geo: point (%v, %v) outside plausible region", x, y)
	}
	p := geom.NewPointFlat(geom.XY, []float64{x, y}).SetSRID(srid)
	data, err := ewkb.Marshal(p, ewkb.NDR)
	if err != nil {
		return nil, 0, eris.Wrap(err, "geo: encode point")
	}
	return data, srid, nil
}
