package geo

import (
	"errors"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// Battle coordinates arrive as WGS84 (EPSG:4326) latitude/longitude.
// Clustering works in Web Mercator (EPSG:3857) so that cell sizes map to
// screen pixels at a given zoom level.

// ErrMissingCoordinates is returned when a latitude or longitude is absent
var ErrMissingCoordinates = errors.New("missing coordinates")

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// earthRadius is the WGS84 semi-major axis used by EPSG:3857, in meters.
const earthRadius = 6378137.0

// maxMercatorLatitude is where EPSG:3857 is clipped.
const maxMercatorLatitude = 85.05112878

// LatLng is a WGS84 position.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// FromOptional validates optional coordinates as received from the API.
func FromOptional(latitude, longitude *float64) (LatLng, error) {
	if latitude == nil || longitude == nil {
		return LatLng{}, ErrMissingCoordinates
	}
	lat, lng := *latitude, *longitude
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return LatLng{}, ErrInvalidCoordinates
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return LatLng{}, ErrInvalidCoordinates
	}
	return LatLng{Lat: lat, Lng: lng}, nil
}

// Point returns the position as an EPSG:4326 point (X = longitude).
func (ll LatLng) Point() geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: ll.Lng, Y: ll.Lat},
		Type: geom.DimXY,
	})
}

// Coords3857From4326 projects a longitude and latitude to Web Mercator.
// Latitudes beyond the projection's limit are clipped.
func Coords3857From4326(
	longitude float64,
	latitude float64,
) (
	point geom.Point,
	err error,
) {
	if math.IsNaN(longitude) || math.IsNaN(latitude) {
		return geom.NewEmptyPoint(geom.DimXY), ErrInvalidCoordinates
	}
	latitude = math.Max(-maxMercatorLatitude, math.Min(maxMercatorLatitude, latitude))

	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	point = geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: x, Y: y},
			Type: geom.DimXY,
		},
	)
	return point, nil
}

// WebMercator returns the EPSG:3857 x/y of the position in meters.
func (ll LatLng) WebMercator() (x, y float64, err error) {
	point, err := Coords3857From4326(ll.Lng, ll.Lat)
	if err != nil {
		return 0, 0, err
	}
	xy, ok := point.XY()
	if !ok {
		return 0, 0, ErrInvalidCoordinates
	}
	return xy.X, xy.Y, nil
}

// MetersPerPixel is the ground resolution of a 256px tile pyramid at zoom.
func MetersPerPixel(zoom int) float64 {
	return 2 * math.Pi * earthRadius / (256 * math.Exp2(float64(zoom)))
}

// Centroid returns the arithmetic mean of the positions.
func Centroid(points []LatLng) LatLng {
	if len(points) == 0 {
		return LatLng{}
	}
	var lat, lng float64
	for _, p := range points {
		lat += p.Lat
		lng += p.Lng
	}
	n := float64(len(points))
	return LatLng{Lat: lat / n, Lng: lng / n}
}
