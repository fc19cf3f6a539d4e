package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestFromOptional_Valid(t *testing.T) {
	ll, err := FromOptional(ptr(48.8566), ptr(2.3522))

	require.NoError(t, err)
	assert.Equal(t, 48.8566, ll.Lat)
	assert.Equal(t, 2.3522, ll.Lng)
}

func TestFromOptional_ZeroIsValid(t *testing.T) {
	ll, err := FromOptional(ptr(0), ptr(0))

	require.NoError(t, err)
	assert.Equal(t, LatLng{}, ll)
}

func TestFromOptional_Missing(t *testing.T) {
	tests := []struct {
		name string
		lat  *float64
		lng  *float64
	}{
		{"no latitude", nil, ptr(2)},
		{"no longitude", ptr(46), nil},
		{"neither", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromOptional(tt.lat, tt.lng)
			if !errors.Is(err, ErrMissingCoordinates) {
				t.Errorf("expected ErrMissingCoordinates, got %v", err)
			}
		})
	}
}

func TestFromOptional_Invalid(t *testing.T) {
	tests := []struct {
		name string
		lat  float64
		lng  float64
	}{
		{"latitude too large", 91, 0},
		{"longitude too small", 0, -181},
		{"nan", math.NaN(), 0},
		{"inf", 0, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromOptional(ptr(tt.lat), ptr(tt.lng))
			if !errors.Is(err, ErrInvalidCoordinates) {
				t.Errorf("expected ErrInvalidCoordinates, got %v", err)
			}
		})
	}
}

func TestPoint_LongitudeIsX(t *testing.T) {
	p := LatLng{Lat: 46.6, Lng: 1.9}.Point()

	coords, ok := p.Coordinates()
	require.True(t, ok)
	assert.Equal(t, 1.9, coords.X)
	assert.Equal(t, 46.6, coords.Y)
}

func TestCoords3857From4326_Origin(t *testing.T) {
	point, err := Coords3857From4326(0, 0)
	require.NoError(t, err)

	coords, ok := point.Coordinates()
	require.True(t, ok)
	assert.InDelta(t, 0, coords.X, 1e-6)
	assert.InDelta(t, 0, coords.Y, 1e-6)
}

func TestCoords3857From4326_Antimeridian(t *testing.T) {
	point, err := Coords3857From4326(180, 0)
	require.NoError(t, err)

	coords, ok := point.Coordinates()
	require.True(t, ok)
	assert.InDelta(t, 20037508.34, coords.X, 1)
}

func TestCoords3857From4326_ClipsPoles(t *testing.T) {
	clipped, err := Coords3857From4326(0, 90)
	require.NoError(t, err)
	limit, err := Coords3857From4326(0, maxMercatorLatitude)
	require.NoError(t, err)

	a, _ := clipped.Coordinates()
	b, _ := limit.Coordinates()
	assert.InDelta(t, b.Y, a.Y, 1e-6)
	assert.False(t, math.IsInf(a.Y, 0))
}

func TestCoords3857From4326_NaN(t *testing.T) {
	_, err := Coords3857From4326(math.NaN(), 0)
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestWebMercator_Monotonic(t *testing.T) {
	west := LatLng{Lat: 46, Lng: -1}
	east := LatLng{Lat: 46, Lng: 5}

	wx, wy, err := west.WebMercator()
	require.NoError(t, err)
	ex, ey, err := east.WebMercator()
	require.NoError(t, err)

	assert.Less(t, wx, ex)
	assert.InDelta(t, wy, ey, 1e-6)
}

func TestMetersPerPixel(t *testing.T) {
	assert.InDelta(t, 156543.03, MetersPerPixel(0), 0.01)
	assert.InDelta(t, MetersPerPixel(0)/64, MetersPerPixel(6), 1e-9)
}

func TestCentroid(t *testing.T) {
	c := Centroid([]LatLng{{Lat: 46, Lng: 0}, {Lat: 48, Lng: 2}})
	assert.Equal(t, LatLng{Lat: 47, Lng: 1}, c)
	assert.Equal(t, LatLng{}, Centroid(nil))
}
