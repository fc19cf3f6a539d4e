package mapview

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sync"

	geojson "github.com/paulmach/go.geojson"

	"github.com/FrenchBattlesMap/viewer/internal/geo"
	"github.com/FrenchBattlesMap/viewer/internal/projection"
)

// DefaultClusterRadius is the clustering distance in screen pixels.
const DefaultClusterRadius = 80

// Cluster is a group of markers sharing one grid cell at a zoom level.
type Cluster struct {
	Center  geo.LatLng
	Markers []projection.Marker
}

// Count returns the number of markers in the cluster.
func (c Cluster) Count() int {
	return len(c.Markers)
}

// ClusterLayer holds the battle markers and groups them per zoom level.
// It implements projection.MarkerLayer.
type ClusterLayer struct {
	mu       sync.RWMutex
	markers  []projection.Marker
	byID     map[int]int
	radiusPx int
}

// NewClusterLayer creates an empty layer. A non-positive radius uses
// DefaultClusterRadius.
func NewClusterLayer(radiusPx int) *ClusterLayer {
	if radiusPx <= 0 {
		radiusPx = DefaultClusterRadius
	}
	return &ClusterLayer{
		byID:     make(map[int]int),
		radiusPx: radiusPx,
	}
}

// ClearLayers removes every marker.
func (l *ClusterLayer) ClearLayers() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.markers = nil
	l.byID = make(map[int]int)
	return nil
}

// AddMarker appends a marker to the layer.
func (l *ClusterLayer) AddMarker(m projection.Marker) error {
	if _, _, err := m.Position.WebMercator(); err != nil {
		return fmt.Errorf("marker %d: %w", m.BattleID, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byID[m.BattleID] = len(l.markers)
	l.markers = append(l.markers, m)
	return nil
}

// Len returns the number of markers held.
func (l *ClusterLayer) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.markers)
}

// Markers returns a copy of the markers in insertion order.
func (l *ClusterLayer) Markers() []projection.Marker {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]projection.Marker, len(l.markers))
	copy(out, l.markers)
	return out
}

// Marker looks up the marker of a battle.
func (l *ClusterLayer) Marker(battleID int) (projection.Marker, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.byID[battleID]
	if !ok {
		return projection.Marker{}, false
	}
	return l.markers[i], true
}

type cellKey struct {
	x, y int64
}

// Clusters groups the markers on a Web Mercator grid whose cell edge is the
// cluster radius at zoom. Clusters are ordered by their first marker.
func (l *ClusterLayer) Clusters(zoom int) []Cluster {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cell := float64(l.radiusPx) * geo.MetersPerPixel(zoom)
	index := make(map[cellKey]int)
	var clusters []Cluster

	for _, m := range l.markers {
		x, y, err := m.Position.WebMercator()
		if err != nil {
			continue
		}
		key := cellKey{x: int64(math.Floor(x / cell)), y: int64(math.Floor(y / cell))}
		i, ok := index[key]
		if !ok {
			i = len(clusters)
			index[key] = i
			clusters = append(clusters, Cluster{})
		}
		clusters[i].Markers = append(clusters[i].Markers, m)
	}

	for i := range clusters {
		points := make([]geo.LatLng, len(clusters[i].Markers))
		for j, m := range clusters[i].Markers {
			points[j] = m.Position
		}
		clusters[i].Center = geo.Centroid(points)
	}
	return clusters
}

// FeatureCollection returns the clustered layer at zoom as GeoJSON. Single
// markers carry their popup; groups carry their size and member ids.
func (l *ClusterLayer) FeatureCollection(zoom int) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, c := range l.Clusters(zoom) {
		if c.Count() == 1 {
			m := c.Markers[0]
			f := geojson.NewPointFeature([]float64{m.Position.Lng, m.Position.Lat})
			f.ID = m.BattleID
			f.SetProperty("battleId", m.BattleID)
			f.SetProperty("name", m.Name)
			f.SetProperty("year", m.Year)
			f.SetProperty("popupHtml", m.Popup.HTML)
			f.SetProperty("popupOptions", m.Popup.Options)
			fc.AddFeature(f)
			continue
		}

		ids := make([]int, c.Count())
		for i, m := range c.Markers {
			ids[i] = m.BattleID
		}
		f := geojson.NewPointFeature([]float64{c.Center.Lng, c.Center.Lat})
		f.SetProperty("cluster", true)
		f.SetProperty("count", c.Count())
		f.SetProperty("battleIds", ids)
		fc.AddFeature(f)
	}
	return fc
}

// WriteGeoJSON encodes the clustered layer at zoom to w.
func (l *ClusterLayer) WriteGeoJSON(w io.Writer, zoom int) error {
	data, err := l.FeatureCollection(zoom).MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal marker layer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write marker layer: %w", err)
	}
	return nil
}

// MarshalJSON encodes the unclustered markers.
func (l *ClusterLayer) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Markers())
}
