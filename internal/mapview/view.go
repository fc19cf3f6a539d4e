// Package mapview is the map side of the viewer: the initial viewport and
// the clustered marker layer the projection draws into.
package mapview

import "github.com/FrenchBattlesMap/viewer/internal/geo"

const (
	TileURL         = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	TileAttribution = "© OpenStreetMap contributors"
)

// View is the initial map viewport.
type View struct {
	Center geo.LatLng `json:"center"`
	Zoom   int        `json:"zoom"`
}

// DefaultView is centered on metropolitan France.
func DefaultView() View {
	return View{
		Center: geo.LatLng{Lat: 46.603354, Lng: 1.888334},
		Zoom:   6,
	}
}
