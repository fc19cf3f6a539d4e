package bridge

import (
	"encoding/json"

	"github.com/FrenchBattlesMap/viewer/internal/mapview"
	"github.com/FrenchBattlesMap/viewer/internal/timeline"
)

// Outbound message types.
const (
	TypeHello           = "hello"
	TypeGoodbye         = "goodbye"
	TypeClearMarkers    = "clear_markers"
	TypeAddMarker       = "add_marker"
	TypeTimeline        = "timeline"
	TypeTimelineDestroy = "timeline_destroy"
	TypeAlert           = "alert"
	TypeLoading         = "loading"
	TypeRange           = "range"
	TypeRendered        = "rendered"
	TypeTheme           = "theme"
	TypeDensity         = "density"
)

// Inbound message types.
const (
	TypeAck   = "ack"
	TypeEvent = "event"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AckMessage is the renderer's acknowledgement of hello and goodbye.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`
}

// inbound is anything the renderer sends: an ack or a UI event.
type inbound struct {
	Type    string          `json:"type"`
	For     string          `json:"for,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EventPayload is a UI signal raised in the remote renderer, e.g. the user
// releasing the range slider.
type EventPayload struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

// HelloPayload opens a session: the initial viewport and tile settings.
type HelloPayload struct {
	View        mapview.View `json:"view"`
	TileURL     string       `json:"tileUrl"`
	Attribution string       `json:"attribution"`
	Theme       string       `json:"theme"`
	TileFilter  string       `json:"tileFilter"`
}

// TimelinePayload carries one histogram. ID identifies the chart instance
// for a later timeline_destroy.
type TimelinePayload struct {
	ID     uint64          `json:"id"`
	Series timeline.Series `json:"series"`
}

// TimelineDestroyPayload releases a previously drawn chart.
type TimelineDestroyPayload struct {
	ID uint64 `json:"id"`
}

type AlertPayload struct {
	Message string `json:"message"`
}

type LoadingPayload struct {
	Visible bool `json:"visible"`
}

type RangePayload struct {
	Text string `json:"text"`
}

type ThemePayload struct {
	Theme      string `json:"theme"`
	TileFilter string `json:"tileFilter"`
}

type DensityPayload struct {
	Visible bool   `json:"visible"`
	Label   string `json:"label"`
}
