// Package bridge streams the viewer output to a remote renderer (a browser
// page holding the actual map and chart) over WebSocket, and feeds the
// renderer's UI events back into the session.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/FrenchBattlesMap/viewer/internal/projection"
	"github.com/FrenchBattlesMap/viewer/internal/timeline"
	"github.com/FrenchBattlesMap/viewer/pkg/core"
)

// Config holds the renderer endpoint.
type Config struct {
	URL    string
	Secret string
}

// Bridge is a marker layer, chart renderer, notifier and session observer
// whose output is a message stream.
type Bridge struct {
	conn        *connection
	cfg         Config
	nextChartID atomic.Uint64
}

// New creates a bridge. Nothing is sent before Connect.
func New(cfg Config, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		conn: newConnection(logger.With("component", "bridge")),
		cfg:  cfg,
	}
}

// OnEvent sets the handler for UI events raised by the renderer. It runs on
// the read goroutine and must not block.
func (b *Bridge) OnEvent(fn func(command string, args []string)) {
	b.conn.mu.Lock()
	defer b.conn.mu.Unlock()
	if fn == nil {
		b.conn.onEvent = nil
		return
	}
	b.conn.onEvent = func(ev EventPayload) { fn(ev.Command, ev.Args) }
}

// Connect dials the renderer and waits for it to acknowledge hello. The
// hello is cached and replayed after every reconnect.
func (b *Bridge) Connect(ctx context.Context, hello HelloPayload) error {
	if err := b.conn.dial(ctx, b.cfg.URL, b.cfg.Secret); err != nil {
		return err
	}

	data, err := marshalEnvelope(TypeHello, hello)
	if err != nil {
		return err
	}
	b.conn.mu.Lock()
	b.conn.cachedHello = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(ctx, data, TypeHello, ackTimeout)
}

// Close says goodbye, waiting briefly for the ack, then disconnects. No
// goodbye is sent when no socket is live.
func (b *Bridge) Close(ctx context.Context) error {
	var err error
	if b.conn.live() {
		var data []byte
		data, err = marshalEnvelope(TypeGoodbye, nil)
		if err == nil {
			err = b.conn.sendAndWait(ctx, data, TypeGoodbye, ackTimeout)
		}
	}
	b.conn.mu.Lock()
	b.conn.cachedHello = nil
	b.conn.mu.Unlock()

	if cerr := b.conn.close(); err == nil {
		err = cerr
	}
	return err
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	env := Envelope{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		env.Payload = raw
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

func (b *Bridge) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// ClearLayers implements projection.MarkerLayer.
func (b *Bridge) ClearLayers() error {
	return b.sendEnvelope(TypeClearMarkers, nil)
}

// AddMarker implements projection.MarkerLayer.
func (b *Bridge) AddMarker(m projection.Marker) error {
	return b.sendEnvelope(TypeAddMarker, m)
}

// Draw implements timeline.ChartRenderer.
func (b *Bridge) Draw(s timeline.Series) (timeline.Chart, error) {
	id := b.nextChartID.Add(1)
	if err := b.sendEnvelope(TypeTimeline, TimelinePayload{ID: id, Series: s}); err != nil {
		return nil, err
	}
	return &remoteChart{b: b, id: id}, nil
}

// Alert shows a blocking message in the renderer.
func (b *Bridge) Alert(message string) {
	b.logSendError(TypeAlert, b.sendEnvelope(TypeAlert, AlertPayload{Message: message}))
}

// LoadingChanged follows the loading indicator.
func (b *Bridge) LoadingChanged(visible bool) {
	b.logSendError(TypeLoading, b.sendEnvelope(TypeLoading, LoadingPayload{Visible: visible}))
}

func (b *Bridge) RangeDisplayed(text string) {
	b.logSendError(TypeRange, b.sendEnvelope(TypeRange, RangePayload{Text: text}))
}

func (b *Bridge) Rendered(stats core.RenderStats) {
	b.logSendError(TypeRendered, b.sendEnvelope(TypeRendered, stats))
}

func (b *Bridge) ThemeChanged(theme, tileFilter string) {
	b.logSendError(TypeTheme, b.sendEnvelope(TypeTheme, ThemePayload{Theme: theme, TileFilter: tileFilter}))
}

func (b *Bridge) DensityChanged(visible bool, label string) {
	b.logSendError(TypeDensity, b.sendEnvelope(TypeDensity, DensityPayload{Visible: visible, Label: label}))
}

func (b *Bridge) logSendError(msgType string, err error) {
	if err != nil {
		b.conn.logger.Warn("Failed to send to renderer", "type", msgType, "error", err)
	}
}

type remoteChart struct {
	b  *Bridge
	id uint64
}

func (c *remoteChart) Destroy() error {
	return c.b.sendEnvelope(TypeTimelineDestroy, TimelineDestroyPayload{ID: c.id})
}
