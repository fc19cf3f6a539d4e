// Package popup builds the HTML shown when a battle marker is opened.
package popup

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"unicode"
	"unicode/utf8"

	"github.com/FrenchBattlesMap/viewer/internal/media"
	"github.com/FrenchBattlesMap/viewer/pkg/core"
)

// Placeholders for absent text fields.
const (
	PlaceholderDescription = "Description non disponible"
	PlaceholderUnknown     = "Inconnu"
)

// Options bound the popup and control how the map reacts when it opens.
type Options struct {
	MaxWidth  int    `json:"maxWidth"`
	MaxHeight int    `json:"maxHeight"`
	AutoPan   bool   `json:"autoPan"`
	ClassName string `json:"className"`
}

// DefaultOptions returns the fixed popup bounds with auto-pan enabled.
func DefaultOptions() Options {
	return Options{
		MaxWidth:  400,
		MaxHeight: 400,
		AutoPan:   true,
		ClassName: "battle-popup",
	}
}

// Content is a rendered popup.
type Content struct {
	HTML    string  `json:"html"`
	Options Options `json:"options"`
}

type mediaView struct {
	IsImage  bool
	IsVideo  bool
	URL      string
	MIMEType string
}

type sourceView struct {
	Label string
	URL   string
}

type popupView struct {
	ID           int
	Name         string
	Year         int
	ImageURL     string
	Description  string
	Participants string
	Outcome      string
	Media        []mediaView
	Context      string
	Sources      []sourceView
	ShowEnrich   bool
}

// Builder renders popups for battles.
type Builder struct {
	tmpl   *template.Template
	opts   Options
	logger *slog.Logger
}

// NewBuilder creates a Builder. A nil logger falls back to slog.Default().
func NewBuilder(opts Options, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		tmpl:   template.Must(template.New("popup").Parse(tmplPopup)),
		opts:   opts,
		logger: logger,
	}
}

// Build renders the popup for b. Malformed media or sources are logged and
// left out; they never fail the build.
func (pb *Builder) Build(b core.Battle) (Content, error) {
	view := popupView{
		ID:           b.ID,
		Name:         b.Name,
		Year:         b.Year,
		Description:  core.TextOr(b.Description, PlaceholderDescription),
		Participants: core.TextOr(b.Participants, PlaceholderUnknown),
		Outcome:      core.TextOr(b.Outcome, PlaceholderUnknown),
		// the enrichment action is offered only to battles the service has
		// never enriched
		ShowEnrich: !b.Sources.Present(),
	}
	view.ImageURL, _ = core.Text(b.ImageURL)
	view.Context, _ = core.Text(b.HistoricalContext)

	for _, f := range media.Resolve(b.MediaURLs, pb.logger.With("battleId", b.ID)) {
		view.Media = append(view.Media, mediaView{
			IsImage:  f.Kind == media.KindImage,
			IsVideo:  f.Kind == media.KindVideo,
			URL:      f.URL,
			MIMEType: f.MIMEType,
		})
	}

	sources := b.Sources.Sources()
	if sources.Err != nil {
		pb.logger.Warn("Error parsing sources", "battleId", b.ID, "error", sources.Err)
	}
	for _, s := range sources.Value {
		view.Sources = append(view.Sources, sourceView{Label: capitalize(s.Name), URL: s.URL})
	}

	var buf bytes.Buffer
	if err := pb.tmpl.Execute(&buf, view); err != nil {
		return Content{}, fmt.Errorf("render popup for battle %d: %w", b.ID, err)
	}
	return Content{HTML: buf.String(), Options: pb.opts}, nil
}

// capitalize upper-cases the first letter of a source name.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
