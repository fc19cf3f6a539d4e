// Package media turns a battle's serialized media list into renderable
// gallery fragments.
package media

import (
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/FrenchBattlesMap/viewer/pkg/core"
)

// Kind classifies a media entry.
type Kind string

const (
	KindUnknown Kind = "unknown"
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
)

var (
	imageExtensions = map[string]bool{"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true}
	videoExtensions = map[string]string{"mp4": "video/mp4", "webm": "video/webm", "ogg": "video/ogg"}
)

// Fragment is one renderable gallery item.
type Fragment struct {
	Kind Kind
	URL  string
	// MIMEType is only set for videos.
	MIMEType string
}

// extension returns the lowercased extension of the URL path, ignoring any
// query string or fragment.
func extension(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	ext := path.Ext(p)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// DetectKind infers the media kind from the file extension of the URL.
func DetectKind(rawURL string) Kind {
	ext := extension(rawURL)
	if imageExtensions[ext] {
		return KindImage
	}
	if _, ok := videoExtensions[ext]; ok {
		return KindVideo
	}
	return KindUnknown
}

func videoMIMEType(rawURL string) string {
	if mt, ok := videoExtensions[extension(rawURL)]; ok {
		return mt
	}
	return "video/mp4"
}

// ResolveEntries classifies already-decoded entries. Entries of unknown kind
// are dropped.
func ResolveEntries(entries []core.MediaEntry) []Fragment {
	fragments := make([]Fragment, 0, len(entries))
	for _, e := range entries {
		kind := Kind(strings.ToLower(strings.TrimSpace(e.Type)))
		if kind == "" {
			kind = DetectKind(e.URL)
		}

		switch kind {
		case KindImage:
			fragments = append(fragments, Fragment{Kind: KindImage, URL: e.URL})
		case KindVideo:
			fragments = append(fragments, Fragment{Kind: KindVideo, URL: e.URL, MIMEType: videoMIMEType(e.URL)})
		}
	}
	return fragments
}

// Resolve decodes and classifies a media list. Malformed input yields no
// fragments and a warning on logger.
func Resolve(field core.SerializedField, logger *slog.Logger) []Fragment {
	parsed := field.Media()
	if parsed.Err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("Error parsing media URLs", "error", parsed.Err)
		return nil
	}
	if !parsed.OK {
		return nil
	}
	return ResolveEntries(parsed.Value)
}
