package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// SerializedField holds a sub-structure the service ships as serialized JSON
// text. Both a JSON string containing JSON and an inline JSON value are
// accepted on decode; the raw text is kept and parsed on demand.
type SerializedField struct {
	raw string
}

// NewSerializedField wraps raw serialized text.
func NewSerializedField(raw string) SerializedField {
	return SerializedField{raw: raw}
}

// Present reports whether the service sent anything for the field.
func (f SerializedField) Present() bool {
	return f.raw != ""
}

// Raw returns the serialized text.
func (f SerializedField) Raw() string {
	return f.raw
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *SerializedField) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		f.raw = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		f.raw = s
		return nil
	}
	f.raw = string(trimmed)
	return nil
}

// MarshalJSON implements json.Marshaler, writing the field back as a string.
func (f SerializedField) MarshalJSON() ([]byte, error) {
	if !f.Present() {
		return []byte("null"), nil
	}
	return json.Marshal(f.raw)
}

// MalformedFieldError reports a serialized field that could not be decoded.
// It never reaches the user; callers log it and treat the field as absent.
type MalformedFieldError struct {
	Field string
	Err   error
}

func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("malformed %s: %v", e.Field, e.Err)
}

func (e *MalformedFieldError) Unwrap() error {
	return e.Err
}

// Parsed is the outcome of decoding a SerializedField. OK is false when the
// field was absent or malformed; Err is set only in the malformed case.
type Parsed[T any] struct {
	Value T
	OK    bool
	Err   error
}

// Source is a named external reference for a battle.
type Source struct {
	Name string
	URL  string
}

// MediaEntry is one item of the media list. Type is "image", "video" or empty.
type MediaEntry struct {
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
}

var (
	errNotObject    = errors.New("expected a JSON object")
	errTrailingData = errors.New("unexpected data after JSON value")
	errNullEntry    = errors.New("null media entry")
	errMissingURL   = errors.New("media entry without url")
)

// Sources decodes the field as a name -> URL mapping, keeping the order in
// which the names were serialized.
func (f SerializedField) Sources() Parsed[[]Source] {
	if !f.Present() {
		return Parsed[[]Source]{}
	}
	sources, err := decodeSources(f.raw)
	if err != nil {
		return Parsed[[]Source]{Err: &MalformedFieldError{Field: "sources", Err: err}}
	}
	return Parsed[[]Source]{Value: sources, OK: true}
}

func decodeSources(raw string) ([]Source, error) {
	dec := json.NewDecoder(strings.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errNotObject
	}

	var sources []Source
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, errNotObject
		}
		var url string
		if err := dec.Decode(&url); err != nil {
			return nil, fmt.Errorf("source %q: %w", name, err)
		}
		sources = append(sources, Source{Name: name, URL: url})
	}

	// closing brace
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	return sources, nil
}

// Media decodes the field as a list of media entries. A single bad entry
// makes the whole list malformed.
func (f SerializedField) Media() Parsed[[]MediaEntry] {
	if !f.Present() {
		return Parsed[[]MediaEntry]{}
	}

	var raw []*MediaEntry
	if err := json.Unmarshal([]byte(f.raw), &raw); err != nil {
		return Parsed[[]MediaEntry]{Err: &MalformedFieldError{Field: "media_urls", Err: err}}
	}

	entries := make([]MediaEntry, 0, len(raw))
	for i, e := range raw {
		if e == nil {
			return Parsed[[]MediaEntry]{Err: &MalformedFieldError{Field: "media_urls", Err: fmt.Errorf("entry %d: %w", i, errNullEntry)}}
		}
		if e.URL == "" {
			return Parsed[[]MediaEntry]{Err: &MalformedFieldError{Field: "media_urls", Err: fmt.Errorf("entry %d: %w", i, errMissingURL)}}
		}
		entries = append(entries, *e)
	}
	return Parsed[[]MediaEntry]{Value: entries, OK: true}
}
