// Package core holds the workflow domain: stages, documents, identity rules
// and the storage contracts every component depends on.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Header is the key/value metadata block at the top of a document.
type Header map[string]any

// String returns the value for key rendered as text, or "" if absent.
func (h Header) String(key string) string {
	v, ok := h[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v))
}

// Bool interprets key as a boolean. Missing or malformed values are false.
func (h Header) Bool(key string) bool {
	switch v := h[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	}
	return false
}

// Time parses key as an RFC 3339 timestamp.
func (h Header) Time(key string) (time.Time, bool) {
	switch v := h[key].(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// Clone returns a shallow copy so callers can edit without aliasing.
func (h Header) Clone() Header {
	out := make(Header, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// Ref locates a document: the stage is the directory, Name the leaf file name.
type Ref struct {
	Stage Stage
	Name  string
}

func (r Ref) String() string {
	return r.Stage.Dir() + "/" + r.Name
}

// Identity is the document's identity, stable across moves.
func (r Ref) Identity() string {
	return Identity(r.Name)
}

// Stem is the originating intake stem shared by related artifacts.
func (r Ref) Stem() string {
	return Stem(r.Name)
}

// Document is a parsed view of a stored document.
type Document struct {
	Ref    Ref
	Header Header
	Body   string
	Raw    string
}

// Lower returns the raw content lowercased, the form every keyword rule
// matches against.
func (d Document) Lower() string {
	return strings.ToLower(d.Raw)
}

// EventType represents the type of change in the vault.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change observed in a stage directory.
type Event struct {
	Type      EventType
	Ref       Ref
	Timestamp int64 // Unix timestamp
}

// String implements lifecycle.Event.
func (e Event) String() string {
	return fmt.Sprintf("%s %s", e.Type, e.Ref)
}
