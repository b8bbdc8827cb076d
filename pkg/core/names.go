package core

import (
	"path"
	"regexp"
	"strings"
	"time"
)

// Extension is the file extension of every stage document.
const Extension = ".md"

// StampLayout is the timestamp embedded in transition markers.
const StampLayout = "20060102_150405"

// Kind prefixes mark documents derived from an intake item. Periodic reports
// are keyed by their period and keep their full identity as stem.
var kindPrefixes = []string{
	"finance_plan_",
	"project_plan_",
	"draft_reply_",
	"transaction_",
	"approval_",
	"plan_",
}

// transitionMarker matches the prefixes added when a document reaches Done.
var transitionMarker = regexp.MustCompile(`^(?:completed|processed(?:_[a-z]+)?)_\d{8}_\d{6}_`)

// Identity strips transition markers and the extension. Two live documents
// in one stage never share an identity.
func Identity(name string) string {
	base := path.Base(name)
	for {
		loc := transitionMarker.FindStringIndex(base)
		if loc == nil {
			break
		}
		base = base[loc[1]:]
	}
	return strings.TrimSuffix(base, Extension)
}

// Stem additionally strips kind prefixes, recovering the intake stem the
// document was derived from.
func Stem(name string) string {
	id := Identity(name)
	for {
		stripped := false
		for _, p := range kindPrefixes {
			if strings.HasPrefix(id, p) && len(id) > len(p) {
				id = id[len(p):]
				stripped = true
				break
			}
		}
		if !stripped {
			return id
		}
	}
}

// FileName appends the document extension when missing.
func FileName(identity string) string {
	if strings.HasSuffix(identity, Extension) {
		return identity
	}
	return identity + Extension
}

// Stamp formats t for use in transition markers and period keys.
func Stamp(t time.Time) string {
	return t.Format(StampLayout)
}

// RenameFunc computes the leaf name a document takes on when moved.
type RenameFunc func(name string) string

// KeepName leaves the leaf name unchanged.
func KeepName(name string) string {
	return name
}

// CompletedName marks a document finished by the completion sweep.
func CompletedName(at time.Time) RenameFunc {
	return func(name string) string {
		return "completed_" + Stamp(at) + "_" + name
	}
}

// ProcessedName marks an intake document consumed by an agent. The tag names
// the agent when exactly one handled it.
func ProcessedName(tag string, at time.Time) RenameFunc {
	return func(name string) string {
		if tag == "" {
			return "processed_" + Stamp(at) + "_" + name
		}
		return "processed_" + tag + "_" + Stamp(at) + "_" + name
	}
}

// IsCompleted reports whether a Done file name carries the completion marker.
func IsCompleted(name string) bool {
	return strings.HasPrefix(name, "completed_")
}

// IsProcessed reports whether a Done file name carries the processed marker.
func IsProcessed(name string) bool {
	return strings.HasPrefix(name, "processed_")
}
