// Package agents holds the stage agents that turn intake documents into
// domain artifacts, and the dispatcher that routes documents to them.
package agents

import (
	"context"
	"strings"
	"time"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/classify"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/workflow"
)

// Agent handles intake documents of one domain.
type Agent interface {
	// Name identifies the agent in logs and in the processed_by header.
	Name() string
	// Tag is embedded in the Done name when the agent is the only handler.
	Tag() string
	// ErrorType is the audit action type for a failed document.
	ErrorType() string
	// Matches reports whether the agent wants the document.
	Matches(doc core.Document) bool
	// Handle produces the agent's derived documents. It must be safe to call
	// again for a document it already handled.
	Handle(ctx context.Context, doc core.Document) (workflow.Report, error)
}

// Periodic is implemented by agents with work that is not driven by intake.
// Each call decides for itself whether its period is already covered.
type Periodic interface {
	Periodic(ctx context.Context) (workflow.Report, error)
}

// keywordMatcher is the shared Matches implementation: any keyword in the
// lowercased raw content.
type keywordMatcher []string

func (k keywordMatcher) match(doc core.Document) []string {
	return classify.Matches(doc.Lower(), k)
}

func (k keywordMatcher) Matches(doc core.Document) bool {
	return len(k.match(doc)) > 0
}

func stamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

// dayKey names once-per-day documents.
func dayKey(t time.Time) string {
	return t.Format("20060102")
}

// claimed reports whether a document with identity exists in any stage.
func claimed(ctx context.Context, store core.DocumentStore, identity string) (bool, error) {
	refs, err := core.Locate(ctx, store, identity)
	return len(refs) > 0, err
}

func excerpt(text string, limit int) string {
	return workflow.Summary(text, limit)
}

func bullet(items []string) string {
	if len(items) == 0 {
		return "- None\n"
	}
	var b strings.Builder
	for _, it := range items {
		b.WriteString("- ")
		b.WriteString(it)
		b.WriteString("\n")
	}
	return b.String()
}
