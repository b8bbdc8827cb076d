// Package llm is the text generation collaborator. Nothing in the workflow
// depends on a live connection: the dry-run client answers every request with
// a deterministic placeholder.
package llm

import (
	"context"
	"fmt"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tune a single completion.
type Options struct {
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// Client completes chat prompts.
type Client interface {
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
	// IsConnected reports whether completions reach a real provider.
	IsConnected() bool
	// Info is the provider label shown on the dashboard, "None" offline.
	Info() string
}

const (
	ModeLive   = "LIVE"
	ModeDryRun = "DRY_RUN"
)

// Mode returns the dashboard label for c.
func Mode(c Client) string {
	if c != nil && c.IsConnected() {
		return ModeLive
	}
	return ModeDryRun
}

// DryRun never leaves the process.
type DryRun struct {
	Model string
}

func (d DryRun) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("[DRY RUN] Would send request to %s with %d message(s)", d.model(), len(messages)), nil
}

func (d DryRun) IsConnected() bool { return false }

func (d DryRun) Info() string { return "None" }

func (d DryRun) model() string {
	if d.Model == "" {
		return DefaultModel
	}
	return d.Model
}

// Generate asks c for a completion of a single user prompt and falls back to
// fallback when the call fails or returns nothing.
func Generate(ctx context.Context, c Client, system, prompt, fallback string) (string, error) {
	if c == nil {
		return fallback, nil
	}
	var msgs []Message
	if system != "" {
		msgs = append(msgs, Message{Role: "system", Content: system})
	}
	msgs = append(msgs, Message{Role: "user", Content: prompt})

	text, err := c.Complete(ctx, msgs, Options{MaxTokens: 500})
	if err != nil || text == "" {
		return fallback, err
	}
	return text, nil
}
