package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/audit"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/llm"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/workflow"
)

// DraftPrefix names reply drafts.
const DraftPrefix = "draft_reply_"

// Channels a draft can go out on.
const (
	ChannelEmail    = "EMAIL"
	ChannelWhatsApp = "WHATSAPP"
	ChannelGeneral  = "GENERAL_COMMUNICATION"
)

// CommunicationKeywords select communication intake.
var CommunicationKeywords = []string{"email", "gmail", "whatsapp", "message", "communication", "reply", "response"}

const draftFallback = "[AI-GENERATED RESPONSE WOULD GO HERE]"

const draftSystemPrompt = "You draft short, polite replies for a small business owner. " +
	"Return only the reply text. Never claim the message was sent."

// Communications drafts replies. Nothing is ever sent: every draft lands in
// Plans and goes through the approval gate.
type Communications struct {
	keywordMatcher
	env    workflow.Env
	client llm.Client
}

// NewCommunications returns the communications agent. client may be nil, in
// which case drafts carry the placeholder response.
func NewCommunications(env workflow.Env, client llm.Client) *Communications {
	return &Communications{
		keywordMatcher: CommunicationKeywords,
		env:            env,
		client:         client,
	}
}

func (c *Communications) Name() string      { return "communications" }
func (c *Communications) Tag() string       { return "" }
func (c *Communications) ErrorType() string { return "COMMUNICATION_PROCESSING_ERROR" }

// Channel picks the delivery channel from the content.
func Channel(doc core.Document) string {
	lower := doc.Lower()
	switch {
	case strings.Contains(lower, "email"), strings.Contains(lower, "gmail"):
		return ChannelEmail
	case strings.Contains(lower, "whatsapp"):
		return ChannelWhatsApp
	}
	return ChannelGeneral
}

func (c *Communications) Handle(ctx context.Context, doc core.Document) (workflow.Report, error) {
	var rep workflow.Report
	id := doc.Ref.Identity()
	channel := Channel(doc)

	prompt := fmt.Sprintf("Channel: %s\n\nDraft a reply to:\n%s", channel, excerpt(doc.Body, 1000))
	reply, err := llm.Generate(ctx, c.client, draftSystemPrompt, prompt, draftFallback)
	if err != nil {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		c.env.Log().Warn("reply generation failed, using placeholder", "document", doc.Ref.Name, "error", err)
	}

	content, err := c.render(doc, channel, reply)
	if err != nil {
		return rep, err
	}
	ref, created, err := core.Derive(ctx, c.env.Store, core.StagePlans, DraftPrefix+id, content)
	if err != nil {
		return rep, err
	}
	if !created {
		return rep, nil
	}
	rep.Created = append(rep.Created, ref)
	return rep, c.env.Record(ctx, audit.StatusCompleted, "COMMUNICATION_DRAFT_CREATED",
		fmt.Sprintf("Created draft reply for %s", id),
		map[string]any{"task_id": id, "communication_type": channel, "draft": ref.Name})
}

func (c *Communications) render(doc core.Document, channel, reply string) (string, error) {
	now := c.env.Now()
	id := doc.Ref.Identity()
	header := core.Header{
		"title":              "Draft Reply for " + id,
		"created":            stamp(now),
		"original_task":      id,
		"communication_type": channel,
		"status":             "drafted",
		"requires_approval":  true,
	}

	var b strings.Builder
	b.WriteString("# Draft Reply\n\n")
	b.WriteString("## Original Request\n")
	b.WriteString(excerpt(doc.Body, 300))
	b.WriteString("\n\n## Suggested Response\n")
	b.WriteString(strings.TrimSpace(reply))
	b.WriteString("\n\n## Recipient\n[RECIPIENT IDENTIFIED FROM CONTEXT]\n\n")
	fmt.Fprintf(&b, "## Communication Channel\n%s\n\n", channel)
	b.WriteString("## Approval Required\n")
	b.WriteString("- [ ] Send this communication\n")
	b.WriteString("- [ ] Modify before sending\n")
	b.WriteString("- [ ] Do not send\n\n")
	b.WriteString("## Context\n")
	fmt.Fprintf(&b, "- Original task: %s\n", id)
	fmt.Fprintf(&b, "- Generated on: %s\n", stamp(now))
	b.WriteString("- Requires human approval before sending\n")

	return core.Render(header, b.String())
}
