package agents

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/audit"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/llm"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/workflow"
)

const (
	FinancePlanPrefix  = "finance_plan_"
	TransactionPrefix  = "transaction_"
	SubscriptionPrefix = "subscription_monitor_"
)

// FinanceKeywords select finance intake.
var FinanceKeywords = []string{"finance", "payment", "expense", "bill", "transaction", "bank", "subscription", "money", "cost", "budget"}

// ErrExecutionDirective is returned when finance output would instruct a
// payment to be carried out.
var ErrExecutionDirective = errors.New("finance output contains an execution directive")

// executionDirectives are phrases that turn advice into an order. Finance
// output is advisory only and must never carry one.
var executionDirectives = []string{
	"auto_pay: true",
	"auto-pay enabled",
	"autopay enabled",
	"execute payment",
	"execute the payment",
	"process payment",
	"process the payment",
	"pay now",
	"initiate transfer",
	"initiate payment",
	"wire transfer",
	"transfer funds",
	"charge the card",
}

// ExecutionDirectives returns the directive phrases found in text.
func ExecutionDirectives(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, d := range executionDirectives {
		if strings.Contains(lower, d) {
			found = append(found, d)
		}
	}
	return found
}

// ExpenseCategory is one bucket of the expense categorizer.
type ExpenseCategory struct {
	Name     string
	Keywords []string
}

// ExpenseCategories is evaluated in order; the first match wins.
var ExpenseCategories = []ExpenseCategory{
	{"utilities", []string{"electricity", "gas", "water", "internet", "phone", "utilities"}},
	{"subscriptions", []string{"subscription", "netflix", "spotify", "amazon", "prime", "membership", "recurring"}},
	{"food", []string{"grocery", "restaurant", "food", "delivery", "meal"}},
	{"transportation", []string{"gas", "fuel", "transport", "car", "uber", "taxi"}},
	{"entertainment", []string{"movie", "game", "entertainment", "theater", "event"}},
	{"health", []string{"pharmacy", "doctor", "health", "medical", "insurance"}},
	{"business", []string{"office", "software", "business", "work", "professional"}},
}

// Categorize returns the expense category for a description, "other" when
// nothing matches.
func Categorize(description string) string {
	lower := strings.ToLower(description)
	for _, c := range ExpenseCategories {
		for _, kw := range c.Keywords {
			if strings.Contains(lower, kw) {
				return c.Name
			}
		}
	}
	return "other"
}

var amountPattern = regexp.MustCompile(`\$?([0-9][0-9,]*\.?[0-9]*)`)

// quoteInert renders intake text as an inline code span so it reads as a
// quotation, never as an instruction.
func quoteInert(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "'") + "`"
}

// generatedText strips the quoted intake description from text, leaving what
// the agent wrote itself. Directives are only searched there.
func generatedText(text, description string) string {
	if description == "" {
		return text
	}
	text = strings.ReplaceAll(text, quoteInert(description), "")
	return strings.ReplaceAll(text, description, "")
}

// Transaction is what the finance agent extracts from an intake document.
type Transaction struct {
	Amount      string
	Description string
	Category    string
}

// ExtractTransaction reads the first dollar amount and the last line that
// names what the money was for.
func ExtractTransaction(body string) Transaction {
	tx := Transaction{Amount: "Unknown", Description: "Unknown"}
	amountFound := false
	for _, line := range strings.Split(body, "\n") {
		lower := strings.ToLower(line)
		if !amountFound && strings.Contains(line, "$") {
			if m := amountPattern.FindStringSubmatch(line[strings.Index(line, "$"):]); m != nil {
				tx.Amount = strings.TrimRight(m[1], ".")
				amountFound = true
			}
		}
		if strings.Contains(lower, "for ") || strings.Contains(lower, "on ") {
			tx.Description = strings.TrimSpace(line)
		}
	}
	if tx.Description != "Unknown" {
		tx.Category = Categorize(tx.Description)
	} else {
		tx.Category = Categorize(body)
	}
	return tx
}

var recurringWords = []string{"subscription", "recurring", "monthly"}

// Finance analyzes money-related intake. It never pays anything: every plan
// states that no payment was made and goes to a human via the approval gate.
type Finance struct {
	keywordMatcher
	env    workflow.Env
	client llm.Client
}

// NewFinance returns the finance agent. client may be nil.
func NewFinance(env workflow.Env, client llm.Client) *Finance {
	return &Finance{
		keywordMatcher: FinanceKeywords,
		env:            env,
		client:         client,
	}
}

func (f *Finance) Name() string      { return "finance" }
func (f *Finance) Tag() string       { return "finance" }
func (f *Finance) ErrorType() string { return "FINANCE_PROCESSING_ERROR" }

const adviceSystemPrompt = "You review a business expense and give two sentences of advice. " +
	"You cannot make payments and must not instruct anyone to make one."

const adviceFallback = "Review the amount and category against the budget before approving."

func (f *Finance) Handle(ctx context.Context, doc core.Document) (workflow.Report, error) {
	var rep workflow.Report
	id := doc.Ref.Identity()
	tx := ExtractTransaction(doc.Body)

	advice, err := llm.Generate(ctx, f.client, adviceSystemPrompt,
		fmt.Sprintf("Amount: %s\nCategory: %s\nDescription: %s", tx.Amount, tx.Category, tx.Description),
		adviceFallback)
	if err != nil {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		f.env.Log().Warn("finance advice generation failed, using fallback", "document", doc.Ref.Name, "error", err)
	}

	plan, err := f.renderPlan(id, tx, advice)
	if err != nil {
		return rep, err
	}
	record, err := f.renderRecord(id, tx)
	if err != nil {
		return rep, err
	}
	if found := ExecutionDirectives(generatedText(plan+record, tx.Description)); len(found) > 0 {
		if err := f.env.Record(ctx, audit.StatusSecurity, "SECURITY_FINANCE_DIRECTIVE_BLOCKED",
			fmt.Sprintf("Blocked finance output for %s: execution directive", id),
			map[string]any{"task_id": id, "directives": found}); err != nil {
			return rep, err
		}
		return rep, fmt.Errorf("%s: %w", id, ErrExecutionDirective)
	}

	planRef, created, err := core.Derive(ctx, f.env.Store, core.StagePlans, FinancePlanPrefix+id, plan)
	if err != nil {
		return rep, err
	}
	if created {
		rep.Created = append(rep.Created, planRef)
	}
	recRef, recCreated, err := core.Derive(ctx, f.env.Store, core.StageAccounting, TransactionPrefix+id, record)
	if err != nil {
		return rep, err
	}
	if recCreated {
		rep.Created = append(rep.Created, recRef)
	}
	if !created && !recCreated {
		return rep, nil
	}

	return rep, f.env.Record(ctx, audit.StatusCompleted, "FINANCE_PLAN_CREATED",
		fmt.Sprintf("Created finance plan for %s", id),
		map[string]any{
			"task_id":  id,
			"amount":   tx.Amount,
			"category": tx.Category,
			"auto_pay": false,
		})
}

func (f *Finance) renderPlan(id string, tx Transaction, advice string) (string, error) {
	now := f.env.Now()
	header := core.Header{
		"title":           "Finance Plan for " + id,
		"created":         stamp(now),
		"original_task":   id,
		"transaction_id":  id,
		"amount":          tx.Amount,
		"category":        tx.Category,
		"action_required": "review_and_approve",
		"auto_pay":        false,
		"status":          "pending",
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Finance Plan: %s\n\n", id)
	b.WriteString("## Transaction Details\n")
	fmt.Fprintf(&b, "- **Amount**: $%s\n", tx.Amount)
	fmt.Fprintf(&b, "- **Description**: %s\n", quoteInert(tx.Description))
	fmt.Fprintf(&b, "- **Category**: %s\n", tx.Category)
	fmt.Fprintf(&b, "- **Date**: %s\n\n", stamp(now))
	b.WriteString("## Advice\n")
	b.WriteString(strings.TrimSpace(advice))
	b.WriteString("\n\n## Security Considerations\n")
	b.WriteString("- This plan is advisory only\n")
	b.WriteString("- No automatic payment was made and none will be\n")
	b.WriteString("- Any payment must be made by a human outside this system\n\n")
	b.WriteString("## Next Steps\n")
	b.WriteString("1. Review the transaction details\n")
	b.WriteString("2. Record a decision on the approval request\n")
	return core.Render(header, b.String())
}

func (f *Finance) renderRecord(id string, tx Transaction) (string, error) {
	now := f.env.Now()
	header := core.Header{
		"title":    "Accounting Record: " + id,
		"date":     stamp(now),
		"category": tx.Category,
		"amount":   "$" + tx.Amount,
		"status":   "pending",
	}

	var b strings.Builder
	b.WriteString("# Accounting Record\n\n")
	fmt.Fprintf(&b, "## Transaction: %s\n", id)
	fmt.Fprintf(&b, "- Amount: %s\n", tx.Amount)
	fmt.Fprintf(&b, "- Category: %s\n", tx.Category)
	fmt.Fprintf(&b, "- Description: %s\n", quoteInert(tx.Description))
	fmt.Fprintf(&b, "- Date: %s\n", stamp(now))
	return core.Render(header, b.String())
}

// Periodic writes the daily subscription monitoring plan when active
// recurring records exist.
func (f *Finance) Periodic(ctx context.Context) (workflow.Report, error) {
	var rep workflow.Report
	now := f.env.Now()
	id := SubscriptionPrefix + dayKey(now)

	done, err := claimed(ctx, f.env.Store, id)
	if err != nil || done {
		return rep, err
	}

	refs, err := core.Collect(ctx, f.env.Store, core.StageAccounting, TransactionPrefix+"*"+core.Extension)
	if err != nil {
		return rep, err
	}
	var flagged []string
	for _, ref := range refs {
		raw, err := f.env.Store.Read(ctx, ref)
		if core.Skippable(err) {
			continue
		}
		if err != nil {
			return rep, err
		}
		lower := strings.ToLower(raw)
		recurring := false
		for _, w := range recurringWords {
			if strings.Contains(lower, w) {
				recurring = true
				break
			}
		}
		if recurring && !strings.Contains(lower, "cancelled") && !strings.Contains(lower, "stopped") {
			flagged = append(flagged, ref.Name+": Active subscription requiring monitoring")
		}
	}
	if len(flagged) == 0 {
		return rep, nil
	}

	header := core.Header{
		"title":   "Subscription Monitoring Plan",
		"created": stamp(now),
		"type":    "subscription_monitoring",
		"status":  "active",
	}
	var b strings.Builder
	b.WriteString("# Subscription Monitoring Plan\n\n")
	b.WriteString("## Flagged Subscriptions\n")
	b.WriteString(bullet(flagged))
	b.WriteString("\n## Monitoring Actions Required\n")
	b.WriteString("- Review each subscription for necessity\n")
	b.WriteString("- Consider cancellation of unused subscriptions\n")
	b.WriteString("- Track monthly costs\n")
	content, err := core.Render(header, b.String())
	if err != nil {
		return rep, err
	}

	ref, created, err := core.Derive(ctx, f.env.Store, core.StagePlans, id, content)
	if err != nil || !created {
		return rep, err
	}
	rep.Created = append(rep.Created, ref)
	return rep, f.env.Record(ctx, audit.StatusCompleted, "SUBSCRIPTION_MONITOR_CREATED",
		fmt.Sprintf("Flagged %d active subscription(s)", len(flagged)),
		map[string]any{"plan": ref.Name, "flagged": len(flagged)})
}
