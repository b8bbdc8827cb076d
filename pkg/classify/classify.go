// Package classify maps document text to a category with an ordered,
// first-match-wins keyword rule list.
package classify

import "strings"

// Category is the single label a document receives.
type Category string

const (
	Communication     Category = "COMMUNICATION"
	Finance           Category = "FINANCE"
	FileManagement    Category = "FILE_MANAGEMENT"
	ProjectManagement Category = "PROJECT_MANAGEMENT"
	General           Category = "GENERAL"
)

// Rule assigns Category when any keyword occurs in the lowercased text.
type Rule struct {
	Category Category
	Keywords []string
}

// Match returns the first keyword of r found in lower.
func (r Rule) Match(lower string) (string, bool) {
	for _, kw := range r.Keywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

// DefaultRules is the ordered rule list. The order is a contract: text that
// mentions both "email" and "invoice" is COMMUNICATION because that rule runs
// first.
func DefaultRules() []Rule {
	return []Rule{
		{Category: Communication, Keywords: []string{"email", "gmail", "communication"}},
		{Category: Finance, Keywords: []string{"finance", "payment", "expense", "bill"}},
		{Category: FileManagement, Keywords: []string{"file", "document", "organize"}},
		{Category: ProjectManagement, Keywords: []string{"project", "task", "deadline"}},
	}
}

// Classifier evaluates rules in order.
type Classifier struct {
	rules    []Rule
	fallback Category
}

// New returns a classifier over rules, falling back to General. With no rules
// it uses DefaultRules.
func New(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules, fallback: General}
}

// Classify returns the category of the first matching rule.
func (c *Classifier) Classify(content string) Category {
	cat, _ := c.Explain(content)
	return cat
}

// Explain is Classify plus the keyword that decided it ("" for the fallback).
func (c *Classifier) Explain(content string) (Category, string) {
	lower := strings.ToLower(content)
	for _, r := range c.rules {
		if kw, ok := r.Match(lower); ok {
			return r.Category, kw
		}
	}
	return c.fallback, ""
}

// Matches returns every keyword found in lower, in keyword order.
func Matches(lower string, keywords []string) []string {
	var found []string
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	return found
}
