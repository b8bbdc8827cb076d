// Package audit records every workflow action as an append-only, day
// partitioned JSONL log.
package audit

import (
	"context"
	"time"
)

// Status is the outcome recorded on an entry.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusSecurity  Status = "security"
)

// Entry is a single line in the audit log.
type Entry struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	ActionType  string         `json:"action_type"`
	Description string         `json:"description"`
	Status      Status         `json:"status"`
	Details     map[string]any `json:"details,omitempty"`
}

// Recorder appends entries. Implementations assign ID and Timestamp when the
// caller leaves them empty.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Action records a completed action.
func Action(ctx context.Context, r Recorder, actionType, description string, details map[string]any) error {
	return r.Record(ctx, Entry{
		ActionType:  actionType,
		Description: description,
		Status:      StatusCompleted,
		Details:     details,
	})
}

// Error records a failed action. The error text lands in details["error"].
func Error(ctx context.Context, r Recorder, actionType, description string, err error, details map[string]any) error {
	d := make(map[string]any, len(details)+1)
	for k, v := range details {
		d[k] = v
	}
	if err != nil {
		d["error"] = err.Error()
	}
	return r.Record(ctx, Entry{
		ActionType:  actionType,
		Description: description,
		Status:      StatusError,
		Details:     d,
	})
}

// Security records a policy violation.
func Security(ctx context.Context, r Recorder, actionType, description string, details map[string]any) error {
	return r.Record(ctx, Entry{
		ActionType:  actionType,
		Description: description,
		Status:      StatusSecurity,
		Details:     details,
	})
}
