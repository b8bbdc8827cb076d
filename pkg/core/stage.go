package core

import "fmt"

// Stage is a workflow state. A document's stage is the directory that holds it.
type Stage string

const (
	StageNeedsAction     Stage = "needs_action"
	StagePlans           Stage = "plans"
	StagePendingApproval Stage = "pending_approval"
	StageApproved        Stage = "approved"
	StageRejected        Stage = "rejected"
	StageDone            Stage = "done"

	// Side channels. They hold derived records and never take part in the
	// primary chain.
	StageAccounting     Stage = "accounting"
	StageActiveProjects Stage = "active_projects"
	StageBriefings      Stage = "briefings"
)

var stageDirs = map[Stage]string{
	StageNeedsAction:     "Needs_Action",
	StagePlans:           "Plans",
	StagePendingApproval: "Pending_Approval",
	StageApproved:        "Approved",
	StageRejected:        "Rejected",
	StageDone:            "Done",
	StageAccounting:      "Accounting",
	StageActiveProjects:  "Active_Projects",
	StageBriefings:       "Briefings",
}

// Stages lists every stage in a fixed order (primary chain first).
func Stages() []Stage {
	return []Stage{
		StageNeedsAction,
		StagePlans,
		StagePendingApproval,
		StageApproved,
		StageRejected,
		StageDone,
		StageAccounting,
		StageActiveProjects,
		StageBriefings,
	}
}

// Dir returns the vault directory backing the stage.
func (s Stage) Dir() string {
	return stageDirs[s]
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := stageDirs[s]
	return ok
}

// Primary reports whether the stage belongs to the intake-to-done chain.
func (s Stage) Primary() bool {
	switch s {
	case StageAccounting, StageActiveProjects, StageBriefings:
		return false
	}
	return s.Valid()
}

// Terminal reports whether documents never leave the stage.
func (s Stage) Terminal() bool {
	return s == StageDone
}

func (s Stage) String() string {
	return string(s)
}

// StageForDir maps a vault directory name back to its stage.
func StageForDir(dir string) (Stage, bool) {
	for s, d := range stageDirs {
		if d == dir {
			return s, true
		}
	}
	return "", false
}

// ParseStage accepts either the stage identifier or its directory name.
func ParseStage(v string) (Stage, error) {
	if s := Stage(v); s.Valid() {
		return s, nil
	}
	if s, ok := StageForDir(v); ok {
		return s, nil
	}
	return "", fmt.Errorf("unknown stage %q", v)
}

// transitions is the stage graph. Rejected only ever receives documents; it
// is not terminal in the sense of Done but nothing moves documents out of it.
var transitions = map[Stage][]Stage{
	StageNeedsAction:     {StagePlans, StageDone},
	StagePlans:           {StagePendingApproval, StageApproved, StageRejected, StageDone},
	StagePendingApproval: {StageApproved, StageRejected},
	StageApproved:        {StageDone},
}

// CanTransition reports whether a document may move from one stage to another.
func CanTransition(from, to Stage) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrInvalidTransition for moves outside the graph.
func CheckTransition(from, to Stage) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
