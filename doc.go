// Package employee is the composition root of the AI employee: a workflow
// engine that moves Markdown task files through the stage directories of a
// vault (Needs_Action, Plans, Pending_Approval, Approved, Rejected, Done).
//
// Every cycle runs the same fixed order: plan generation, the approval
// gate, the stage agents, the completion sweeper and the dashboard. Anything
// sensitive halts in Pending_Approval until a human decides. Every action
// lands in an append-only daily audit log under Logs/.
//
// Usage:
//
//	cfg, err := employee.LoadConfig("", "./vault")
//	app, err := employee.New(cfg, employee.WithLogger(logger))
//	err = app.Runner.RunOnce(ctx)
package employee
