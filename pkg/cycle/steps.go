package cycle

import (
	"context"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/agents"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/workflow"
)

// Components are the parts of one cycle. Nil parts are left out.
type Components struct {
	Planner    *workflow.PlanGenerator
	Gate       *workflow.Gate
	Dispatcher *agents.Dispatcher
	Sweeper    *workflow.Sweeper
	Dashboard  *workflow.Dashboard
}

// Steps returns the cycle order: plan, gate, agents (with their own gate
// triage), sweep, dashboard.
func (c Components) Steps() []Step {
	var steps []Step
	if c.Planner != nil {
		steps = append(steps, Step{Name: "plan", Run: c.Planner.Run})
	}
	if c.Gate != nil {
		steps = append(steps, Step{Name: "gate", Run: c.Gate.Run})
	}
	if c.Dispatcher != nil {
		steps = append(steps, Step{Name: "agents", Run: c.Dispatcher.Run})
	}
	if c.Sweeper != nil {
		steps = append(steps, Step{Name: "sweep", Run: c.Sweeper.Run})
	}
	if c.Dashboard != nil {
		steps = append(steps, Step{Name: "dashboard", Run: func(ctx context.Context) (workflow.Report, error) {
			_, err := c.Dashboard.Run(ctx)
			return workflow.Report{}, err
		}})
	}
	return steps
}
