// Package notify delivers post-mutation plan snapshots to collaborators.
//
// Delivery is strictly fire-and-forget: a failed notification is logged and
// absorbed, never surfaced to the mutation that triggered it.
package notify

import (
	"context"

	"github.com/felixgeelhaar/taskplan/internal/plan"
)

// Notifier receives a plan snapshot after every successful mutation
// affecting that plan's tasks.
type Notifier interface {
	NotifyPlanChanged(ctx context.Context, p *plan.Plan) error
}

// Noop is a Notifier that does nothing.
type Noop struct{}

// NotifyPlanChanged implements Notifier.
func (Noop) NotifyPlanChanged(ctx context.Context, p *plan.Plan) error {
	return nil
}
