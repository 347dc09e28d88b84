// Package remediate turns failed create operations into diagnostic advice.
// When enabled, a failure is summarized for an LLM advisor, and its suggested
// shell diagnostics can be run over SSH against a configured bastion host.
// Everything in this package is best-effort: remediation never changes the
// outcome of an operation.
package remediate

import (
	"context"
	"time"

	"github.com/overcast-io/overcast/internal/interfaces"
	"github.com/overcast-io/overcast/pkg/logging"
)

// Trigger is notified after a create operation fails and rollback finished
type Trigger interface {
	OnCreateFailure(ctx context.Context, infra *interfaces.Infrastructure, op *interfaces.Operation, cause error)
}

// NoopTrigger ignores all failures
type NoopTrigger struct{}

// OnCreateFailure implements Trigger
func (NoopTrigger) OnCreateFailure(context.Context, *interfaces.Infrastructure, *interfaces.Operation, error) {
}

// Remediator asks an Advisor for diagnostics after a failure and optionally
// executes the suggested commands through a Runner.
type Remediator struct {
	advisor *Advisor
	runner  *Runner
	timeout time.Duration
	logger  *logging.Logger
}

// NewRemediator wires an advisor and an optional runner. A nil runner means
// advice is logged but never executed.
func NewRemediator(advisor *Advisor, runner *Runner) *Remediator {
	return &Remediator{
		advisor: advisor,
		runner:  runner,
		timeout: 60 * time.Second,
		logger:  logging.NewLogger("remediator"),
	}
}

// OnCreateFailure implements Trigger. Errors are logged, never returned; the
// operation already failed and remediation cannot change that.
func (r *Remediator) OnCreateFailure(ctx context.Context, infra *interfaces.Infrastructure, op *interfaces.Operation, cause error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	advice, err := r.advisor.Diagnose(ctx, infra, op, cause)
	if err != nil {
		r.logger.Warnf("Advisor unavailable for operation %s: %v", op.ID, err)
		return
	}

	r.logger.Infof("Remediation advice for operation %s: %s", op.ID, advice.Summary)

	if r.runner == nil || len(advice.Commands) == 0 {
		return
	}
	for _, cmd := range advice.Commands {
		output, err := r.runner.Run(ctx, cmd)
		if err != nil {
			r.logger.Warnf("Diagnostic command failed (%s): %v", cmd, err)
			continue
		}
		r.logger.Debugf("Diagnostic output (%s): %s", cmd, output)
	}
}
