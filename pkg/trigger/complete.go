package trigger

import (
	"errors"

	"github.com/jdziat/simple-triggers/pkg/core"
)

// ExecutionComplete derives what the scheduler must do with the trigger after
// its job returned err. Signals carried by a *core.JobExecutionError win over
// the trigger's own exhaustion.
func (t *Trigger) ExecutionComplete(err error) core.CompletedExecutionInstruction {
	var jobErr *core.JobExecutionError
	if errors.As(err, &jobErr) {
		switch {
		case jobErr.RefireImmediately:
			return core.InstructionReExecuteJob
		case jobErr.UnscheduleFiringTrigger:
			return core.InstructionSetTriggerComplete
		case jobErr.UnscheduleAllTriggers:
			return core.InstructionSetAllJobTriggersComplete
		}
	}
	if !t.MayFireAgain() {
		return core.InstructionDeleteTrigger
	}
	return core.InstructionNoop
}
