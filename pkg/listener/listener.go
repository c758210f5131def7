package listener

import (
	"context"

	"github.com/jdziat/simple-triggers/pkg/core"
	"github.com/jdziat/simple-triggers/pkg/jobctx"
	"github.com/jdziat/simple-triggers/pkg/trigger"
)

// JobListener is notified around job runs.
type JobListener interface {
	Name() string
	JobToBeExecuted(ctx context.Context, ec *jobctx.ExecutionContext)
	JobExecutionVetoed(ctx context.Context, ec *jobctx.ExecutionContext)
	JobWasExecuted(ctx context.Context, ec *jobctx.ExecutionContext, err error)
}

// TriggerListener is notified when triggers fire, misfire and complete.
// Any listener returning true from VetoJobExecution prevents the run.
type TriggerListener interface {
	Name() string
	TriggerFired(ctx context.Context, t *trigger.Trigger, ec *jobctx.ExecutionContext)
	VetoJobExecution(ctx context.Context, t *trigger.Trigger, ec *jobctx.ExecutionContext) bool
	TriggerMisfired(ctx context.Context, t *trigger.Trigger)
	TriggerComplete(ctx context.Context, t *trigger.Trigger, ec *jobctx.ExecutionContext, instr core.CompletedExecutionInstruction)
}

// SchedulerListener is notified about registry changes and the scheduler lifecycle.
// Embed SchedulerListenerBase to implement only some of the methods.
type SchedulerListener interface {
	JobScheduled(t *trigger.Trigger)
	JobUnscheduled(key core.TriggerKey)
	TriggerFinalized(t *trigger.Trigger)
	TriggerPaused(key core.TriggerKey)
	TriggerResumed(key core.TriggerKey)
	JobAdded(detail *core.JobDetail)
	JobDeleted(key core.JobKey)
	JobPaused(key core.JobKey)
	JobResumed(key core.JobKey)
	SchedulerError(msg string, err error)
	SchedulerStarted()
	SchedulerShuttingDown()
	SchedulerShutdown()
	SchedulingDataCleared()
}

// JobListenerBase provides no-op JobListener methods for embedding.
type JobListenerBase struct{}

func (JobListenerBase) JobToBeExecuted(context.Context, *jobctx.ExecutionContext)           {}
func (JobListenerBase) JobExecutionVetoed(context.Context, *jobctx.ExecutionContext)        {}
func (JobListenerBase) JobWasExecuted(context.Context, *jobctx.ExecutionContext, error)     {}

// TriggerListenerBase provides no-op TriggerListener methods for embedding.
type TriggerListenerBase struct{}

func (TriggerListenerBase) TriggerFired(context.Context, *trigger.Trigger, *jobctx.ExecutionContext) {
}
func (TriggerListenerBase) VetoJobExecution(context.Context, *trigger.Trigger, *jobctx.ExecutionContext) bool {
	return false
}
func (TriggerListenerBase) TriggerMisfired(context.Context, *trigger.Trigger) {}
func (TriggerListenerBase) TriggerComplete(context.Context, *trigger.Trigger, *jobctx.ExecutionContext, core.CompletedExecutionInstruction) {
}

// SchedulerListenerBase provides no-op SchedulerListener methods for embedding.
type SchedulerListenerBase struct{}

func (SchedulerListenerBase) JobScheduled(*trigger.Trigger)     {}
func (SchedulerListenerBase) JobUnscheduled(core.TriggerKey)    {}
func (SchedulerListenerBase) TriggerFinalized(*trigger.Trigger) {}
func (SchedulerListenerBase) TriggerPaused(core.TriggerKey)     {}
func (SchedulerListenerBase) TriggerResumed(core.TriggerKey)    {}
func (SchedulerListenerBase) JobAdded(*core.JobDetail)          {}
func (SchedulerListenerBase) JobDeleted(core.JobKey)            {}
func (SchedulerListenerBase) JobPaused(core.JobKey)             {}
func (SchedulerListenerBase) JobResumed(core.JobKey)            {}
func (SchedulerListenerBase) SchedulerError(string, error)      {}
func (SchedulerListenerBase) SchedulerStarted()                 {}
func (SchedulerListenerBase) SchedulerShuttingDown()            {}
func (SchedulerListenerBase) SchedulerShutdown()                {}
func (SchedulerListenerBase) SchedulingDataCleared()            {}
