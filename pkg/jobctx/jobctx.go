// Package jobctx defines the job contract and the context a job runs with.
package jobctx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jdziat/simple-triggers/pkg/core"
	"github.com/jdziat/simple-triggers/pkg/internal/handler"
	"github.com/jdziat/simple-triggers/pkg/jobdata"
	"github.com/jdziat/simple-triggers/pkg/trigger"
)

// Job is the unit of work a trigger fires.
//
// Returning a *core.JobExecutionError steers what happens to the firing
// trigger; any other error is logged and treated like success.
type Job interface {
	Execute(ctx context.Context, ec *ExecutionContext) error
}

// JobFunc adapts a function to Job.
type JobFunc func(ctx context.Context, ec *ExecutionContext) error

func (f JobFunc) Execute(ctx context.Context, ec *ExecutionContext) error {
	return f(ctx, ec)
}

// Typed adapts a plain function to Job. fn has the signature
// func(ctx context.Context, data T) error or func(ctx context.Context, data T) (R, error);
// the merged job data is decoded into T through JSON and R is stored as the
// run's Result.
func Typed(fn any) (Job, error) {
	h, err := handler.NewHandler(fn)
	if err != nil {
		return nil, err
	}
	return JobFunc(func(ctx context.Context, ec *ExecutionContext) error {
		var data []byte
		if h.ArgsType != nil && ec.MergedData != nil {
			b, err := json.Marshal(ec.MergedData.ToMap())
			if err != nil {
				return fmt.Errorf("marshal job data: %w", err)
			}
			data = b
		}
		res, err := h.Execute(ctx, data)
		if err != nil {
			return err
		}
		if h.HasResult {
			ec.Result = res
		}
		return nil
	}), nil
}

// ExecutionContext describes one run of a job.
type ExecutionContext struct {
	// Trigger and JobDetail are copies; changing them does not affect the schedule.
	Trigger   *trigger.Trigger
	JobDetail *core.JobDetail

	// MergedData is the job's data overlaid with the trigger's.
	MergedData *jobdata.Map

	FireTime          time.Time
	ScheduledFireTime time.Time
	PreviousFireTime  time.Time
	NextFireTime      time.Time
	FireInstanceID    string

	// RefireCount is how often this firing was re-executed on the job's request.
	RefireCount int
	Recovering  bool

	// Result may be set by the job for listeners to read.
	Result     any
	JobRunTime time.Duration
}

// NewExecutionContext builds the context for firing detail through t at fireTime.
// t must already have been advanced by Triggered.
func NewExecutionContext(detail *core.JobDetail, t *trigger.Trigger, fireTime time.Time) *ExecutionContext {
	merged := jobdata.New()
	if detail.Data != nil {
		merged.PutAll(detail.Data)
	}
	merged.PutAll(t.JobData())
	merged.ClearDirty()

	return &ExecutionContext{
		Trigger:           t.Duplicate(),
		JobDetail:         detail.Duplicate(),
		MergedData:        merged,
		FireTime:          fireTime,
		ScheduledFireTime: t.PreviousFireTime(),
		PreviousFireTime:  t.PreviousFireTime(),
		NextFireTime:      t.NextFireTime(),
		FireInstanceID:    t.FireInstanceID(),
	}
}

// JobKey returns the key of the running job.
func (ec *ExecutionContext) JobKey() core.JobKey { return ec.JobDetail.Key }

// TriggerKey returns the key of the firing trigger.
func (ec *ExecutionContext) TriggerKey() core.TriggerKey { return ec.Trigger.Key() }

func (ec *ExecutionContext) String() string {
	return fmt.Sprintf("JobExecutionContext: trigger: '%s' job: '%s' fireTime: '%s' scheduledFireTime: '%s' refireCount: %d",
		ec.Trigger.Key(), ec.JobDetail.Key, ec.FireTime.Format(time.RFC3339), ec.ScheduledFireTime.Format(time.RFC3339), ec.RefireCount)
}

type executionKey struct{}

// WithExecution returns a context carrying ec.
func WithExecution(ctx context.Context, ec *ExecutionContext) context.Context {
	return context.WithValue(ctx, executionKey{}, ec)
}

// FromContext returns the execution context of the running job, or nil if not in a job.
func FromContext(ctx context.Context) *ExecutionContext {
	if ec, ok := ctx.Value(executionKey{}).(*ExecutionContext); ok {
		return ec
	}
	return nil
}

// FireInstanceIDFromContext returns the fire instance id of the running job,
// or empty string if not in a job.
func FireInstanceIDFromContext(ctx context.Context) string {
	ec := FromContext(ctx)
	if ec == nil {
		return ""
	}
	return ec.FireInstanceID
}

// JobKeyFromContext returns the key of the running job, or the zero key.
func JobKeyFromContext(ctx context.Context) core.JobKey {
	ec := FromContext(ctx)
	if ec == nil || ec.JobDetail == nil {
		return core.JobKey{}
	}
	return ec.JobDetail.Key
}
