package jobctx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-triggers/pkg/core"
	"github.com/jdziat/simple-triggers/pkg/jobdata"
	"github.com/jdziat/simple-triggers/pkg/trigger"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func fired(t *testing.T) (*core.JobDetail, *trigger.Trigger) {
	t.Helper()
	detail := &core.JobDetail{
		Key:     core.MustJobKey("report", "ops"),
		JobType: "report",
		Data:    jobdata.FromMap(map[string]any{"to": "ops@example.com", "retries": 3}),
	}
	tr, err := trigger.NewSimple(core.MustTriggerKey("hourly", "ops"), start, 5, time.Hour)
	require.NoError(t, err)
	require.NoError(t, tr.SetJobKey(detail.Key))
	tr.JobData().Put("to", "dev@example.com")
	tr.SetFireInstanceID("fire-1")
	tr.ComputeFirstFireTime(nil)
	tr.Triggered(nil)
	return detail, tr
}

func TestNewExecutionContext(t *testing.T) {
	detail, tr := fired(t)
	ec := NewExecutionContext(detail, tr, start.Add(time.Second))

	to, err := ec.MergedData.String("to")
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", to, "trigger data wins")
	n, err := ec.MergedData.Int("retries")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.False(t, ec.MergedData.Dirty())

	assert.Equal(t, start, ec.ScheduledFireTime)
	assert.Equal(t, start.Add(time.Hour), ec.NextFireTime)
	assert.Equal(t, "fire-1", ec.FireInstanceID)
	assert.Equal(t, detail.Key, ec.JobKey())
	assert.Equal(t, tr.Key(), ec.TriggerKey())
	assert.Contains(t, ec.String(), "ops.hourly")

	ec.JobDetail.JobData().Put("to", "changed")
	orig, err := detail.JobData().String("to")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", orig)
}

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, FromContext(ctx))
	assert.Empty(t, FireInstanceIDFromContext(ctx))
	assert.True(t, JobKeyFromContext(ctx).IsZero())

	detail, tr := fired(t)
	ec := NewExecutionContext(detail, tr, start)
	ctx = WithExecution(ctx, ec)

	assert.Same(t, ec, FromContext(ctx))
	assert.Equal(t, "fire-1", FireInstanceIDFromContext(ctx))
	assert.Equal(t, detail.Key, JobKeyFromContext(ctx))
}

func TestJobFunc(t *testing.T) {
	var ran bool
	var job Job = JobFunc(func(ctx context.Context, ec *ExecutionContext) error {
		ran = true
		return core.UnscheduleTrigger(nil)
	})
	err := job.Execute(context.Background(), &ExecutionContext{})
	assert.True(t, ran)

	var jee *core.JobExecutionError
	assert.True(t, errors.As(err, &jee))
}

func TestTyped(t *testing.T) {
	type reportData struct {
		To      string `json:"to"`
		Retries int    `json:"retries"`
	}

	job, err := Typed(func(ctx context.Context, d reportData) (string, error) {
		return d.To + "/" + FireInstanceIDFromContext(ctx), nil
	})
	require.NoError(t, err)

	detail, tr := fired(t)
	ec := NewExecutionContext(detail, tr, start)
	require.NoError(t, job.Execute(WithExecution(context.Background(), ec), ec))
	assert.Equal(t, "dev@example.com/fire-1", ec.Result)

	_, err = Typed(42)
	assert.Error(t, err)
}
