package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-triggers/pkg/core"
	"github.com/jdziat/simple-triggers/pkg/trigger"
)

// jobTriggersFailure fails every TriggersForJob call with err.
type jobTriggersFailure struct {
	Store
	err error
}

func (f *jobTriggersFailure) TriggersForJob(context.Context, core.JobKey) ([]*trigger.Trigger, error) {
	return nil, f.err
}

func drainEvents(ch <-chan core.Event) []core.Event {
	var out []core.Event
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestComplete_ListingJobTriggersFails(t *testing.T) {
	ctx := context.Background()
	s, store := newTestScheduler(t)

	detail := jobDetail("j", "rec")
	tr := simpleTrigger(t, "t", time.Now().Add(time.Hour), trigger.RepeatIndefinitely, time.Minute)
	_, err := s.ScheduleJob(ctx, detail, tr)
	require.NoError(t, err)

	boom := errors.New("listing failed")
	s.store = &jobTriggersFailure{Store: store, err: boom}
	events := s.Listeners().Events()

	s.complete(ctx, outcome{
		firing: &firing{trigger: tr, detail: detail},
		instr:  core.InstructionSetAllJobTriggersComplete,
	})

	state, err := store.TriggerState(ctx, tr.Key())
	require.NoError(t, err)
	assert.Equal(t, core.StateNormal, state)

	var reported, finalized bool
	for _, e := range drainEvents(events) {
		switch e := e.(type) {
		case *core.SchedulerError:
			reported = reported || errors.Is(e.Err, boom)
		case *core.TriggerFinalized:
			finalized = true
		}
	}
	assert.True(t, reported)
	assert.False(t, finalized)
}

func TestRun_JobExecutedUsesClock(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	s, store := newTestScheduler(t, WithClock(func() time.Time { return fixed }))
	require.NoError(t, s.RegisterJob("rec", &recorder{}))

	tr := simpleTrigger(t, "once", fixed.Add(-time.Second), 0, 0)
	_, err := s.ScheduleJob(ctx, jobDetail("j", "rec"), tr)
	require.NoError(t, err)
	events := s.Listeners().Events()

	due, err := store.AcquireDueTriggers(ctx, fixed, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	f := s.prepareFiring(ctx, due[0], fixed)
	require.NotNil(t, f)
	s.run(ctx, f)

	var executed *core.JobExecuted
	for _, e := range drainEvents(events) {
		if je, ok := e.(*core.JobExecuted); ok {
			executed = je
		}
	}
	require.NotNil(t, executed)
	assert.True(t, fixed.Equal(executed.Timestamp), "timestamp %s", executed.Timestamp)
}
