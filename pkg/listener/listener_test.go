package listener

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-triggers/pkg/core"
	"github.com/jdziat/simple-triggers/pkg/jobctx"
	"github.com/jdziat/simple-triggers/pkg/trigger"
)

type recordingJobListener struct {
	JobListenerBase
	name string
	seen []string
}

func (l *recordingJobListener) Name() string { return l.name }

func (l *recordingJobListener) JobToBeExecuted(_ context.Context, ec *jobctx.ExecutionContext) {
	l.seen = append(l.seen, "to-be-executed:"+ec.JobKey().String())
}

func (l *recordingJobListener) JobWasExecuted(_ context.Context, ec *jobctx.ExecutionContext, err error) {
	l.seen = append(l.seen, "was-executed:"+ec.JobKey().String())
}

type vetoingTriggerListener struct {
	TriggerListenerBase
	name  string
	veto  bool
	fired int
}

func (l *vetoingTriggerListener) Name() string { return l.name }

func (l *vetoingTriggerListener) TriggerFired(context.Context, *trigger.Trigger, *jobctx.ExecutionContext) {
	l.fired++
}

func (l *vetoingTriggerListener) VetoJobExecution(context.Context, *trigger.Trigger, *jobctx.ExecutionContext) bool {
	return l.veto
}

type panickingTriggerListener struct {
	TriggerListenerBase
}

func (panickingTriggerListener) Name() string { return "panics" }
func (panickingTriggerListener) TriggerMisfired(context.Context, *trigger.Trigger) {
	panic("boom")
}

type countingSchedulerListener struct {
	SchedulerListenerBase
	started int
}

func (l *countingSchedulerListener) SchedulerStarted() { l.started++ }

func execution(t *testing.T, job, group string) (*trigger.Trigger, *jobctx.ExecutionContext) {
	t.Helper()
	detail := &core.JobDetail{Key: core.MustJobKey(job, group), JobType: "noop"}
	tr, err := trigger.NewSimple(core.MustTriggerKey(job+"-trigger", group), time.Now(), 0, 0)
	require.NoError(t, err)
	require.NoError(t, tr.SetJobKey(detail.Key))
	tr.ComputeFirstFireTime(nil)
	return tr, jobctx.NewExecutionContext(detail, tr, time.Now())
}

func TestMatchers(t *testing.T) {
	k := core.MustJobKey("nightly-report", "reports.finance")

	assert.True(t, AllJobs().IsMatch(k))
	assert.True(t, KeyEquals(k).IsMatch(k))
	assert.False(t, KeyEquals(core.MustJobKey("nightly-report", "")).IsMatch(k))
	assert.True(t, GroupEquals[core.JobKey]("reports.finance").IsMatch(k))
	assert.True(t, GroupStartsWith[core.JobKey]("reports.").IsMatch(k))
	assert.True(t, GroupEndsWith[core.JobKey](".finance").IsMatch(k))
	assert.True(t, GroupContains[core.JobKey]("fin").IsMatch(k))
	assert.True(t, NameEquals[core.JobKey]("nightly-report").IsMatch(k))
	assert.True(t, NameStartsWith[core.JobKey]("nightly").IsMatch(k))

	assert.True(t, Or(GroupEquals[core.JobKey]("x"), NameEquals[core.JobKey]("nightly-report")).IsMatch(k))
	assert.False(t, And(GroupEquals[core.JobKey]("x"), NameEquals[core.JobKey]("nightly-report")).IsMatch(k))
	assert.True(t, Not(GroupEquals[core.JobKey]("x")).IsMatch(k))
}

func TestManager_JobListeners(t *testing.T) {
	m := NewManager(nil)
	reports := &recordingJobListener{name: "reports"}
	all := &recordingJobListener{name: "all"}

	assert.ErrorIs(t, m.AddJobListener(&recordingJobListener{}), ErrEmptyListenerName)
	require.NoError(t, m.AddJobListener(reports, GroupEquals[core.JobKey]("reports")))
	require.NoError(t, m.AddJobListener(all))

	_, ec := execution(t, "daily", "reports")
	m.NotifyJobToBeExecuted(context.Background(), ec)
	_, other := execution(t, "cleanup", "ops")
	m.NotifyJobWasExecuted(context.Background(), other, nil)

	assert.Equal(t, []string{"to-be-executed:reports.daily"}, reports.seen)
	assert.Equal(t, []string{"to-be-executed:reports.daily", "was-executed:ops.cleanup"}, all.seen)

	assert.Equal(t, []JobListener{reports, all}, m.JobListeners())
	assert.Same(t, reports, m.JobListener("reports"))
	assert.Nil(t, m.JobListener("missing"))
}

func TestManager_JobListenerMatchers(t *testing.T) {
	m := NewManager(nil)
	l := &recordingJobListener{name: "l"}
	require.NoError(t, m.AddJobListener(l, GroupEquals[core.JobKey]("a")))

	assert.True(t, m.AddJobListenerMatcher("l", GroupEquals[core.JobKey]("b")))
	assert.False(t, m.AddJobListenerMatcher("missing", AllJobs()))
	assert.Len(t, m.JobListenerMatchers("l"), 2)

	assert.True(t, m.RemoveJobListenerMatcher("l", GroupEquals[core.JobKey]("a")))
	assert.False(t, m.RemoveJobListenerMatcher("l", GroupEquals[core.JobKey]("zzz")))
	assert.Equal(t, []Matcher[core.JobKey]{GroupEquals[core.JobKey]("b")}, m.JobListenerMatchers("l"))

	assert.False(t, m.SetJobListenerMatchers("l", nil))
	assert.True(t, m.SetJobListenerMatchers("l", []Matcher[core.JobKey]{AllJobs()}))
	assert.Equal(t, []Matcher[core.JobKey]{AllJobs()}, m.JobListenerMatchers("l"))

	assert.True(t, m.RemoveJobListener("l"))
	assert.False(t, m.RemoveJobListener("l"))
	assert.Nil(t, m.JobListenerMatchers("l"))
}

func TestManager_TriggerVeto(t *testing.T) {
	m := NewManager(nil)
	quiet := &vetoingTriggerListener{name: "quiet"}
	veto := &vetoingTriggerListener{name: "veto", veto: true}
	require.NoError(t, m.AddTriggerListener(quiet))
	require.NoError(t, m.AddTriggerListener(veto, GroupEquals[core.TriggerKey]("guarded")))

	tr, ec := execution(t, "job", "open")
	assert.False(t, m.NotifyTriggerFired(context.Background(), tr, ec))

	tr, ec = execution(t, "job", "guarded")
	assert.True(t, m.NotifyTriggerFired(context.Background(), tr, ec))

	assert.Equal(t, 2, quiet.fired)
	assert.Equal(t, 1, veto.fired)

	replacement := &vetoingTriggerListener{name: "veto"}
	require.NoError(t, m.AddTriggerListener(replacement))
	assert.Len(t, m.TriggerListeners(), 2)
	assert.Same(t, replacement, m.TriggerListener("veto"))
	assert.True(t, m.RemoveTriggerListener("veto"))
}

func TestManager_ListenerPanicIsContained(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.AddTriggerListener(panickingTriggerListener{}))
	tr, _ := execution(t, "job", "")

	assert.NotPanics(t, func() { m.NotifyTriggerMisfired(context.Background(), tr) })
}

func TestManager_SchedulerListeners(t *testing.T) {
	m := NewManager(nil)
	l := &countingSchedulerListener{}
	m.AddSchedulerListener(l)

	m.NotifyScheduler(func(sl SchedulerListener) { sl.SchedulerStarted() })
	assert.Equal(t, 1, l.started)

	assert.True(t, m.RemoveSchedulerListener(l))
	assert.False(t, m.RemoveSchedulerListener(l))
	assert.Empty(t, m.SchedulerListeners())
}

func TestManager_Events(t *testing.T) {
	m := NewManager(nil)
	ch := m.Events()
	defer m.Unsubscribe(ch)

	m.Emit(&core.TriggerFinalized{Trigger: core.MustTriggerKey("t", ""), Timestamp: time.Now()})

	select {
	case e := <-ch:
		_, ok := e.(*core.TriggerFinalized)
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("expected event")
	}

	m.Unsubscribe(ch)
	m.Emit(&core.TriggerFinalized{})
	assert.Empty(t, ch)
}
