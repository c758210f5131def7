package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jdziat/simple-triggers/pkg/core"
	"github.com/jdziat/simple-triggers/pkg/jobctx"
	"github.com/jdziat/simple-triggers/pkg/jobdata"
	"github.com/jdziat/simple-triggers/pkg/listener"
	"github.com/jdziat/simple-triggers/pkg/security"
	"github.com/jdziat/simple-triggers/pkg/trigger"
)

// ManualTriggerGroup is the group of the one-shot triggers TriggerJob creates.
const ManualTriggerGroup = "MANUAL_TRIGGER"

// Scheduler fires triggers stored in a Store.
type Scheduler struct {
	store     Store
	config    Config
	logger    *slog.Logger
	listeners *listener.Manager

	mu        sync.RWMutex
	jobs      map[string]jobctx.Job
	calendars map[string]core.Calendar
	running   map[core.JobKey]int // in-flight runs of jobs that disallow concurrency
	started   bool

	triggerLocks triggerLocks

	wake chan struct{}
}

// New creates a scheduler over store.
func New(store Store, opts ...Option) (*Scheduler, error) {
	if store == nil {
		return nil, errors.New("triggers: store cannot be nil")
	}
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger.With("scheduler", cfg.InstanceID)
	return &Scheduler{
		store:     store,
		config:    cfg,
		logger:    logger,
		listeners: listener.NewManager(logger),
		jobs:      make(map[string]jobctx.Job),
		calendars: make(map[string]core.Calendar),
		running:   make(map[core.JobKey]int),
		wake:      make(chan struct{}, 1),
	}, nil
}

// Config returns the effective configuration.
func (s *Scheduler) Config() Config { return s.config }

// Listeners returns the listener registry.
func (s *Scheduler) Listeners() *listener.Manager { return s.listeners }

// Store returns the backing store.
func (s *Scheduler) Store() Store { return s.store }

func (s *Scheduler) now() time.Time { return s.config.Clock() }

// signal wakes the dispatch loop so newly scheduled triggers are seen before
// the next poll.
func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// --- Job implementations ---

// RegisterJob binds jobType, the JobType of stored job details, to an
// implementation. Registering the same type again replaces it.
func (s *Scheduler) RegisterJob(jobType string, job jobctx.Job) error {
	if err := security.ValidateJobTypeName(jobType); err != nil {
		return err
	}
	if job == nil {
		return ErrNilJob
	}
	s.mu.Lock()
	s.jobs[jobType] = job
	s.mu.Unlock()
	return nil
}

// RegisterFunc registers a plain function, see jobctx.Typed.
func (s *Scheduler) RegisterFunc(jobType string, fn any) error {
	job, err := jobctx.Typed(fn)
	if err != nil {
		return err
	}
	return s.RegisterJob(jobType, job)
}

func (s *Scheduler) job(jobType string) (jobctx.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobType]
	return j, ok
}

// --- Calendars ---

// AddCalendar registers cal under name. With updateTriggers, triggers already
// using the calendar have their next fire time recomputed against it.
func (s *Scheduler) AddCalendar(ctx context.Context, name string, cal core.Calendar, replace, updateTriggers bool) error {
	if err := security.ValidateCalendarName(name); err != nil {
		return err
	}
	if cal == nil {
		return fmt.Errorf("triggers: calendar %q cannot be nil", name)
	}
	s.mu.Lock()
	if _, ok := s.calendars[name]; ok && !replace {
		s.mu.Unlock()
		return fmt.Errorf("%w: calendar %s", core.ErrObjectAlreadyExists, name)
	}
	s.calendars[name] = cal
	s.mu.Unlock()

	if !updateTriggers {
		return nil
	}
	ts, err := s.store.TriggersForCalendar(ctx, name)
	if err != nil {
		return err
	}
	now := s.now()
	for _, t := range ts {
		if err := s.recalculate(ctx, t.Key(), name, cal, now); err != nil {
			return err
		}
	}
	s.signal()
	return nil
}

// recalculate reloads a trigger under its lock and recomputes its next fire
// time against cal. Triggers removed or moved off the calendar since they
// were listed are skipped.
func (s *Scheduler) recalculate(ctx context.Context, key core.TriggerKey, name string, cal core.Calendar, now time.Time) error {
	unlock := s.triggerLocks.lock(key)
	defer unlock()
	t, err := s.store.RetrieveTrigger(ctx, key)
	if errors.Is(err, core.ErrTriggerNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if t.CalendarName() != name {
		return nil
	}
	t.UpdateWithNewCalendar(cal, s.config.MisfireThreshold, now)
	return s.store.UpdateTrigger(ctx, t)
}

// DeleteCalendar removes a calendar no trigger references.
func (s *Scheduler) DeleteCalendar(ctx context.Context, name string) (bool, error) {
	ts, err := s.store.TriggersForCalendar(ctx, name)
	if err != nil {
		return false, err
	}
	if len(ts) > 0 {
		return false, fmt.Errorf("%w: %s is used by %d trigger(s)", ErrCalendarInUse, name, len(ts))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.calendars[name]
	delete(s.calendars, name)
	return ok, nil
}

// Calendar returns the named calendar or nil.
func (s *Scheduler) Calendar(name string) core.Calendar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calendars[name]
}

// CalendarNames lists registered calendars in name order.
func (s *Scheduler) CalendarNames() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.calendars))
	for n := range s.calendars {
		names = append(names, n)
	}
	s.mu.RUnlock()
	slices.Sort(names)
	return names
}

// calendarFor resolves a trigger's calendar. A trigger without one gets nil.
func (s *Scheduler) calendarFor(t *trigger.Trigger) (core.Calendar, error) {
	name := t.CalendarName()
	if name == "" {
		return nil, nil
	}
	cal := s.Calendar(name)
	if cal == nil {
		return nil, fmt.Errorf("%w: %s (trigger %s)", ErrCalendarNotDefined, name, t.Key())
	}
	return cal, nil
}

// --- Scheduling ---

// prepare validates t and computes its first fire time.
func (s *Scheduler) prepare(t *trigger.Trigger) (time.Time, error) {
	if err := t.Validate(); err != nil {
		return time.Time{}, err
	}
	cal, err := s.calendarFor(t)
	if err != nil {
		return time.Time{}, err
	}
	first := t.ComputeFirstFireTime(cal)
	if first.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %s", ErrWillNeverFire, t.Key())
	}
	return first, nil
}

// initialState is NORMAL, or BLOCKED while a job that disallows concurrency runs.
func (s *Scheduler) initialState(key core.JobKey) core.TriggerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.running[key] > 0 {
		return core.StateBlocked
	}
	return core.StateNormal
}

// ScheduleJob stores a new job and a trigger for it, returning the first fire
// time. A trigger without a job key is pointed at detail.
func (s *Scheduler) ScheduleJob(ctx context.Context, detail *core.JobDetail, t *trigger.Trigger) (time.Time, error) {
	if err := detail.Validate(); err != nil {
		return time.Time{}, err
	}
	if t.JobKey().IsZero() {
		if err := t.SetJobKey(detail.Key); err != nil {
			return time.Time{}, err
		}
	} else if t.JobKey() != detail.Key {
		return time.Time{}, fmt.Errorf("%w: %s points at %s, not %s", ErrJobMismatch, t.Key(), t.JobKey(), detail.Key)
	}
	first, err := s.prepare(t)
	if err != nil {
		return time.Time{}, err
	}
	if err := s.store.StoreJobAndTrigger(ctx, detail, t, core.StateNormal); err != nil {
		return time.Time{}, err
	}
	s.listeners.NotifyScheduler(func(l listener.SchedulerListener) { l.JobAdded(detail) })
	s.listeners.NotifyScheduler(func(l listener.SchedulerListener) { l.JobScheduled(t) })
	s.signal()
	return first, nil
}

// ScheduleTrigger stores a trigger for an already stored job.
func (s *Scheduler) ScheduleTrigger(ctx context.Context, t *trigger.Trigger) (time.Time, error) {
	first, err := s.prepare(t)
	if err != nil {
		return time.Time{}, err
	}
	if err := s.store.StoreTrigger(ctx, t, s.initialState(t.JobKey()), false); err != nil {
		return time.Time{}, err
	}
	s.listeners.NotifyScheduler(func(l listener.SchedulerListener) { l.JobScheduled(t) })
	s.signal()
	return first, nil
}

// AddJob stores a job without scheduling it. Only durable jobs may exist
// without triggers; a non-durable job can only replace one that has some.
func (s *Scheduler) AddJob(ctx context.Context, detail *core.JobDetail, replace bool) error {
	if !detail.Durable {
		ts, err := s.store.TriggersForJob(ctx, detail.Key)
		if err != nil {
			return err
		}
		if !replace || len(ts) == 0 {
			return fmt.Errorf("%w: %s", ErrJobNotDurable, detail.Key)
		}
	}
	if err := s.store.StoreJob(ctx, detail, replace); err != nil {
		return err
	}
	s.listeners.NotifyScheduler(func(l listener.SchedulerListener) { l.JobAdded(detail) })
	return nil
}

// Unschedule removes a trigger. A non-durable job left without triggers is
// removed with it.
func (s *Scheduler) Unschedule(ctx context.Context, key core.TriggerKey) (bool, error) {
	unlock := s.triggerLocks.lock(key)
	removed, err := s.store.RemoveTrigger(ctx, key)
	unlock()
	if err != nil || !removed {
		return removed, err
	}
	s.listeners.NotifyScheduler(func(l listener.SchedulerListener) { l.JobUnscheduled(key) })
	return true, nil
}

// Reschedule replaces the trigger stored under key with t, which fires the
// same job. It returns t's first fire time.
func (s *Scheduler) Reschedule(ctx context.Context, key core.TriggerKey, t *trigger.Trigger) (time.Time, error) {
	first, err := s.replace(ctx, key, t)
	if err != nil {
		return time.Time{}, err
	}
	s.listeners.NotifyScheduler(func(l listener.SchedulerListener) { l.JobUnscheduled(key) })
	s.listeners.NotifyScheduler(func(l listener.SchedulerListener) { l.JobScheduled(t) })
	s.signal()
	return first, nil
}

func (s *Scheduler) replace(ctx context.Context, key core.TriggerKey, t *trigger.Trigger) (time.Time, error) {
	unlock := s.triggerLocks.lock(key, t.Key())
	defer unlock()
	old, err := s.store.RetrieveTrigger(ctx, key)
	if err != nil {
		return time.Time{}, err
	}
	if err := t.SetJobKey(old.JobKey()); err != nil {
		return time.Time{}, err
	}
	first, err := s.prepare(t)
	if err != nil {
		return time.Time{}, err
	}
	if err := s.store.ReplaceTrigger(ctx, key, t, s.initialState(t.JobKey())); err != nil {
		return time.Time{}, err
	}
	return first, nil
}

// DeleteJob removes a job and all its triggers.
func (s *Scheduler) DeleteJob(ctx context.Context, key core.JobKey) (bool, error) {
	ts, err := s.store.TriggersForJob(ctx, key)
	if err != nil {
		return false, err
	}
	removed, err := s.store.RemoveJob(ctx, key)
	if err != nil || !removed {
		return removed, err
	}
	for _, t := range ts {
		tk := t.Key()
		s.listeners.NotifyScheduler(func(l listener.SchedulerListener) { l.JobUnscheduled(tk) })
	}
	s.listeners.NotifyScheduler(func(l listener.SchedulerListener) { l.JobDeleted(key) })
	return true, nil
}

// TriggerJob fires a stored job now with a one-shot trigger. data, if not
// nil, becomes the trigger's job data.
func (s *Scheduler) TriggerJob(ctx context.Context, key core.JobKey, data *jobdata.Map) error {
	ok, err := s.store.CheckJobExists(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrJobNotFound, key)
	}
	tk, err := core.NewTriggerKey(core.UniqueName(ManualTriggerGroup), ManualTriggerGroup)
	if err != nil {
		return err
	}
	t, err := trigger.NewSimple(tk, s.now(), 0, 0)
	if err != nil {
		return err
	}
	if err := t.SetJobKey(key); err != nil {
		return err
	}
	if data != nil {
		t.SetJobData(data.Duplicate())
	}
	_, err = s.ScheduleTrigger(ctx, t)
	return err
}

// --- States ---

// TriggerState returns the trigger's state, core.StateNone if it is not stored.
func (s *Scheduler) TriggerState(ctx context.Context, key core.TriggerKey) (core.TriggerState, error) {
	return s.store.TriggerState(ctx, key)
}

// PauseTrigger stops a trigger from firing until it is resumed.
// Completed and errored triggers are left alone.
func (s *Scheduler) PauseTrigger(ctx context.Context, key core.TriggerKey) error {
	paused, err := s.transition(ctx, key, func(state core.TriggerState) (core.TriggerState, bool, error) {
		switch state {
		case core.StateNone:
			return "", false, fmt.Errorf("%w: %s", core.ErrTriggerNotFound, key)
		case core.StateNormal, core.StateBlocked:
			return core.StatePaused, true, nil
		}
		return "", false, nil
	})
	if err != nil || !paused {
		return err
	}
	s.listeners.NotifyScheduler(func(l listener.SchedulerListener) { l.TriggerPaused(key) })
	return nil
}

// ResumeTrigger lets a paused trigger fire again. Fire times missed while
// paused are handled by its misfire instruction.
func (s *Scheduler) ResumeTrigger(ctx context.Context, key core.TriggerKey) error {
	resumed, err := s.restore(ctx, key, core.StatePaused)
	if err != nil || !resumed {
		return err
	}
	s.listeners.NotifyScheduler(func(l listener.SchedulerListener) { l.TriggerResumed(key) })
	s.signal()
	return nil
}

// PauseJob pauses every trigger of the job.
func (s *Scheduler) PauseJob(ctx context.Context, key core.JobKey) error {
	ts, err := s.store.TriggersForJob(ctx, key)
	if err != nil {
		return err
	}
	for _, t := range ts {
		if err := s.PauseTrigger(ctx, t.Key()); err != nil {
			return err
		}
	}
	s.listeners.NotifyScheduler(func(l listener.SchedulerListener) { l.JobPaused(key) })
	return nil
}

// ResumeJob resumes every trigger of the job.
func (s *Scheduler) ResumeJob(ctx context.Context, key core.JobKey) error {
	ts, err := s.store.TriggersForJob(ctx, key)
	if err != nil {
		return err
	}
	for _, t := range ts {
		if err := s.ResumeTrigger(ctx, t.Key()); err != nil {
			return err
		}
	}
	s.listeners.NotifyScheduler(func(l listener.SchedulerListener) { l.JobResumed(key) })
	return nil
}

// ResetTriggerFromErrorState returns an errored trigger to NORMAL, or to
// BLOCKED while its job is running.
func (s *Scheduler) ResetTriggerFromErrorState(ctx context.Context, key core.TriggerKey) error {
	reset, err := s.restore(ctx, key, core.StateError)
	if err == nil && reset {
		s.signal()
	}
	return err
}

// restore moves a trigger in state from back to NORMAL, or to BLOCKED while
// its job is running. It fails when the trigger is not stored.
func (s *Scheduler) restore(ctx context.Context, key core.TriggerKey, from core.TriggerState) (bool, error) {
	t, err := s.store.RetrieveTrigger(ctx, key)
	if err != nil {
		return false, err
	}
	return s.transition(ctx, key, func(state core.TriggerState) (core.TriggerState, bool, error) {
		if state != from {
			return "", false, nil
		}
		return s.initialState(t.JobKey()), true, nil
	})
}

// transition reads the state of key and writes the state next picks, both
// under the trigger lock. It reports whether a state was written.
func (s *Scheduler) transition(ctx context.Context, key core.TriggerKey, next func(core.TriggerState) (core.TriggerState, bool, error)) (bool, error) {
	unlock := s.triggerLocks.lock(key)
	defer unlock()
	state, err := s.store.TriggerState(ctx, key)
	if err != nil {
		return false, err
	}
	to, ok, err := next(state)
	if err != nil || !ok {
		return false, err
	}
	return true, s.store.SetTriggerState(ctx, key, to)
}

// --- Lookups ---

func (s *Scheduler) JobDetail(ctx context.Context, key core.JobKey) (*core.JobDetail, error) {
	return s.store.RetrieveJob(ctx, key)
}

func (s *Scheduler) Trigger(ctx context.Context, key core.TriggerKey) (*trigger.Trigger, error) {
	return s.store.RetrieveTrigger(ctx, key)
}

func (s *Scheduler) TriggersOfJob(ctx context.Context, key core.JobKey) ([]*trigger.Trigger, error) {
	return s.store.TriggersForJob(ctx, key)
}

// JobKeys lists jobs in group, or all jobs for an empty group.
func (s *Scheduler) JobKeys(ctx context.Context, group string) ([]core.JobKey, error) {
	return s.store.JobKeys(ctx, group)
}

// TriggerKeys lists triggers in group, or all triggers for an empty group.
func (s *Scheduler) TriggerKeys(ctx context.Context, group string) ([]core.TriggerKey, error) {
	return s.store.TriggerKeys(ctx, group)
}

// Clear deletes all jobs, triggers and calendars.
func (s *Scheduler) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	clear(s.calendars)
	s.mu.Unlock()
	s.listeners.NotifyScheduler(func(l listener.SchedulerListener) { l.SchedulingDataCleared() })
	return nil
}
