package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jdziat/simple-triggers/pkg/core"
	"github.com/jdziat/simple-triggers/pkg/jobctx"
	"github.com/jdziat/simple-triggers/pkg/listener"
	"github.com/jdziat/simple-triggers/pkg/security"
	"github.com/jdziat/simple-triggers/pkg/trigger"
)

// minWait keeps the loop from spinning when due triggers cannot be dispatched.
const minWait = 10 * time.Millisecond

// firing is one execution handed from the loop to a worker. The worker owns
// it until it sends the outcome back.
type firing struct {
	trigger *trigger.Trigger
	detail  *core.JobDetail
	job     jobctx.Job
	ec      *jobctx.ExecutionContext
}

type outcome struct {
	*firing
	instr core.CompletedExecutionInstruction
	err   error
}

// Start runs the dispatch loop and the worker pool. It blocks until ctx is
// cancelled, then shuts down according to the configured ShutdownMode and
// returns ctx.Err().
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
	}()

	// Store writes made while shutting down must outlive ctx.
	storeCtx := context.WithoutCancel(ctx)
	jobCtx, cancelJobs := context.WithCancel(storeCtx)
	defer cancelJobs()

	workers := s.config.Workers
	work := make(chan *firing, workers)
	done := make(chan outcome, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range work {
				done <- s.run(jobCtx, f)
			}
		}()
	}

	s.logger.Info("scheduler started", "workers", workers, "poll_interval", s.config.PollInterval)
	s.listeners.NotifyScheduler(func(l listener.SchedulerListener) { l.SchedulerStarted() })

	inFlight := 0
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shutting down", "mode", s.config.ShutdownMode, "in_flight", inFlight)
			s.listeners.NotifyScheduler(func(l listener.SchedulerListener) { l.SchedulerShuttingDown() })
			if s.config.ShutdownMode == core.ShutdownAggressive {
				cancelJobs()
			}
			close(work)
			go func() {
				wg.Wait()
				close(done)
			}()
			for o := range done {
				s.complete(storeCtx, o)
			}
			s.logger.Info("scheduler shut down")
			s.listeners.NotifyScheduler(func(l listener.SchedulerListener) { l.SchedulerShutdown() })
			return ctx.Err()
		case o := <-done:
			inFlight--
			s.complete(storeCtx, o)
		case <-s.wake:
		case <-timer.C:
		}

		wait := s.config.PollInterval
		if free := workers - inFlight; free > 0 {
			inFlight += s.dispatch(ctx, work, free)
			if inFlight < workers {
				wait = s.idleWait(ctx)
			}
		}
		timer.Reset(wait)
	}
}

// idleWait returns how long to sleep until the next trigger is due, capped
// by the poll interval.
func (s *Scheduler) idleWait(ctx context.Context) time.Duration {
	wait := s.config.PollInterval
	next, err := s.store.NextFireTime(ctx)
	if err != nil || next.IsZero() {
		return wait
	}
	if d := next.Sub(s.now()); d < wait {
		wait = max(d, minWait)
	}
	return wait
}

// dispatch acquires up to free due triggers and hands them to workers.
// It returns the number handed over.
func (s *Scheduler) dispatch(ctx context.Context, work chan<- *firing, free int) int {
	now := s.now()
	var due []*trigger.Trigger
	err := retryWithBackoff(ctx, s.config.StoreRetry, func() error {
		var err error
		due, err = s.store.AcquireDueTriggers(ctx, now, min(free, s.config.BatchSize))
		return err
	})
	if err != nil {
		if ctx.Err() == nil {
			s.reportError("failed to acquire due triggers", err)
		}
		return 0
	}

	n := 0
	for _, t := range due {
		if ctx.Err() != nil {
			break
		}
		if f := s.prepareFiring(ctx, t, now); f != nil {
			work <- f
			n++
		}
	}
	return n
}

func (s *Scheduler) misfired(t *trigger.Trigger, now time.Time) bool {
	if t.MisfireInstruction() == trigger.MisfireIgnorePolicy {
		return false
	}
	return !t.NextFireTime().After(now.Add(-s.config.MisfireThreshold))
}

// prepareFiring handles misfires and advances the acquired trigger. It
// returns nil when the trigger should not fire now.
//
// The trigger is reloaded under its lock, so a copy that was rescheduled,
// paused or recomputed since it was acquired never overwrites the newer row.
func (s *Scheduler) prepareFiring(ctx context.Context, acquired *trigger.Trigger, now time.Time) *firing {
	unlock := s.triggerLocks.lock(acquired.Key())
	defer unlock()

	t, ok := s.reloadDue(ctx, acquired.Key(), now)
	if !ok {
		return nil
	}
	cal, err := s.calendarFor(t)
	if err != nil {
		s.setError(ctx, t.Key(), err)
		return nil
	}
	if s.misfired(t, now) && !s.applyMisfire(ctx, t, cal, now) {
		return nil
	}

	detail, err := s.store.RetrieveJob(ctx, t.JobKey())
	if err != nil {
		s.setError(ctx, t.Key(), err)
		return nil
	}
	job, ok := s.job(detail.JobType)
	if !ok {
		s.reportError("cannot fire trigger", fmt.Errorf("%w: %q (job %s)", ErrJobNotRegistered, detail.JobType, detail.Key))
		s.retry(ctx, func() error {
			_, err := s.store.SetJobTriggersState(ctx, detail.Key, core.StateError)
			return err
		})
		return nil
	}

	exclusive := detail.ConcurrentExecutionDisallowed
	if exclusive && !s.acquireExclusive(detail.Key) {
		s.retry(ctx, func() error { return s.store.SetTriggerState(ctx, t.Key(), core.StateBlocked) })
		return nil
	}

	t.SetFireInstanceID(uuid.New().String())
	t.Triggered(cal)
	ec := jobctx.NewExecutionContext(detail, t, now)
	if err := s.retry(ctx, func() error { return s.store.UpdateTrigger(ctx, t) }); err != nil {
		if exclusive {
			s.releaseExclusive(detail.Key)
		}
		return nil
	}
	if exclusive {
		s.retry(ctx, func() error {
			_, err := s.store.SetJobTriggersState(ctx, detail.Key, core.StateBlocked, core.StateNormal)
			return err
		})
	}

	s.logger.Debug("trigger fired", "trigger", t.Key().String(), "job", detail.Key.String(),
		"scheduled", ec.ScheduledFireTime, "next", t.NextFireTime())
	s.listeners.Emit(&core.TriggerFired{
		Trigger:           t.Key(),
		Job:               detail.Key,
		FireInstanceID:    ec.FireInstanceID,
		ScheduledFireTime: ec.ScheduledFireTime,
		Timestamp:         now,
	})
	return &firing{trigger: t, detail: detail, job: job, ec: ec}
}

// reloadDue returns the stored trigger when it is still NORMAL and due.
func (s *Scheduler) reloadDue(ctx context.Context, key core.TriggerKey, now time.Time) (*trigger.Trigger, bool) {
	t, err := s.store.RetrieveTrigger(ctx, key)
	if errors.Is(err, core.ErrTriggerNotFound) {
		return nil, false
	}
	if err != nil {
		s.reportError("failed to reload acquired trigger", err)
		return nil, false
	}
	state, err := s.store.TriggerState(ctx, key)
	if err != nil {
		s.reportError("failed to reload acquired trigger", err)
		return nil, false
	}
	if !state.Dispatchable() || t.NextFireTime().IsZero() || t.NextFireTime().After(now) {
		s.logger.Debug("acquired trigger changed before firing", "trigger", key.String(), "state", state)
		return nil, false
	}
	return t, true
}

// applyMisfire runs t's misfire instruction and persists the result. It
// reports whether t is due right away.
func (s *Scheduler) applyMisfire(ctx context.Context, t *trigger.Trigger, cal core.Calendar, now time.Time) bool {
	missed := t.NextFireTime()
	if err := t.UpdateAfterMisfire(cal, now); err != nil {
		s.setError(ctx, t.Key(), err)
		return false
	}
	s.logger.Info("trigger misfired", "trigger", t.Key().String(), "missed", missed,
		"instruction", t.MisfireInstruction().String(), "next", t.NextFireTime())
	s.listeners.NotifyTriggerMisfired(ctx, t)
	s.listeners.Emit(&core.TriggerMisfired{
		Trigger:        t.Key(),
		MissedFireTime: missed,
		NextFireTime:   t.NextFireTime(),
		Timestamp:      now,
	})

	if err := s.retry(ctx, func() error { return s.store.UpdateTrigger(ctx, t) }); err != nil {
		return false
	}
	if t.NextFireTime().IsZero() {
		if s.retry(ctx, func() error { return s.store.SetTriggerState(ctx, t.Key(), core.StateComplete) }) == nil {
			s.finalized(t)
		}
		return false
	}
	return !t.NextFireTime().After(now)
}

// run executes one firing on a worker goroutine.
func (s *Scheduler) run(ctx context.Context, f *firing) outcome {
	ec := f.ec
	ctx = jobctx.WithExecution(ctx, ec)

	if s.listeners.NotifyTriggerFired(ctx, f.trigger, ec) {
		s.logger.Debug("job execution vetoed", "trigger", f.trigger.Key().String(), "job", f.detail.Key.String())
		s.listeners.NotifyJobExecutionVetoed(ctx, ec)
		return outcome{firing: f, instr: f.trigger.ExecutionComplete(nil)}
	}

	for {
		s.listeners.NotifyJobToBeExecuted(ctx, ec)
		start := time.Now()
		err := s.execute(ctx, f.job, ec)
		ec.JobRunTime = time.Since(start)
		if err != nil {
			s.logger.Warn("job returned an error",
				"job", f.detail.Key.String(),
				"trigger", f.trigger.Key().String(),
				"fire_instance_id", ec.FireInstanceID,
				"error", security.SanitizeErrorMessage(err.Error()))
		}
		s.listeners.NotifyJobWasExecuted(ctx, ec, err)

		instr := f.trigger.ExecutionComplete(err)
		s.listeners.NotifyTriggerComplete(ctx, f.trigger, ec, instr)
		s.listeners.Emit(&core.JobExecuted{
			Trigger:     f.trigger.Key(),
			Job:         f.detail.Key,
			Err:         err,
			Duration:    ec.JobRunTime,
			Instruction: instr,
			Timestamp:   s.now(),
		})
		if instr == core.InstructionReExecuteJob && ctx.Err() == nil {
			ec.RefireCount++
			continue
		}
		return outcome{firing: f, instr: instr, err: err}
	}
}

func (s *Scheduler) execute(ctx context.Context, job jobctx.Job, ec *jobctx.ExecutionContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Execute(ctx, ec)
}

// complete applies a finished firing to the store.
func (s *Scheduler) complete(ctx context.Context, o outcome) {
	jobKey := o.detail.Key
	triggerKey := o.trigger.Key()

	if o.detail.PersistJobDataAfterExecution {
		s.persistJobData(ctx, o.firing)
	}

	switch o.instr {
	case core.InstructionSetTriggerComplete:
		if s.setState(ctx, triggerKey, core.StateComplete) == nil {
			s.finalized(o.trigger)
		}
	case core.InstructionDeleteTrigger:
		s.removeFinished(ctx, o.trigger)
	case core.InstructionSetAllJobTriggersComplete:
		ts, err := s.store.TriggersForJob(ctx, jobKey)
		if err != nil {
			s.reportError(fmt.Sprintf("failed to list triggers of job %s", jobKey), err)
			break
		}
		if s.setJobTriggers(ctx, jobKey, core.StateComplete) == nil {
			for _, t := range ts {
				s.finalized(t)
			}
		}
	case core.InstructionSetTriggerError:
		s.setState(ctx, triggerKey, core.StateError)
	case core.InstructionSetAllJobTriggersError:
		s.setJobTriggers(ctx, jobKey, core.StateError)
	}

	if o.detail.ConcurrentExecutionDisallowed && s.releaseExclusive(jobKey) {
		s.retry(ctx, func() error {
			_, err := s.store.SetJobTriggersState(ctx, jobKey, core.StateNormal, core.StateBlocked)
			return err
		})
	}
	s.signal()
}

// setState writes a trigger's state under its lock.
func (s *Scheduler) setState(ctx context.Context, key core.TriggerKey, state core.TriggerState) error {
	unlock := s.triggerLocks.lock(key)
	defer unlock()
	return s.retry(ctx, func() error { return s.store.SetTriggerState(ctx, key, state) })
}

func (s *Scheduler) setJobTriggers(ctx context.Context, key core.JobKey, state core.TriggerState) error {
	return s.retry(ctx, func() error {
		_, err := s.store.SetJobTriggersState(ctx, key, state)
		return err
	})
}

// removeFinished deletes a trigger that will not fire again, unless it was
// rescheduled while its job ran.
func (s *Scheduler) removeFinished(ctx context.Context, t *trigger.Trigger) {
	if s.removeIfFinished(ctx, t.Key()) {
		s.finalized(t)
	}
}

func (s *Scheduler) removeIfFinished(ctx context.Context, key core.TriggerKey) bool {
	unlock := s.triggerLocks.lock(key)
	defer unlock()
	stored, err := s.store.RetrieveTrigger(ctx, key)
	if err != nil || !stored.NextFireTime().IsZero() {
		return false
	}
	var removed bool
	err = s.retry(ctx, func() error {
		var err error
		removed, err = s.store.RemoveTrigger(ctx, key)
		return err
	})
	return err == nil && removed
}

// persistJobData stores changes the job made to its own data map.
func (s *Scheduler) persistJobData(ctx context.Context, f *firing) {
	data := f.ec.JobDetail.Data
	if data == nil || !data.Dirty() {
		return
	}
	stored, err := s.store.RetrieveJob(ctx, f.detail.Key)
	if err != nil {
		s.reportError("failed to reload job to persist its data", err)
		return
	}
	stored.Data = data.Duplicate()
	stored.Data.ClearDirty()
	s.retry(ctx, func() error { return s.store.StoreJob(ctx, stored, true) })
}

func (s *Scheduler) acquireExclusive(key core.JobKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[key] > 0 {
		return false
	}
	s.running[key]++
	return true
}

// releaseExclusive reports whether the last run of the job finished.
func (s *Scheduler) releaseExclusive(key core.JobKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[key]--
	if s.running[key] > 0 {
		return false
	}
	delete(s.running, key)
	return true
}

func (s *Scheduler) finalized(t *trigger.Trigger) {
	s.logger.Debug("trigger finalized", "trigger", t.Key().String())
	s.listeners.NotifyScheduler(func(l listener.SchedulerListener) { l.TriggerFinalized(t) })
	s.listeners.Emit(&core.TriggerFinalized{Trigger: t.Key(), Timestamp: s.now()})
}

// retry runs a store write with the configured backoff and reports a final
// failure.
func (s *Scheduler) retry(ctx context.Context, op func() error) error {
	err := retryWithBackoff(ctx, s.config.StoreRetry, op)
	if err != nil && ctx.Err() == nil {
		s.reportError("store operation failed", err)
	}
	return err
}

func (s *Scheduler) setError(ctx context.Context, key core.TriggerKey, cause error) {
	s.reportError(fmt.Sprintf("trigger %s moved to error state", key), cause)
	s.retry(ctx, func() error { return s.store.SetTriggerState(ctx, key, core.StateError) })
}

func (s *Scheduler) reportError(msg string, err error) {
	s.logger.Error(msg, "error", err)
	s.listeners.NotifyScheduler(func(l listener.SchedulerListener) { l.SchedulerError(msg, err) })
	s.listeners.Emit(&core.SchedulerError{Message: msg, Err: err, Timestamp: s.now()})
}
