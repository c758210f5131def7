package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/jdziat/simple-triggers/pkg/core"
	"github.com/jdziat/simple-triggers/pkg/jobctx"
	"github.com/jdziat/simple-triggers/pkg/trigger"
)

// ErrEmptyListenerName is returned when a listener has no name.
var ErrEmptyListenerName = errors.New("triggers: listener name cannot be empty")

type jobEntry struct {
	l        JobListener
	matchers []Matcher[core.JobKey]
}

type triggerEntry struct {
	l        TriggerListener
	matchers []Matcher[core.TriggerKey]
}

// Manager holds the listeners of a scheduler and the matchers that select
// which jobs and triggers each listener hears about. It also fans scheduler
// events out to channel subscribers.
//
// A Manager is safe for concurrent use. Listener callbacks run on the
// goroutine that triggered them and must not block for long. Callbacks the
// dispatch loop makes while it updates a trigger, such as misfire
// notifications, run with that trigger locked and must not change the same
// trigger synchronously.
type Manager struct {
	mu                 sync.RWMutex
	jobListeners       []*jobEntry
	triggerListeners   []*triggerEntry
	schedulerListeners []SchedulerListener
	eventSubs          []chan core.Event
	logger             *slog.Logger
}

// NewManager creates an empty manager logging listener panics to logger,
// or slog.Default() when nil.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger}
}

// --- Job listeners ---

// AddJobListener registers l for the jobs any of matchers selects, or for all
// jobs when none are given. A listener with the same name is replaced.
func (m *Manager) AddJobListener(l JobListener, matchers ...Matcher[core.JobKey]) error {
	if l.Name() == "" {
		return ErrEmptyListenerName
	}
	if len(matchers) == 0 {
		matchers = []Matcher[core.JobKey]{AllJobs()}
	}
	e := &jobEntry{l: l, matchers: slices.Clone(matchers)}

	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.jobIndex(l.Name()); i >= 0 {
		m.jobListeners[i] = e
		return nil
	}
	m.jobListeners = append(m.jobListeners, e)
	return nil
}

func (m *Manager) jobIndex(name string) int {
	return slices.IndexFunc(m.jobListeners, func(e *jobEntry) bool { return e.l.Name() == name })
}

// AddJobListenerMatcher adds a matcher to the named listener. It reports
// false if there is no such listener.
func (m *Manager) AddJobListenerMatcher(name string, matcher Matcher[core.JobKey]) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.jobIndex(name)
	if i < 0 {
		return false
	}
	m.jobListeners[i].matchers = append(m.jobListeners[i].matchers, matcher)
	return true
}

// RemoveJobListenerMatcher removes a matcher equal to matcher from the named listener.
func (m *Manager) RemoveJobListenerMatcher(name string, matcher Matcher[core.JobKey]) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.jobIndex(name)
	if i < 0 {
		return false
	}
	e := m.jobListeners[i]
	j := slices.IndexFunc(e.matchers, func(x Matcher[core.JobKey]) bool { return reflect.DeepEqual(x, matcher) })
	if j < 0 {
		return false
	}
	e.matchers = slices.Delete(e.matchers, j, j+1)
	return true
}

// SetJobListenerMatchers replaces the matchers of the named listener.
func (m *Manager) SetJobListenerMatchers(name string, matchers []Matcher[core.JobKey]) bool {
	if matchers == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.jobIndex(name)
	if i < 0 {
		return false
	}
	m.jobListeners[i].matchers = slices.Clone(matchers)
	return true
}

// JobListenerMatchers returns the matchers of the named listener, or nil.
func (m *Manager) JobListenerMatchers(name string) []Matcher[core.JobKey] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.jobIndex(name); i >= 0 {
		return slices.Clone(m.jobListeners[i].matchers)
	}
	return nil
}

// RemoveJobListener unregisters the named listener.
func (m *Manager) RemoveJobListener(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.jobIndex(name)
	if i < 0 {
		return false
	}
	m.jobListeners = slices.Delete(m.jobListeners, i, i+1)
	return true
}

// JobListener returns the named listener, or nil.
func (m *Manager) JobListener(name string) JobListener {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.jobIndex(name); i >= 0 {
		return m.jobListeners[i].l
	}
	return nil
}

// JobListeners returns all job listeners in registration order.
func (m *Manager) JobListeners() []JobListener {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]JobListener, len(m.jobListeners))
	for i, e := range m.jobListeners {
		out[i] = e.l
	}
	return out
}

// --- Trigger listeners ---

// AddTriggerListener registers l for the triggers any of matchers selects, or
// for all triggers when none are given. A listener with the same name is replaced.
func (m *Manager) AddTriggerListener(l TriggerListener, matchers ...Matcher[core.TriggerKey]) error {
	if l.Name() == "" {
		return ErrEmptyListenerName
	}
	if len(matchers) == 0 {
		matchers = []Matcher[core.TriggerKey]{AllTriggers()}
	}
	e := &triggerEntry{l: l, matchers: slices.Clone(matchers)}

	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.triggerIndex(l.Name()); i >= 0 {
		m.triggerListeners[i] = e
		return nil
	}
	m.triggerListeners = append(m.triggerListeners, e)
	return nil
}

func (m *Manager) triggerIndex(name string) int {
	return slices.IndexFunc(m.triggerListeners, func(e *triggerEntry) bool { return e.l.Name() == name })
}

// AddTriggerListenerMatcher adds a matcher to the named listener.
func (m *Manager) AddTriggerListenerMatcher(name string, matcher Matcher[core.TriggerKey]) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.triggerIndex(name)
	if i < 0 {
		return false
	}
	m.triggerListeners[i].matchers = append(m.triggerListeners[i].matchers, matcher)
	return true
}

// RemoveTriggerListenerMatcher removes a matcher equal to matcher from the named listener.
func (m *Manager) RemoveTriggerListenerMatcher(name string, matcher Matcher[core.TriggerKey]) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.triggerIndex(name)
	if i < 0 {
		return false
	}
	e := m.triggerListeners[i]
	j := slices.IndexFunc(e.matchers, func(x Matcher[core.TriggerKey]) bool { return reflect.DeepEqual(x, matcher) })
	if j < 0 {
		return false
	}
	e.matchers = slices.Delete(e.matchers, j, j+1)
	return true
}

// SetTriggerListenerMatchers replaces the matchers of the named listener.
func (m *Manager) SetTriggerListenerMatchers(name string, matchers []Matcher[core.TriggerKey]) bool {
	if matchers == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.triggerIndex(name)
	if i < 0 {
		return false
	}
	m.triggerListeners[i].matchers = slices.Clone(matchers)
	return true
}

// TriggerListenerMatchers returns the matchers of the named listener, or nil.
func (m *Manager) TriggerListenerMatchers(name string) []Matcher[core.TriggerKey] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.triggerIndex(name); i >= 0 {
		return slices.Clone(m.triggerListeners[i].matchers)
	}
	return nil
}

// RemoveTriggerListener unregisters the named listener.
func (m *Manager) RemoveTriggerListener(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.triggerIndex(name)
	if i < 0 {
		return false
	}
	m.triggerListeners = slices.Delete(m.triggerListeners, i, i+1)
	return true
}

// TriggerListener returns the named listener, or nil.
func (m *Manager) TriggerListener(name string) TriggerListener {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.triggerIndex(name); i >= 0 {
		return m.triggerListeners[i].l
	}
	return nil
}

// TriggerListeners returns all trigger listeners in registration order.
func (m *Manager) TriggerListeners() []TriggerListener {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]TriggerListener, len(m.triggerListeners))
	for i, e := range m.triggerListeners {
		out[i] = e.l
	}
	return out
}

// --- Scheduler listeners ---

// AddSchedulerListener registers l. Listeners are compared with ==, so use
// pointer implementations.
func (m *Manager) AddSchedulerListener(l SchedulerListener) {
	m.mu.Lock()
	m.schedulerListeners = append(m.schedulerListeners, l)
	m.mu.Unlock()
}

// RemoveSchedulerListener unregisters l.
func (m *Manager) RemoveSchedulerListener(l SchedulerListener) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, x := range m.schedulerListeners {
		if x == l {
			m.schedulerListeners = slices.Delete(m.schedulerListeners, i, i+1)
			return true
		}
	}
	return false
}

// SchedulerListeners returns all scheduler listeners in registration order.
func (m *Manager) SchedulerListeners() []SchedulerListener {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.schedulerListeners)
}

// --- Notification ---

func (m *Manager) jobListenersFor(key core.JobKey) []JobListener {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []JobListener
	for _, e := range m.jobListeners {
		if anyMatch(e.matchers, key) {
			out = append(out, e.l)
		}
	}
	return out
}

func (m *Manager) triggerListenersFor(key core.TriggerKey) []TriggerListener {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []TriggerListener
	for _, e := range m.triggerListeners {
		if anyMatch(e.matchers, key) {
			out = append(out, e.l)
		}
	}
	return out
}

// safely runs a listener callback, logging a panic instead of propagating it.
func (m *Manager) safely(kind, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("listener panicked", "kind", kind, "listener", name, "panic", fmt.Sprint(r))
		}
	}()
	fn()
}

// NotifyTriggerFired tells the trigger listeners of ec's trigger that it fired
// and reports whether any of them vetoed the run.
func (m *Manager) NotifyTriggerFired(ctx context.Context, t *trigger.Trigger, ec *jobctx.ExecutionContext) bool {
	vetoed := false
	for _, l := range m.triggerListenersFor(t.Key()) {
		m.safely("trigger", l.Name(), func() {
			l.TriggerFired(ctx, t, ec)
			if !vetoed && l.VetoJobExecution(ctx, t, ec) {
				vetoed = true
			}
		})
	}
	return vetoed
}

// NotifyTriggerMisfired tells the trigger listeners of t that it misfired.
func (m *Manager) NotifyTriggerMisfired(ctx context.Context, t *trigger.Trigger) {
	for _, l := range m.triggerListenersFor(t.Key()) {
		m.safely("trigger", l.Name(), func() { l.TriggerMisfired(ctx, t) })
	}
}

// NotifyTriggerComplete tells the trigger listeners of t that its job finished.
func (m *Manager) NotifyTriggerComplete(ctx context.Context, t *trigger.Trigger, ec *jobctx.ExecutionContext, instr core.CompletedExecutionInstruction) {
	for _, l := range m.triggerListenersFor(t.Key()) {
		m.safely("trigger", l.Name(), func() { l.TriggerComplete(ctx, t, ec, instr) })
	}
}

// NotifyJobToBeExecuted tells the job listeners of ec's job that it is about to run.
func (m *Manager) NotifyJobToBeExecuted(ctx context.Context, ec *jobctx.ExecutionContext) {
	for _, l := range m.jobListenersFor(ec.JobKey()) {
		m.safely("job", l.Name(), func() { l.JobToBeExecuted(ctx, ec) })
	}
}

// NotifyJobExecutionVetoed tells the job listeners of ec's job that a trigger listener vetoed it.
func (m *Manager) NotifyJobExecutionVetoed(ctx context.Context, ec *jobctx.ExecutionContext) {
	for _, l := range m.jobListenersFor(ec.JobKey()) {
		m.safely("job", l.Name(), func() { l.JobExecutionVetoed(ctx, ec) })
	}
}

// NotifyJobWasExecuted tells the job listeners of ec's job that it returned err.
func (m *Manager) NotifyJobWasExecuted(ctx context.Context, ec *jobctx.ExecutionContext, err error) {
	for _, l := range m.jobListenersFor(ec.JobKey()) {
		m.safely("job", l.Name(), func() { l.JobWasExecuted(ctx, ec, err) })
	}
}

// NotifyScheduler calls fn for every scheduler listener.
func (m *Manager) NotifyScheduler(fn func(SchedulerListener)) {
	for _, l := range m.SchedulerListeners() {
		m.safely("scheduler", fmt.Sprintf("%T", l), func() { fn(l) })
	}
}

// --- Event stream ---

// Events returns a channel receiving scheduler events.
// The caller must call Unsubscribe when done to prevent resource leaks.
func (m *Manager) Events() <-chan core.Event {
	ch := make(chan core.Event, 100)
	m.mu.Lock()
	m.eventSubs = append(m.eventSubs, ch)
	m.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel created by Events().
// The channel is not closed. After Unsubscribe returns no further events are sent to it.
func (m *Manager) Unsubscribe(ch <-chan core.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, sub := range m.eventSubs {
		if sub == ch {
			m.eventSubs = slices.Delete(m.eventSubs, i, i+1)
			return
		}
	}
}

// Emit sends e to all subscribers, dropping it for subscribers that are full.
func (m *Manager) Emit(e core.Event) {
	m.mu.RLock()
	subs := slices.Clone(m.eventSubs)
	m.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
		}
	}
}
