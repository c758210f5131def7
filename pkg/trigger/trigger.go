package trigger

import (
	"fmt"
	"time"

	"github.com/jdziat/simple-triggers/pkg/core"
	"github.com/jdziat/simple-triggers/pkg/jobdata"
)

// Kind selects the trigger variant.
type Kind string

const (
	KindSimple Kind = "simple"
	KindCron   Kind = "cron"
)

const (
	// RepeatIndefinitely is the repeat count of a simple trigger that never runs out.
	RepeatIndefinitely = -1

	// DefaultPriority breaks ties between triggers due at the same instant.
	DefaultPriority = 5

	// yearsToGiveUp bounds calendar exclusion scans relative to the current year.
	yearsToGiveUp = 100
)

// Trigger is a schedule definition producing fire times for one job.
type Trigger struct {
	key          core.TriggerKey
	jobKey       core.JobKey
	description  string
	calendarName string
	data         *jobdata.Map
	priority     int
	misfire      MisfireInstruction

	startTime        time.Time
	endTime          time.Time
	nextFireTime     time.Time
	previousFireTime time.Time
	fireInstanceID   string

	kind   Kind
	simple simplePayload
	cron   cronPayload
}

type simplePayload struct {
	repeatCount    int
	repeatInterval time.Duration
	timesTriggered int
	complete       bool
}

func newTrigger(key core.TriggerKey, kind Kind, start time.Time) (*Trigger, error) {
	if key.IsZero() {
		return nil, core.ErrInvalidName
	}
	if start.IsZero() {
		return nil, core.ErrInvalidStartTime
	}
	return &Trigger{
		key:       key,
		kind:      kind,
		priority:  DefaultPriority,
		misfire:   MisfireSmartPolicy,
		startTime: start,
	}, nil
}

// NewSimple creates a simple trigger firing at start and then repeatCount more
// times, interval apart. Use RepeatIndefinitely for no limit.
func NewSimple(key core.TriggerKey, start time.Time, repeatCount int, interval time.Duration) (*Trigger, error) {
	if err := validateRepeatCount(repeatCount); err != nil {
		return nil, err
	}
	if interval < 0 {
		return nil, core.ErrInvalidRepeatInterval
	}
	t, err := newTrigger(key, KindSimple, start)
	if err != nil {
		return nil, err
	}
	t.simple = simplePayload{repeatCount: repeatCount, repeatInterval: interval}
	return t, nil
}

func validateRepeatCount(n int) error {
	if n < 0 && n != RepeatIndefinitely {
		return core.ErrInvalidRepeatCount
	}
	return nil
}

// --- Accessors ---

// Key returns the trigger identity.
func (t *Trigger) Key() core.TriggerKey { return t.key }

// JobKey returns the key of the job this trigger fires.
func (t *Trigger) JobKey() core.JobKey { return t.jobKey }

// Kind returns the trigger variant.
func (t *Trigger) Kind() Kind { return t.kind }

func (t *Trigger) Description() string                    { return t.description }
func (t *Trigger) CalendarName() string                   { return t.calendarName }
func (t *Trigger) Priority() int                          { return t.priority }
func (t *Trigger) MisfireInstruction() MisfireInstruction { return t.misfire }
func (t *Trigger) StartTime() time.Time                   { return t.startTime }
func (t *Trigger) EndTime() time.Time                     { return t.endTime }
func (t *Trigger) FireInstanceID() string                 { return t.fireInstanceID }

// NextFireTime returns the next scheduled instant. It can lie in the past when
// the scheduler has not yet been able to fire the trigger.
func (t *Trigger) NextFireTime() time.Time { return t.nextFireTime }

// PreviousFireTime returns the instant the trigger last fired, or zero.
func (t *Trigger) PreviousFireTime() time.Time { return t.previousFireTime }

// RepeatCount returns the number of firings after the first. Zero for cron triggers.
func (t *Trigger) RepeatCount() int { return t.simple.repeatCount }

// RepeatInterval returns the gap between firings. Zero for cron triggers.
func (t *Trigger) RepeatInterval() time.Duration { return t.simple.repeatInterval }

// TimesTriggered returns how often a simple trigger has fired.
func (t *Trigger) TimesTriggered() int { return t.simple.timesTriggered }

// JobData returns the trigger's data map, creating it on first use.
func (t *Trigger) JobData() *jobdata.Map {
	if t.data == nil {
		t.data = jobdata.New()
	}
	return t.data
}

// MayFireAgain reports whether the trigger has a next fire time.
func (t *Trigger) MayFireAgain() bool {
	return !t.nextFireTime.IsZero()
}

// --- Setters ---
// Every setter validates before it mutates; a rejected call leaves the trigger untouched.

// SetKey replaces the trigger identity.
func (t *Trigger) SetKey(key core.TriggerKey) error {
	if key.IsZero() {
		return core.ErrInvalidName
	}
	t.key = key
	return nil
}

// SetName renames the trigger within its current group.
func (t *Trigger) SetName(name string) error {
	k, err := core.NewTriggerKey(name, t.key.Group())
	if err != nil {
		return err
	}
	t.key = k
	return nil
}

// SetGroup moves the trigger into group. An empty group selects the default group.
func (t *Trigger) SetGroup(group string) error {
	k, err := core.NewTriggerKey(t.key.Name(), group)
	if err != nil {
		return err
	}
	t.key = k
	return nil
}

// SetJobKey points the trigger at a job.
func (t *Trigger) SetJobKey(key core.JobKey) error {
	if key.IsZero() {
		return core.ErrInvalidJobName
	}
	t.jobKey = key
	return nil
}

func (t *Trigger) SetDescription(d string)     { t.description = d }
func (t *Trigger) SetCalendarName(name string) { t.calendarName = name }
func (t *Trigger) SetPriority(p int)           { t.priority = p }
func (t *Trigger) SetFireInstanceID(id string) { t.fireInstanceID = id }

// SetJobData replaces the trigger's data map.
func (t *Trigger) SetJobData(m *jobdata.Map) { t.data = m }

// SetStartTime moves the start of the validity window.
func (t *Trigger) SetStartTime(start time.Time) error {
	if start.IsZero() {
		return core.ErrInvalidStartTime
	}
	if !t.endTime.IsZero() && t.endTime.Before(start) {
		return core.ErrEndBeforeStart
	}
	t.startTime = start
	return nil
}

// SetEndTime moves the end of the validity window. The zero time removes it.
func (t *Trigger) SetEndTime(end time.Time) error {
	if !end.IsZero() && !t.startTime.IsZero() && t.startTime.After(end) {
		return core.ErrEndBeforeStart
	}
	t.endTime = end
	return nil
}

// SetRepeatCount sets the number of firings after the first.
func (t *Trigger) SetRepeatCount(n int) error {
	if t.kind != KindSimple {
		return core.ErrKindMismatch
	}
	if err := validateRepeatCount(n); err != nil {
		return err
	}
	t.simple.repeatCount = n
	return nil
}

// SetRepeatInterval sets the gap between firings.
func (t *Trigger) SetRepeatInterval(d time.Duration) error {
	if t.kind != KindSimple {
		return core.ErrKindMismatch
	}
	if d < 0 {
		return core.ErrInvalidRepeatInterval
	}
	t.simple.repeatInterval = d
	return nil
}

// SetMisfireInstruction selects the misfire policy.
func (t *Trigger) SetMisfireInstruction(m MisfireInstruction) error {
	if !t.validMisfireInstruction(m) {
		return fmt.Errorf("%w: %d", core.ErrInvalidMisfireInstruction, m)
	}
	t.misfire = m
	return nil
}

// Validate checks the trigger can be scheduled.
func (t *Trigger) Validate() error {
	if t.key.IsZero() {
		return core.ErrInvalidName
	}
	if t.jobKey.IsZero() {
		return core.ErrInvalidJobName
	}
	if t.startTime.IsZero() {
		return core.ErrInvalidStartTime
	}
	switch t.kind {
	case KindSimple:
		if t.simple.repeatCount != 0 && t.simple.repeatInterval < 1 {
			return core.ErrZeroRepeatInterval
		}
	case KindCron:
		if t.cron.schedule == nil {
			return core.ErrInvalidCronExpression
		}
	default:
		return core.ErrUnknownTriggerKind
	}
	if !t.validMisfireInstruction(t.misfire) {
		return core.ErrInvalidMisfireInstruction
	}
	return nil
}

// Duplicate returns an independent copy owning its own data map.
func (t *Trigger) Duplicate() *Trigger {
	cp := *t
	if t.data != nil {
		cp.data = t.data.Duplicate()
	}
	return &cp
}

func (t *Trigger) String() string {
	return fmt.Sprintf("Trigger '%s': kind: %s calendar: '%s' misfireInstruction: %d nextFireTime: %s",
		t.key, t.kind, t.calendarName, t.misfire, formatTime(t.nextFireTime))
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "<none>"
	}
	return ts.Format(time.RFC3339Nano)
}
