package builder

import (
	"time"

	"github.com/jdziat/simple-triggers/pkg/core"
	"github.com/jdziat/simple-triggers/pkg/jobdata"
	"github.com/jdziat/simple-triggers/pkg/trigger"
)

// TriggerBuilder assembles a trigger. The zero value is not usable; start
// with NewTrigger.
type TriggerBuilder struct {
	key          core.TriggerKey
	description  string
	start        time.Time
	end          time.Time
	priority     int
	calendarName string
	jobKey       core.JobKey
	data         *jobdata.Map
	schedule     ScheduleBuilder
	err          error
}

// NewTrigger starts a trigger definition.
func NewTrigger() *TriggerBuilder {
	return &TriggerBuilder{priority: trigger.DefaultPriority, data: jobdata.New()}
}

func (b *TriggerBuilder) fail(err error) *TriggerBuilder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// WithIdentity names the trigger. An empty group selects core.DefaultGroup.
func (b *TriggerBuilder) WithIdentity(name, group string) *TriggerBuilder {
	k, err := core.NewTriggerKey(name, group)
	if err != nil {
		return b.fail(err)
	}
	b.key = k
	return b
}

func (b *TriggerBuilder) WithKey(k core.TriggerKey) *TriggerBuilder {
	b.key = k
	return b
}

func (b *TriggerBuilder) WithDescription(d string) *TriggerBuilder {
	b.description = d
	return b
}

// WithPriority orders triggers due at the same instant; higher fires first.
func (b *TriggerBuilder) WithPriority(p int) *TriggerBuilder {
	b.priority = p
	return b
}

// ModifiedByCalendar names a calendar registered with the scheduler.
func (b *TriggerBuilder) ModifiedByCalendar(name string) *TriggerBuilder {
	b.calendarName = name
	return b
}

func (b *TriggerBuilder) StartAt(t time.Time) *TriggerBuilder {
	b.start = t
	return b
}

func (b *TriggerBuilder) StartNow() *TriggerBuilder {
	b.start = time.Now()
	return b
}

func (b *TriggerBuilder) EndAt(t time.Time) *TriggerBuilder {
	b.end = t
	return b
}

// WithSchedule sets the kind of trigger to build. Without one, the trigger
// fires once.
func (b *TriggerBuilder) WithSchedule(s ScheduleBuilder) *TriggerBuilder {
	b.schedule = s
	return b
}

func (b *TriggerBuilder) ForJob(name, group string) *TriggerBuilder {
	k, err := core.NewJobKey(name, group)
	if err != nil {
		return b.fail(err)
	}
	b.jobKey = k
	return b
}

func (b *TriggerBuilder) ForJobKey(k core.JobKey) *TriggerBuilder {
	b.jobKey = k
	return b
}

func (b *TriggerBuilder) ForJobDetail(d *core.JobDetail) *TriggerBuilder {
	if d == nil || d.Key.IsZero() {
		return b.fail(core.ErrInvalidJobName)
	}
	b.jobKey = d.Key
	return b
}

func (b *TriggerBuilder) UsingJobData(key string, value any) *TriggerBuilder {
	b.data.Put(key, value)
	return b
}

// UsingJobDataMap merges m into the trigger data.
func (b *TriggerBuilder) UsingJobDataMap(m *jobdata.Map) *TriggerBuilder {
	b.data.PutAll(m)
	return b
}

// Build creates the trigger. Its first fire time is computed once it is
// scheduled.
func (b *TriggerBuilder) Build() (*trigger.Trigger, error) {
	if b.err != nil {
		return nil, b.err
	}
	sched := b.schedule
	if sched == nil {
		sched = SimpleSchedule()
	}
	key := b.key
	if key.IsZero() {
		k, err := core.NewTriggerKey(core.UniqueName(""), "")
		if err != nil {
			return nil, err
		}
		key = k
	}
	start := b.start
	if start.IsZero() {
		start = time.Now()
	}

	t, err := sched.Build(key, start)
	if err != nil {
		return nil, err
	}
	if err := t.SetEndTime(b.end); err != nil {
		return nil, err
	}
	t.SetDescription(b.description)
	t.SetPriority(b.priority)
	t.SetCalendarName(b.calendarName)
	if !b.jobKey.IsZero() {
		if err := t.SetJobKey(b.jobKey); err != nil {
			return nil, err
		}
	}
	if !b.data.IsEmpty() {
		data := b.data.Duplicate()
		data.ClearDirty()
		t.SetJobData(data)
	}
	return t, nil
}
