package trigger

import (
	"fmt"
	"time"

	"github.com/jdziat/simple-triggers/pkg/core"
	"github.com/jdziat/simple-triggers/pkg/jobdata"
)

// Snapshot is the exported field set of a trigger, used by stores to persist
// and restore triggers without reaching into the engine's state.
type Snapshot struct {
	Kind               Kind
	Name               string
	Group              string
	JobName            string
	JobGroup           string
	Description        string
	CalendarName       string
	Data               *jobdata.Map
	Priority           int
	MisfireInstruction MisfireInstruction

	StartTime        time.Time
	EndTime          time.Time
	NextFireTime     time.Time
	PreviousFireTime time.Time
	FireInstanceID   string

	// KindSimple
	RepeatCount    int
	RepeatInterval time.Duration
	TimesTriggered int
	Complete       bool

	// KindCron
	CronExpression string
	TimeZone       string
}

// Snapshot captures the trigger's current state. The data map is duplicated.
func (t *Trigger) Snapshot() Snapshot {
	s := Snapshot{
		Kind:               t.kind,
		Name:               t.key.Name(),
		Group:              t.key.Group(),
		JobName:            t.jobKey.Name(),
		JobGroup:           t.jobKey.Group(),
		Description:        t.description,
		CalendarName:       t.calendarName,
		Priority:           t.priority,
		MisfireInstruction: t.misfire,
		StartTime:          t.startTime,
		EndTime:            t.endTime,
		NextFireTime:       t.nextFireTime,
		PreviousFireTime:   t.previousFireTime,
		FireInstanceID:     t.fireInstanceID,
		RepeatCount:        t.simple.repeatCount,
		RepeatInterval:     t.simple.repeatInterval,
		TimesTriggered:     t.simple.timesTriggered,
		Complete:           t.simple.complete,
		CronExpression:     t.cron.expression,
	}
	if t.data != nil {
		s.Data = t.data.Duplicate()
	}
	if t.cron.location != nil {
		s.TimeZone = t.cron.location.String()
	}
	return s
}

// FromSnapshot rebuilds a trigger. It fails on the same conditions as the
// constructors and on an unknown kind, time zone or cron expression.
func FromSnapshot(s Snapshot) (*Trigger, error) {
	key, err := core.NewTriggerKey(s.Name, s.Group)
	if err != nil {
		return nil, err
	}

	var t *Trigger
	switch s.Kind {
	case KindSimple:
		t, err = NewSimple(key, s.StartTime, s.RepeatCount, s.RepeatInterval)
	case KindCron:
		var loc *time.Location
		if s.TimeZone != "" {
			if loc, err = time.LoadLocation(s.TimeZone); err != nil {
				return nil, fmt.Errorf("triggers: load time zone %q: %w", s.TimeZone, err)
			}
		}
		t, err = NewCron(key, s.CronExpression, loc, s.StartTime)
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownTriggerKind, s.Kind)
	}
	if err != nil {
		return nil, err
	}

	if s.JobName != "" {
		jk, err := core.NewJobKey(s.JobName, s.JobGroup)
		if err != nil {
			return nil, err
		}
		t.jobKey = jk
	}
	if err := t.SetEndTime(s.EndTime); err != nil {
		return nil, err
	}
	if err := t.SetMisfireInstruction(s.MisfireInstruction); err != nil {
		return nil, err
	}
	t.description = s.Description
	t.calendarName = s.CalendarName
	t.priority = s.Priority
	t.nextFireTime = s.NextFireTime
	t.previousFireTime = s.PreviousFireTime
	t.fireInstanceID = s.FireInstanceID
	if s.Data != nil {
		t.data = s.Data.Duplicate()
	}
	t.simple.timesTriggered = s.TimesTriggered
	t.simple.complete = s.Complete
	return t, nil
}
