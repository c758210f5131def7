package trigger

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jdziat/simple-triggers/pkg/core"
)

// cronParser accepts standard five-field expressions, an optional leading
// seconds field, and descriptors such as @hourly or @every 5m.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

type cronPayload struct {
	expression string
	location   *time.Location
	schedule   cron.Schedule
}

// NewCron creates a trigger firing on the instants of expr, evaluated in loc
// (UTC when nil), no earlier than start.
func NewCron(key core.TriggerKey, expr string, loc *time.Location, start time.Time) (*Trigger, error) {
	payload, err := parseCron(expr, loc)
	if err != nil {
		return nil, err
	}
	t, err := newTrigger(key, KindCron, start)
	if err != nil {
		return nil, err
	}
	t.cron = payload
	return t, nil
}

func parseCron(expr string, loc *time.Location) (cronPayload, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return cronPayload{}, fmt.Errorf("%w %q: %v", core.ErrInvalidCronExpression, expr, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return cronPayload{expression: expr, location: loc, schedule: sched}, nil
}

// CronExpression returns the expression of a cron trigger, or "".
func (t *Trigger) CronExpression() string { return t.cron.expression }

// Location returns the time zone a cron trigger is evaluated in, or nil.
func (t *Trigger) Location() *time.Location { return t.cron.location }

func (t *Trigger) cronFireTimeAfter(after time.Time) time.Time {
	if t.cron.schedule == nil {
		return time.Time{}
	}
	if after.IsZero() {
		after = time.Now()
	}
	if after.Before(t.startTime) {
		// Next rounds up to the following whole second, so a start with a
		// fractional part still bounds the first fire time.
		after = t.startTime.Add(-time.Nanosecond)
	}
	if !t.endTime.IsZero() && !after.Before(t.endTime) {
		return time.Time{}
	}
	next := t.cron.schedule.Next(after.In(t.cron.location))
	if next.IsZero() {
		return time.Time{}
	}
	if !t.endTime.IsZero() && next.After(t.endTime) {
		return time.Time{}
	}
	return next
}

func (t *Trigger) cronUpdateAfterMisfire(instr MisfireInstruction, cal core.Calendar, now time.Time) {
	if instr == MisfireIgnorePolicy {
		return
	}
	if instr == MisfireSmartPolicy {
		instr = MisfireFireOnceNow
	}
	switch instr {
	case MisfireFireOnceNow:
		t.nextFireTime = now
	case MisfireDoNothing:
		t.nextFireTime = t.skipExcluded(t.FireTimeAfter(now), cal)
	}
}
