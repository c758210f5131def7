package trigger

import (
	"fmt"
	"time"

	"github.com/jdziat/simple-triggers/pkg/core"
)

// MisfireInstruction selects how a trigger repairs its schedule after a
// fire time elapsed before the scheduler could act on it.
type MisfireInstruction int

// Instructions shared by every trigger kind.
const (
	MisfireIgnorePolicy MisfireInstruction = -1
	MisfireSmartPolicy  MisfireInstruction = 0
)

// Simple trigger instructions.
const (
	MisfireFireNow                               MisfireInstruction = 1
	MisfireRescheduleNowWithExistingRepeatCount  MisfireInstruction = 2
	MisfireRescheduleNowWithRemainingRepeatCount MisfireInstruction = 3
	MisfireRescheduleNextWithRemainingCount      MisfireInstruction = 4
	MisfireRescheduleNextWithExistingCount       MisfireInstruction = 5
)

// Cron trigger instructions.
const (
	MisfireFireOnceNow MisfireInstruction = 1
	MisfireDoNothing   MisfireInstruction = 2
)

func (m MisfireInstruction) String() string {
	switch m {
	case MisfireIgnorePolicy:
		return "ignore_misfire_policy"
	case MisfireSmartPolicy:
		return "smart_policy"
	}
	return fmt.Sprintf("misfire(%d)", int(m))
}

func (t *Trigger) validMisfireInstruction(m MisfireInstruction) bool {
	if m < MisfireIgnorePolicy {
		return false
	}
	switch t.kind {
	case KindSimple:
		return m <= MisfireRescheduleNextWithExistingCount
	case KindCron:
		return m <= MisfireDoNothing
	}
	return false
}

// UpdateAfterMisfire applies the trigger's misfire instruction. now is the
// instant the misfire is being handled at; cal may be nil.
func (t *Trigger) UpdateAfterMisfire(cal core.Calendar, now time.Time) error {
	if !t.validMisfireInstruction(t.misfire) {
		return fmt.Errorf("%w: %d", core.ErrInvalidMisfireInstruction, t.misfire)
	}
	switch t.kind {
	case KindSimple:
		t.simpleUpdateAfterMisfire(t.resolveSimpleMisfire(), cal, now)
	case KindCron:
		t.cronUpdateAfterMisfire(t.misfire, cal, now)
	default:
		return core.ErrUnknownTriggerKind
	}
	return nil
}

// resolveSimpleMisfire turns the smart policy into a concrete one. Fire-now on
// a repeating trigger runs as reschedule-now-with-remaining-count.
func (t *Trigger) resolveSimpleMisfire() MisfireInstruction {
	instr := t.misfire
	rc := t.simple.repeatCount
	switch {
	case instr == MisfireSmartPolicy && rc == 0:
		return MisfireFireNow
	case instr == MisfireSmartPolicy && rc == RepeatIndefinitely:
		return MisfireRescheduleNextWithRemainingCount
	case instr == MisfireSmartPolicy:
		return MisfireRescheduleNowWithExistingRepeatCount
	case instr == MisfireFireNow && rc != 0:
		return MisfireRescheduleNowWithRemainingRepeatCount
	}
	return instr
}

func (t *Trigger) simpleUpdateAfterMisfire(instr MisfireInstruction, cal core.Calendar, now time.Time) {
	s := &t.simple
	finite := s.repeatCount != 0 && s.repeatCount != RepeatIndefinitely

	switch instr {
	case MisfireIgnorePolicy:
		return

	case MisfireFireNow:
		t.nextFireTime = now

	case MisfireRescheduleNextWithExistingCount:
		t.nextFireTime = t.skipExcluded(t.FireTimeAfter(now), cal)

	case MisfireRescheduleNextWithRemainingCount:
		next := t.skipExcluded(t.FireTimeAfter(now), cal)
		if !next.IsZero() && !t.nextFireTime.IsZero() {
			s.timesTriggered += t.NumTimesFiredBetween(t.nextFireTime, next)
		}
		t.nextFireTime = next

	case MisfireRescheduleNowWithExistingRepeatCount:
		if finite {
			s.repeatCount = max(s.repeatCount-s.timesTriggered, 0)
			s.timesTriggered = 0
		}
		t.rescheduleNow(now)

	case MisfireRescheduleNowWithRemainingRepeatCount:
		missed := 0
		if !t.nextFireTime.IsZero() {
			missed = t.NumTimesFiredBetween(t.nextFireTime, now)
		}
		if finite {
			s.repeatCount = max(s.repeatCount-(s.timesTriggered+missed), 0)
			s.timesTriggered = 0
		}
		t.rescheduleNow(now)
	}
}

func (t *Trigger) rescheduleNow(now time.Time) {
	if !t.endTime.IsZero() && t.endTime.Before(now) {
		t.nextFireTime = time.Time{}
		return
	}
	t.startTime = now
	t.nextFireTime = now
}

// UpdateWithNewCalendar recomputes the next fire time after the trigger's
// calendar changed. Candidates that lie at least misfireThreshold before now
// are skipped as already missed.
func (t *Trigger) UpdateWithNewCalendar(cal core.Calendar, misfireThreshold time.Duration, now time.Time) {
	after := t.previousFireTime
	if after.IsZero() {
		after = now
	}
	t.nextFireTime = t.FireTimeAfter(after)
	if t.nextFireTime.IsZero() || cal == nil {
		return
	}
	limit := giveUpYear()
	for !t.nextFireTime.IsZero() && !cal.IsTimeIncluded(t.nextFireTime) {
		t.nextFireTime = t.FireTimeAfter(t.nextFireTime)
		if t.nextFireTime.IsZero() {
			break
		}
		if t.nextFireTime.Year() > limit {
			t.nextFireTime = time.Time{}
			break
		}
		if t.nextFireTime.Before(now) && now.Sub(t.nextFireTime) >= misfireThreshold {
			t.nextFireTime = t.FireTimeAfter(t.nextFireTime)
		}
	}
}
