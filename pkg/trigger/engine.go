package trigger

import (
	"time"

	"github.com/jdziat/simple-triggers/pkg/core"
)

// giveUpYear is the last year calendar exclusion scans may reach.
var giveUpYear = func() int {
	return time.Now().Year() + yearsToGiveUp
}

// ComputeFirstFireTime is called once when the trigger is scheduled. It sets
// and returns the first fire time that cal includes, or zero if there is none.
// Calling it again before Triggered yields the same result.
func (t *Trigger) ComputeFirstFireTime(cal core.Calendar) time.Time {
	next := t.startTime
	if t.kind == KindCron {
		next = t.FireTimeAfter(t.startTime.Add(-time.Nanosecond))
	}
	t.nextFireTime = t.skipExcluded(next, cal)
	return t.nextFireTime
}

// Triggered records a firing: the current next fire time becomes the previous
// one, and the next one advances past any instants cal excludes.
func (t *Trigger) Triggered(cal core.Calendar) {
	if t.kind == KindSimple {
		t.simple.timesTriggered++
	}
	t.previousFireTime = t.nextFireTime
	t.nextFireTime = t.skipExcluded(t.FireTimeAfter(t.nextFireTime), cal)
	if t.kind == KindSimple && t.nextFireTime.IsZero() {
		t.simple.complete = true
	}
}

// FireTimeAfter returns the first fire time strictly after after, ignoring
// calendars. The zero time stands for now. It returns zero when the trigger
// will not fire again.
func (t *Trigger) FireTimeAfter(after time.Time) time.Time {
	switch t.kind {
	case KindSimple:
		return t.simpleFireTimeAfter(after)
	case KindCron:
		return t.cronFireTimeAfter(after)
	}
	return time.Time{}
}

// FireTimeBefore returns the last fire time at or before end. Cron triggers
// cannot be walked backwards and always return zero.
func (t *Trigger) FireTimeBefore(end time.Time) time.Time {
	if t.kind != KindSimple {
		return time.Time{}
	}
	return t.simpleFireTimeBefore(end)
}

// FinalFireTime returns the last instant the trigger will fire, or zero if it
// repeats without bound or the kind cannot tell.
func (t *Trigger) FinalFireTime() time.Time {
	if t.kind != KindSimple {
		return time.Time{}
	}
	return t.simpleFinalFireTime()
}

// skipExcluded advances candidate until cal includes it. It gives up with zero
// once the candidate passes giveUpYear.
func (t *Trigger) skipExcluded(candidate time.Time, cal core.Calendar) time.Time {
	if cal == nil {
		return candidate
	}
	limit := giveUpYear()
	for !candidate.IsZero() && !cal.IsTimeIncluded(candidate) {
		// Jump straight to the calendar's next window when it can name one.
		if next := core.NextIncludedTime(cal, candidate); next.After(candidate) {
			candidate = t.FireTimeAfter(next.Add(-time.Nanosecond))
		} else if next.IsZero() {
			return time.Time{}
		} else {
			candidate = t.FireTimeAfter(candidate)
		}
		if candidate.IsZero() {
			return candidate
		}
		if candidate.Year() > limit {
			return time.Time{}
		}
	}
	return candidate
}
