package calendar

import (
	"errors"
	"time"

	"github.com/jdziat/simple-triggers/pkg/core"
)

// ErrInvalidRange is returned when a daily range does not start before it ends.
var ErrInvalidRange = errors.New("triggers: calendar range start must be before its end")

// maxBaseSteps bounds the alternation between a calendar and its base chain
// when searching for the next time both include.
const maxBaseSteps = 1000

// Base holds what all calendars share: an optional base calendar, a
// description and the location dates are evaluated in.
type Base struct {
	base        core.Calendar
	description string
	loc         *time.Location
}

// NewBase creates a calendar that includes everything its base includes.
func NewBase(base core.Calendar) *Base {
	return &Base{base: base}
}

// SetBaseCalendar chains c beneath this calendar. nil removes the chain.
func (b *Base) SetBaseCalendar(c core.Calendar) { b.base = c }

// BaseCalendar returns the chained calendar, or nil.
func (b *Base) BaseCalendar() core.Calendar { return b.base }

func (b *Base) SetDescription(d string) { b.description = d }
func (b *Base) Description() string     { return b.description }

// SetLocation sets the time zone dates and times of day are evaluated in.
// nil evaluates each instant in its own location.
func (b *Base) SetLocation(loc *time.Location) { b.loc = loc }

// Location returns the configured time zone, or nil.
func (b *Base) Location() *time.Location { return b.loc }

// IsTimeIncluded reports whether the base chain includes t.
func (b *Base) IsTimeIncluded(t time.Time) bool {
	return b.base == nil || b.base.IsTimeIncluded(t)
}

// NextIncludedTime returns the next instant after t the base chain includes.
func (b *Base) NextIncludedTime(t time.Time) time.Time {
	if b.base == nil {
		return t.Add(time.Nanosecond)
	}
	return core.NextIncludedTime(b.base, t)
}

func (b *Base) local(t time.Time) time.Time {
	if b.loc == nil {
		return t
	}
	return t.In(b.loc)
}

// nextIncluded finds the first instant after t that both the calendar and its
// base chain include. ownIncluded and ownNext describe the calendar itself.
// It returns t when the base chain cannot tell.
func (b *Base) nextIncluded(t time.Time, ownIncluded func(time.Time) bool, ownNext func(time.Time) time.Time) time.Time {
	candidate := ownNext(t)
	for i := 0; i < maxBaseSteps && !candidate.IsZero(); i++ {
		if b.base == nil || b.base.IsTimeIncluded(candidate) {
			return candidate
		}
		next := core.NextIncludedTime(b.base, candidate)
		switch {
		case next.IsZero():
			return time.Time{}
		case !next.After(candidate):
			return t
		case ownIncluded(next):
			candidate = next
		default:
			candidate = ownNext(next)
		}
	}
	if candidate.IsZero() {
		return candidate
	}
	return t
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func startOfNextDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
