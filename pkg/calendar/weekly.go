package calendar

import (
	"time"

	"github.com/jdziat/simple-triggers/pkg/core"
)

// Weekly excludes days of the week. A new Weekly excludes Saturday and Sunday.
type Weekly struct {
	Base
	excluded [7]bool
}

// NewWeekly creates a weekly calendar chained to base, which may be nil.
func NewWeekly(base core.Calendar) *Weekly {
	w := &Weekly{Base: Base{base: base}}
	w.excluded[time.Saturday] = true
	w.excluded[time.Sunday] = true
	return w
}

// SetDayExcluded excludes or includes day.
func (w *Weekly) SetDayExcluded(day time.Weekday, excluded bool) {
	w.excluded[day] = excluded
}

// IsDayExcluded reports whether day is excluded.
func (w *Weekly) IsDayExcluded(day time.Weekday) bool {
	return w.excluded[day]
}

// AreAllDaysExcluded reports whether the calendar excludes every day.
func (w *Weekly) AreAllDaysExcluded() bool {
	for _, ex := range w.excluded {
		if !ex {
			return false
		}
	}
	return true
}

func (w *Weekly) ownIncluded(t time.Time) bool {
	return !w.excluded[w.local(t).Weekday()]
}

func (w *Weekly) IsTimeIncluded(t time.Time) bool {
	return w.Base.IsTimeIncluded(t) && w.ownIncluded(t)
}

func (w *Weekly) NextIncludedTime(t time.Time) time.Time {
	if w.AreAllDaysExcluded() {
		return time.Time{}
	}
	return w.nextIncluded(t, w.ownIncluded, w.ownNext)
}

func (w *Weekly) ownNext(t time.Time) time.Time {
	c := w.local(t).Add(time.Nanosecond)
	for i := 0; i < 7; i++ {
		if w.ownIncluded(c) {
			return c
		}
		c = startOfNextDay(c)
	}
	return time.Time{}
}
