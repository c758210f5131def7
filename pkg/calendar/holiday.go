package calendar

import (
	"slices"
	"time"

	"github.com/jdziat/simple-triggers/pkg/core"
)

const dateLayout = "2006-01-02"

// Holiday excludes whole dates.
type Holiday struct {
	Base
	dates map[string]time.Time
}

// NewHoliday creates a holiday calendar chained to base, which may be nil.
func NewHoliday(base core.Calendar) *Holiday {
	return &Holiday{Base: Base{base: base}, dates: make(map[string]time.Time)}
}

// AddExcludedDate excludes the date d falls on.
func (h *Holiday) AddExcludedDate(d time.Time) {
	d = startOfDay(h.local(d))
	if h.dates == nil {
		h.dates = make(map[string]time.Time)
	}
	h.dates[d.Format(dateLayout)] = d
}

// RemoveExcludedDate includes the date d falls on again.
func (h *Holiday) RemoveExcludedDate(d time.Time) {
	delete(h.dates, h.local(d).Format(dateLayout))
}

// ExcludedDates returns the excluded dates in ascending order.
func (h *Holiday) ExcludedDates() []time.Time {
	out := make([]time.Time, 0, len(h.dates))
	for _, d := range h.dates {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return out
}

// IsDateExcluded reports whether the date t falls on is excluded.
func (h *Holiday) IsDateExcluded(t time.Time) bool {
	_, ok := h.dates[h.local(t).Format(dateLayout)]
	return ok
}

func (h *Holiday) IsTimeIncluded(t time.Time) bool {
	return h.Base.IsTimeIncluded(t) && !h.IsDateExcluded(t)
}

func (h *Holiday) NextIncludedTime(t time.Time) time.Time {
	return h.nextIncluded(t, func(c time.Time) bool { return !h.IsDateExcluded(c) }, h.ownNext)
}

func (h *Holiday) ownNext(t time.Time) time.Time {
	c := h.local(t).Add(time.Nanosecond)
	for i := 0; i < len(h.dates)+1; i++ {
		if !h.IsDateExcluded(c) {
			return c
		}
		c = startOfNextDay(c)
	}
	return time.Time{}
}
