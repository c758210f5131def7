package calendar

import (
	"fmt"
	"time"

	"github.com/jdziat/simple-triggers/pkg/core"
)

var timeOfDayLayouts = []string{"15:04", "15:04:05", "15:04:05.000"}

// Daily excludes the same time-of-day range on every day. When inverted it
// excludes everything outside the range instead.
//
// The range is half open: its start is excluded, its end is not.
type Daily struct {
	Base
	start    time.Duration
	end      time.Duration
	inverted bool
}

// NewDaily creates a daily calendar excluding [start, end), given as "15:04",
// "15:04:05" or "15:04:05.000". base may be nil.
func NewDaily(base core.Calendar, start, end string) (*Daily, error) {
	s, err := parseTimeOfDay(start)
	if err != nil {
		return nil, err
	}
	e, err := parseTimeOfDay(end)
	if err != nil {
		return nil, err
	}
	if s >= e {
		return nil, fmt.Errorf("%w: %s-%s", ErrInvalidRange, start, end)
	}
	return &Daily{Base: Base{base: base}, start: s, end: e}, nil
}

func parseTimeOfDay(s string) (time.Duration, error) {
	for _, layout := range timeOfDayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Sub(startOfDay(t)), nil
		}
	}
	return 0, fmt.Errorf("triggers: invalid time of day %q", s)
}

// SetInverted makes the range the only included part of the day.
func (d *Daily) SetInverted(inverted bool) { d.inverted = inverted }

// Inverted reports whether the range is the included part of the day.
func (d *Daily) Inverted() bool { return d.inverted }

// Range returns the start and end of the range as offsets from midnight.
func (d *Daily) Range() (time.Duration, time.Duration) { return d.start, d.end }

func (d *Daily) inRange(t time.Time) bool {
	t = d.local(t)
	off := t.Sub(startOfDay(t))
	return off >= d.start && off < d.end
}

func (d *Daily) ownIncluded(t time.Time) bool {
	return d.inRange(t) == d.inverted
}

func (d *Daily) IsTimeIncluded(t time.Time) bool {
	return d.Base.IsTimeIncluded(t) && d.ownIncluded(t)
}

func (d *Daily) NextIncludedTime(t time.Time) time.Time {
	return d.nextIncluded(t, d.ownIncluded, d.ownNext)
}

func (d *Daily) ownNext(t time.Time) time.Time {
	c := d.local(t).Add(time.Nanosecond)
	if d.ownIncluded(c) {
		return c
	}
	day := startOfDay(c)
	if !d.inverted {
		return day.Add(d.end)
	}
	if c.Sub(day) < d.start {
		return day.Add(d.start)
	}
	return startOfNextDay(c).Add(d.start)
}
