package core

import "time"

// Calendar vetoes otherwise-due fire times.
//
// Implementations must be side-effect free and fast: the fire-time engine may
// consult a calendar many times while skipping excluded instants.
type Calendar interface {
	// IsTimeIncluded reports whether t is a permitted fire time.
	IsTimeIncluded(t time.Time) bool
}

// NextIncludedTimer is implemented by calendars that can name the first
// included instant after t. It returns the zero time if there is none, or t
// itself if the calendar cannot tell.
type NextIncludedTimer interface {
	NextIncludedTime(t time.Time) time.Time
}

// NextIncludedTime asks cal for its next included instant after t. Calendars
// that do not implement NextIncludedTimer answer t.
func NextIncludedTime(cal Calendar, t time.Time) time.Time {
	if n, ok := cal.(NextIncludedTimer); ok {
		return n.NextIncludedTime(t)
	}
	return t
}
