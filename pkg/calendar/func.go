package calendar

import (
	"time"

	"github.com/jdziat/simple-triggers/pkg/core"
)

// Func adapts a predicate to a calendar. It cannot predict its next included
// time, so the engine steps through fire times one by one.
type Func struct {
	Base
	fn func(time.Time) bool
}

// NewFunc creates a calendar including the instants fn accepts.
func NewFunc(base core.Calendar, description string, fn func(time.Time) bool) *Func {
	return &Func{Base: Base{base: base, description: description}, fn: fn}
}

func (f *Func) IsTimeIncluded(t time.Time) bool {
	return f.Base.IsTimeIncluded(t) && f.fn(t)
}

func (f *Func) NextIncludedTime(t time.Time) time.Time {
	return t
}
