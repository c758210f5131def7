package scheduler

import "errors"

var (
	ErrAlreadyStarted     = errors.New("triggers: scheduler already started")
	ErrNilJob             = errors.New("triggers: job implementation cannot be nil")
	ErrJobNotRegistered   = errors.New("triggers: no job registered for type")
	ErrWillNeverFire      = errors.New("triggers: based on configured schedule, the given trigger will never fire")
	ErrJobNotDurable      = errors.New("triggers: jobs added with no trigger must be durable")
	ErrJobMismatch        = errors.New("triggers: trigger does not reference the given job")
	ErrCalendarInUse      = errors.New("triggers: calendar is referenced by triggers")
	ErrCalendarNotDefined = errors.New("triggers: calendar not found")
)
