package core

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors
var (
	ErrInvalidName               = errors.New("triggers: name cannot be empty")
	ErrInvalidGroup              = errors.New("triggers: group cannot be an empty string")
	ErrInvalidJobName            = errors.New("triggers: job name cannot be empty")
	ErrInvalidStartTime          = errors.New("triggers: start time cannot be zero")
	ErrEndBeforeStart            = errors.New("triggers: end time cannot be before start time")
	ErrInvalidRepeatCount        = errors.New("triggers: repeat count must be >= 0, use RepeatIndefinitely for infinite")
	ErrInvalidRepeatInterval     = errors.New("triggers: repeat interval must be >= 0")
	ErrZeroRepeatInterval        = errors.New("triggers: repeat interval cannot be zero when repeat count is not zero")
	ErrInvalidMisfireInstruction = errors.New("triggers: the misfire instruction code is invalid for this type of trigger")
	ErrInvalidCronExpression     = errors.New("triggers: invalid cron expression")
	ErrUnknownTriggerKind        = errors.New("triggers: unknown trigger kind")
	ErrKindMismatch              = errors.New("triggers: operation not supported by this trigger kind")
	ErrInvalidJobType            = errors.New("triggers: job type cannot be empty")
	ErrInvalidTotalCount         = errors.New("triggers: total count of firings must be at least one")
	ErrInvalidJobTypeName        = errors.New("triggers: invalid job type name")
	ErrJobTypeNameTooLong        = errors.New("triggers: job type name exceeds maximum length")
	ErrInvalidCalendarName       = errors.New("triggers: invalid calendar name")
)

// Store errors
var (
	ErrObjectAlreadyExists = errors.New("triggers: object already exists")
	ErrJobNotFound         = errors.New("triggers: job not found")
	ErrTriggerNotFound     = errors.New("triggers: trigger not found")
	ErrCalendarNotFound    = errors.New("triggers: calendar not found")
)

// JobExecutionError is returned by a job to steer the scheduler after a run.
//
// A failing job never aborts the scheduler. The three flags are translated into a
// CompletedExecutionInstruction by the trigger that fired the job.
type JobExecutionError struct {
	Err                     error
	RefireImmediately       bool
	UnscheduleFiringTrigger bool
	UnscheduleAllTriggers   bool
}

func (e *JobExecutionError) Error() string {
	var flags []string
	if e.RefireImmediately {
		flags = append(flags, "refire")
	}
	if e.UnscheduleFiringTrigger {
		flags = append(flags, "unschedule trigger")
	}
	if e.UnscheduleAllTriggers {
		flags = append(flags, "unschedule all triggers")
	}
	msg := "job execution failed"
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(flags) > 0 {
		msg = fmt.Sprintf("%s [%s]", msg, strings.Join(flags, ", "))
	}
	return msg
}

func (e *JobExecutionError) Unwrap() error {
	return e.Err
}

// Refire wraps an error to ask the scheduler to run the job again immediately.
func Refire(err error) error {
	return &JobExecutionError{Err: err, RefireImmediately: true}
}

// UnscheduleTrigger wraps an error to ask the scheduler to complete the firing trigger.
func UnscheduleTrigger(err error) error {
	return &JobExecutionError{Err: err, UnscheduleFiringTrigger: true}
}

// UnscheduleAll wraps an error to ask the scheduler to complete every trigger of the job.
func UnscheduleAll(err error) error {
	return &JobExecutionError{Err: err, UnscheduleAllTriggers: true}
}
