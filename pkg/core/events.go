package core

import "time"

// Event is the interface for all scheduler events.
type Event interface {
	eventMarker()
}

// TriggerFired is emitted when a trigger fires and its job is handed to a worker.
type TriggerFired struct {
	Trigger           TriggerKey
	Job               JobKey
	FireInstanceID    string
	ScheduledFireTime time.Time
	Timestamp         time.Time
}

func (*TriggerFired) eventMarker() {}

// TriggerMisfired is emitted when a trigger's misfire instruction was applied.
type TriggerMisfired struct {
	Trigger        TriggerKey
	MissedFireTime time.Time
	NextFireTime   time.Time
	Timestamp      time.Time
}

func (*TriggerMisfired) eventMarker() {}

// JobExecuted is emitted when a job run returns.
type JobExecuted struct {
	Trigger     TriggerKey
	Job         JobKey
	Err         error
	Duration    time.Duration
	Instruction CompletedExecutionInstruction
	Timestamp   time.Time
}

func (*JobExecuted) eventMarker() {}

// TriggerFinalized is emitted when a trigger will never fire again.
type TriggerFinalized struct {
	Trigger   TriggerKey
	Timestamp time.Time
}

func (*TriggerFinalized) eventMarker() {}

// SchedulerError is emitted when the dispatch loop hits a problem it recovers from.
type SchedulerError struct {
	Message   string
	Err       error
	Timestamp time.Time
}

func (*SchedulerError) eventMarker() {}
