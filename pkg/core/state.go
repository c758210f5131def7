package core

// TriggerState is the scheduling state of a trigger.
// It is owned by the scheduler; the fire-time engine only reads it.
type TriggerState string

const (
	StateNone     TriggerState = "none"
	StateNormal   TriggerState = "normal"
	StatePaused   TriggerState = "paused"
	StateComplete TriggerState = "complete"
	StateError    TriggerState = "error"
	StateBlocked  TriggerState = "blocked" // Job disallows concurrent runs and one is in flight
)

// Dispatchable reports whether a trigger in this state may fire and have its
// fire times advanced.
func (s TriggerState) Dispatchable() bool {
	return s == StateNormal
}

// CompletedExecutionInstruction tells the scheduler what to do with a trigger
// after its job has run.
type CompletedExecutionInstruction string

const (
	InstructionNoop                      CompletedExecutionInstruction = "noop"
	InstructionReExecuteJob              CompletedExecutionInstruction = "re_execute_job"
	InstructionSetTriggerComplete        CompletedExecutionInstruction = "set_trigger_complete"
	InstructionDeleteTrigger             CompletedExecutionInstruction = "delete_trigger"
	InstructionSetAllJobTriggersComplete CompletedExecutionInstruction = "set_all_job_triggers_complete"
	InstructionSetTriggerError           CompletedExecutionInstruction = "set_trigger_error"
	InstructionSetAllJobTriggersError    CompletedExecutionInstruction = "set_all_job_triggers_error"
)
