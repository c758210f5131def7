// Package core provides the fundamental types shared by the triggers packages.
//
// This package contains:
//   - Key, JobKey and TriggerKey identity values
//   - TriggerState and CompletedExecutionInstruction enumerations
//   - The Calendar interface consulted by the fire-time engine
//   - JobDetail descriptors and the JobExecutionError signal type
//   - Scheduler events and shutdown modes
//   - Sentinel validation errors
//
// Most users should import the root package github.com/jdziat/simple-triggers
// instead of this package directly.
package core
