// Package trigger implements triggers and their fire-time engine.
//
// A Trigger is a closed set of variants sharing one field set:
//   - KindSimple fires at start, start+interval, start+2*interval, ... up to a
//     repeat count or end time. All queries are closed-form arithmetic.
//   - KindCron fires on the instants of a cron expression parsed by robfig/cron.
//
// The engine mutates a trigger only through ComputeFirstFireTime, Triggered,
// UpdateAfterMisfire and UpdateWithNewCalendar. These methods never block and
// perform no I/O, but a Trigger is not safe for concurrent use: the caller must
// serialise them per trigger. Different triggers share no state.
//
// Instants that do not exist ("no next fire time") are the zero time.Time.
package trigger
