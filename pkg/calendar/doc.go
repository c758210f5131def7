// Package calendar provides exclusion calendars for the fire-time engine.
//
// This package includes:
//   - Base, which chains an optional base calendar; every calendar embeds it
//   - Holiday for excluding whole dates
//   - Weekly for excluding days of the week
//   - Daily for excluding a time-of-day range, or everything outside it
//   - Func for adapting a predicate
//
// A time is included only if the calendar and its whole base chain include it.
// Calendars are not safe for concurrent mutation. Configure them before
// handing them to a scheduler.
package calendar
