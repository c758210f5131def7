// Package builder provides fluent construction of jobs, triggers and their
// schedules, plus date helpers for picking start times.
//
// Builders never panic. The first invalid input is remembered and returned
// by Build.
//
//	t, err := builder.NewTrigger().
//		WithIdentity("nightly", "reports").
//		ForJob("report", "reports").
//		StartAt(builder.EvenHourDate(time.Time{})).
//		WithSchedule(builder.RepeatHourlyForever(24)).
//		Build()
package builder
