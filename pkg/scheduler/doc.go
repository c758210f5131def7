// Package scheduler runs triggers against a Store.
//
// A single dispatch loop acquires due triggers, applies misfire handling,
// advances each trigger and hands the resulting execution to a worker pool.
// Workers report back to the loop, which applies the completion instruction.
// All trigger mutation therefore happens on the loop goroutine or in the
// registry operations, both serialised by the store.
//
//	s, err := scheduler.New(storage.NewGormStore(db), scheduler.WithWorkers(4))
//	s.RegisterJob("report", jobctx.JobFunc(buildReport))
//	s.ScheduleJob(ctx, detail, trig)
//	s.Start(ctx) // blocks until ctx is cancelled
package scheduler
