package triggers_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	triggers "github.com/jdziat/simple-triggers"
)

func setupScheduler(t *testing.T, opts ...triggers.Option) *triggers.Scheduler {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := triggers.NewGormStore(db)
	require.NoError(t, store.Migrate(context.Background()))

	base := []triggers.Option{
		triggers.WithPollInterval(10 * time.Millisecond),
		triggers.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	s, err := triggers.New(store, append(base, opts...)...)
	require.NoError(t, err)
	return s
}

func TestFacade_ScheduleWithBuilders(t *testing.T) {
	ctx := context.Background()
	s := setupScheduler(t)

	type args struct {
		Team string `json:"team"`
	}
	seen := make(chan string, 10)
	require.NoError(t, s.RegisterFunc("report", func(ctx context.Context, in args) error {
		assert.NotEmpty(t, triggers.FireInstanceIDFromContext(ctx))
		seen <- in.Team
		return nil
	}))

	job, err := triggers.NewJob("report").WithIdentity("daily", "finance").UsingJobData("team", "finance").Build()
	require.NoError(t, err)
	tr, err := triggers.NewTrigger().
		WithIdentity("burst", "finance").
		StartNow().
		UsingJobData("team", "finance-eu").
		WithSchedule(triggers.SimpleSchedule().WithIntervalInMilliseconds(20).WithRepeatCount(1)).
		Build()
	require.NoError(t, err)

	events := s.Listeners().Events()
	defer s.Listeners().Unsubscribe(events)

	_, err = s.ScheduleJob(ctx, job, tr)
	require.NoError(t, err)

	runCtx, cancel := context.WithCancel(ctx)
	errc := make(chan error, 1)
	go func() { errc <- s.Start(runCtx) }()
	defer func() {
		cancel()
		assert.ErrorIs(t, <-errc, context.Canceled)
	}()

	executed := 0
	deadline := time.After(3 * time.Second)
	for executed < 2 {
		select {
		case e := <-events:
			if je, ok := e.(*triggers.JobExecuted); ok {
				assert.NoError(t, je.Err)
				assert.Equal(t, job.Key, je.Job)
				executed++
			}
		case <-deadline:
			t.Fatalf("saw %d executions", executed)
		}
	}
	assert.Equal(t, "finance-eu", <-seen, "trigger data overrides job data")
}

func TestFacade_CronTriggerWithCalendar(t *testing.T) {
	ctx := context.Background()
	s := setupScheduler(t)

	weekdays := triggers.NewWeeklyCalendar(nil)
	require.NoError(t, s.AddCalendar(ctx, "weekdays", weekdays, false, false))

	job, err := triggers.NewJob("noop").StoreDurably(true).Build()
	require.NoError(t, err)
	require.NoError(t, s.AddJob(ctx, job, false))

	// Saturday 2030-01-05 08:00 UTC; the first weekday 06:30 is Monday the 7th.
	start := time.Date(2030, 1, 5, 8, 0, 0, 0, time.UTC)
	tr, err := triggers.NewTrigger().
		ForJobDetail(job).
		StartAt(start).
		ModifiedByCalendar("weekdays").
		WithSchedule(triggers.DailyAtHourAndMinute(6, 30).InTimeZone(time.UTC)).
		Build()
	require.NoError(t, err)

	first, err := s.ScheduleTrigger(ctx, tr)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, 1, 7, 6, 30, 0, 0, time.UTC), first.UTC())

	state, err := s.TriggerState(ctx, tr.Key())
	require.NoError(t, err)
	assert.Equal(t, triggers.StateNormal, state)
}

func TestFacade_Errors(t *testing.T) {
	ctx := context.Background()
	s := setupScheduler(t)

	_, err := triggers.NewJobKey("", "")
	assert.ErrorIs(t, err, triggers.ErrInvalidName)

	_, err = triggers.NewTrigger().WithSchedule(triggers.CronSchedule("every tuesday")).Build()
	assert.ErrorIs(t, err, triggers.ErrInvalidCronExpression)

	k, err := triggers.NewJobKey("missing", "")
	require.NoError(t, err)
	assert.ErrorIs(t, s.TriggerJob(ctx, k, nil), triggers.ErrJobNotFound)

	var jee *triggers.JobExecutionError
	require.True(t, errors.As(triggers.Refire(errors.New("again")), &jee))
	assert.True(t, jee.RefireImmediately)
	require.True(t, errors.As(triggers.UnscheduleAll(nil), &jee))
	assert.True(t, jee.UnscheduleAllTriggers)
}

func TestFacade_Constants(t *testing.T) {
	assert.Equal(t, "DEFAULT", triggers.DefaultGroup)
	assert.Equal(t, -1, triggers.RepeatIndefinitely)
	assert.Equal(t, triggers.MisfireInstruction(-1), triggers.MisfireIgnorePolicy)
	assert.Equal(t, triggers.MisfireInstruction(1), triggers.MisfireFireOnceNow)
	assert.Equal(t, triggers.ShutdownMode("graceful"), triggers.ShutdownGraceful)
}
