package builder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-triggers/pkg/core"
	"github.com/jdziat/simple-triggers/pkg/trigger"
)

var t0 = time.Date(2024, 3, 10, 14, 22, 37, 500_000_000, time.UTC)

func TestTriggerBuilder_Defaults(t *testing.T) {
	before := time.Now()
	tr, err := NewTrigger().Build()
	require.NoError(t, err)

	assert.Equal(t, trigger.KindSimple, tr.Kind())
	assert.Equal(t, core.DefaultGroup, tr.Key().Group())
	assert.NotEmpty(t, tr.Key().Name())
	assert.Equal(t, 0, tr.RepeatCount())
	assert.Equal(t, trigger.DefaultPriority, tr.Priority())
	assert.False(t, tr.StartTime().Before(before))
	assert.True(t, tr.JobData().IsEmpty())
}

func TestTriggerBuilder_Full(t *testing.T) {
	tr, err := NewTrigger().
		WithIdentity("nightly", "reports").
		WithDescription("nightly report").
		WithPriority(9).
		ModifiedByCalendar("holidays").
		ForJob("report", "reports").
		StartAt(t0).
		EndAt(t0.Add(time.Hour)).
		UsingJobData("format", "pdf").
		WithSchedule(SimpleSchedule().WithIntervalInMinutes(10).WithRepeatCount(3).
			WithMisfireHandlingInstructionNextWithRemainingCount()).
		Build()
	require.NoError(t, err)

	assert.Equal(t, core.MustTriggerKey("nightly", "reports"), tr.Key())
	assert.Equal(t, core.MustJobKey("report", "reports"), tr.JobKey())
	assert.Equal(t, "nightly report", tr.Description())
	assert.Equal(t, 9, tr.Priority())
	assert.Equal(t, "holidays", tr.CalendarName())
	assert.Equal(t, t0, tr.StartTime())
	assert.Equal(t, t0.Add(time.Hour), tr.EndTime())
	assert.Equal(t, 3, tr.RepeatCount())
	assert.Equal(t, 10*time.Minute, tr.RepeatInterval())
	assert.Equal(t, trigger.MisfireRescheduleNextWithRemainingCount, tr.MisfireInstruction())

	format, err := tr.JobData().String("format")
	require.NoError(t, err)
	assert.Equal(t, "pdf", format)
	assert.False(t, tr.JobData().Dirty())
}

func TestTriggerBuilder_Errors(t *testing.T) {
	_, err := NewTrigger().WithIdentity("", "g").Build()
	assert.ErrorIs(t, err, core.ErrInvalidName)

	_, err = NewTrigger().StartAt(t0).EndAt(t0.Add(-time.Second)).Build()
	assert.ErrorIs(t, err, core.ErrEndBeforeStart)

	_, err = NewTrigger().ForJobDetail(nil).Build()
	assert.ErrorIs(t, err, core.ErrInvalidJobName)

	_, err = NewTrigger().WithSchedule(SimpleSchedule().WithRepeatCount(-5)).Build()
	assert.ErrorIs(t, err, core.ErrInvalidRepeatCount)

	_, err = NewTrigger().WithSchedule(SimpleSchedule().WithInterval(-time.Second)).Build()
	assert.ErrorIs(t, err, core.ErrInvalidRepeatInterval)
}

func TestRepeatHelpers(t *testing.T) {
	tr, err := NewTrigger().StartAt(t0).WithSchedule(RepeatMinutelyForever(2)).Build()
	require.NoError(t, err)
	assert.Equal(t, trigger.RepeatIndefinitely, tr.RepeatCount())
	assert.Equal(t, 2*time.Minute, tr.RepeatInterval())

	tr, err = NewTrigger().StartAt(t0).WithSchedule(RepeatHourlyForTotalCount(4, 1)).Build()
	require.NoError(t, err)
	assert.Equal(t, 3, tr.RepeatCount())
	assert.Equal(t, time.Hour, tr.RepeatInterval())

	tr.ComputeFirstFireTime(nil)
	assert.Equal(t, t0.Add(3*time.Hour), tr.FinalFireTime())

	tr, err = NewTrigger().StartAt(t0).WithSchedule(RepeatSecondlyForever(30)).Build()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, tr.RepeatInterval())

	_, err = NewTrigger().WithSchedule(RepeatSecondlyForTotalCount(0, 1)).Build()
	assert.ErrorIs(t, err, core.ErrInvalidTotalCount)

	_, err = NewTrigger().WithSchedule(RepeatMinutelyForTotalCount(3, 0)).Build()
	assert.ErrorIs(t, err, core.ErrInvalidRepeatInterval)
}

func TestCronSchedule(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tr, err := NewTrigger().
		StartAt(t0).
		WithSchedule(CronSchedule("0 9 * * 1-5").InTimeZone(ny).WithMisfireHandlingInstructionDoNothing()).
		Build()
	require.NoError(t, err)
	assert.Equal(t, trigger.KindCron, tr.Kind())
	assert.Equal(t, ny, tr.Location())
	assert.Equal(t, trigger.MisfireDoNothing, tr.MisfireInstruction())

	_, err = NewTrigger().WithSchedule(CronSchedule("bogus")).Build()
	assert.ErrorIs(t, err, core.ErrInvalidCronExpression)
}

func TestCronConvenience(t *testing.T) {
	tr, err := NewTrigger().StartAt(t0).WithSchedule(DailyAtHourAndMinute(6, 30)).Build()
	require.NoError(t, err)
	assert.Equal(t, "30 6 * * *", tr.CronExpression())
	assert.Equal(t, time.Date(2024, 3, 11, 6, 30, 0, 0, time.UTC), tr.ComputeFirstFireTime(nil))

	tr, err = NewTrigger().StartAt(t0).WithSchedule(WeeklyOnDayAndHourAndMinute(time.Friday, 17, 0)).Build()
	require.NoError(t, err)
	assert.Equal(t, "0 17 * * 5", tr.CronExpression())

	tr, err = NewTrigger().StartAt(t0).WithSchedule(MonthlyOnDayAndHourAndMinute(1, 0, 0)).Build()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), tr.ComputeFirstFireTime(nil))

	_, err = NewTrigger().WithSchedule(DailyAtHourAndMinute(24, 0)).Build()
	assert.ErrorIs(t, err, ErrInvalidHour)

	_, err = NewTrigger().WithSchedule(MonthlyOnDayAndHourAndMinute(32, 0, 0)).Build()
	assert.ErrorIs(t, err, ErrInvalidDay)
}

func TestJobBuilder(t *testing.T) {
	d, err := NewJob("report").
		WithIdentity("nightly", "reports").
		WithDescription("builds the report").
		StoreDurably(true).
		RequestRecovery(true).
		DisallowConcurrentExecution(true).
		PersistJobDataAfterExecution(true).
		UsingJobData("pages", 3).
		Build()
	require.NoError(t, err)

	assert.Equal(t, core.MustJobKey("nightly", "reports"), d.Key)
	assert.Equal(t, "report", d.JobType)
	assert.True(t, d.Durable)
	assert.True(t, d.RequestsRecovery)
	assert.True(t, d.ConcurrentExecutionDisallowed)
	assert.True(t, d.PersistJobDataAfterExecution)
	pages, err := d.Data.Int("pages")
	require.NoError(t, err)
	assert.Equal(t, 3, pages)

	d, err = NewJob("cleanup").Build()
	require.NoError(t, err)
	assert.Equal(t, core.DefaultGroup, d.Key.Group())
	assert.Nil(t, d.Data)

	_, err = NewJob("").Build()
	assert.ErrorIs(t, err, core.ErrInvalidJobType)

	_, err = NewJob("x").WithIdentity(" ", "").Build()
	assert.ErrorIs(t, err, core.ErrInvalidName)
}

func TestDateHelpers(t *testing.T) {
	assert.Equal(t, time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC), EvenHourDate(t0))
	assert.Equal(t, time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC), EvenHourDateBefore(t0))
	assert.Equal(t, time.Date(2024, 3, 10, 14, 23, 0, 0, time.UTC), EvenMinuteDate(t0))
	assert.Equal(t, time.Date(2024, 3, 10, 14, 22, 0, 0, time.UTC), EvenMinuteDateBefore(t0))
	assert.Equal(t, time.Date(2024, 3, 10, 14, 22, 38, 0, time.UTC), EvenSecondDate(t0))
	assert.Equal(t, time.Date(2024, 3, 10, 14, 22, 37, 0, time.UTC), EvenSecondDateBefore(t0))

	assert.Equal(t, t0.AddDate(0, 1, 0), FutureDateFrom(t0, 1, Month))
	assert.Equal(t, t0.Add(90*time.Second), FutureDateFrom(t0, 90, Second))
	assert.Equal(t, t0.AddDate(0, 0, 14), FutureDateFrom(t0, 2, Week))

	d, err := DateOf(8, 15, 0, t0)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 8, 15, 0, 0, time.UTC), d)

	_, err = DateOf(8, 60, 0, t0)
	assert.ErrorIs(t, err, ErrInvalidMinute)
	_, err = DateOfYMD(0, 0, 0, 1, 13, 2024, time.UTC)
	assert.ErrorIs(t, err, ErrInvalidMonth)

	tomorrow, err := TomorrowAt(23, 59, 59)
	require.NoError(t, err)
	assert.True(t, tomorrow.After(time.Now()))
}

func TestNextGivenDates(t *testing.T) {
	next, err := NextGivenMinuteDate(t0, 15)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC), next)

	next, err = NextGivenMinuteDate(t0, 45)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 14, 45, 0, 0, time.UTC), next)

	next, err = NextGivenMinuteDate(t0, 0)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC), next)

	next, err = NextGivenMinuteDate(time.Date(2024, 3, 10, 14, 50, 0, 0, time.UTC), 25)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC), next)

	next, err = NextGivenSecondDate(t0, 10)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 14, 22, 40, 0, time.UTC), next)

	_, err = NextGivenMinuteDate(t0, 60)
	assert.Error(t, err)
	_, err = NextGivenSecondDate(t0, -1)
	assert.Error(t, err)
}
