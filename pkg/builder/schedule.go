package builder

import (
	"fmt"
	"time"

	"github.com/jdziat/simple-triggers/pkg/core"
	"github.com/jdziat/simple-triggers/pkg/trigger"
)

// ScheduleBuilder creates the kind-specific part of a trigger.
type ScheduleBuilder interface {
	Build(key core.TriggerKey, start time.Time) (*trigger.Trigger, error)
}

// SimpleScheduleBuilder builds simple triggers.
type SimpleScheduleBuilder struct {
	interval    time.Duration
	repeatCount int
	misfire     trigger.MisfireInstruction
	err         error
}

// SimpleSchedule starts a simple schedule firing once.
func SimpleSchedule() *SimpleScheduleBuilder {
	return &SimpleScheduleBuilder{misfire: trigger.MisfireSmartPolicy}
}

func (b *SimpleScheduleBuilder) fail(err error) *SimpleScheduleBuilder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// WithInterval sets the gap between firings.
func (b *SimpleScheduleBuilder) WithInterval(d time.Duration) *SimpleScheduleBuilder {
	if d < 0 {
		return b.fail(core.ErrInvalidRepeatInterval)
	}
	b.interval = d
	return b
}

func (b *SimpleScheduleBuilder) WithIntervalInMilliseconds(n int64) *SimpleScheduleBuilder {
	return b.WithInterval(time.Duration(n) * time.Millisecond)
}

func (b *SimpleScheduleBuilder) WithIntervalInSeconds(n int) *SimpleScheduleBuilder {
	return b.WithInterval(time.Duration(n) * time.Second)
}

func (b *SimpleScheduleBuilder) WithIntervalInMinutes(n int) *SimpleScheduleBuilder {
	return b.WithInterval(time.Duration(n) * time.Minute)
}

func (b *SimpleScheduleBuilder) WithIntervalInHours(n int) *SimpleScheduleBuilder {
	return b.WithInterval(time.Duration(n) * time.Hour)
}

// WithRepeatCount sets the number of firings after the first.
func (b *SimpleScheduleBuilder) WithRepeatCount(n int) *SimpleScheduleBuilder {
	if n < 0 && n != trigger.RepeatIndefinitely {
		return b.fail(core.ErrInvalidRepeatCount)
	}
	b.repeatCount = n
	return b
}

// RepeatForever removes the repeat limit.
func (b *SimpleScheduleBuilder) RepeatForever() *SimpleScheduleBuilder {
	b.repeatCount = trigger.RepeatIndefinitely
	return b
}

func (b *SimpleScheduleBuilder) withMisfire(m trigger.MisfireInstruction) *SimpleScheduleBuilder {
	b.misfire = m
	return b
}

func (b *SimpleScheduleBuilder) WithMisfireHandlingInstructionIgnoreMisfires() *SimpleScheduleBuilder {
	return b.withMisfire(trigger.MisfireIgnorePolicy)
}

func (b *SimpleScheduleBuilder) WithMisfireHandlingInstructionFireNow() *SimpleScheduleBuilder {
	return b.withMisfire(trigger.MisfireFireNow)
}

func (b *SimpleScheduleBuilder) WithMisfireHandlingInstructionNextWithExistingCount() *SimpleScheduleBuilder {
	return b.withMisfire(trigger.MisfireRescheduleNextWithExistingCount)
}

func (b *SimpleScheduleBuilder) WithMisfireHandlingInstructionNextWithRemainingCount() *SimpleScheduleBuilder {
	return b.withMisfire(trigger.MisfireRescheduleNextWithRemainingCount)
}

func (b *SimpleScheduleBuilder) WithMisfireHandlingInstructionNowWithExistingCount() *SimpleScheduleBuilder {
	return b.withMisfire(trigger.MisfireRescheduleNowWithExistingRepeatCount)
}

func (b *SimpleScheduleBuilder) WithMisfireHandlingInstructionNowWithRemainingCount() *SimpleScheduleBuilder {
	return b.withMisfire(trigger.MisfireRescheduleNowWithRemainingRepeatCount)
}

// Build creates the simple trigger.
func (b *SimpleScheduleBuilder) Build(key core.TriggerKey, start time.Time) (*trigger.Trigger, error) {
	if b.err != nil {
		return nil, b.err
	}
	t, err := trigger.NewSimple(key, start, b.repeatCount, b.interval)
	if err != nil {
		return nil, err
	}
	if err := t.SetMisfireInstruction(b.misfire); err != nil {
		return nil, err
	}
	return t, nil
}

func every(unit time.Duration, n int) *SimpleScheduleBuilder {
	b := SimpleSchedule()
	if n < 1 {
		return b.fail(fmt.Errorf("%w: interval count %d", core.ErrInvalidRepeatInterval, n))
	}
	return b.WithInterval(time.Duration(n) * unit)
}

func forTotalCount(unit time.Duration, count, n int) *SimpleScheduleBuilder {
	b := every(unit, n)
	if count < 1 {
		return b.fail(fmt.Errorf("%w, got %d", core.ErrInvalidTotalCount, count))
	}
	return b.WithRepeatCount(count - 1)
}

// RepeatSecondlyForever fires every n seconds without limit.
func RepeatSecondlyForever(n int) *SimpleScheduleBuilder {
	return every(time.Second, n).RepeatForever()
}

// RepeatMinutelyForever fires every n minutes without limit.
func RepeatMinutelyForever(n int) *SimpleScheduleBuilder {
	return every(time.Minute, n).RepeatForever()
}

// RepeatHourlyForever fires every n hours without limit.
func RepeatHourlyForever(n int) *SimpleScheduleBuilder {
	return every(time.Hour, n).RepeatForever()
}

// RepeatSecondlyForTotalCount fires count times, n seconds apart.
func RepeatSecondlyForTotalCount(count, n int) *SimpleScheduleBuilder {
	return forTotalCount(time.Second, count, n)
}

// RepeatMinutelyForTotalCount fires count times, n minutes apart.
func RepeatMinutelyForTotalCount(count, n int) *SimpleScheduleBuilder {
	return forTotalCount(time.Minute, count, n)
}

// RepeatHourlyForTotalCount fires count times, n hours apart.
func RepeatHourlyForTotalCount(count, n int) *SimpleScheduleBuilder {
	return forTotalCount(time.Hour, count, n)
}

// CronScheduleBuilder builds cron triggers.
type CronScheduleBuilder struct {
	expr    string
	loc     *time.Location
	misfire trigger.MisfireInstruction
	err     error
}

// CronSchedule starts a cron schedule for expr, evaluated in UTC unless
// InTimeZone says otherwise.
func CronSchedule(expr string) *CronScheduleBuilder {
	return &CronScheduleBuilder{expr: expr, misfire: trigger.MisfireSmartPolicy}
}

// DailyAtHourAndMinute fires every day at hour:minute.
func DailyAtHourAndMinute(hour, minute int) *CronScheduleBuilder {
	if err := validateHourMinute(hour, minute); err != nil {
		return &CronScheduleBuilder{err: err}
	}
	return CronSchedule(fmt.Sprintf("%d %d * * *", minute, hour))
}

// WeeklyOnDayAndHourAndMinute fires every week on day at hour:minute.
func WeeklyOnDayAndHourAndMinute(day time.Weekday, hour, minute int) *CronScheduleBuilder {
	if err := validateHourMinute(hour, minute); err != nil {
		return &CronScheduleBuilder{err: err}
	}
	if day < time.Sunday || day > time.Saturday {
		return &CronScheduleBuilder{err: fmt.Errorf("triggers: invalid day of week %d", day)}
	}
	return CronSchedule(fmt.Sprintf("%d %d * * %d", minute, hour, day))
}

// MonthlyOnDayAndHourAndMinute fires every month on dayOfMonth at hour:minute.
func MonthlyOnDayAndHourAndMinute(dayOfMonth, hour, minute int) *CronScheduleBuilder {
	if err := validateHourMinute(hour, minute); err != nil {
		return &CronScheduleBuilder{err: err}
	}
	if err := validateDayOfMonth(dayOfMonth); err != nil {
		return &CronScheduleBuilder{err: err}
	}
	return CronSchedule(fmt.Sprintf("%d %d %d * *", minute, hour, dayOfMonth))
}

// InTimeZone evaluates the expression in loc.
func (b *CronScheduleBuilder) InTimeZone(loc *time.Location) *CronScheduleBuilder {
	b.loc = loc
	return b
}

func (b *CronScheduleBuilder) WithMisfireHandlingInstructionIgnoreMisfires() *CronScheduleBuilder {
	b.misfire = trigger.MisfireIgnorePolicy
	return b
}

func (b *CronScheduleBuilder) WithMisfireHandlingInstructionFireAndProceed() *CronScheduleBuilder {
	b.misfire = trigger.MisfireFireOnceNow
	return b
}

func (b *CronScheduleBuilder) WithMisfireHandlingInstructionDoNothing() *CronScheduleBuilder {
	b.misfire = trigger.MisfireDoNothing
	return b
}

// Build creates the cron trigger.
func (b *CronScheduleBuilder) Build(key core.TriggerKey, start time.Time) (*trigger.Trigger, error) {
	if b.err != nil {
		return nil, b.err
	}
	t, err := trigger.NewCron(key, b.expr, b.loc, start)
	if err != nil {
		return nil, err
	}
	if err := t.SetMisfireInstruction(b.misfire); err != nil {
		return nil, err
	}
	return t, nil
}
