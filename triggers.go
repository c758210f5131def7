// Package triggers schedules jobs with simple repeating triggers and cron
// triggers, misfire recovery, exclusion calendars and listeners, persisted
// through GORM.
//
// This is the main package users should import. It re-exports the public
// types of the pkg/ packages for a compact API surface.
//
// Basic usage:
//
//	db, _ := gorm.Open(sqlite.Open("triggers.db"), &gorm.Config{})
//	store := triggers.NewGormStore(db)
//	store.Migrate(context.Background())
//	sched, _ := triggers.New(store)
//
//	sched.RegisterFunc("send-report", func(ctx context.Context, in ReportArgs) error {
//	    return sendReport(in)
//	})
//
//	job, _ := triggers.NewJob("send-report").WithIdentity("daily", "reports").Build()
//	t, _ := triggers.NewTrigger().
//	    WithIdentity("daily", "reports").
//	    WithSchedule(triggers.DailyAtHourAndMinute(6, 30)).
//	    Build()
//	sched.ScheduleJob(ctx, job, t)
//
//	sched.Start(ctx)
package triggers

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/jdziat/simple-triggers/pkg/builder"
	"github.com/jdziat/simple-triggers/pkg/calendar"
	"github.com/jdziat/simple-triggers/pkg/core"
	"github.com/jdziat/simple-triggers/pkg/jobctx"
	"github.com/jdziat/simple-triggers/pkg/jobdata"
	"github.com/jdziat/simple-triggers/pkg/listener"
	"github.com/jdziat/simple-triggers/pkg/scheduler"
	"github.com/jdziat/simple-triggers/pkg/storage"
	"github.com/jdziat/simple-triggers/pkg/trigger"
)

type (
	// Key identifies a job or trigger by name within a group.
	Key = core.Key
	// JobKey identifies a job.
	JobKey = core.JobKey
	// TriggerKey identifies a trigger.
	TriggerKey = core.TriggerKey

	// JobDetail describes a stored job.
	JobDetail = core.JobDetail
	// JobDataMap holds the data passed to a job.
	JobDataMap = jobdata.Map

	// Trigger decides when a job fires.
	Trigger = trigger.Trigger
	// MisfireInstruction selects how a trigger recovers missed fire times.
	MisfireInstruction = trigger.MisfireInstruction

	// TriggerState is the stored state of a trigger.
	TriggerState = core.TriggerState
	// CompletedExecutionInstruction tells the scheduler what to do after a run.
	CompletedExecutionInstruction = core.CompletedExecutionInstruction
	// JobExecutionError steers the scheduler after a failed run.
	JobExecutionError = core.JobExecutionError
	// Calendar excludes instants from a trigger's schedule.
	Calendar = core.Calendar
	// NextIncludedTimer lets a calendar name its next included instant.
	NextIncludedTimer = core.NextIncludedTimer
	// ShutdownMode controls what happens to running jobs on shutdown.
	ShutdownMode = core.ShutdownMode

	// Event is the interface of everything sent on Listeners().Events().
	Event = core.Event
	// TriggerFired is emitted when a trigger is handed to a worker.
	TriggerFired = core.TriggerFired
	// TriggerMisfired is emitted after a misfire instruction has been applied.
	TriggerMisfired = core.TriggerMisfired
	// JobExecuted is emitted after every run.
	JobExecuted = core.JobExecuted
	// TriggerFinalized is emitted when a trigger will never fire again.
	TriggerFinalized = core.TriggerFinalized
	// SchedulerError is emitted when the loop hits a store or job lookup error.
	SchedulerError = core.SchedulerError

	// Job is the unit of work a trigger fires.
	Job = jobctx.Job
	// JobFunc adapts a function to Job.
	JobFunc = jobctx.JobFunc
	// ExecutionContext describes one run of a job.
	ExecutionContext = jobctx.ExecutionContext

	// Scheduler fires stored triggers.
	Scheduler = scheduler.Scheduler
	// Config holds scheduler configuration.
	Config = scheduler.Config
	// Option configures a Scheduler.
	Option = scheduler.Option
	// RetryConfig controls retries of failing store calls.
	RetryConfig = scheduler.RetryConfig
	// Store persists jobs and triggers.
	Store = scheduler.Store

	// GormStore implements Store using GORM.
	GormStore = storage.GormStore

	// JobListener is notified around job runs.
	JobListener = listener.JobListener
	// TriggerListener is notified when triggers fire, misfire and complete.
	TriggerListener = listener.TriggerListener
	// SchedulerListener is notified about registry changes and the lifecycle.
	SchedulerListener = listener.SchedulerListener
	// JobListenerBase implements JobListener with no-ops, except Name.
	JobListenerBase = listener.JobListenerBase
	// TriggerListenerBase implements TriggerListener with no-ops, except Name.
	TriggerListenerBase = listener.TriggerListenerBase
	// SchedulerListenerBase implements SchedulerListener with no-ops.
	SchedulerListenerBase = listener.SchedulerListenerBase

	// JobBuilder builds JobDetails.
	JobBuilder = builder.JobBuilder
	// TriggerBuilder builds Triggers.
	TriggerBuilder = builder.TriggerBuilder
	// ScheduleBuilder supplies the schedule part of a trigger.
	ScheduleBuilder = builder.ScheduleBuilder
	// SimpleScheduleBuilder builds simple schedules.
	SimpleScheduleBuilder = builder.SimpleScheduleBuilder
	// CronScheduleBuilder builds cron schedules.
	CronScheduleBuilder = builder.CronScheduleBuilder
)

// DefaultGroup is the group of keys created without one.
const DefaultGroup = core.DefaultGroup

// RepeatIndefinitely makes a simple trigger repeat until its end time.
const RepeatIndefinitely = trigger.RepeatIndefinitely

// Trigger states
const (
	StateNone     = core.StateNone
	StateNormal   = core.StateNormal
	StatePaused   = core.StatePaused
	StateComplete = core.StateComplete
	StateError    = core.StateError
	StateBlocked  = core.StateBlocked
)

// Misfire instructions shared by all trigger kinds
const (
	MisfireIgnorePolicy = trigger.MisfireIgnorePolicy
	MisfireSmartPolicy  = trigger.MisfireSmartPolicy
)

// Simple trigger misfire instructions
const (
	MisfireFireNow                               = trigger.MisfireFireNow
	MisfireRescheduleNowWithExistingRepeatCount  = trigger.MisfireRescheduleNowWithExistingRepeatCount
	MisfireRescheduleNowWithRemainingRepeatCount = trigger.MisfireRescheduleNowWithRemainingRepeatCount
	MisfireRescheduleNextWithRemainingCount      = trigger.MisfireRescheduleNextWithRemainingCount
	MisfireRescheduleNextWithExistingCount       = trigger.MisfireRescheduleNextWithExistingCount
)

// Cron trigger misfire instructions
const (
	MisfireFireOnceNow = trigger.MisfireFireOnceNow
	MisfireDoNothing   = trigger.MisfireDoNothing
)

// Shutdown modes
const (
	ShutdownGraceful   = core.ShutdownGraceful
	ShutdownAggressive = core.ShutdownAggressive
)

// Error variables
var (
	ErrInvalidName               = core.ErrInvalidName
	ErrInvalidMisfireInstruction = core.ErrInvalidMisfireInstruction
	ErrInvalidCronExpression     = core.ErrInvalidCronExpression
	ErrObjectAlreadyExists       = core.ErrObjectAlreadyExists
	ErrJobNotFound               = core.ErrJobNotFound
	ErrTriggerNotFound           = core.ErrTriggerNotFound
	ErrWillNeverFire             = scheduler.ErrWillNeverFire
	ErrJobNotRegistered          = scheduler.ErrJobNotRegistered
	ErrCalendarInUse             = scheduler.ErrCalendarInUse
)

// New creates a scheduler over store.
func New(store Store, opts ...Option) (*Scheduler, error) {
	return scheduler.New(store, opts...)
}

// NewGormStore creates a GORM-backed store.
func NewGormStore(db *gorm.DB) *GormStore {
	return storage.NewGormStore(db)
}

// LoadConfig reads a YAML scheduler configuration file.
func LoadConfig(path string) (Config, error) {
	return scheduler.LoadConfig(path)
}

// NewJobKey creates a job key, defaulting the group to DefaultGroup.
func NewJobKey(name, group string) (JobKey, error) {
	return core.NewJobKey(name, group)
}

// NewTriggerKey creates a trigger key, defaulting the group to DefaultGroup.
func NewTriggerKey(name, group string) (TriggerKey, error) {
	return core.NewTriggerKey(name, group)
}

// NewJobDataMap returns an empty job data map.
func NewJobDataMap() *JobDataMap {
	return jobdata.New()
}

// Refire wraps an error to ask for the job to run again immediately.
func Refire(err error) error {
	return core.Refire(err)
}

// UnscheduleTrigger wraps an error to complete the firing trigger.
func UnscheduleTrigger(err error) error {
	return core.UnscheduleTrigger(err)
}

// UnscheduleAll wraps an error to complete every trigger of the job.
func UnscheduleAll(err error) error {
	return core.UnscheduleAll(err)
}

// Builders

// NewJob starts building a job of the given registered type.
func NewJob(jobType string) *JobBuilder {
	return builder.NewJob(jobType)
}

// NewTrigger starts building a trigger.
func NewTrigger() *TriggerBuilder {
	return builder.NewTrigger()
}

// SimpleSchedule starts a schedule that fires once.
func SimpleSchedule() *SimpleScheduleBuilder {
	return builder.SimpleSchedule()
}

// CronSchedule starts a schedule from a cron expression.
func CronSchedule(expr string) *CronScheduleBuilder {
	return builder.CronSchedule(expr)
}

// DailyAtHourAndMinute fires every day at hour:minute.
func DailyAtHourAndMinute(hour, minute int) *CronScheduleBuilder {
	return builder.DailyAtHourAndMinute(hour, minute)
}

// WeeklyOnDayAndHourAndMinute fires every week on day at hour:minute.
func WeeklyOnDayAndHourAndMinute(day time.Weekday, hour, minute int) *CronScheduleBuilder {
	return builder.WeeklyOnDayAndHourAndMinute(day, hour, minute)
}

// RepeatMinutelyForever fires every n minutes.
func RepeatMinutelyForever(n int) *SimpleScheduleBuilder {
	return builder.RepeatMinutelyForever(n)
}

// RepeatSecondlyForTotalCount fires count times, n seconds apart.
func RepeatSecondlyForTotalCount(count, n int) *SimpleScheduleBuilder {
	return builder.RepeatSecondlyForTotalCount(count, n)
}

// Calendars

// NewHolidayCalendar excludes whole days.
func NewHolidayCalendar(base Calendar) *calendar.Holiday {
	return calendar.NewHoliday(base)
}

// NewWeeklyCalendar excludes weekdays, Saturday and Sunday by default.
func NewWeeklyCalendar(base Calendar) *calendar.Weekly {
	return calendar.NewWeekly(base)
}

// NewDailyCalendar excludes the time-of-day range [start, end), given as "15:04".
func NewDailyCalendar(base Calendar, start, end string) (*calendar.Daily, error) {
	return calendar.NewDaily(base, start, end)
}

// Context accessors

// ExecutionFromContext returns the running job's context, or nil outside a job.
func ExecutionFromContext(ctx context.Context) *ExecutionContext {
	return jobctx.FromContext(ctx)
}

// FireInstanceIDFromContext returns the id of the current firing, or "" outside a job.
func FireInstanceIDFromContext(ctx context.Context) string {
	return jobctx.FireInstanceIDFromContext(ctx)
}

// Scheduler options

// WithWorkers sets how many jobs may run at once.
func WithWorkers(n int) Option {
	return scheduler.WithWorkers(n)
}

// WithPollInterval sets the longest wait between store polls.
func WithPollInterval(d time.Duration) Option {
	return scheduler.WithPollInterval(d)
}

// WithMisfireThreshold sets how late a trigger may fire before it misfires.
func WithMisfireThreshold(d time.Duration) Option {
	return scheduler.WithMisfireThreshold(d)
}

// WithShutdownMode selects what shutdown does to running jobs.
func WithShutdownMode(m ShutdownMode) Option {
	return scheduler.WithShutdownMode(m)
}

// WithLogger sets the scheduler's logger.
func WithLogger(l *slog.Logger) Option {
	return scheduler.WithLogger(l)
}

// WithConfig starts from a configuration such as one returned by LoadConfig.
func WithConfig(cfg Config) Option {
	return scheduler.WithConfig(cfg)
}
