package scheduler

import (
	"context"
	"time"

	"github.com/jdziat/simple-triggers/pkg/core"
	"github.com/jdziat/simple-triggers/pkg/trigger"
)

// Store persists jobs, triggers and their scheduling states.
// storage.GormStore is the reference implementation. Lookups of missing
// objects fail with core.ErrJobNotFound or core.ErrTriggerNotFound; inserts
// of existing ones with core.ErrObjectAlreadyExists.
type Store interface {
	StoreJob(ctx context.Context, d *core.JobDetail, replace bool) error
	RetrieveJob(ctx context.Context, key core.JobKey) (*core.JobDetail, error)
	CheckJobExists(ctx context.Context, key core.JobKey) (bool, error)
	RemoveJob(ctx context.Context, key core.JobKey) (bool, error)
	JobKeys(ctx context.Context, group string) ([]core.JobKey, error)

	StoreTrigger(ctx context.Context, t *trigger.Trigger, state core.TriggerState, replace bool) error
	StoreJobAndTrigger(ctx context.Context, d *core.JobDetail, t *trigger.Trigger, state core.TriggerState) error
	UpdateTrigger(ctx context.Context, t *trigger.Trigger) error
	RetrieveTrigger(ctx context.Context, key core.TriggerKey) (*trigger.Trigger, error)
	RemoveTrigger(ctx context.Context, key core.TriggerKey) (bool, error)
	ReplaceTrigger(ctx context.Context, key core.TriggerKey, t *trigger.Trigger, state core.TriggerState) error
	TriggersForJob(ctx context.Context, key core.JobKey) ([]*trigger.Trigger, error)
	TriggersForCalendar(ctx context.Context, name string) ([]*trigger.Trigger, error)
	TriggerKeys(ctx context.Context, group string) ([]core.TriggerKey, error)

	TriggerState(ctx context.Context, key core.TriggerKey) (core.TriggerState, error)
	SetTriggerState(ctx context.Context, key core.TriggerKey, state core.TriggerState) error
	SetJobTriggersState(ctx context.Context, key core.JobKey, state core.TriggerState, from ...core.TriggerState) (int64, error)

	AcquireDueTriggers(ctx context.Context, noLaterThan time.Time, limit int) ([]*trigger.Trigger, error)
	NextFireTime(ctx context.Context) (time.Time, error)
	Clear(ctx context.Context) error
}
