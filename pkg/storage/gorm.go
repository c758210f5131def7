package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jdziat/simple-triggers/pkg/core"
	"github.com/jdziat/simple-triggers/pkg/trigger"
)

// Sentinel errors, shared with other store implementations through pkg/core.
var (
	ErrObjectAlreadyExists = core.ErrObjectAlreadyExists
	ErrJobNotFound         = core.ErrJobNotFound
	ErrTriggerNotFound     = core.ErrTriggerNotFound
)

// GormStore keeps jobs and triggers in a relational database.
// Writes are serialised by a store-level mutex.
type GormStore struct {
	db *gorm.DB
	mu sync.Mutex
}

// NewGormStore creates a store on db. Call Migrate before first use.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB returns the underlying connection.
func (s *GormStore) DB() *gorm.DB { return s.db }

// Migrate creates or updates the tables.
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&JobRecord{}, &TriggerRecord{})
}

func jobWhere(tx *gorm.DB, key core.JobKey) *gorm.DB {
	return tx.Where("job_name = ? AND job_group = ?", key.Name(), key.Group())
}

func triggerWhere(tx *gorm.DB, key core.TriggerKey) *gorm.DB {
	return tx.Where("trigger_name = ? AND trigger_group = ?", key.Name(), key.Group())
}

func exists(tx *gorm.DB, model any) (bool, error) {
	var count int64
	if err := tx.Model(model).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// --- Jobs ---

// StoreJob saves a job. Without replace, an existing job with the same key
// fails with ErrObjectAlreadyExists.
func (s *GormStore) StoreJob(ctx context.Context, d *core.JobDetail, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return storeJob(tx, d, replace)
	})
}

func storeJob(tx *gorm.DB, d *core.JobDetail, replace bool) error {
	if err := d.Validate(); err != nil {
		return err
	}
	rec, err := jobRecord(d)
	if err != nil {
		return err
	}
	if !replace {
		found, err := exists(jobWhere(tx, d.Key), &JobRecord{})
		if err != nil {
			return err
		}
		if found {
			return fmt.Errorf("%w: job %s", ErrObjectAlreadyExists, d.Key)
		}
		return tx.Create(&rec).Error
	}
	return tx.Save(&rec).Error
}

// RetrieveJob loads a job or fails with ErrJobNotFound.
func (s *GormStore) RetrieveJob(ctx context.Context, key core.JobKey) (*core.JobDetail, error) {
	var rec JobRecord
	err := jobWhere(s.db.WithContext(ctx), key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return rec.detail()
}

// CheckJobExists reports whether a job with key is stored.
func (s *GormStore) CheckJobExists(ctx context.Context, key core.JobKey) (bool, error) {
	return exists(jobWhere(s.db.WithContext(ctx), key), &JobRecord{})
}

// RemoveJob deletes a job and all of its triggers.
func (s *GormStore) RemoveJob(ctx context.Context, key core.JobKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_name = ? AND job_group = ?", key.Name(), key.Group()).
			Delete(&TriggerRecord{}).Error; err != nil {
			return err
		}
		res := jobWhere(tx, key).Delete(&JobRecord{})
		removed = res.RowsAffected > 0
		return res.Error
	})
	return removed, err
}

// JobKeys lists job keys in group, or all of them for an empty group.
func (s *GormStore) JobKeys(ctx context.Context, group string) ([]core.JobKey, error) {
	var recs []JobRecord
	q := s.db.WithContext(ctx).Select("job_name", "job_group")
	if group != "" {
		q = q.Where("job_group = ?", group)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	keys := make([]core.JobKey, 0, len(recs))
	for _, r := range recs {
		k, err := core.NewJobKey(r.Name, r.Group)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b core.JobKey) int { return core.Compare(a.Key, b.Key) })
	return keys, nil
}

// --- Triggers ---

// StoreTrigger saves a trigger in state. The job it points at must exist.
// Without replace, an existing trigger with the same key fails with
// ErrObjectAlreadyExists.
func (s *GormStore) StoreTrigger(ctx context.Context, t *trigger.Trigger, state core.TriggerState, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return storeTrigger(tx, t, state, replace)
	})
}

func storeTrigger(tx *gorm.DB, t *trigger.Trigger, state core.TriggerState, replace bool) error {
	if err := t.Validate(); err != nil {
		return err
	}
	found, err := exists(jobWhere(tx, t.JobKey()), &JobRecord{})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s referenced by trigger %s", ErrJobNotFound, t.JobKey(), t.Key())
	}
	rec, err := triggerRecord(t, state)
	if err != nil {
		return err
	}
	if !replace {
		found, err := exists(triggerWhere(tx, t.Key()), &TriggerRecord{})
		if err != nil {
			return err
		}
		if found {
			return fmt.Errorf("%w: trigger %s", ErrObjectAlreadyExists, t.Key())
		}
		return tx.Create(&rec).Error
	}
	return tx.Save(&rec).Error
}

// StoreJobAndTrigger saves a new job and its first trigger atomically.
func (s *GormStore) StoreJobAndTrigger(ctx context.Context, d *core.JobDetail, t *trigger.Trigger, state core.TriggerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := storeJob(tx, d, false); err != nil {
			return err
		}
		return storeTrigger(tx, t, state, false)
	})
}

// UpdateTrigger saves the trigger's fire-time state, keeping its scheduling
// state.
func (s *GormStore) UpdateTrigger(ctx context.Context, t *trigger.Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur TriggerRecord
		err := triggerWhere(tx, t.Key()).Select("state").First(&cur).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrTriggerNotFound, t.Key())
		}
		if err != nil {
			return err
		}
		rec, err := triggerRecord(t, cur.State)
		if err != nil {
			return err
		}
		return tx.Save(&rec).Error
	})
}

// RetrieveTrigger loads a trigger or fails with ErrTriggerNotFound.
func (s *GormStore) RetrieveTrigger(ctx context.Context, key core.TriggerKey) (*trigger.Trigger, error) {
	var rec TriggerRecord
	err := triggerWhere(s.db.WithContext(ctx), key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTriggerNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return rec.trigger()
}

// RemoveTrigger deletes a trigger. A non-durable job left without triggers
// is deleted with it.
func (s *GormStore) RemoveTrigger(ctx context.Context, key core.TriggerKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec TriggerRecord
		err := triggerWhere(tx, key).First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := triggerWhere(tx, key).Delete(&TriggerRecord{}).Error; err != nil {
			return err
		}
		removed = true
		return removeOrphanedJob(tx, rec.JobName, rec.JobGroup)
	})
	return removed, err
}

func removeOrphanedJob(tx *gorm.DB, name, group string) error {
	remaining, err := exists(tx.Where("job_name = ? AND job_group = ?", name, group), &TriggerRecord{})
	if err != nil || remaining {
		return err
	}
	return tx.Where("job_name = ? AND job_group = ? AND durable = ?", name, group, false).
		Delete(&JobRecord{}).Error
}

// ReplaceTrigger swaps the trigger stored under key for t, which must point
// at the same job.
func (s *GormStore) ReplaceTrigger(ctx context.Context, key core.TriggerKey, t *trigger.Trigger, state core.TriggerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec TriggerRecord
		err := triggerWhere(tx, key).First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrTriggerNotFound, key)
		}
		if err != nil {
			return err
		}
		if rec.JobName != t.JobKey().Name() || rec.JobGroup != t.JobKey().Group() {
			return fmt.Errorf("storage: replacement trigger %s must reference job %s.%s", t.Key(), rec.JobGroup, rec.JobName)
		}
		if err := triggerWhere(tx, key).Delete(&TriggerRecord{}).Error; err != nil {
			return err
		}
		return storeTrigger(tx, t, state, false)
	})
}

// TriggersForJob returns every trigger pointing at the job.
func (s *GormStore) TriggersForJob(ctx context.Context, key core.JobKey) ([]*trigger.Trigger, error) {
	var recs []TriggerRecord
	err := s.db.WithContext(ctx).
		Where("job_name = ? AND job_group = ?", key.Name(), key.Group()).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return restore(recs)
}

// TriggersForCalendar returns every trigger modified by the named calendar.
func (s *GormStore) TriggersForCalendar(ctx context.Context, name string) ([]*trigger.Trigger, error) {
	var recs []TriggerRecord
	if err := s.db.WithContext(ctx).Where("calendar_name = ?", name).Find(&recs).Error; err != nil {
		return nil, err
	}
	return restore(recs)
}

func restore(recs []TriggerRecord) ([]*trigger.Trigger, error) {
	out := make([]*trigger.Trigger, 0, len(recs))
	for i := range recs {
		t, err := recs[i].trigger()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// TriggerKeys lists trigger keys in group, or all of them for an empty group.
func (s *GormStore) TriggerKeys(ctx context.Context, group string) ([]core.TriggerKey, error) {
	var recs []TriggerRecord
	q := s.db.WithContext(ctx).Select("trigger_name", "trigger_group")
	if group != "" {
		q = q.Where("trigger_group = ?", group)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	keys := make([]core.TriggerKey, 0, len(recs))
	for _, r := range recs {
		k, err := core.NewTriggerKey(r.Name, r.Group)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b core.TriggerKey) int { return core.Compare(a.Key, b.Key) })
	return keys, nil
}

// --- States ---

// TriggerState returns the trigger's scheduling state, core.StateNone when
// it is not stored.
func (s *GormStore) TriggerState(ctx context.Context, key core.TriggerKey) (core.TriggerState, error) {
	var rec TriggerRecord
	err := triggerWhere(s.db.WithContext(ctx), key).Select("state").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.StateNone, nil
	}
	if err != nil {
		return core.StateNone, err
	}
	return rec.State, nil
}

// SetTriggerState moves one trigger to state.
func (s *GormStore) SetTriggerState(ctx context.Context, key core.TriggerKey, state core.TriggerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := triggerWhere(s.db.WithContext(ctx).Model(&TriggerRecord{}), key).Update("state", state)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrTriggerNotFound, key)
	}
	return nil
}

// SetJobTriggersState moves the job's triggers to state. When from is given
// only triggers currently in one of those states change. It returns the
// number of triggers moved.
func (s *GormStore) SetJobTriggersState(ctx context.Context, key core.JobKey, state core.TriggerState, from ...core.TriggerState) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.db.WithContext(ctx).Model(&TriggerRecord{}).
		Where("job_name = ? AND job_group = ?", key.Name(), key.Group())
	if len(from) > 0 {
		q = q.Where("state IN ?", from)
	}
	res := q.Update("state", state)
	return res.RowsAffected, res.Error
}

// AcquireDueTriggers returns up to limit NORMAL triggers due no later than
// noLaterThan, earliest first and higher priority first among equals.
func (s *GormStore) AcquireDueTriggers(ctx context.Context, noLaterThan time.Time, limit int) ([]*trigger.Trigger, error) {
	var recs []TriggerRecord
	err := s.db.WithContext(ctx).
		Where("state = ?", core.StateNormal).
		Where("next_fire_time IS NOT NULL AND next_fire_time <= ?", noLaterThan.UTC()).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "next_fire_time"}},
			{Column: clause.Column{Name: "priority"}, Desc: true},
			{Column: clause.Column{Name: "trigger_group"}},
			{Column: clause.Column{Name: "trigger_name"}},
		}}).
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	ts, err := restore(recs)
	if err != nil {
		return nil, err
	}
	trigger.SortByFireTime(ts)
	return ts, nil
}

// NextFireTime returns the earliest fire time of any NORMAL trigger, zero
// when none is scheduled.
func (s *GormStore) NextFireTime(ctx context.Context) (time.Time, error) {
	var rec TriggerRecord
	err := s.db.WithContext(ctx).
		Select("next_fire_time").
		Where("state = ? AND next_fire_time IS NOT NULL", core.StateNormal).
		Order("next_fire_time ASC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return instant(rec.NextFireTime), nil
}

// Clear deletes all jobs and triggers.
func (s *GormStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&TriggerRecord{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&JobRecord{}).Error
	})
}
