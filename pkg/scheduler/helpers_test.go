package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jdziat/simple-triggers/pkg/core"
	"github.com/jdziat/simple-triggers/pkg/jobctx"
	"github.com/jdziat/simple-triggers/pkg/storage"
	"github.com/jdziat/simple-triggers/pkg/trigger"
)

func newTestScheduler(t *testing.T, opts ...Option) (*Scheduler, *storage.GormStore) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store, err := storage.NewGormStoreWithPool(db, storage.WithPoolConfig(storage.SingleConnPoolConfig()))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	base := []Option{
		WithPollInterval(10 * time.Millisecond),
		WithWorkers(4),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		DisableRetry(),
	}
	s, err := New(store, append(base, opts...)...)
	require.NoError(t, err)
	return s, store
}

// startScheduler runs s until the returned stop func is called.
func startScheduler(t *testing.T, s *Scheduler) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Start(ctx) }()
	var once sync.Once
	stop = func() {
		once.Do(func() {
			cancel()
			select {
			case err := <-errc:
				assert.ErrorIs(t, err, context.Canceled)
			case <-time.After(5 * time.Second):
				t.Fatal("scheduler did not stop")
			}
		})
	}
	t.Cleanup(stop)
	return stop
}

type run struct {
	job       core.JobKey
	trigger   core.TriggerKey
	refires   int
	scheduled time.Time
	next      time.Time
	data      map[string]any
}

// recorder is a job that records each execution and optionally delegates to fn.
type recorder struct {
	mu   sync.Mutex
	runs []run
	fn   func(ctx context.Context, ec *jobctx.ExecutionContext) error
}

func (r *recorder) Execute(ctx context.Context, ec *jobctx.ExecutionContext) error {
	r.mu.Lock()
	r.runs = append(r.runs, run{
		job:       ec.JobKey(),
		trigger:   ec.TriggerKey(),
		refires:   ec.RefireCount,
		scheduled: ec.ScheduledFireTime,
		next:      ec.NextFireTime,
		data:      ec.MergedData.ToMap(),
	})
	fn := r.fn
	r.mu.Unlock()
	if fn != nil {
		return fn(ctx, ec)
	}
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

func (r *recorder) snapshot() []run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]run(nil), r.runs...)
}

func simpleTrigger(t *testing.T, name string, start time.Time, repeat int, interval time.Duration) *trigger.Trigger {
	t.Helper()
	tr, err := trigger.NewSimple(core.MustTriggerKey(name, ""), start, repeat, interval)
	require.NoError(t, err)
	return tr
}

func jobDetail(name, jobType string) *core.JobDetail {
	return &core.JobDetail{Key: core.MustJobKey(name, ""), JobType: jobType}
}
