package storage

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// PoolConfig holds connection pool settings for the store's database.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig suits one scheduler instance: a dispatch loop and a
// handful of workers sharing the store.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: time.Minute,
	}
}

// SingleConnPoolConfig pins the store to one connection. In-memory SQLite
// databases need it, as every new connection opens an empty database.
func SingleConnPoolConfig() PoolConfig {
	return PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1}
}

// PoolOption configures connection pool settings.
type PoolOption interface {
	applyPool(*PoolConfig)
}

type poolOptionFunc func(*PoolConfig)

func (f poolOptionFunc) applyPool(c *PoolConfig) { f(c) }

// WithPoolConfig replaces all settings at once.
func WithPoolConfig(cfg PoolConfig) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { *c = cfg })
}

func MaxOpenConns(n int) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { c.MaxOpenConns = n })
}

func MaxIdleConns(n int) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { c.MaxIdleConns = n })
}

// ConnMaxLifetime closes connections older than d. Zero means no limit.
func ConnMaxLifetime(d time.Duration) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { c.ConnMaxLifetime = d })
}

// ConnMaxIdleTime closes connections idle for longer than d. Zero means no limit.
func ConnMaxIdleTime(d time.Duration) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { c.ConnMaxIdleTime = d })
}

// ConfigurePool applies DefaultPoolConfig, overridden by opts, to db.
func ConfigurePool(db *gorm.DB, opts ...PoolOption) (PoolConfig, error) {
	cfg := DefaultPoolConfig()
	for _, opt := range opts {
		opt.applyPool(&cfg)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return cfg, fmt.Errorf("storage: get underlying *sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return cfg, nil
}

// NewGormStoreWithPool configures the pool and creates a store.
//
//	store, err := storage.NewGormStoreWithPool(db, storage.MaxOpenConns(20))
func NewGormStoreWithPool(db *gorm.DB, opts ...PoolOption) (*GormStore, error) {
	if _, err := ConfigurePool(db, opts...); err != nil {
		return nil, err
	}
	return NewGormStore(db), nil
}
