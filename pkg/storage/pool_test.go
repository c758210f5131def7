package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolOptions(t *testing.T) {
	cfg := PoolConfig{}

	MaxOpenConns(50).applyPool(&cfg)
	MaxIdleConns(20).applyPool(&cfg)
	ConnMaxLifetime(10 * time.Minute).applyPool(&cfg)
	ConnMaxIdleTime(2 * time.Minute).applyPool(&cfg)

	assert.Equal(t, PoolConfig{
		MaxOpenConns:    50,
		MaxIdleConns:    20,
		ConnMaxLifetime: 10 * time.Minute,
		ConnMaxIdleTime: 2 * time.Minute,
	}, cfg)

	WithPoolConfig(SingleConnPoolConfig()).applyPool(&cfg)
	assert.Equal(t, 1, cfg.MaxOpenConns)
	assert.Zero(t, cfg.ConnMaxLifetime)
}

func TestConfigurePool(t *testing.T) {
	db := openTestDB(t)

	cfg, err := ConfigurePool(db, MaxOpenConns(30), ConnMaxIdleTime(90*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.MaxOpenConns)
	assert.Equal(t, DefaultPoolConfig().MaxIdleConns, cfg.MaxIdleConns)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 30, sqlDB.Stats().MaxOpenConnections)
}

func TestNewGormStoreWithPool(t *testing.T) {
	db := openTestDB(t)

	s, err := NewGormStoreWithPool(db, WithPoolConfig(SingleConnPoolConfig()))
	require.NoError(t, err)
	assert.Same(t, db, s.DB())

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}
