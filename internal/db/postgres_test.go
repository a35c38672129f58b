package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frogmembers/api/internal/config"
)

func TestPoolConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.URL = "postgres://frog:pw@db:5432/frogmembers?sslmode=disable"
	cfg.Database.MaxOpenConns = 12
	cfg.Database.MaxIdleConns = 3
	cfg.Database.ConnMaxLifetime = "30m"

	pc, err := PoolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, int32(12), pc.MaxConns)
	assert.Equal(t, int32(3), pc.MinConns)
	assert.Equal(t, 30*time.Minute, pc.MaxConnLifetime)
	assert.Equal(t, "frogmembers-api", pc.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, "db", pc.ConnConfig.Host)
}

func TestPoolConfig_KeepsExplicitApplicationName(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.URL = "postgres://frog@db/frogmembers?application_name=worker"
	cfg.Database.MaxOpenConns = 1
	cfg.Database.ConnMaxLifetime = "1h"

	pc, err := PoolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "worker", pc.ConnConfig.RuntimeParams["application_name"])
}

func TestPoolConfig_BadLifetime(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.URL = "postgres://frog@db/frogmembers"
	cfg.Database.ConnMaxLifetime = "forever"

	_, err := PoolConfig(cfg)
	assert.Error(t, err)
}
