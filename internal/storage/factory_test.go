package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/storage/memory"
	"github.com/bregovic/shanon-sub001/internal/storage/sqldb"
)

func TestNewStorageManager_Memory(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Storage.Backend = BackendMemory
	cfg.Redis.Address = ""

	mgr, err := NewStorageManager(common.NewSilentLogger(), cfg)
	require.NoError(t, err)
	defer mgr.Close()

	_, ok := mgr.(*memory.Manager)
	assert.True(t, ok)
}

func TestNewStorageManager_SQLite(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Storage.Backend = BackendSQLite
	cfg.Storage.DSN = ":memory:"
	cfg.Redis.Address = ""

	mgr, err := NewStorageManager(common.NewSilentLogger(), cfg)
	require.NoError(t, err)
	defer mgr.Close()

	_, ok := mgr.(*sqldb.Manager)
	assert.True(t, ok)
}

func TestNewStorageManager_RedisDownFallsBack(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Storage.Backend = BackendMemory
	cfg.Redis.Address = "127.0.0.1:1"

	mgr, err := NewStorageManager(common.NewSilentLogger(), cfg)
	require.NoError(t, err)
	defer mgr.Close()

	_, ok := mgr.(*memory.Manager)
	assert.True(t, ok, "expected bare backend when Redis is unreachable")
}

func TestNewStorageManager_Unknown(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Storage.Backend = "badger"

	_, err := NewStorageManager(common.NewSilentLogger(), cfg)
	assert.Error(t, err)
}
