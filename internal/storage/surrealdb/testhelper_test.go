package surrealdb

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bregovic/shanon-sub001/internal/common"
	tcommon "github.com/bregovic/shanon-sub001/tests/common"
)

// testConfig starts the shared SurrealDB container and returns a config
// pointing at a database unique to this test.
func testConfig(t *testing.T) *common.Config {
	t.Helper()

	sc := tcommon.StartSurrealDB(t)

	// SurrealDB rejects "/" in database names; subtests produce "Test/subtest".
	sanitized := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())

	cfg := common.NewDefaultConfig()
	cfg.Environment = "test"
	cfg.Storage = common.StorageConfig{
		Backend:   "surrealdb",
		Address:   sc.Address(),
		Namespace: "shanon_test",
		Database:  fmt.Sprintf("t_%s_%d", sanitized, time.Now().UnixNano()%100000),
		Username:  "root",
		Password:  "root",
		Timeout:   "10s",
	}
	return cfg
}

// testManager connects a Manager and closes it when the test ends.
func testManager(t *testing.T) *Manager {
	t.Helper()

	mgr, err := NewManager(common.NewSilentLogger(), testConfig(t))
	if err != nil {
		t.Fatalf("connect to SurrealDB: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })
	return mgr
}
