package repository

import (
	"path/filepath"
	"testing"

	"github.com/groupgraph/api/config"
	"github.com/groupgraph/api/manager/domain"
)

// OpenTestRepository opens a migrated store in t.TempDir() and closes it on cleanup.
func OpenTestRepository(t *testing.T) domain.Repository {
	t.Helper()

	r, err := NewRepository(Params{SQLiteConfig: config.SQLiteConfig{
		Path:         filepath.Join(t.TempDir(), "test.sqlite"),
		MaxOpenConns: 4,
	}})
	if err != nil {
		t.Fatalf("open test repository: %v", err)
	}
	t.Cleanup(func() {
		_ = r.(*repo).Close()
	})
	return r
}
