package core

import (
	"context"
	"path/filepath"
	"testing"

	"genomecore/internal/config"
	"genomecore/internal/infra/persistence/memory"
	"genomecore/internal/infra/persistence/sqlite"
)

func TestOpenModelStoreSelectsDriver(t *testing.T) {
	ctx := context.Background()
	store, err := OpenModelStore(ctx, config.Storage{Driver: "memory"})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}

	path := filepath.Join(t.TempDir(), "models.db")
	store, err = OpenModelStore(ctx, config.Storage{SQLitePath: path})
	if err != nil {
		t.Fatalf("sqlite default: %v", err)
	}
	sq, ok := store.(*sqlite.Store)
	if !ok || sq.Path() != path {
		t.Fatalf("expected sqlite store at %s, got %T", path, store)
	}
	_ = sq.Close()

	if _, err := OpenModelStore(ctx, config.Storage{Driver: "mongo"}); err == nil {
		t.Fatalf("expected unknown driver to fail")
	}
}
