package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"genomecore/pkg/domain"
)

func newTestStore() *Store {
	s := NewStore()
	n := 0
	s.newRevision = func() string { n++; return fmt.Sprintf("rev-%d", n) }
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestSaveLoadReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	first, err := s.Save(ctx, "yeast", []byte("<model/>"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	second, err := s.Save(ctx, "yeast", []byte("<model version=\"2\"/>"))
	if err != nil {
		t.Fatalf("save again: %v", err)
	}
	if first.Revision == second.Revision {
		t.Fatalf("expected a new revision per save")
	}
	payload, info, err := s.Load(ctx, "yeast")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(payload) != "<model version=\"2\"/>" || info.Revision != "rev-2" || info.Size != int64(len(payload)) {
		t.Fatalf("unexpected load %q %+v", payload, info)
	}
	payload[0] = 'X'
	again, _, _ := s.Load(ctx, "yeast")
	if again[0] != '<' {
		t.Fatalf("stored payload aliased by caller")
	}
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	for _, name := range []string{"worm", "fly", "yeast"} {
		if _, err := s.Save(ctx, name, []byte(name)); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].Name != "fly" || list[2].Name != "yeast" {
		t.Fatalf("unexpected listing %+v", list)
	}
	ok, err := s.Delete(ctx, "fly")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, _ := s.Delete(ctx, "fly"); ok {
		t.Fatalf("expected second delete to report absence")
	}
	if _, _, err := s.Load(ctx, "fly"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveRejectsEmptyNameAndCancel(t *testing.T) {
	s := newTestStore()
	if _, err := s.Save(context.Background(), "", nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Save(ctx, "yeast", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
