package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"genomecore/internal/blob/core"
)

func TestSanitizeKey(t *testing.T) {
	for _, key := range []string{"", "  ", "/abs", "a/../b", "x.meta"} {
		if _, err := sanitizeKey(key); err == nil {
			t.Fatalf("expected %q to be rejected", key)
		}
	}
	got, err := sanitizeKey("exports/m//r1.xml")
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if got != "exports/m/r1.xml" {
		t.Fatalf("unexpected clean key %q", got)
	}
}

func TestPutWritesSidecarAndEtag(t *testing.T) {
	root := t.TempDir()
	store, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	info, err := store.Put(context.Background(), "a/b.txt", strings.NewReader("hello"), core.PutOptions{ContentType: "text/plain"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	// sha256("hello")
	if info.ETag != "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824" {
		t.Fatalf("unexpected etag %q", info.ETag)
	}
	if _, err := os.Stat(filepath.Join(root, "a", "b.txt.meta")); err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(root, "a"))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestPutHonoursCancelledContext(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Put(ctx, "k", strings.NewReader("x"), core.PutOptions{}); err == nil {
		t.Fatalf("expected cancelled put to fail")
	}
	if _, err := store.Head(context.Background(), "k"); err == nil {
		t.Fatalf("expected nothing to be stored")
	}
}
