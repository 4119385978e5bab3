package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	fsStore, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("filesystem: %v", err)
	}
	s3Store, err := NewFakeS3(context.Background())
	if err != nil {
		t.Fatalf("fake s3: %v", err)
	}
	return map[string]Store{
		"fs":     fsStore,
		"memory": NewMemory(),
		"s3":     s3Store,
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			info, err := store.Put(ctx, "exports/m/r1.sif", strings.NewReader("A\tpromotes\tB\n"), PutOptions{
				ContentType: "text/plain",
				Metadata:    map[string]string{"model": "m"},
			})
			if err != nil {
				t.Fatalf("put: %v", err)
			}
			if info.Size != 13 {
				t.Fatalf("expected size 13, got %d", info.Size)
			}
			if _, err := store.Put(ctx, "exports/m/r1.sif", strings.NewReader("x"), PutOptions{}); !errors.Is(err, ErrExists) {
				t.Fatalf("expected ErrExists on second put, got %v", err)
			}

			got, rc, err := store.Get(ctx, "exports/m/r1.sif")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			body, err := io.ReadAll(rc)
			_ = rc.Close()
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(body) != "A\tpromotes\tB\n" {
				t.Fatalf("unexpected body %q", body)
			}
			if got.ContentType != "text/plain" {
				t.Fatalf("unexpected content type %q", got.ContentType)
			}
			if got.Metadata["model"] != "m" {
				t.Fatalf("metadata lost: %+v", got.Metadata)
			}

			if _, err := store.Put(ctx, "exports/other/r1.xml", strings.NewReader("<model/>"), PutOptions{}); err != nil {
				t.Fatalf("put other: %v", err)
			}
			list, err := store.List(ctx, "exports/m/")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 1 || list[0].Key != "exports/m/r1.sif" {
				t.Fatalf("unexpected listing %+v", list)
			}

			ok, err := store.Delete(ctx, "exports/m/r1.sif")
			if err != nil || !ok {
				t.Fatalf("delete: ok=%v err=%v", ok, err)
			}
			ok, err = store.Delete(ctx, "exports/m/r1.sif")
			if err != nil || ok {
				t.Fatalf("second delete: ok=%v err=%v", ok, err)
			}
			if _, err := store.Head(ctx, "exports/m/r1.sif"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound from head, got %v", err)
			}
			if _, _, err := store.Get(ctx, "exports/m/r1.sif"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound from get, got %v", err)
			}
		})
	}
}

func TestPresignURL(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			url, err := store.PresignURL(ctx, "exports/m/r1.xml", SignedURLOptions{})
			if store.Driver() == DriverMemory {
				if !errors.Is(err, ErrUnsupported) {
					t.Fatalf("expected ErrUnsupported, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("presign: %v", err)
			}
			if !strings.Contains(url, "exports/m/r1.xml") {
				t.Fatalf("url %q does not name the key", url)
			}
			if _, err := store.PresignURL(ctx, "exports/m/r1.xml", SignedURLOptions{Method: "PUT"}); !errors.Is(err, ErrUnsupported) {
				t.Fatalf("expected ErrUnsupported for PUT, got %v", err)
			}
		})
	}
}
