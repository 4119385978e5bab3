package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"genomecore/internal/blob/core"
)

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected missing bucket to fail")
	}
}

func TestFakeRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFake(ctx)
	if err != nil {
		t.Fatalf("fake: %v", err)
	}
	if store.Driver() != core.DriverS3 {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
	if _, err := store.Put(ctx, "exports/m/r1.xml", strings.NewReader("<model/>"), core.PutOptions{
		ContentType: "application/xml",
		Metadata:    map[string]string{"revision": "r1"},
	}); err != nil {
		t.Fatalf("put: %v", err)
	}
	info, rc, err := store.Get(ctx, "exports/m/r1.xml")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "<model/>" {
		t.Fatalf("unexpected body %q", body)
	}
	if info.Metadata["revision"] != "r1" {
		t.Fatalf("metadata lost: %+v", info.Metadata)
	}
	if info.ETag != "fake-etag" {
		t.Fatalf("expected quotes trimmed from etag, got %q", info.ETag)
	}
}

func TestMapError(t *testing.T) {
	if err := mapError("k", &types.NoSuchKey{}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("NoSuchKey not mapped: %v", err)
	}
	if err := mapError("k", &types.NotFound{}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("NotFound not mapped: %v", err)
	}
	boom := fmt.Errorf("boom")
	if err := mapError("k", boom); errors.Is(err, core.ErrNotFound) || !errors.Is(err, boom) {
		t.Fatalf("unexpected mapping %v", err)
	}
}

func TestDecodeChunked(t *testing.T) {
	body, ok := decodeChunked([]byte("5;chunk-signature=abc\r\nhello\r\n0\r\nx-amz-checksum-crc32:AAAA\r\n\r\n"))
	if !ok || string(body) != "hello" {
		t.Fatalf("unexpected decode %q %v", body, ok)
	}
	if _, ok := decodeChunked([]byte("plain body")); ok {
		t.Fatalf("expected plain body to pass through")
	}
}
