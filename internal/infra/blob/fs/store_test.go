package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"satcore/internal/blob/core"
	"satcore/pkg/domain"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestStorePutGetHeadListDelete(t *testing.T) { //nolint:cyclop
	ctx := context.Background()
	store := newTempStore(t)
	key := "images/20240101/120000_0.png"

	info, err := store.Put(ctx, key, bytes.NewReader([]byte("hello")), core.PutOptions{ContentType: "image/png", Metadata: map[string]string{"mapping": "1"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != key || info.Size != 5 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, key, bytes.NewReader([]byte("x")), core.PutOptions{}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on duplicate put, got %v", err)
	}

	head, err := store.Head(ctx, key)
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	got, rc, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	if err := rc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if string(b) != "hello" || got.ETag != head.ETag || got.Metadata["mapping"] != "1" || got.ContentType != "image/png" {
		t.Fatalf("unexpected get artifacts %+v", got)
	}

	list, err := store.List(ctx, "images/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Key != key {
		t.Fatalf("unexpected list %+v", list)
	}

	url, err := store.PresignURL(ctx, key, core.SignedURLOptions{})
	if err != nil || !strings.HasPrefix(url, "file://") {
		t.Fatalf("presign url: %v %s", err, url)
	}

	ok, err := store.Delete(ctx, key)
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := store.Delete(ctx, key); err != nil || ok {
		t.Fatalf("second delete should be false, got ok=%v err=%v", ok, err)
	}
	if _, _, err := store.Get(ctx, key); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if _, err := store.Head(ctx, key); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected head not found after delete, got %v", err)
	}
}

func TestStoreRejectsUnsafeKeys(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	for _, key := range []string{"", "  ", "../escape.png", "images/../../escape.png", "/etc/passwd", `images\x.png`, "images/a.png.meta"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte("x")), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
			t.Fatalf("put %q: expected invalid key, got %v", key, err)
		}
		if _, _, err := store.Get(ctx, key); !errors.Is(err, core.ErrInvalidKey) {
			t.Fatalf("get %q: expected invalid key, got %v", key, err)
		}
	}
	entries, err := os.ReadDir(filepath.Dir(store.Root()))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if e.Name() == "escape.png" {
			t.Fatalf("traversal wrote outside root")
		}
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestStoreFailedPutLeavesNoResidue(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "images/bad.png", failingReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected reader error")
	}
	entries, err := os.ReadDir(filepath.Join(store.Root(), "images"))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no files after failed put, found %d", len(entries))
	}
	if list, _ := store.List(ctx, ""); len(list) != 0 {
		t.Fatalf("expected empty listing, got %+v", list)
	}
}

func TestStoreMetadataSidecar(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "meta/data.bin", bytes.NewReader([]byte("abc")), core.PutOptions{ContentType: "application/octet-stream"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	dataPath, metaPath, err := store.pathFor("meta/data.bin")
	if err != nil {
		t.Fatalf("pathFor: %v", err)
	}
	if _, err := os.Stat(dataPath); err != nil {
		t.Fatalf("expected data file: %v", err)
	}
	b, err := os.ReadFile(metaPath) //nolint:gosec
	if err != nil {
		t.Fatalf("read meta: %v", err)
	}
	if !bytes.Contains(b, []byte("application/octet-stream")) {
		t.Fatalf("meta missing content type: %s", b)
	}

	if err := os.WriteFile(metaPath, []byte("{"), 0o600); err != nil {
		t.Fatalf("corrupt meta: %v", err)
	}
	if _, err := store.Head(ctx, "meta/data.bin"); err == nil || errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected decode error for corrupt sidecar, got %v", err)
	}
}

func TestListOrdersByKeyAndFiltersPrefix(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	for _, key := range []string{"images/b.png", "images/a.png", "thumbs/a.png"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte(key)), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	list, err := store.List(ctx, "images/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "images/a.png" || list[1].Key != "images/b.png" {
		t.Fatalf("unexpected list %+v", list)
	}
	all, _ := store.List(ctx, "")
	if len(all) != 3 {
		t.Fatalf("expected 3 blobs, got %d", len(all))
	}
}
