package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"herdcore/internal/archive/core"
)

func TestSanitizeKeyErrors(t *testing.T) {
	for _, key := range []string{"", "  ", "../escape", "/abs", "a/../b"} {
		if _, err := sanitizeKey(key); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestFilesystemStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Driver() != core.DriverFilesystem {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	info, err := s.Put(ctx, "retired/farm/a.json", strings.NewReader(`{"a":1}`), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"tenant": "farm"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 7 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "retired/farm/a.json", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected exists error, got %v", err)
	}

	got, rc, err := s.Get(ctx, "retired/farm/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"a":1}` || got.Metadata["tenant"] != "farm" || got.ContentType != "application/json" {
		t.Fatalf("unexpected object %+v %q", got, body)
	}

	if _, err := s.Put(ctx, "other/b.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put other: %v", err)
	}
	list, err := s.List(ctx, "retired/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Key != "retired/farm/a.json" {
		t.Fatalf("unexpected list %+v", list)
	}

	if ok, err := s.Delete(ctx, "retired/farm/a.json"); err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if ok, err := s.Delete(ctx, "retired/farm/a.json"); err != nil || ok {
		t.Fatalf("second delete: ok=%v err=%v", ok, err)
	}
	if _, _, err := s.Get(ctx, "retired/farm/a.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFilesystemListCorruptMeta(t *testing.T) {
	root := t.TempDir()
	s, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "bad.meta"), []byte("{"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := s.List(context.Background(), ""); err == nil {
		t.Fatalf("expected decode error")
	}
}
