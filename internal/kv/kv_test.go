package kv_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"studiohub/internal/kv"
)

func TestPutGetRoundTrip(t *testing.T) {
	s, err := kv.Open(kv.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || !bytes.Equal(got, []byte("v1")) {
		t.Fatalf("get: %q (%v)", got, err)
	}
	// Put replaces, never appends.
	if err := s.Put(ctx, "k", []byte("v2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _ = s.Get(ctx, "k")
	if !bytes.Equal(got, []byte("v2")) {
		t.Fatalf("overwrite not applied: %q", got)
	}
}

func TestGetMissingKey(t *testing.T) {
	s, err := kv.Open(kv.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s, err := kv.Open(kv.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	ctx := context.Background()
	if err := s.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("deleting a missing key should not error: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := kv.Open(kv.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Put(ctx, "k", []byte("survives")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = kv.Open(kv.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Get(ctx, "k")
	if err != nil || !bytes.Equal(got, []byte("survives")) {
		t.Fatalf("data lost across reopen: %q (%v)", got, err)
	}
}

func TestEnsureWorkspaceCreatesDir(t *testing.T) {
	dir := t.TempDir()
	path, err := kv.EnsureWorkspace(dir)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		t.Fatalf("workspace dir missing: %v", err)
	}
}
