// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.

package osfs

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func newTestFS(t *testing.T) *FS {
	t.Helper()
	fs, err := New(t.TempDir(), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return fs
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	fs := newTestFS(t)
	r := fs.Resource("/a.txt")

	w, err := r.OpenWrite(context.Background())
	if err != nil {
		t.Fatalf("OpenWrite: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rc, err := r.OpenRead(context.Background())
	if err != nil {
		t.Fatalf("OpenRead: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func TestResolveRejectsDotDot(t *testing.T) {
	fs := newTestFS(t)
	if _, err := fs.resolve("/../etc/passwd"); err == nil {
		t.Fatal("expected resolve to reject a path containing ..")
	}
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	fs := newTestFS(t)
	outside := t.TempDir()
	if err := os.WriteFile(filepath.Join(outside, "secret"), []byte("nope"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(fs.Root, "escape")); err != nil {
		t.Skipf("symlinks unavailable in this environment: %v", err)
	}

	if _, err := fs.resolve("/escape/secret"); err == nil {
		t.Fatal("expected resolve to refuse a symlink that escapes the root")
	}
}

func TestMkdirThenChildrenListsIt(t *testing.T) {
	fs := newTestFS(t)
	if err := fs.Resource("/dir").CreateCollection(context.Background()); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}

	it, err := fs.Resource("/").Children(context.Background())
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	r, ok, err := it.Next(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected one child, got ok=%v err=%v", ok, err)
	}
	if r.Name() != "dir" {
		t.Fatalf("got child %q, want %q", r.Name(), "dir")
	}
}

func TestMoveAcrossDirsRenames(t *testing.T) {
	fs := newTestFS(t)
	r := fs.Resource("/a.txt")
	w, _ := r.OpenWrite(context.Background())
	w.Write([]byte("data"))
	w.Close()

	if err := fs.Resource("/dir").CreateCollection(context.Background()); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if err := r.MoveInto(context.Background(), fs.Resource("/dir/a.txt")); err != nil {
		t.Fatalf("MoveInto: %v", err)
	}

	if info, _ := fs.Resource("/a.txt").Stat(context.Background()); info.Exists() {
		t.Fatal("source must not exist after move")
	}
	if info, _ := fs.Resource("/dir/a.txt").Stat(context.Background()); !info.Exists() {
		t.Fatal("destination must exist after move")
	}
}

func TestDeleteRemovesCollectionRecursively(t *testing.T) {
	fs := newTestFS(t)
	fs.Resource("/dir").CreateCollection(context.Background())
	w, _ := fs.Resource("/dir/f.txt").OpenWrite(context.Background())
	w.Close()

	if err := fs.Resource("/dir").Delete(context.Background()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if info, _ := fs.Resource("/dir").Stat(context.Background()); info.Exists() {
		t.Fatal("collection must be gone after Delete")
	}
}
