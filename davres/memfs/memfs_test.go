// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.

package memfs

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/wjqserver-studio/daveng/davres"
)

func mustWrite(t *testing.T, fs *FS, path string, data string) davres.Resource {
	t.Helper()
	r := fs.Resource(path)
	w, err := r.OpenWrite(context.Background())
	if err != nil {
		t.Fatalf("OpenWrite %s: %v", path, err)
	}
	if _, err := w.Write([]byte(data)); err != nil {
		t.Fatalf("Write %s: %v", path, err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close %s: %v", path, err)
	}
	return r
}

func TestRootExistsAsCollection(t *testing.T) {
	fs := New("")
	info, err := fs.Resource("/").Stat(context.Background())
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.IsCollection() {
		t.Fatal("root must be a collection")
	}
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	fs := New("")
	mustWrite(t, fs, "/a.txt", "hello")

	r := fs.Resource("/a.txt")
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

func TestChildrenListsDirectChildrenOnly(t *testing.T) {
	fs := New("")
	fs.Resource("/dir").CreateCollection(context.Background())
	mustWrite(t, fs, "/dir/a.txt", "a")

	// /dir/sub does not exist, so writing under it must fail and must
	// not appear as a child of /dir.
	w, _ := fs.Resource("/dir/sub/b.txt").OpenWrite(context.Background())
	if err := w.Close(); err == nil {
		t.Fatal("expected writing under a non-existent parent to fail on Close")
	}

	it, err := fs.Resource("/dir").Children(context.Background())
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	var names []string
	for {
		r, ok, err := it.Next(context.Background())
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		names = append(names, r.Name())
	}
	if len(names) != 1 || names[0] != "a.txt" {
		t.Fatalf("expected exactly [a.txt], got %v", names)
	}
}

func TestCopyIntoCollectionRecursesWithDepth(t *testing.T) {
	fs := New("")
	fs.Resource("/src").CreateCollection(context.Background())
	mustWrite(t, fs, "/src/f.txt", "x")

	src := fs.Resource("/src")
	dest := fs.Resource("/dst")
	if err := src.CopyInto(context.Background(), dest, -1); err != nil {
		t.Fatalf("CopyInto: %v", err)
	}

	info, err := fs.Resource("/dst/f.txt").Stat(context.Background())
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.IsRegular() {
		t.Fatal("expected /dst/f.txt to exist as a non-collection after a recursive copy")
	}
}

func TestCopyIntoDepthZeroDoesNotRecurse(t *testing.T) {
	fs := New("")
	fs.Resource("/src").CreateCollection(context.Background())
	mustWrite(t, fs, "/src/f.txt", "x")

	if err := fs.Resource("/src").CopyInto(context.Background(), fs.Resource("/dst"), 0); err != nil {
		t.Fatalf("CopyInto: %v", err)
	}

	info, _ := fs.Resource("/dst/f.txt").Stat(context.Background())
	if info.Exists() {
		t.Fatal("depth 0 copy must not recurse into children")
	}
}

func TestCopyOverwritesConflictingKind(t *testing.T) {
	fs := New("")
	mustWrite(t, fs, "/dst", "was-a-file")
	fs.Resource("/src").CreateCollection(context.Background())

	if err := fs.Resource("/src").CopyInto(context.Background(), fs.Resource("/dst"), -1); err != nil {
		t.Fatalf("CopyInto: %v", err)
	}
	info, _ := fs.Resource("/dst").Stat(context.Background())
	if !info.IsCollection() {
		t.Fatal("copying a collection over a file must replace it with a collection")
	}
}

func TestMoveIntoRemovesSource(t *testing.T) {
	fs := New("")
	mustWrite(t, fs, "/a.txt", "hi")

	if err := fs.Resource("/a.txt").MoveInto(context.Background(), fs.Resource("/b.txt")); err != nil {
		t.Fatalf("MoveInto: %v", err)
	}
	if info, _ := fs.Resource("/a.txt").Stat(context.Background()); info.Exists() {
		t.Fatal("source must not exist after MoveInto")
	}
	if info, _ := fs.Resource("/b.txt").Stat(context.Background()); !info.Exists() {
		t.Fatal("destination must exist after MoveInto")
	}
}

func TestDeleteNonEmptyCollectionIsRecursive(t *testing.T) {
	fs := New("")
	fs.Resource("/dir").CreateCollection(context.Background())
	mustWrite(t, fs, "/dir/f.txt", "x")

	if err := fs.Resource("/dir").Delete(context.Background()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if info, _ := fs.Resource("/dir").Stat(context.Background()); info.Exists() {
		t.Fatal("collection must be gone after Delete")
	}
}

func TestETagChangesWithContent(t *testing.T) {
	fs := New("")
	r := mustWrite(t, fs, "/a.txt", "v1")
	e1, err := r.ETag(context.Background())
	if err != nil {
		t.Fatalf("ETag: %v", err)
	}
	mustWrite(t, fs, "/a.txt", "v2-longer")
	e2, err := r.ETag(context.Background())
	if err != nil {
		t.Fatalf("ETag: %v", err)
	}
	if e1 == e2 {
		t.Fatal("ETag must change when size changes")
	}
}
