// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.

// Package memfs is an in-memory davres.Backend, grounded on the
// teacher's webdav/memfs.go tree-of-nodes design, generalized to the
// full davres.Resource capability set (copy_into/move_into semantics,
// lazy Children iteration, ETag).
package memfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/wjqserver-studio/daveng/davpath"
	"github.com/wjqserver-studio/daveng/davprop"
	"github.com/wjqserver-studio/daveng/davres"
)

// FS is an in-memory filesystem tree. The zero value is not usable;
// use New.
type FS struct {
	mu      sync.RWMutex
	root    *node
	baseURL string
}

type node struct {
	name     string
	isDir    bool
	data     []byte
	ctime    time.Time
	mtime    time.Time
	children map[string]*node
}

// New creates an empty in-memory tree. baseURL is prefixed to every
// resource's Path() to form its URL().
func New(baseURL string) *FS {
	now := time.Now()
	return &FS{
		baseURL: baseURL,
		root: &node{
			name:     "/",
			isDir:    true,
			ctime:    now,
			mtime:    now,
			children: make(map[string]*node),
		},
	}
}

func (fs *FS) Resource(path string) davres.Resource {
	return &resource{fs: fs, path: davpath.SafeJoin("", path)}
}

// lookup must be called with fs.mu held (read or write).
func (fs *FS) lookup(path string) (*node, bool) {
	if path == "" || path == "/" {
		return fs.root, true
	}
	cur := fs.root
	for _, seg := range splitSegments(path) {
		if !cur.isDir || cur.children == nil {
			return nil, false
		}
		next, ok := cur.children[seg]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func splitSegments(path string) []string {
	var segs []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			if i > start {
				segs = append(segs, path[start:i])
			}
			start = i + 1
		}
	}
	if start < len(path) {
		segs = append(segs, path[start:])
	}
	return segs
}

type resource struct {
	fs   *FS
	path string
}

func (r *resource) Path() string    { return r.path }
func (r *resource) AbsPath() string { return r.path }
func (r *resource) Name() string    { return davpath.Name(r.path) }
func (r *resource) URL() string     { return davpath.URLJoin(r.fs.baseURL, r.path) }

func (r *resource) Parent() davres.Resource {
	return &resource{fs: r.fs, path: davpath.Dir(r.path)}
}

func (r *resource) Stat(ctx context.Context) (davres.Info, error) {
	r.fs.mu.RLock()
	defer r.fs.mu.RUnlock()
	n, ok := r.fs.lookup(r.path)
	if !ok {
		return davres.Info{Kind: davres.KindAbsent}, nil
	}
	return infoOf(n), nil
}

func infoOf(n *node) davres.Info {
	kind := davres.KindNonCollection
	if n.isDir {
		kind = davres.KindCollection
	}
	return davres.Info{
		Kind:  kind,
		Size:  int64(len(n.data)),
		CTime: n.ctime.Unix(),
		MTime: n.mtime.Unix(),
	}
}

func (r *resource) Children(ctx context.Context) (davres.Iterator, error) {
	r.fs.mu.RLock()
	defer r.fs.mu.RUnlock()
	n, ok := r.fs.lookup(r.path)
	if !ok || !n.isDir {
		return nil, os.ErrNotExist
	}
	items := make([]davres.Resource, 0, len(n.children))
	for name := range n.children {
		items = append(items, &resource{fs: r.fs, path: davpath.SafeJoin(r.path, name)})
	}
	return davres.NewSliceIterator(items), nil
}

func (r *resource) OpenRead(ctx context.Context) (io.ReadCloser, error) {
	r.fs.mu.RLock()
	defer r.fs.mu.RUnlock()
	n, ok := r.fs.lookup(r.path)
	if !ok || n.isDir {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(n.data)), nil
}

// memWriter buffers writes and commits the whole buffer to the node on
// Close, mirroring the teacher's memFile.Write-on-offset approach but
// collapsed to the common "PUT replaces wholesale" case the engine
// actually uses.
type memWriter struct {
	r   *resource
	buf bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memWriter) Close() error {
	w.r.fs.mu.Lock()
	defer w.r.fs.mu.Unlock()
	parentPath := davpath.Dir(w.r.path)
	parent, ok := w.r.fs.lookup(parentPath)
	if !ok || !parent.isDir {
		return os.ErrNotExist
	}
	name := davpath.Name(w.r.path)
	now := time.Now()
	n, exists := parent.children[name]
	if !exists {
		n = &node{name: name, ctime: now}
		parent.children[name] = n
	}
	n.data = w.buf.Bytes()
	n.mtime = now
	return nil
}

func (r *resource) OpenWrite(ctx context.Context) (io.WriteCloser, error) {
	return &memWriter{r: r}, nil
}

func (r *resource) CreateCollection(ctx context.Context) error {
	r.fs.mu.Lock()
	defer r.fs.mu.Unlock()
	if _, ok := r.fs.lookup(r.path); ok {
		return os.ErrExist
	}
	parent, ok := r.fs.lookup(davpath.Dir(r.path))
	if !ok || !parent.isDir {
		return os.ErrNotExist
	}
	now := time.Now()
	parent.children[davpath.Name(r.path)] = &node{
		name:     davpath.Name(r.path),
		isDir:    true,
		ctime:    now,
		mtime:    now,
		children: make(map[string]*node),
	}
	return nil
}

func (r *resource) Delete(ctx context.Context) error {
	r.fs.mu.Lock()
	defer r.fs.mu.Unlock()
	if r.path == "/" {
		return errors.New("memfs: cannot delete root")
	}
	parent, ok := r.fs.lookup(davpath.Dir(r.path))
	if !ok {
		return os.ErrNotExist
	}
	name := davpath.Name(r.path)
	if _, ok := parent.children[name]; !ok {
		return os.ErrNotExist
	}
	delete(parent.children, name)
	return nil
}

func (r *resource) CopyInto(ctx context.Context, dest davres.Resource, depth int) error {
	d, ok := dest.(*resource)
	if !ok {
		return fmt.Errorf("memfs: cross-backend copy not supported")
	}
	r.fs.mu.Lock()
	defer r.fs.mu.Unlock()
	return r.copyLocked(d, depth)
}

func (r *resource) copyLocked(dest *resource, depth int) error {
	src, ok := r.fs.lookup(r.path)
	if !ok {
		return os.ErrNotExist
	}

	destParent, ok := r.fs.lookup(davpath.Dir(dest.path))
	if !ok || !destParent.isDir {
		return os.ErrNotExist
	}
	destName := davpath.Name(dest.path)
	now := time.Now()

	if src.isDir {
		existing, exists := destParent.children[destName]
		if exists && !existing.isDir {
			delete(destParent.children, destName)
			exists = false
		}
		dn := existing
		if !exists {
			dn = &node{name: destName, isDir: true, ctime: now, mtime: now, children: make(map[string]*node)}
			destParent.children[destName] = dn
		}
		if depth == 0 {
			return nil
		}
		for name, child := range src.children {
			childRes := &resource{fs: r.fs, path: davpath.SafeJoin(r.path, name)}
			childDest := &resource{fs: r.fs, path: davpath.SafeJoin(dest.path, name)}
			_ = child
			if err := childRes.copyLocked(childDest, depth-1); err != nil {
				return err
			}
		}
		return nil
	}

	if existing, exists := destParent.children[destName]; exists && existing.isDir {
		delete(destParent.children, destName)
	}
	data := make([]byte, len(src.data))
	copy(data, src.data)
	destParent.children[destName] = &node{name: destName, data: data, ctime: now, mtime: now}
	return nil
}

func (r *resource) MoveInto(ctx context.Context, dest davres.Resource) error {
	d, ok := dest.(*resource)
	if !ok {
		return fmt.Errorf("memfs: cross-backend move not supported")
	}
	r.fs.mu.Lock()
	defer r.fs.mu.Unlock()

	if err := r.copyLocked(d, -1); err != nil {
		return err
	}
	parent, ok := r.fs.lookup(davpath.Dir(r.path))
	if !ok {
		return os.ErrNotExist
	}
	delete(parent.children, davpath.Name(r.path))
	return nil
}

func (r *resource) ETag(ctx context.Context) (string, error) {
	r.fs.mu.RLock()
	defer r.fs.mu.RUnlock()
	n, ok := r.fs.lookup(r.path)
	if !ok {
		return "", os.ErrNotExist
	}
	return davprop.ETag(r.AbsPath(), n.mtime.Unix(), int64(len(n.data))), nil
}
