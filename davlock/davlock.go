// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.

// Package davlock is the in-memory lock manager reserved for the
// class-2 LOCK/UNLOCK surface (spec §4.5/§9), grounded on the
// teacher's webdav/memlock.go tree-of-tokens design but mints tokens
// with github.com/google/uuid and enforces exclusive-lock conflicts
// by path rather than accepting every Create unconditionally.
package davlock

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrLocked is returned by Create when path (or an ancestor/descendant
// of it, for an exclusive write lock) is already locked by a different
// token.
var ErrLocked = errors.New("davlock: resource already locked")

// ErrNoSuchLock is returned by Refresh and Unlock for an unknown
// token.
var ErrNoSuchLock = errors.New("davlock: no such lock")

// Info is the client-supplied lock request: scope, owner, and
// requested timeout. The method engine fills this in from the parsed
// LOCK request body.
type Info struct {
	Exclusive bool
	OwnerHref string
	Timeout   time.Duration
}

// Active describes a granted lock, returned by Create and Lookup so
// the engine can render a {DAV:}lockdiscovery body.
type Active struct {
	Token     string
	Path      string
	Exclusive bool
	OwnerHref string
	Expires   time.Time
}

// Manager is the engine-facing lock interface (spec §4.5's "stubbed
// acquire/release" surface, implemented here rather than left as a
// pure 501).
type Manager interface {
	Create(ctx context.Context, path string, info Info) (Active, error)
	Refresh(ctx context.Context, token string, timeout time.Duration) (Active, error)
	Unlock(ctx context.Context, token, path string) error
	Lookup(ctx context.Context, path string) (Active, bool)
}

type entry struct {
	active  Active
	expires time.Time
}

// MemManager is an in-memory Manager. The zero value is not usable;
// use NewMemManager.
type MemManager struct {
	mu     sync.RWMutex
	tokens map[string]*entry
	stop   chan struct{}
}

// NewMemManager starts a background goroutine that evicts expired
// locks once a minute, as the teacher's MemLock.cleanup does.
func NewMemManager() *MemManager {
	m := &MemManager{
		tokens: make(map[string]*entry),
		stop:   make(chan struct{}),
	}
	go m.evictLoop()
	return m
}

// Close stops the eviction goroutine.
func (m *MemManager) Close() error {
	close(m.stop)
	return nil
}

func (m *MemManager) evictLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for token, e := range m.tokens {
				if now.After(e.expires) {
					delete(m.tokens, token)
				}
			}
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

// conflicts reports whether an existing lock at lockedPath would block
// a new exclusive lock request at path — true if one path is an
// ancestor of (or equal to) the other, per RFC 4918's "a lock on a
// collection applies to its members".
func conflicts(path, lockedPath string) bool {
	if path == lockedPath || path == "/" || lockedPath == "/" {
		return true
	}
	return strings.HasPrefix(path, lockedPath+"/") || strings.HasPrefix(lockedPath, path+"/")
}

func (m *MemManager) Create(ctx context.Context, path string, info Info) (Active, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for token, e := range m.tokens {
		if now.After(e.expires) {
			delete(m.tokens, token)
			continue
		}
		if (info.Exclusive || e.active.Exclusive) && conflicts(path, e.active.Path) {
			return Active{}, ErrLocked
		}
	}

	token := "opaquelocktoken:" + uuid.NewString()
	active := Active{
		Token:     token,
		Path:      path,
		Exclusive: info.Exclusive,
		OwnerHref: info.OwnerHref,
		Expires:   now.Add(info.Timeout),
	}
	m.tokens[token] = &entry{active: active, expires: active.Expires}
	return active, nil
}

func (m *MemManager) Refresh(ctx context.Context, token string, timeout time.Duration) (Active, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.tokens[token]
	if !ok {
		return Active{}, ErrNoSuchLock
	}
	e.expires = time.Now().Add(timeout)
	e.active.Expires = e.expires
	return e.active, nil
}

func (m *MemManager) Unlock(ctx context.Context, token, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.tokens[token]
	if !ok {
		return ErrNoSuchLock
	}
	if e.active.Path != path {
		return ErrNoSuchLock
	}
	delete(m.tokens, token)
	return nil
}

func (m *MemManager) Lookup(ctx context.Context, path string) (Active, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	for _, e := range m.tokens {
		if now.After(e.expires) {
			continue
		}
		if conflicts(path, e.active.Path) {
			return e.active, true
		}
	}
	return Active{}, false
}
