// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.

// Package davacl holds the ACL value and provider interface consumed
// by the method engine (spec §4.4), grounded on
// original_source/django_webdav/__init__.py's DavAcl/DavFileSystem.access.
package davacl

import "context"

// ACL is an immutable record of the six permissions the engine checks
// before any operation.
type ACL struct {
	Read     bool
	Write    bool
	Delete   bool
	Create   bool
	Relocate bool
	List     bool
}

// ReadOnly is the default policy spec §4.4 mandates: list and read
// permitted, every mutating permission denied. (The Python original
// this spec was distilled from defaults to deny-all instead — see
// DESIGN.md for why spec.md's choice is followed here.)
var ReadOnly = ACL{Read: true, List: true}

// Full grants every permission; useful for tests and for a
// single-tenant deployment that trusts its authentication layer
// entirely.
var Full = ACL{Read: true, Write: true, Delete: true, Create: true, Relocate: true, List: true}

// Provider computes the ACL for a (principal, path) pair. The engine
// calls Access at most once per request, before any mutating
// operation; OPTIONS and UNLOCK do not consult it.
type Provider interface {
	Access(ctx context.Context, principal, absPath string) (ACL, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, principal, absPath string) (ACL, error)

func (f ProviderFunc) Access(ctx context.Context, principal, absPath string) (ACL, error) {
	return f(ctx, principal, absPath)
}

// ReadOnlyProvider is the default Provider: every path gets ReadOnly
// regardless of principal.
var ReadOnlyProvider Provider = ProviderFunc(func(ctx context.Context, principal, absPath string) (ACL, error) {
	return ReadOnly, nil
})
