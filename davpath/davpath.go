// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.

// Package davpath provides the pure path- and Clark-notation-name
// helpers shared by the rest of daveng. None of it touches a
// filesystem or backend; it is string plumbing only.
package davpath

import (
	"strings"
	"time"
)

// SafeJoin joins root with a sequence of path segments, guaranteeing the
// result starts with exactly one leading slash and never contains "//".
// Unlike path.Join (and filepath.Join), an absolute-looking right-hand
// segment never discards the left-hand side — every segment is treated
// as relative once its own leading slashes are stripped.
func SafeJoin(root string, segments ...string) string {
	var b strings.Builder
	b.Grow(len(root) + 16)

	root = strings.Trim(root, "/")
	if root != "" {
		b.WriteByte('/')
		b.WriteString(root)
	}

	for _, seg := range segments {
		seg = strings.Trim(seg, "/")
		if seg == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(seg)
	}

	out := b.String()
	if out == "" {
		return "/"
	}
	return out
}

// URLJoin concatenates base (scheme+host+optional-prefix, trailing
// slash stripped) with SafeJoin(segments...).
func URLJoin(base string, segments ...string) string {
	return strings.TrimRight(base, "/") + SafeJoin("", segments...)
}

// ClarkSplit splits a Clark-notation tag "{ns}local" into (ns, local).
// A tag without a recognized "{ns}" prefix returns ("", tag).
func ClarkSplit(tag string) (ns, local string) {
	if strings.HasPrefix(tag, "{") {
		if i := strings.IndexByte(tag, '}'); i >= 0 {
			return tag[1:i], tag[i+1:]
		}
	}
	return "", tag
}

// ClarkJoin builds a Clark-notation tag from a namespace and local name.
// An empty namespace yields the bare local name.
func ClarkJoin(ns, local string) string {
	if ns == "" {
		return local
	}
	return "{" + ns + "}" + local
}

// Name returns the final path segment of p, with trailing slashes
// stripped first (so Name("/a/b/") == "b").
func Name(p string) string {
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Dir returns the parent path of p: everything before the final
// segment, never empty (the parent of "/" is "/").
func Dir(p string) string {
	p = strings.TrimRight(p, "/")
	i := strings.LastIndexByte(p, '/')
	if i <= 0 {
		return "/"
	}
	return p[:i]
}

// RFC3339 formats a Unix timestamp the way the system this spec is
// grounded on does: shift by the local zone offset (DST included) and
// label the result "Z", even though that is not true UTC. This keeps
// wire compatibility with clients that have only ever seen this
// server's stamped values; see DESIGN.md for the tradeoff. A zero
// timestamp yields the empty string (no creation time known).
func RFC3339(sec int64) string {
	if sec == 0 {
		return ""
	}
	t := time.Unix(sec, 0).In(time.Local)
	return t.Format("2006-01-02T15:04:05") + "Z"
}
