// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.

// Package davprop computes live WebDAV properties for a resource
// (spec §4.3), grounded on
// original_source/django_webdav/__init__.py's DavProperties.get_properties.
package davprop

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/wjqserver-studio/daveng/davpath"
	"github.com/wjqserver-studio/daveng/davres"
)

// Value is a tagged union: a property is either plain text, an XML
// element fragment (only {DAV:}resourcetype's <collection/> today),
// or absent.
type Value struct {
	Text      string
	Element   string // Clark-notation tag of a self-closing child element, e.g. "{DAV:}collection"
	IsElement bool
}

// LiveNames is the six core DAV live properties, in the order
// original_source serves them for an empty-body PROPFIND.
var LiveNames = []string{
	"{DAV:}getetag",
	"{DAV:}getcontentlength",
	"{DAV:}creationdate",
	"{DAV:}getlastmodified",
	"{DAV:}resourcetype",
	"{DAV:}displayname",
}

func isLive(name string) bool {
	for _, n := range LiveNames {
		if n == name {
			return true
		}
	}
	return false
}

// Found is one (name, value) pair found for a resource.
type Found struct {
	Name  string
	Value Value
}

// Get computes the requested properties for r. If namesOnly, every
// requested name that is live is reported found with an absent value
// (spec §4.3, §8 "Live property closure under names-only"); otherwise
// each live name is computed and any non-live name is reported
// missing (dead properties are not persisted by the default backend,
// spec §9).
func Get(ctx context.Context, r davres.Resource, names []string, namesOnly bool) (found []Found, missing []string, err error) {
	info, err := r.Stat(ctx)
	if err != nil {
		return nil, nil, err
	}

	for _, name := range names {
		if namesOnly {
			if isLive(name) {
				found = append(found, Found{Name: name})
			}
			continue
		}

		v, ok, verr := compute(ctx, r, info, name)
		if verr != nil {
			return nil, nil, verr
		}
		if !ok {
			if !isLive(name) {
				missing = append(missing, name)
			}
			continue
		}
		found = append(found, Found{Name: name, Value: v})
	}
	return found, missing, nil
}

func compute(ctx context.Context, r davres.Resource, info davres.Info, name string) (Value, bool, error) {
	_, local := davpath.ClarkSplit(name)
	switch local {
	case "getetag":
		etag, err := r.ETag(ctx)
		if err != nil {
			return Value{}, false, err
		}
		return Value{Text: etag}, true, nil
	case "getcontentlength":
		if info.IsCollection() {
			return Value{}, false, nil
		}
		return Value{Text: fmt.Sprintf("%d", info.Size)}, true, nil
	case "creationdate":
		return Value{Text: davpath.RFC3339(info.CTime)}, true, nil
	case "getlastmodified":
		return Value{Text: time.Unix(info.MTime, 0).UTC().Format(http.TimeFormat)}, true, nil
	case "resourcetype":
		if info.IsCollection() {
			return Value{Element: "{DAV:}collection", IsElement: true}, true, nil
		}
		return Value{Text: ""}, true, nil
	case "displayname":
		return Value{Text: r.Name()}, true, nil
	case "href":
		return Value{Text: r.URL()}, true, nil
	default:
		return Value{}, false, nil
	}
}

// ETag computes the 128-bit hex digest spec §3/§4.2 define: MD5 of
// absPath ⊕ mtime ⊕ size. This is a correctness hint, not a
// cryptographic commitment (spec §4.2), and it leaks the server's
// on-disk layout into a client-visible token — see DESIGN.md for why
// that is kept for wire compatibility.
func ETag(absPath string, mtime, size int64) string {
	h := md5.New()
	h.Write([]byte(absPath))
	h.Write([]byte(fmt.Sprintf("%d", mtime)))
	h.Write([]byte(fmt.Sprintf("%d", size)))
	return hex.EncodeToString(h.Sum(nil))
}
