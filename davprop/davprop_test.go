// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.

package davprop_test

import (
	"context"
	"testing"

	"github.com/wjqserver-studio/daveng/davprop"
	"github.com/wjqserver-studio/daveng/davres/memfs"
)

func TestGetAllLiveNamesOnCollection(t *testing.T) {
	fs := memfs.New("http://example.com")
	r := fs.Resource("/dir")
	if err := r.CreateCollection(context.Background()); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}

	found, missing, err := davprop.Get(context.Background(), r, davprop.LiveNames, false)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(missing) != 0 {
		t.Fatalf("expected no missing properties, got %v", missing)
	}
	// getcontentlength is undefined for collections and must be absent
	// from found (spec §4.3).
	for _, f := range found {
		if f.Name == "{DAV:}getcontentlength" {
			t.Fatal("getcontentlength must not be reported for a collection")
		}
	}
	if len(found) != len(davprop.LiveNames)-1 {
		t.Fatalf("expected %d found properties, got %d: %+v", len(davprop.LiveNames)-1, len(found), found)
	}
}

func TestGetNamesOnlyReportsLiveNamesAbsentOfValue(t *testing.T) {
	fs := memfs.New("")
	r := fs.Resource("/f")
	w, _ := r.OpenWrite(context.Background())
	w.Write([]byte("hi"))
	w.Close()

	found, _, err := davprop.Get(context.Background(), r, []string{"{DAV:}getetag", "{custom:}dead"}, true)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(found) != 1 || found[0].Name != "{DAV:}getetag" {
		t.Fatalf("names-only must only report live names, got %+v", found)
	}
	if found[0].Value.Text != "" || found[0].Value.IsElement {
		t.Fatalf("names-only must report an absent value, got %+v", found[0].Value)
	}
}

func TestGetDeadPropertyIsMissing(t *testing.T) {
	fs := memfs.New("")
	r := fs.Resource("/f")
	w, _ := r.OpenWrite(context.Background())
	w.Close()

	_, missing, err := davprop.Get(context.Background(), r, []string{"{custom:}color"}, false)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(missing) != 1 || missing[0] != "{custom:}color" {
		t.Fatalf("expected the dead property to be reported missing, got %v", missing)
	}
}

func TestResourceTypeOnNonCollectionIsEmptyText(t *testing.T) {
	fs := memfs.New("")
	r := fs.Resource("/f")
	w, _ := r.OpenWrite(context.Background())
	w.Close()

	found, _, err := davprop.Get(context.Background(), r, []string{"{DAV:}resourcetype"}, false)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(found) != 1 || found[0].Value.IsElement || found[0].Value.Text != "" {
		t.Fatalf("expected an empty-text resourcetype, got %+v", found)
	}
}

func TestResourceTypeOnCollectionIsElement(t *testing.T) {
	fs := memfs.New("")
	r := fs.Resource("/d")
	if err := r.CreateCollection(context.Background()); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}

	found, _, err := davprop.Get(context.Background(), r, []string{"{DAV:}resourcetype"}, false)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(found) != 1 || !found[0].Value.IsElement || found[0].Value.Element != "{DAV:}collection" {
		t.Fatalf("expected a <collection/> element, got %+v", found)
	}
}

func TestETagIsDeterministic(t *testing.T) {
	a := davprop.ETag("/x", 100, 10)
	b := davprop.ETag("/x", 100, 10)
	if a != b {
		t.Fatalf("ETag must be deterministic for identical inputs: %q != %q", a, b)
	}
	if a == davprop.ETag("/x", 101, 10) {
		t.Fatal("ETag must vary with mtime")
	}
}
