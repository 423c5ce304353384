// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.

package davengine

import (
	"context"
	"errors"
	"net/http"

	"github.com/beevik/etree"
	"github.com/infinite-iroha/touka"

	"github.com/wjqserver-studio/daveng/davpath"
	"github.com/wjqserver-studio/daveng/davprop"
	"github.com/wjqserver-studio/daveng/davres"
)

var errBadPropfind = errors.New("davengine: malformed PROPFIND request")

type propfindMode int

const (
	modeAllProp propfindMode = iota
	modePropName
	modeProp
)

type propfindRequest struct {
	mode  propfindMode
	names []string
}

// parsePropfindBody implements spec §4.5 PROPFIND's body grammar: an
// empty body means "all live properties"; otherwise the three
// selectors are mutually exclusive per the combinations spec.md
// flags as illegal.
func parsePropfindBody(c *touka.Context) (propfindRequest, error) {
	if contentLength(c) == 0 {
		return propfindRequest{mode: modeAllProp}, nil
	}

	body := c.GetReqBody()
	defer body.Close()

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(body); err != nil {
		return propfindRequest{}, err
	}
	root := doc.Root()
	if root == nil || root.Tag != "propfind" {
		return propfindRequest{}, errBadPropfind
	}

	allprop := root.SelectElement("allprop")
	propname := root.SelectElement("propname")
	propEl := root.SelectElement("prop")

	switch {
	case propEl != nil && propname != nil:
		return propfindRequest{}, errBadPropfind
	case allprop != nil && propEl != nil:
		return propfindRequest{}, errBadPropfind
	case propname != nil:
		return propfindRequest{mode: modePropName}, nil
	case allprop != nil:
		return propfindRequest{mode: modeAllProp}, nil
	case propEl != nil:
		var names []string
		for _, child := range propEl.ChildElements() {
			names = append(names, clarkName(child))
		}
		return propfindRequest{mode: modeProp, names: names}, nil
	default:
		return propfindRequest{}, errBadPropfind
	}
}

func clarkName(el *etree.Element) string {
	ns := el.NamespaceURI()
	if ns == "" {
		return el.Tag
	}
	return davpath.ClarkJoin(ns, el.Tag)
}

// handlePropfind implements spec §4.5 PROPFIND.
func (h *Handler) handlePropfind(c *touka.Context) {
	r := h.resource(c)
	info, err := r.Stat(c.Context())
	if err != nil {
		c.Errorf("davengine: stat %s: %v", r.Path(), err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if !info.Exists() {
		c.Status(http.StatusNotFound)
		return
	}

	acl, err := h.access(c, r.AbsPath())
	if err != nil {
		c.Errorf("davengine: access %s: %v", r.AbsPath(), err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if !acl.List {
		c.Status(http.StatusForbidden)
		return
	}

	depth, ok := parseDepth(c.GetReqHeader("Depth"))
	if !ok {
		c.Status(http.StatusBadRequest)
		return
	}

	req, err := parsePropfindBody(c)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	names := req.names
	if req.mode != modeProp {
		names = davprop.LiveNames
	}

	doc := etree.NewDocument()
	ms := doc.CreateElement("D:multistatus")
	ms.CreateAttr("xmlns:D", "DAV:")

	it := davres.Descendants(c.Context(), r, depth, true)
	for {
		res, ok, err := it.Next(c.Context())
		if err != nil {
			c.Errorf("davengine: propfind walk %s: %v", r.Path(), err)
			break
		}
		if !ok {
			break
		}
		if err := h.appendPropfindResponse(c.Context(), ms, res, req, names); err != nil {
			c.Errorf("davengine: propfind %s: %v", res.Path(), err)
		}
	}

	c.SetHeader("Content-Type", "application/xml")
	c.Status(http.StatusMultiStatus)
	doc.WriteTo(c.GetWriter())
}

func (h *Handler) appendPropfindResponse(ctx context.Context, ms *etree.Element, r davres.Resource, req propfindRequest, names []string) error {
	resp := ms.CreateElement("D:response")
	resp.CreateElement("D:href").SetText(r.URL())

	found, missing, err := davprop.Get(ctx, r, names, req.mode == modePropName)
	if err != nil {
		return err
	}

	if len(found) > 0 {
		propstat := resp.CreateElement("D:propstat")
		prop := propstat.CreateElement("D:prop")
		for _, f := range found {
			el := createClarkElement(prop, f.Name)
			if f.Value.IsElement {
				createClarkElement(el, f.Value.Element)
			} else {
				el.SetText(f.Value.Text)
			}
		}
		propstat.CreateElement("D:status").SetText("HTTP/1.1 200 OK")
	}

	if len(missing) > 0 {
		propstat := resp.CreateElement("D:propstat")
		prop := propstat.CreateElement("D:prop")
		for _, name := range missing {
			createClarkElement(prop, name)
		}
		propstat.CreateElement("D:status").SetText("HTTP/1.1 404 Not Found")
	}

	return nil
}

// createClarkElement appends a child named by a Clark-notation tag.
// DAV-namespaced names and names with no namespace use the D: prefix
// the document declares; any other namespace is declared inline so the
// fragment is self-contained.
func createClarkElement(parent *etree.Element, clark string) *etree.Element {
	ns, local := davpath.ClarkSplit(clark)
	if ns == "" || ns == "DAV:" {
		return parent.CreateElement("D:" + local)
	}
	el := parent.CreateElement(local)
	el.CreateAttr("xmlns", ns)
	return el
}
