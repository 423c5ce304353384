// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.

package davengine

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/infinite-iroha/touka"
)

// destination resolves the Destination header to a target Resource,
// enforcing spec §4.5's COPY/MOVE preconditions: an absent header is
// 400, a cross-origin (scheme+host mismatch) destination is 502. ok
// is false once a status has already been written.
func (h *Handler) destination(c *touka.Context) (path string, ok bool) {
	raw := c.GetReqHeader("Destination")
	if raw == "" {
		c.Status(http.StatusBadRequest)
		return "", false
	}
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return "", false
	}
	destURL, err := url.Parse(decoded)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return "", false
	}

	if destURL.IsAbs() || destURL.Host != "" {
		reqScheme := "http"
		if c.Request.TLS != nil {
			reqScheme = "https"
		}
		if destURL.Scheme != "" && destURL.Scheme != reqScheme {
			c.Status(http.StatusBadGateway)
			return "", false
		}
		if destURL.Host != "" && destURL.Host != c.Request.Host {
			c.Status(http.StatusBadGateway)
			return "", false
		}
	}

	p := destURL.Path
	if h.Prefix != "" && h.Prefix != "/" {
		p = strings.TrimPrefix(p, h.Prefix)
	}
	if p == "" {
		p = "/"
	}
	return p, true
}

// isOrUnder reports whether destPath names srcPath itself or a
// descendant of it, the case that would otherwise make a collection
// CopyInto/MoveInto recurse into a destination it keeps re-creating
// inside its own source tree.
func isOrUnder(destPath, srcPath string) bool {
	if destPath == srcPath {
		return true
	}
	prefix := srcPath
	if prefix != "/" {
		prefix += "/"
	}
	return strings.HasPrefix(destPath, prefix)
}

// handleCopy implements spec §4.5 COPY.
func (h *Handler) handleCopy(c *touka.Context) {
	h.copyOrMove(c, false)
}

// handleMove implements spec §4.5 MOVE.
func (h *Handler) handleMove(c *touka.Context) {
	h.copyOrMove(c, true)
}

func (h *Handler) copyOrMove(c *touka.Context, move bool) {
	src := h.resource(c)
	srcInfo, err := src.Stat(c.Context())
	if err != nil {
		c.Errorf("davengine: stat %s: %v", src.Path(), err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if !srcInfo.Exists() {
		c.Status(http.StatusNotFound)
		return
	}

	acl, err := h.access(c, src.AbsPath())
	if err != nil {
		c.Errorf("davengine: access %s: %v", src.AbsPath(), err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if !acl.Relocate {
		h.warnf("davengine: %s denied %s of %s", principal(c), verbName(move), src.AbsPath())
		c.Status(http.StatusForbidden)
		return
	}
	if !h.checkLocked(c, src.Path()) {
		return
	}

	destPath, ok := h.destination(c)
	if !ok {
		return
	}
	if isOrUnder(destPath, src.Path()) {
		c.Status(http.StatusForbidden)
		return
	}

	overwrite, ok := parseOverwrite(c.GetReqHeader("Overwrite"))
	if !ok {
		c.Status(http.StatusBadRequest)
		return
	}

	depth, ok := parseDepth(c.GetReqHeader("Depth"))
	if !ok {
		c.Status(http.StatusBadRequest)
		return
	}
	if move && depth != -1 {
		c.Status(http.StatusBadRequest)
		return
	}
	if !move && depth == 1 {
		c.Status(http.StatusBadRequest)
		return
	}

	dest := h.Backend.Resource(destPath)
	destParentInfo, err := dest.Parent().Stat(c.Context())
	if err != nil {
		c.Errorf("davengine: stat dest parent %s: %v", dest.Path(), err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if !destParentInfo.IsCollection() {
		c.Status(http.StatusConflict)
		return
	}

	destInfo, err := dest.Stat(c.Context())
	if err != nil {
		c.Errorf("davengine: stat dest %s: %v", dest.Path(), err)
		c.Status(http.StatusInternalServerError)
		return
	}
	existed := destInfo.Exists()
	if existed && !overwrite {
		c.Status(http.StatusPreconditionFailed)
		return
	}
	if !h.checkLocked(c, dest.Path()) {
		return
	}

	if move {
		err = src.MoveInto(c.Context(), dest)
	} else {
		err = src.CopyInto(c.Context(), dest, depth)
	}
	if err != nil {
		c.Errorf("davengine: %s %s -> %s: %v", verbName(move), src.Path(), dest.Path(), err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if existed {
		c.Status(http.StatusNoContent)
	} else {
		c.Status(http.StatusCreated)
	}
}

func verbName(move bool) string {
	if move {
		return "move"
	}
	return "copy"
}
