// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.

package davengine

import (
	"mime"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/WJQSERVER-STUDIO/go-utils/iox"
	"github.com/infinite-iroha/touka"
)

// handleGetHead implements spec §4.5 GET/HEAD: a collection with list
// permission would render a directory index, but that rendering is an
// external collaborator (spec §1) — absent one registered, a
// collection GET answers 404 rather than guessing at HTML.
func (h *Handler) handleGetHead(c *touka.Context) {
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

	if info.IsCollection() {
		if !acl.List {
			c.Status(http.StatusForbidden)
			return
		}
		c.Status(http.StatusNotFound)
		return
	}

	if !acl.Read {
		c.Status(http.StatusForbidden)
		return
	}

	etag, err := r.ETag(c.Context())
	if err != nil {
		c.Errorf("davengine: etag %s: %v", r.Path(), err)
		c.Status(http.StatusInternalServerError)
		return
	}

	ctype := mime.TypeByExtension(path.Ext(r.Name()))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	c.SetHeader("Content-Type", ctype)
	c.SetHeader("Content-Length", strconv.FormatInt(info.Size, 10))
	c.SetHeader("Last-Modified", time.Unix(info.MTime, 0).UTC().Format(http.TimeFormat))
	c.SetHeader("ETag", etag)

	if c.Request.Method == http.MethodHead {
		c.Status(http.StatusOK)
		return
	}

	body, err := r.OpenRead(c.Context())
	if err != nil {
		c.Errorf("davengine: open %s: %v", r.Path(), err)
		c.Status(http.StatusInternalServerError)
		return
	}
	defer body.Close()

	c.Status(http.StatusOK)
	if _, err := c.WriteStream(body); err != nil {
		c.Errorf("davengine: stream %s: %v", r.Path(), err)
	}
}

// handlePut implements spec §4.5 PUT.
func (h *Handler) handlePut(c *touka.Context) {
	r := h.resource(c)
	info, err := r.Stat(c.Context())
	if err != nil {
		c.Errorf("davengine: stat %s: %v", r.Path(), err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if info.IsCollection() {
		c.Status(http.StatusMethodNotAllowed)
		return
	}

	parentInfo, err := r.Parent().Stat(c.Context())
	if err != nil {
		c.Errorf("davengine: stat parent of %s: %v", r.Path(), err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if !parentInfo.IsCollection() {
		c.Status(http.StatusNotFound)
		return
	}

	acl, err := h.access(c, r.AbsPath())
	if err != nil {
		c.Errorf("davengine: access %s: %v", r.AbsPath(), err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if !acl.Write {
		h.warnf("davengine: %s denied write on %s", principal(c), r.AbsPath())
		c.Status(http.StatusForbidden)
		return
	}
	if !h.checkLocked(c, r.Path()) {
		return
	}

	existed := info.Exists()

	w, err := r.OpenWrite(c.Context())
	if err != nil {
		c.Errorf("davengine: open write %s: %v", r.Path(), err)
		c.Status(http.StatusInternalServerError)
		return
	}
	body := c.GetReqBody()
	if _, err := iox.Copy(w, body); err != nil {
		body.Close()
		w.Close()
		c.Errorf("davengine: write body %s: %v", r.Path(), err)
		c.Status(http.StatusInternalServerError)
		return
	}
	body.Close()
	if err := w.Close(); err != nil {
		c.Errorf("davengine: close %s: %v", r.Path(), err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if existed {
		c.Status(http.StatusNoContent)
	} else {
		c.Status(http.StatusCreated)
	}
}

// handleDelete implements spec §4.5 DELETE: recursive, idempotent
// semantics are left to the backend.
func (h *Handler) handleDelete(c *touka.Context) {
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
	if !acl.Delete {
		h.warnf("davengine: %s denied delete on %s", principal(c), r.AbsPath())
		c.Status(http.StatusForbidden)
		return
	}
	if !h.checkLocked(c, r.Path()) {
		return
	}

	if err := r.Delete(c.Context()); err != nil {
		c.Errorf("davengine: delete %s: %v", r.Path(), err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleMkcol implements spec §4.5 MKCOL.
func (h *Handler) handleMkcol(c *touka.Context) {
	r := h.resource(c)
	info, err := r.Stat(c.Context())
	if err != nil {
		c.Errorf("davengine: stat %s: %v", r.Path(), err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if info.Exists() {
		c.Status(http.StatusMethodNotAllowed)
		return
	}

	parentInfo, err := r.Parent().Stat(c.Context())
	if err != nil {
		c.Errorf("davengine: stat parent of %s: %v", r.Path(), err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if !parentInfo.IsCollection() {
		c.Status(http.StatusConflict)
		return
	}

	if contentLength(c) > 0 {
		c.Status(http.StatusUnsupportedMediaType)
		return
	}

	acl, err := h.access(c, r.AbsPath())
	if err != nil {
		c.Errorf("davengine: access %s: %v", r.AbsPath(), err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if !acl.Create {
		h.warnf("davengine: %s denied mkcol on %s", principal(c), r.AbsPath())
		c.Status(http.StatusForbidden)
		return
	}
	if !h.checkLocked(c, r.Path()) {
		return
	}

	if err := r.CreateCollection(c.Context()); err != nil {
		c.Errorf("davengine: mkcol %s: %v", r.Path(), err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusCreated)
}

// handleOptions implements spec §4.5 OPTIONS.
func (h *Handler) handleOptions(c *touka.Context) {
	c.SetHeader("DAV", "1,2")

	p := h.path(c)
	if p == "/" || p == "*" {
		c.SetHeader("Allow", "")
		c.Status(http.StatusOK)
		return
	}

	r := h.resource(c)
	info, err := r.Stat(c.Context())
	if err != nil {
		c.Errorf("davengine: stat %s: %v", r.Path(), err)
		c.Status(http.StatusInternalServerError)
		return
	}

	switch {
	case !info.Exists():
		parentInfo, err := r.Parent().Stat(c.Context())
		if err != nil {
			c.Errorf("davengine: stat parent of %s: %v", r.Path(), err)
			c.Status(http.StatusInternalServerError)
			return
		}
		if parentInfo.IsCollection() {
			c.SetHeader("Allow", "OPTIONS PUT MKCOL")
		} else {
			c.SetHeader("Allow", "OPTIONS")
		}
	case info.IsCollection():
		c.SetHeader("Allow", "OPTIONS HEAD GET DELETE PROPFIND PROPPATCH COPY MOVE LOCK UNLOCK")
	default:
		c.SetHeader("Allow", "OPTIONS HEAD GET DELETE PROPFIND PROPPATCH COPY MOVE LOCK UNLOCK PUT")
		c.SetHeader("Allow-Ranges", "bytes")
	}
	c.Status(http.StatusOK)
}

