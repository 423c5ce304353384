// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.

package davengine

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/infinite-iroha/touka"

	"github.com/wjqserver-studio/daveng/davlock"
)

var errInvalidTimeout = errors.New("davengine: invalid Timeout header")

const defaultLockTimeout = 10 * time.Minute

// checkLocked enforces an active lock at path against a mutating
// request (spec.md §9: "a real implementation must ... enforce
// conflicts in PUT/DELETE/MKCOL/COPY/MOVE"). With no Manager
// configured, locking stays the pure stub spec.md's literal text
// describes and every path is unlocked. Otherwise a lock blocks the
// request unless the caller's If header names that lock's token.
func (h *Handler) checkLocked(c *touka.Context, path string) bool {
	if h.Locks == nil {
		return true
	}
	active, locked := h.Locks.Lookup(c.Context(), path)
	if !locked {
		return true
	}
	if token := ifLockToken(c.GetReqHeader("If")); token != "" && token == active.Token {
		return true
	}
	c.Status(http.StatusLocked)
	return false
}

// handleLock implements LOCK. spec.md's literal text stubs this at
// 501; spec.md §1 explicitly allows "the option to implement", and
// daveng does, via davlock.Manager — an unset Locks falls back to the
// stub.
func (h *Handler) handleLock(c *touka.Context) {
	if h.Locks == nil {
		c.Status(http.StatusNotImplemented)
		return
	}

	r := h.resource(c)
	acl, err := h.access(c, r.AbsPath())
	if err != nil {
		c.Errorf("davengine: access %s: %v", r.AbsPath(), err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if !acl.Write {
		h.warnf("davengine: %s denied lock on %s", principal(c), r.AbsPath())
		c.Status(http.StatusForbidden)
		return
	}

	timeout, err := parseTimeout(c.GetReqHeader("Timeout"))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	if token := ifLockToken(c.GetReqHeader("If")); token != "" {
		active, err := h.Locks.Refresh(c.Context(), token, timeout)
		if err != nil {
			c.Status(http.StatusPreconditionFailed)
			return
		}
		writeLockDiscovery(c, active)
		return
	}

	info, err := parseLockInfo(c)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	info.Timeout = timeout

	active, err := h.Locks.Create(c.Context(), r.Path(), info)
	if err != nil {
		c.Status(http.StatusLocked)
		return
	}
	writeLockDiscovery(c, active)
}

// handleUnlock implements UNLOCK.
func (h *Handler) handleUnlock(c *touka.Context) {
	if h.Locks == nil {
		c.Status(http.StatusNotImplemented)
		return
	}

	token := strings.Trim(c.GetReqHeader("Lock-Token"), "<>")
	if token == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	r := h.resource(c)
	if err := h.Locks.Unlock(c.Context(), token, r.Path()); err != nil {
		if err == davlock.ErrNoSuchLock {
			c.Status(http.StatusConflict)
			return
		}
		c.Errorf("davengine: unlock %s: %v", r.Path(), err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseTimeout parses the Timeout header's "Second-NNN" / "Infinite"
// grammar (RFC 4918 §10.7), grounded on the teacher's parseTimeout.
func parseTimeout(raw string) (time.Duration, error) {
	if raw == "" || strings.EqualFold(raw, "infinite") {
		return defaultLockTimeout, nil
	}
	first := strings.SplitN(raw, ",", 2)[0]
	parts := strings.SplitN(strings.TrimSpace(first), "-", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "second") {
		seconds, err := strconv.Atoi(parts[1])
		if err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second, nil
		}
	}
	return 0, errInvalidTimeout
}

// ifLockToken extracts a coded-URL lock token from an If header of
// the shape `(<opaquelocktoken:...>)`, the minimal subset of RFC
// 4918 §10.4's If grammar the teacher's handler already recognized.
func ifLockToken(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "(")
	raw = strings.TrimSuffix(raw, ")")
	raw = strings.TrimPrefix(raw, "<")
	raw = strings.TrimSuffix(raw, ">")
	return raw
}

// parseLockInfo reads a {DAV:}lockinfo request body.
func parseLockInfo(c *touka.Context) (davlock.Info, error) {
	body := c.GetReqBody()
	defer body.Close()

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(body); err != nil {
		return davlock.Info{}, err
	}
	root := doc.Root()
	if root == nil {
		return davlock.Info{}, errInvalidTimeout
	}

	info := davlock.Info{Exclusive: true}
	if scope := root.SelectElement("lockscope"); scope != nil {
		info.Exclusive = scope.SelectElement("shared") == nil
	}
	if owner := root.SelectElement("owner"); owner != nil {
		if href := owner.SelectElement("href"); href != nil {
			info.OwnerHref = href.Text()
		} else {
			info.OwnerHref = owner.Text()
		}
	}
	return info, nil
}

// writeLockDiscovery renders the {DAV:}prop/{DAV:}lockdiscovery body
// LOCK and a successful refresh both return, plus the Lock-Token
// header RFC 4918 §9.10.1 requires on lock creation.
func writeLockDiscovery(c *touka.Context, active davlock.Active) {
	doc := etree.NewDocument()
	prop := doc.CreateElement("D:prop")
	prop.CreateAttr("xmlns:D", "DAV:")
	discovery := prop.CreateElement("D:lockdiscovery")
	lock := discovery.CreateElement("D:activelock")

	lockType := lock.CreateElement("D:locktype")
	lockType.CreateElement("D:write")

	lockScope := lock.CreateElement("D:lockscope")
	if active.Exclusive {
		lockScope.CreateElement("D:exclusive")
	} else {
		lockScope.CreateElement("D:shared")
	}

	if active.OwnerHref != "" {
		owner := lock.CreateElement("D:owner")
		owner.CreateElement("D:href").SetText(active.OwnerHref)
	}

	remaining := time.Until(active.Expires)
	if remaining < 0 {
		remaining = 0
	}
	lock.CreateElement("D:timeout").SetText("Second-" + strconv.Itoa(int(remaining.Seconds())))

	token := lock.CreateElement("D:locktoken")
	token.CreateElement("D:href").SetText(active.Token)

	doc.Indent(2)
	c.SetHeader("Content-Type", "application/xml; charset=utf-8")
	c.SetHeader("Lock-Token", "<"+active.Token+">")
	c.Status(http.StatusOK)
	doc.WriteTo(c.GetWriter())
}
