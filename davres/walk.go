// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
package davres

import "context"

// Descendants returns a depth-limited pre-order walk of root, built
// generically on top of Children so individual backends only need to
// implement direct-child listing (spec §4.2). depth == -1 means
// infinite depth; depth == 0 with includeSelf false yields nothing.
//
// The walk is lazy: each frame's Children call happens only once its
// parent has been yielded and the caller asks for the next item, so a
// PROPFIND over a deep tree holds only the not-yet-walked siblings
// along the current path, never a whole subtree (spec §9 "Lazy
// traversal").
func Descendants(ctx context.Context, root Resource, depth int, includeSelf bool) Iterator {
	w := &walker{ctx: ctx}
	if includeSelf {
		w.stack = append(w.stack, frame{items: []Resource{root}, depth: depth})
	} else if depth != 0 {
		w.stack = append(w.stack, frame{pending: root, depth: depth})
	}
	return w
}

type frame struct {
	items   []Resource // already-known items to walk, consumed front-to-back
	idx     int
	pending Resource // a resource whose children have not been listed yet
	depth   int      // remaining recursion depth for items in this frame
}

type walker struct {
	ctx   context.Context
	stack []frame
}

func (w *walker) Next(ctx context.Context) (Resource, bool, error) {
	for len(w.stack) > 0 {
		top := &w.stack[len(w.stack)-1]

		if top.pending != nil {
			// Expand pending's children into a new frame below it, then
			// continue the loop to serve from that frame first. A
			// non-collection has no children to list.
			pending := top.pending
			top.pending = nil
			info, err := pending.Stat(ctx)
			if err != nil {
				w.stack = w.stack[:len(w.stack)-1]
				return nil, false, err
			}
			if !info.IsCollection() {
				w.stack = w.stack[:len(w.stack)-1]
				continue
			}
			it, err := pending.Children(ctx)
			if err != nil {
				w.stack = w.stack[:len(w.stack)-1]
				return nil, false, err
			}
			var children []Resource
			for {
				r, ok, err := it.Next(ctx)
				if err != nil {
					return nil, false, err
				}
				if !ok {
					break
				}
				children = append(children, r)
			}
			if len(children) == 0 {
				w.stack = w.stack[:len(w.stack)-1]
				continue
			}
			w.stack = append(w.stack, frame{items: children, depth: top.depth - 1})
			continue
		}

		if top.idx >= len(top.items) {
			w.stack = w.stack[:len(w.stack)-1]
			continue
		}

		r := top.items[top.idx]
		top.idx++

		if top.depth != 0 {
			w.stack = append(w.stack, frame{pending: r, depth: top.depth})
		}
		return r, true, nil
	}
	return nil, false, nil
}
