// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.

package osfs

import (
	"io/fs"
	"syscall"
)

// creationTime returns the inode change time as a stand-in for a
// birth time: Linux has no portable creation-time syscall, and
// ctime is the closest stdlib-reachable approximation (spec §4.3
// notes creationdate is best-effort on backends that lack one).
func creationTime(fi fs.FileInfo) int64 {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		return st.Ctim.Sec
	}
	return fi.ModTime().Unix()
}
