//go:build !windows

/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package fsmeta

import (
	"os"
	"syscall"
)

// RawStat is the POSIX-only subset of stat(2) this engine needs beyond
// os.FileInfo: device/inode identity (for hardlink detection and
// fingerprinting) and the link count (to decide if a regular file is part
// of a hardlink family). Mirrors the pattern of git-backup's
// syscall.Lstat(path, &st) calls.
type RawStat struct {
	Dev     uint64
	Ino     uint64
	Nlink   uint64
	UID     uint32
	GID     uint32
	Rdev    uint64
	ModTime int64
}

// Lstat extracts the RawStat of path without following a trailing symlink.
func Lstat(path string) (RawStat, error) {
	var st syscall.Stat_t
	if err := syscall.Lstat(path, &st); err != nil {
		return RawStat{}, &os.PathError{Op: "lstat", Path: path, Err: err}
	}
	return fromStatT(&st), nil
}

// FromFileInfo extracts the RawStat embedded in an os.FileInfo obtained
// from os.Lstat/filepath.Walk, avoiding a second syscall when the caller
// already has one.
func FromFileInfo(fi os.FileInfo) (RawStat, bool) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok || st == nil {
		return RawStat{}, false
	}
	return fromStatT(st), true
}

func fromStatT(st *syscall.Stat_t) RawStat {
	return RawStat{
		Dev:     uint64(st.Dev),
		Ino:     uint64(st.Ino),
		Nlink:   uint64(st.Nlink),
		UID:     st.Uid,
		GID:     st.Gid,
		Rdev:    uint64(st.Rdev),
		ModTime: st.Mtim.Sec,
	}
}

// Major/Minor mirror the conventional glibc makedev encoding used by tar's
// devmajor/devminor header fields.
func Major(rdev uint64) int64 { return int64((rdev >> 8) & 0xfff) }
func Minor(rdev uint64) int64 { return int64((rdev & 0xff) | ((rdev >> 12) & 0xfff00)) }
