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

// Package fsmeta is the data model shared by every core component: the
// FileEntry augmented tar record (spec.md §3), the dedup Fingerprint, and
// the POSIX stat plumbing (dev/ino/nlink) the teacher's git-backup driver
// reaches for via syscall.Stat_t rather than os.FileInfo alone.
package fsmeta

import (
	"os"
	"path"
	"strconv"
	"strings"
	"time"
)

// Kind enumerates the augmented entry kinds of spec.md §3.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindRegular
	KindDirectory
	KindSymlink
	KindHardlink
	KindFifo
	KindCharDevice
	KindBlockDevice
	KindSocket
)

func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "regular"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	case KindHardlink:
		return "hardlink"
	case KindFifo:
		return "fifo"
	case KindCharDevice:
		return "chardevice"
	case KindBlockDevice:
		return "blockdevice"
	case KindSocket:
		return "socket"
	default:
		return "unknown"
	}
}

// Status is the dedup-augmented status of a regular-file entry: whether
// its body lives in this backup's tar, in a sibling backup, or whether the
// concept does not apply (directories, symlinks, ...).
type Status uint8

const (
	StatusNone Status = iota
	StatusUnique
	StatusExtern
)

func (s Status) String() string {
	switch s {
	case StatusUnique:
		return "unique"
	case StatusExtern:
		return "extern"
	default:
		return "none"
	}
}

func ParseStatus(s string) (Status, bool) {
	switch s {
	case "unique":
		return StatusUnique, true
	case "extern":
		return StatusExtern, true
	default:
		return StatusNone, false
	}
}

// FileEntry is one filesystem entry as produced by the driver and consumed
// by Backup.AddFile / Restore, per spec.md §3.
type FileEntry struct {
	Path       string
	Kind       Kind
	Mode       os.FileMode
	UID        uint32
	GID        uint32
	Uname      string
	Gname      string
	Mtime      time.Time
	Size       int64
	LinkTarget string
	Devmajor   int64
	Devminor   int64

	Status Status
	Hash   string
}

// Fingerprint is the (dev, ino, mtime-second) identity proxy of spec.md §3
// and §4.4, used to skip rehashing unchanged files.
type Fingerprint struct {
	Dev   uint64
	Ino   uint64
	Mtime int64
}

func (f Fingerprint) String() string {
	return strconv.FormatUint(f.Dev, 10) + ":" +
		strconv.FormatUint(f.Ino, 10) + ":" +
		strconv.FormatInt(f.Mtime, 10)
}

func (f Fingerprint) Equal(o Fingerprint) bool {
	return f.Dev == o.Dev && f.Ino == o.Ino && f.Mtime == o.Mtime
}

// ParseFingerprint parses the "dev:ino:mtime" form written in metadata
// records back into a Fingerprint.
func ParseFingerprint(s string) (Fingerprint, bool) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return Fingerprint{}, false
	}
	dev, err1 := strconv.ParseUint(parts[0], 10, 64)
	ino, err2 := strconv.ParseUint(parts[1], 10, 64)
	mt, err3 := strconv.ParseInt(parts[2], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return Fingerprint{}, false
	}
	return Fingerprint{Dev: dev, Ino: ino, Mtime: mt}, true
}

// NormalizePath applies the single normalization spec.md §3 invariant 5
// requires of every stored path: absolute, no trailing slash, no redundant
// separators, and the leading '/' stripped for on-disk storage.
func NormalizePath(p string) string {
	c := path.Clean("/" + p)
	c = strings.TrimPrefix(c, "/")
	if c == "." {
		c = ""
	}
	return c
}

// ContainsForbiddenByte reports whether p contains a byte that cannot
// appear in a stored path (NUL, LF, CR) per spec.md §4.5 step 1.
func ContainsForbiddenByte(p string) bool {
	return strings.ContainsAny(p, "\x00\n\r")
}
