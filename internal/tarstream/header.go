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

// Package tarstream implements C1 (TarStream): POSIX/PAX tar reading and
// writing augmented with the extern/unique dedup status that cannot be
// expressed in the tar format itself (carried out-of-band by metalog).
package tarstream

import (
	"archive/tar"

	"github.com/nabbar/vsbackup/internal/fsmeta"
)

func kindToTypeflag(k fsmeta.Kind) (byte, bool) {
	switch k {
	case fsmeta.KindRegular:
		return tar.TypeReg, true
	case fsmeta.KindDirectory:
		return tar.TypeDir, true
	case fsmeta.KindSymlink:
		return tar.TypeSymlink, true
	case fsmeta.KindHardlink:
		return tar.TypeLink, true
	case fsmeta.KindFifo:
		return tar.TypeFifo, true
	case fsmeta.KindCharDevice:
		return tar.TypeChar, true
	case fsmeta.KindBlockDevice:
		return tar.TypeBlock, true
	default:
		return 0, false
	}
}

func typeflagToKind(t byte) fsmeta.Kind {
	switch t {
	case tar.TypeReg, tar.TypeRegA:
		return fsmeta.KindRegular
	case tar.TypeDir:
		return fsmeta.KindDirectory
	case tar.TypeSymlink:
		return fsmeta.KindSymlink
	case tar.TypeLink:
		return fsmeta.KindHardlink
	case tar.TypeFifo:
		return fsmeta.KindFifo
	case tar.TypeChar:
		return fsmeta.KindCharDevice
	case tar.TypeBlock:
		return fsmeta.KindBlockDevice
	default:
		return fsmeta.KindUnknown
	}
}

// toHeader builds a PAX-format tar.Header for e. Regular entries with an
// extern status carry size=0 and no body, per spec.md §4.1 — the caller
// is responsible for not streaming a body in that case.
func toHeader(e fsmeta.FileEntry) (*tar.Header, bool) {
	flag, ok := kindToTypeflag(e.Kind)
	if !ok {
		return nil, false
	}

	size := e.Size
	if e.Kind != fsmeta.KindRegular || e.Status == fsmeta.StatusExtern {
		size = 0
	}

	h := &tar.Header{
		Name:     e.Path,
		Typeflag: flag,
		Mode:     int64(e.Mode.Perm()),
		Uid:      int(e.UID),
		Gid:      int(e.GID),
		Uname:    e.Uname,
		Gname:    e.Gname,
		Size:     size,
		ModTime:  e.Mtime,
		Linkname: e.LinkTarget,
		Devmajor: e.Devmajor,
		Devminor: e.Devminor,
		Format:   tar.FormatPAX,
	}
	return h, true
}

// fromHeader recovers a FileEntry from a tar.Header as read back off disk.
// Status/Hash are not set here — they are only known by cross-referencing
// the companion MetadataLog.
func fromHeader(h *tar.Header) fsmeta.FileEntry {
	return fsmeta.FileEntry{
		Path:       fsmeta.NormalizePath(h.Name),
		Kind:       typeflagToKind(h.Typeflag),
		Mode:       h.FileInfo().Mode(),
		UID:        uint32(h.Uid),
		GID:        uint32(h.Gid),
		Uname:      h.Uname,
		Gname:      h.Gname,
		Mtime:      h.ModTime,
		Size:       h.Size,
		LinkTarget: h.Linkname,
		Devmajor:   h.Devmajor,
		Devminor:   h.Devminor,
	}
}
