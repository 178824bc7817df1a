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

package tarstream

import (
	"archive/tar"
	"io"
	"os"

	"github.com/nabbar/vsbackup/internal/compressio"
	"github.com/nabbar/vsbackup/internal/fsmeta"
	"github.com/nabbar/vsbackup/internal/vserr"
)

// Writer is an open data.tar[.bz2|.gz] being written for one in-progress
// backup. Entries must be added in the replay order spec.md §3 invariant 2
// requires: parents before children, a hardlink's target before the
// hardlink record itself.
type Writer struct {
	f  *os.File
	cw io.WriteCloser
	tw *tar.Writer
}

// OpenWrite creates path exclusively and wraps it in the given compression
// algorithm, ready for AddEntry calls.
func OpenWrite(path string, alg compressio.Algorithm) (*Writer, vserr.Error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, ErrorFileCreate.ErrorParent(err)
	}

	cw, err := alg.Writer(f)
	if err != nil {
		_ = f.Close()
		return nil, ErrorCompressOpen.ErrorParent(err)
	}

	return &Writer{f: f, cw: cw, tw: tar.NewWriter(cw)}, nil
}

// AddEntry writes one tar record for e. body is consumed in full and
// streamed into the archive when non-nil; it is ignored (and must be nil)
// for directories, symlinks, hardlinks, device nodes and extern regular
// files, which carry no body bytes.
func (w *Writer) AddEntry(e fsmeta.FileEntry, body io.Reader) vserr.Error {
	h, ok := toHeader(e)
	if !ok {
		return ErrorUnsupportedKind.Errorf(e.Kind.String())
	}

	if err := w.tw.WriteHeader(h); err != nil {
		return ErrorTarWriteHeader.ErrorParent(err)
	}

	if body != nil && e.Kind == fsmeta.KindRegular && e.Status != fsmeta.StatusExtern {
		if _, err := io.Copy(w.tw, body); err != nil {
			return ErrorIOCopy.ErrorParent(err)
		}
	}

	return nil
}

// Close finalizes tar padding, flushes the compression envelope and
// closes the underlying file, in that order.
func (w *Writer) Close() vserr.Error {
	if err := w.tw.Close(); err != nil {
		return ErrorIOCopy.ErrorParent(err)
	}
	if err := w.cw.Close(); err != nil {
		return ErrorCompressClose.ErrorParent(err)
	}
	if err := w.f.Close(); err != nil {
		return ErrorFileClose.ErrorParent(err)
	}
	return nil
}
