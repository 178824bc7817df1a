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

// Reader is an open data.tar for a committed backup, positioned for
// either a single forward pass (Next) or repeated random access
// (ExtractByName), depending on how it was opened.
type Reader struct {
	f       *os.File
	seekerf func() (*os.File, vserr.Error) // reopens/rewinds the underlying uncompressed file
	tr      *tar.Reader
	tmpPath string // non-empty if f is a decompressed temp file to remove on Close
}

// OpenRead probes basePath, basePath+".bz2" and basePath+".gz" in that
// order and opens whichever exists. If the match is compressed and
// allowDecompress is true, the whole archive is first decompressed into a
// temporary file so ExtractByName can seek freely; otherwise a compressed
// archive can only be consumed via a single pass of Next calls.
func OpenRead(basePath string, allowDecompress bool) (*Reader, vserr.Error) {
	variants := []struct {
		alg compressio.Algorithm
		ext string
	}{
		{compressio.None, ""},
		{compressio.Bzip2, ".bz2"},
		{compressio.Gzip, ".gz"},
	}

	var (
		path string
		alg  compressio.Algorithm
		found bool
	)
	for _, v := range variants {
		p := basePath + v.ext
		if _, err := os.Stat(p); err == nil {
			path, alg, found = p, v.alg, true
			break
		}
	}
	if !found {
		return nil, ErrorNoVariant.Errorf(basePath)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, ErrorFileOpen.ErrorParent(err)
	}

	if alg == compressio.None {
		r := &Reader{f: f}
		r.tr = tar.NewReader(f)
		return r, nil
	}

	if !allowDecompress {
		cr, err := alg.Reader(f)
		if err != nil {
			_ = f.Close()
			return nil, ErrorCompressOpen.ErrorParent(err)
		}
		r := &Reader{f: f}
		r.tr = tar.NewReader(cr)
		return r, nil
	}

	tmp, verr := decompressToTemp(f, alg)
	_ = f.Close()
	if verr != nil {
		return nil, verr
	}

	r := &Reader{f: tmp, tmpPath: tmp.Name()}
	r.tr = tar.NewReader(tmp)
	return r, nil
}

func decompressToTemp(src *os.File, alg compressio.Algorithm) (*os.File, vserr.Error) {
	cr, err := alg.Reader(src)
	if err != nil {
		return nil, ErrorCompressOpen.ErrorParent(err)
	}
	defer func() { _ = cr.Close() }()

	tmp, err := os.CreateTemp("", "vsbackup-data-*.tar")
	if err != nil {
		return nil, ErrorFileCreate.ErrorParent(err)
	}

	if _, err := io.Copy(tmp, cr); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, ErrorIOCopy.ErrorParent(err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, ErrorFileOpen.ErrorParent(err)
	}

	return tmp, nil
}

// Next returns the next FileEntry and its body stream (nil for non-regular
// entries and for extern/size-0 regular entries), or io.EOF when exhausted.
// Single-pass: not restartable. Callers needing random access must use
// ExtractByName instead.
func (r *Reader) Next() (fsmeta.FileEntry, io.Reader, error) {
	h, err := r.tr.Next()
	if err == io.EOF {
		return fsmeta.FileEntry{}, nil, io.EOF
	}
	if err != nil {
		return fsmeta.FileEntry{}, nil, ErrorTarNext.ErrorParent(err)
	}

	e := fromHeader(h)
	if e.Kind == fsmeta.KindRegular && e.Size > 0 {
		return e, r.tr, nil
	}
	return e, nil, nil
}

// ExtractByName rewinds the underlying stream and scans from the start for
// an entry whose normalized path equals name, per spec.md §4.6's
// sibling-backup body resolution. Requires the Reader to have been opened
// over a seekable (uncompressed or decompressed-to-temp) stream.
func (r *Reader) ExtractByName(name string) (fsmeta.FileEntry, []byte, vserr.Error) {
	if _, err := r.f.Seek(0, io.SeekStart); err != nil {
		return fsmeta.FileEntry{}, nil, ErrorFileOpen.ErrorParent(err)
	}
	tr := tar.NewReader(r.f)

	for {
		h, err := tr.Next()
		if err == io.EOF {
			return fsmeta.FileEntry{}, nil, ErrorNotFound.Errorf(name)
		}
		if err != nil {
			return fsmeta.FileEntry{}, nil, ErrorTarNext.ErrorParent(err)
		}

		e := fromHeader(h)
		if e.Path != fsmeta.NormalizePath(name) {
			continue
		}

		body, err := io.ReadAll(tr)
		if err != nil {
			return fsmeta.FileEntry{}, nil, ErrorIOCopy.ErrorParent(err)
		}
		return e, body, nil
	}
}

// Close releases the underlying file, removing it first if it was a
// decompressed temporary copy.
func (r *Reader) Close() vserr.Error {
	err := r.f.Close()
	if r.tmpPath != "" {
		_ = os.Remove(r.tmpPath)
	}
	if err != nil {
		return ErrorFileClose.ErrorParent(err)
	}
	return nil
}
