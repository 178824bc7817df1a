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

package metalog

import (
	"bufio"
	"os"

	"github.com/nabbar/vsbackup/internal/compressio"
	"github.com/nabbar/vsbackup/internal/vserr"
)

// Writer appends Records to a bz2-framed metadata log. Close must be
// called to flush the compression envelope's trailing block.
type Writer struct {
	f   *os.File
	cw  interface{ Close() error }
	buf *bufio.Writer
}

// OpenWrite creates path (failing if it already exists, mirroring the
// exclusive creation TarStream uses for data.tar) and wraps it in the
// given compression algorithm.
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

	return &Writer{f: f, cw: cw, buf: bufio.NewWriter(cw)}, nil
}

// Append writes one record followed by a newline.
func (w *Writer) Append(r Record) vserr.Error {
	if _, err := w.buf.WriteString(r.encode()); err != nil {
		return ErrorWrite.ErrorParent(err)
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return ErrorWrite.ErrorParent(err)
	}
	return nil
}

// Close flushes the buffered writer, the compression envelope, and the
// underlying file, in that order.
func (w *Writer) Close() vserr.Error {
	if err := w.buf.Flush(); err != nil {
		return ErrorWrite.ErrorParent(err)
	}
	if err := w.cw.Close(); err != nil {
		return ErrorCompressClose.ErrorParent(err)
	}
	if err := w.f.Close(); err != nil {
		return ErrorFileClose.ErrorParent(err)
	}
	return nil
}
