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

// Package compressio is the pluggable compression envelope shared by
// TarStream (C1) and MetadataLog (C2), grounded on the Algorithm.Reader /
// Algorithm.Writer wrapper of github.com/nabbar/golib/archive/compress.
// Bzip2 write uses github.com/dsnet/compress/bzip2 since the standard
// library's compress/bzip2 is read-only.
package compressio

import (
	"compress/bzip2"
	"compress/gzip"
	"io"

	dsnetbz2 "github.com/dsnet/compress/bzip2"
)

// Algorithm is the compression envelope wrapping a backup's data.tar or
// metadata.bz2 stream, per spec.md §3 Backup on-disk layout.
type Algorithm uint8

const (
	None Algorithm = iota
	Bzip2
	Gzip
)

func (a Algorithm) String() string {
	switch a {
	case Bzip2:
		return "bz2"
	case Gzip:
		return "gz"
	default:
		return "none"
	}
}

func (a Algorithm) Extension() string {
	switch a {
	case Bzip2:
		return ".bz2"
	case Gzip:
		return ".gz"
	default:
		return ""
	}
}

func ParseAlgorithm(s string) (Algorithm, bool) {
	switch s {
	case "bz2", "bzip2":
		return Bzip2, true
	case "gz", "gzip":
		return Gzip, true
	case "none", "":
		return None, true
	default:
		return None, false
	}
}

// Reader wraps r in a decompressing reader for the given algorithm. The
// standard library's bzip2 reader has no Close, so it is always returned
// already wrapped as a no-op closer.
func (a Algorithm) Reader(r io.Reader) (io.ReadCloser, error) {
	switch a {
	case Bzip2:
		return io.NopCloser(bzip2.NewReader(r)), nil
	case Gzip:
		return gzip.NewReader(r)
	default:
		return io.NopCloser(r), nil
	}
}

// Writer wraps w in a compressing writer for the given algorithm. Callers
// must Close the returned writer to flush trailing compressed blocks
// before closing w itself.
func (a Algorithm) Writer(w io.Writer) (io.WriteCloser, error) {
	switch a {
	case Bzip2:
		return dsnetbz2.NewWriter(w, nil)
	case Gzip:
		return gzip.NewWriter(w), nil
	default:
		return nopWriteCloser{w}, nil
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
