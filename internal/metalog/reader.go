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
	"io"
	"os"

	"github.com/nabbar/vsbackup/internal/compressio"
	"github.com/nabbar/vsbackup/internal/vserr"
)

// OpenRead opens path and returns a scanner over its decompressed lines.
// The caller must call the returned close func when done.
func OpenRead(path string, alg compressio.Algorithm) (*bufio.Scanner, func() error, vserr.Error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, ErrorFileOpen.ErrorParent(err)
	}

	cr, err := alg.Reader(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, ErrorCompressOpen.ErrorParent(err)
	}

	closeFn := func() error {
		e1 := cr.Close()
		e2 := f.Close()
		if e1 != nil {
			return e1
		}
		return e2
	}

	return bufio.NewScanner(cr), closeFn, nil
}

// ForEach decompresses and parses every record in path, invoking fn for
// each one in file order. It stops and returns ErrorCorrupt on the first
// line that does not match the 4-field schema (blank lines are skipped).
func ForEach(path string, alg compressio.Algorithm, fn func(Record) error) vserr.Error {
	scanner, closeFn, e := OpenRead(path, alg)
	if e != nil {
		return e
	}
	defer func() { _ = closeFn() }()

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		rec, ok := decodeRecord(line)
		if !ok {
			return ErrorCorrupt.Errorf(line)
		}
		if err := fn(rec); err != nil {
			return ErrorWrite.ErrorParent(err)
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return ErrorFileOpen.ErrorParent(err)
	}
	return nil
}

// LoadAll decompresses and parses every record in path into a slice.
func LoadAll(path string, alg compressio.Algorithm) ([]Record, vserr.Error) {
	var out []Record
	e := ForEach(path, alg, func(r Record) error {
		out = append(out, r)
		return nil
	})
	if e != nil {
		return nil, e
	}
	return out, nil
}
