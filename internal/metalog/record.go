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

// Package metalog implements C2 (MetadataLog): the append-only,
// bz2-framed record of (hash, status, fingerprint, path) tuples
// accompanying every backup's tar stream.
package metalog

import (
	"strings"

	"github.com/nabbar/vsbackup/internal/fsmeta"
)

// Record is one line of a metadata log: "<hash> <status> <fingerprint> <path>".
type Record struct {
	Hash        string
	Status      fsmeta.Status
	Fingerprint fsmeta.Fingerprint
	Path        string
}

func (r Record) encode() string {
	var b strings.Builder
	b.WriteString(r.Hash)
	b.WriteByte(' ')
	b.WriteString(r.Status.String())
	b.WriteByte(' ')
	b.WriteString(r.Fingerprint.String())
	b.WriteByte(' ')
	b.WriteString(r.Path)
	return b.String()
}

// decodeRecord parses one non-blank line into a Record. Paths may
// contain spaces, but they cannot contain '\n'/'\r' (rejected
// at add_file time, see fsmeta.ContainsForbiddenByte), so the fourth field
// safely consumes the remainder of the line including any spaces.
func decodeRecord(line string) (Record, bool) {
	first := strings.IndexByte(line, ' ')
	if first < 0 {
		return Record{}, false
	}
	rest := line[first+1:]
	second := strings.IndexByte(rest, ' ')
	if second < 0 {
		return Record{}, false
	}
	rest2 := rest[second+1:]
	third := strings.IndexByte(rest2, ' ')
	if third < 0 {
		return Record{}, false
	}

	hash := line[:first]
	statusStr := rest[:second]
	fpStr := rest2[:third]
	p := rest2[third+1:]

	if hash == "" || p == "" {
		return Record{}, false
	}

	status, ok := fsmeta.ParseStatus(statusStr)
	if !ok {
		return Record{}, false
	}
	fp, ok := fsmeta.ParseFingerprint(fpStr)
	if !ok {
		return Record{}, false
	}

	return Record{Hash: hash, Status: status, Fingerprint: fp, Path: p}, true
}
