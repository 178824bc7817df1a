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
	"os"
	"path/filepath"
	"testing"

	"github.com/nabbar/vsbackup/internal/compressio"
	"github.com/nabbar/vsbackup/internal/fsmeta"
)

func TestWriteReadRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		alg  compressio.Algorithm
	}{
		{"none", compressio.None},
		{"bz2", compressio.Bzip2},
		{"gz", compressio.Gzip},
	}

	recs := []Record{
		{Hash: "abc123", Status: fsmeta.StatusUnique, Fingerprint: fsmeta.Fingerprint{Dev: 1, Ino: 2, Mtime: 3}, Path: "etc/hosts"},
		{Hash: "def456", Status: fsmeta.StatusExtern, Fingerprint: fsmeta.Fingerprint{Dev: 4, Ino: 5, Mtime: 6}, Path: "var/log/syslog"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "metadata"+tc.alg.Extension())

			w, err := OpenWrite(path, tc.alg)
			if err != nil {
				t.Fatalf("OpenWrite: %v", err)
			}
			for _, r := range recs {
				if err := w.Append(r); err != nil {
					t.Fatalf("Append: %v", err)
				}
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			got, err := LoadAll(path, tc.alg)
			if err != nil {
				t.Fatalf("LoadAll: %v", err)
			}
			if len(got) != len(recs) {
				t.Fatalf("got %d records, want %d", len(got), len(recs))
			}
			for i, r := range recs {
				if got[i] != r {
					t.Errorf("record %d = %+v, want %+v", i, got[i], r)
				}
			}
		})
	}
}

func TestForEachRejectsCorruptLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata")
	if err := os.WriteFile(path, []byte("onlytwo fields\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	err := ForEach(path, compressio.None, func(Record) error { return nil })
	if err == nil {
		t.Fatal("expected Corrupt error, got nil")
	}
	if !err.IsCode(ErrorCorrupt) {
		t.Errorf("got code %v, want ErrorCorrupt", err.GetCode())
	}
}

func TestForEachSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata")
	content := "abc unique 1:2:3 a/b\n\nabc unique 1:2:3 c/d\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := LoadAll(path, compressio.None)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
}
