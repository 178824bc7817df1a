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

// Package dedup implements C4 (DedupIndex): the in-memory knowledge a
// Backup writer consults to decide whether a regular file's body is
// already present somewhere in its group.
package dedup

import (
	"github.com/nabbar/vsbackup/internal/fsmeta"
	"github.com/nabbar/vsbackup/internal/hashreader"
	"github.com/nabbar/vsbackup/internal/metalog"
	"github.com/nabbar/vsbackup/internal/vserr"
)

type prevEntry struct {
	hash        string
	fingerprint fsmeta.Fingerprint
}

// Index holds the set of content hashes already written as unique
// anywhere in the current group, plus (when trust_modify_time is enabled)
// the most recent backup's per-path fingerprints.
type Index struct {
	trustModifyTime bool
	knownHashes     map[string]struct{}
	prevByPath      map[string]prevEntry
}

// New builds an empty Index. trustModifyTime gates whether Lookup may
// short-circuit on an unchanged fingerprint without reading any bytes.
func New(trustModifyTime bool) *Index {
	return &Index{
		trustModifyTime: trustModifyTime,
		knownHashes:     make(map[string]struct{}),
		prevByPath:      make(map[string]prevEntry),
	}
}

// LoadKnownHashes folds every unique-status record from a committed
// backup's metadata log into the known-hashes set. Call once per
// committed backup in the group when constructing the Index.
func (ix *Index) LoadKnownHashes(records []metalog.Record) {
	for _, r := range records {
		if r.Status == fsmeta.StatusUnique {
			ix.knownHashes[r.Hash] = struct{}{}
		}
	}
}

// LoadPrevFingerprints populates the per-path fingerprint map from the
// single most recent backup in the group. Only meaningful when
// trustModifyTime is true; the caller should only call this with the
// latest backup's records, per spec.md §4.4.
func (ix *Index) LoadPrevFingerprints(records []metalog.Record) {
	if !ix.trustModifyTime {
		return
	}
	for _, r := range records {
		if r.Status == fsmeta.StatusNone {
			continue
		}
		ix.prevByPath[r.Path] = prevEntry{hash: r.Hash, fingerprint: r.Fingerprint}
	}
}

// KnowsHash reports whether hash has already been recorded as unique
// somewhere in this group.
func (ix *Index) KnowsHash(hash string) bool {
	_, ok := ix.knownHashes[hash]
	return ok
}

// Insert records hash as now known, for the caller to call after writing
// a miss as a new unique entry.
func (ix *Index) Insert(hash string) {
	ix.knownHashes[hash] = struct{}{}
}

// Lookup implements spec.md §4.4's query: returns the hash this body's
// content actually has (computed unless the fingerprint shortcut fires),
// and whether that hash already has a home elsewhere in the group (so the
// caller should emit an extern record rather than a unique one). src must
// be rewound to the start of the body on entry; on anything but the
// fingerprint-shortcut path it is drained fully and reset so the caller
// can then stream the same bytes into the tar writer regardless of the
// hit/miss outcome. declaredSize is the st_size the driver reported; if
// fewer bytes are actually readable, this is TruncatedDuringBackup.
func (ix *Index) Lookup(path string, fp fsmeta.Fingerprint, declaredSize int64, hr *hashreader.HashingReader) (hash string, known bool, verr vserr.Error) {
	if ix.trustModifyTime {
		if prev, ok := ix.prevByPath[path]; ok && prev.fingerprint.Equal(fp) {
			return prev.hash, true, nil
		}
	}

	hash, err := hr.DrainAndDigest()
	if err != nil {
		return "", false, ErrorTruncatedDuringBackup.ErrorParent(err)
	}
	if hr.BytesRead() < declaredSize {
		return "", false, ErrorTruncatedDuringBackup.Errorf(path)
	}
	if err := hr.Reset(); err != nil {
		return "", false, ErrorTruncatedDuringBackup.ErrorParent(err)
	}

	return hash, ix.KnowsHash(hash), nil
}
