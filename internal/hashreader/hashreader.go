/*
 * MIT License
 *
 * Copyright (c) 2023 Nicolas JUHEL
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

// Package hashreader implements C3 (HashingReader): a tee between a
// seekable byte source and a rolling cryptographic hash, grounded on the
// encode-while-streaming shape of github.com/nabbar/golib/encoding/sha256
// and the part/object hashers of github.com/nabbar/golib/aws/pusher.
package hashreader

import (
	"crypto/sha1"  //nolint:gosec // SHA-1 is an accepted legacy algorithm, see Algorithm.
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// Algorithm selects the content digest used across one group, per spec.md
// §3 invariant 4: stable within a group, SHA-256 recommended, SHA-1
// accepted for compatibility with legacy on-disk data.
type Algorithm uint8

const (
	SHA256 Algorithm = iota
	SHA1
)

func (a Algorithm) newHash() hash.Hash {
	if a == SHA1 {
		return sha1.New() //nolint:gosec
	}
	return sha256.New()
}

func (a Algorithm) String() string {
	if a == SHA1 {
		return "sha1"
	}
	return "sha256"
}

func ParseAlgorithm(s string) (Algorithm, bool) {
	switch s {
	case "sha256", "":
		return SHA256, true
	case "sha1":
		return SHA1, true
	default:
		return SHA256, false
	}
}

// Source is the narrow capability a deduplicatable regular file's body
// must provide: re-readable from the start. spec.md §4.5 and §9 require
// this be a real file descriptor (seekable), never an arbitrary stream.
type Source interface {
	io.Reader
	io.Seeker
}

// HashingReader tees every byte read from src through a rolling hash. Read
// delegates to src; Digest finalizes as lowercase hex without consuming
// src further; Reset rewinds src to offset 0 and restarts the hash so the
// same body can be hashed once and then re-read for the tar writer.
type HashingReader struct {
	src   Source
	alg   Algorithm
	h     hash.Hash
	nread int64
}

func New(src Source, alg Algorithm) *HashingReader {
	return &HashingReader{src: src, alg: alg, h: alg.newHash()}
}

// BytesRead returns the number of bytes read since the last Reset. Used to
// detect a body that shortened under us mid-backup (spec.md §4.4).
func (r *HashingReader) BytesRead() int64 { return r.nread }

func (r *HashingReader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if n > 0 {
		r.h.Write(p[:n])
		r.nread += int64(n)
	}
	return n, err
}

// Digest returns the lowercase hex digest of everything read since the
// last Reset.
func (r *HashingReader) Digest() string {
	return hex.EncodeToString(r.h.Sum(nil))
}

// Reset seeks src back to 0 and restarts the hash so a fresh pass can be
// made over the same bytes (spec.md §4.5 step 5: hash first, then stream
// the same bytes into the tar writer).
func (r *HashingReader) Reset() error {
	if _, err := r.src.Seek(0, io.SeekStart); err != nil {
		return err
	}
	r.h = r.alg.newHash()
	r.nread = 0
	return nil
}

// EmptyDigest returns the digest of a zero-length body under alg, used by
// the backup writer's empty-file special case (spec.md §4.4: empty files
// are always unique, never deduplicated, but still need a recorded hash).
func EmptyDigest(alg Algorithm) string {
	return hex.EncodeToString(alg.newHash().Sum(nil))
}

// DrainAndDigest fully reads src (via Read, so the hash is updated),
// discarding the bytes, then returns Digest(). Used by DedupIndex.Lookup
// when the fingerprint shortcut does not apply and the body must be
// hashed from scratch.
func (r *HashingReader) DrainAndDigest() (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	return r.Digest(), nil
}
