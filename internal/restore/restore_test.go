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

package restore

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nabbar/vsbackup/internal/backup"
	"github.com/nabbar/vsbackup/internal/compressio"
	"github.com/nabbar/vsbackup/internal/fsmeta"
	"github.com/nabbar/vsbackup/internal/groupstore"
	"github.com/nabbar/vsbackup/internal/hashreader"
)

func testOptions() backup.Options {
	return backup.Options{
		MaxBackups:        10,
		MaxBackupGroups:   10,
		TrustModifyTime:   true,
		PreserveHardLinks: true,
		Compression:       compressio.None,
		HashAlgorithm:     hashreader.SHA256,
	}
}

func mustStore(t *testing.T, root string) *groupstore.Store {
	t.Helper()
	s, err := groupstore.New(root, 0, nil)
	if err != nil {
		t.Fatalf("groupstore.New: %v", err)
	}
	return s
}

func TestRestoreRoundTripSingleBackup(t *testing.T) {
	root := t.TempDir()
	store := mustStore(t, root)

	b, err := backup.Open(store, testOptions(), nil)
	if err != nil {
		t.Fatalf("backup.Open: %v", err)
	}

	mtime := time.Unix(5000, 0)
	if _, err := b.AddFile(backup.AddFileInput{
		Entry: fsmeta.FileEntry{Path: "/d", Kind: fsmeta.KindDirectory, Mode: 0o755, Mtime: mtime},
	}); err != nil {
		t.Fatalf("add dir: %v", err)
	}
	body := []byte("hello world")
	if _, err := b.AddFile(backup.AddFileInput{
		Entry: fsmeta.FileEntry{Path: "/d/f.txt", Kind: fsmeta.KindRegular, Mode: 0o644, Mtime: mtime, Size: int64(len(body))},
		Dev:   1, Ino: 100, Nlink: 1, Body: bytes.NewReader(body),
	}); err != nil {
		t.Fatalf("add file: %v", err)
	}
	if _, err := b.AddFile(backup.AddFileInput{
		Entry: fsmeta.FileEntry{Path: "/d/link", Kind: fsmeta.KindSymlink, Mode: 0o777, LinkTarget: "f.txt"},
	}); err != nil {
		t.Fatalf("add symlink: %v", err)
	}
	ok, verr := b.Commit()
	if verr != nil || !ok {
		t.Fatalf("Commit: ok=%v verr=%v", ok, verr)
	}

	backupPath := filepath.Join(root, b.Group(), b.Name())

	r, verr := Open(backupPath, false, nil)
	if verr != nil {
		t.Fatalf("Open: %v", verr)
	}
	defer r.Close()

	if verr := r.Plan(); verr != nil {
		t.Fatalf("Plan: %v", verr)
	}

	dest := t.TempDir()
	res, verr := r.Run(dest, nil)
	if verr != nil {
		t.Fatalf("Run: %v", verr)
	}
	if !res.OK {
		t.Fatalf("restore not OK: %+v", res.Failures)
	}

	got, err := os.ReadFile(filepath.Join(dest, "d", "f.txt"))
	if err != nil {
		t.Fatalf("read restored file: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Errorf("restored body = %q, want %q", got, body)
	}

	target, err := os.Readlink(filepath.Join(dest, "d", "link"))
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if target != "f.txt" {
		t.Errorf("symlink target = %q, want f.txt", target)
	}
}

func TestRestoreCrossBackupExternResolution(t *testing.T) {
	root := t.TempDir()
	store := mustStore(t, root)
	opts := testOptions()

	mtime := time.Unix(6000, 0)
	body := []byte("shared content")

	b1, err := backup.Open(store, opts, nil)
	if err != nil {
		t.Fatalf("Open 1: %v", err)
	}
	if _, err := b1.AddFile(backup.AddFileInput{
		Entry: fsmeta.FileEntry{Path: "/x", Kind: fsmeta.KindRegular, Mode: 0o600, Mtime: mtime, Size: int64(len(body))},
		Dev:   9, Ino: 90, Nlink: 1, Body: bytes.NewReader(body),
	}); err != nil {
		t.Fatalf("add x in b1: %v", err)
	}
	if _, verr := b1.Commit(); verr != nil {
		t.Fatalf("Commit 1: %v", verr)
	}

	b2, err := backup.Open(store, opts, nil)
	if err != nil {
		t.Fatalf("Open 2: %v", err)
	}
	if _, err := b2.AddFile(backup.AddFileInput{
		Entry: fsmeta.FileEntry{Path: "/x", Kind: fsmeta.KindRegular, Mode: 0o600, Mtime: mtime, Size: int64(len(body))},
		Dev:   9, Ino: 90, Nlink: 1, Body: bytes.NewReader(body),
	}); err != nil {
		t.Fatalf("add x in b2: %v", err)
	}
	if _, verr := b2.Commit(); verr != nil {
		t.Fatalf("Commit 2: %v", verr)
	}

	backupPath := filepath.Join(root, b2.Group(), b2.Name())
	r, verr := Open(backupPath, false, nil)
	if verr != nil {
		t.Fatalf("Open restore: %v", verr)
	}
	defer r.Close()

	if verr := r.Plan(); verr != nil {
		t.Fatalf("Plan: %v", verr)
	}
	if len(r.externSource) != 1 {
		t.Fatalf("expected exactly one resolved extern source, got %d", len(r.externSource))
	}

	dest := t.TempDir()
	res, verr := r.Run(dest, nil)
	if verr != nil {
		t.Fatalf("Run: %v", verr)
	}
	if !res.OK {
		t.Fatalf("restore not OK: %+v", res.Failures)
	}

	got, err := os.ReadFile(filepath.Join(dest, "x"))
	if err != nil {
		t.Fatalf("read restored extern file: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Errorf("restored extern body = %q, want %q", got, body)
	}
}

func TestRestoreMissingExternSourceRecordedAsFailure(t *testing.T) {
	root := t.TempDir()
	store := mustStore(t, root)
	opts := testOptions()

	mtime := time.Unix(7000, 0)
	body := []byte("will vanish")

	b1, err := backup.Open(store, opts, nil)
	if err != nil {
		t.Fatalf("Open 1: %v", err)
	}
	if _, err := b1.AddFile(backup.AddFileInput{
		Entry: fsmeta.FileEntry{Path: "/y", Kind: fsmeta.KindRegular, Mode: 0o600, Mtime: mtime, Size: int64(len(body))},
		Dev:   7, Ino: 70, Nlink: 1, Body: bytes.NewReader(body),
	}); err != nil {
		t.Fatalf("add y in b1: %v", err)
	}
	if _, verr := b1.Commit(); verr != nil {
		t.Fatalf("Commit 1: %v", verr)
	}

	b2, err := backup.Open(store, opts, nil)
	if err != nil {
		t.Fatalf("Open 2: %v", err)
	}
	if _, err := b2.AddFile(backup.AddFileInput{
		Entry: fsmeta.FileEntry{Path: "/y", Kind: fsmeta.KindRegular, Mode: 0o600, Mtime: mtime, Size: int64(len(body))},
		Dev:   7, Ino: 70, Nlink: 1, Body: bytes.NewReader(body),
	}); err != nil {
		t.Fatalf("add y in b2: %v", err)
	}
	if _, verr := b2.Commit(); verr != nil {
		t.Fatalf("Commit 2: %v", verr)
	}

	// Simulate the sole source backup being pruned out from under the extern
	// record it supplied.
	if err := os.RemoveAll(filepath.Join(root, b1.Group(), b1.Name())); err != nil {
		t.Fatalf("remove b1: %v", err)
	}

	backupPath := filepath.Join(root, b2.Group(), b2.Name())
	r, verr := Open(backupPath, false, nil)
	if verr != nil {
		t.Fatalf("Open restore: %v", verr)
	}
	defer r.Close()

	if verr := r.Plan(); verr != nil {
		t.Fatalf("Plan: %v", verr)
	}

	dest := t.TempDir()
	res, verr := r.Run(dest, nil)
	if verr != nil {
		t.Fatalf("Run: %v", verr)
	}
	if res.OK || len(res.Failures) != 1 {
		t.Fatalf("expected exactly one recorded failure, got %+v", res)
	}
}

func TestRestoreHardLinkRecreated(t *testing.T) {
	root := t.TempDir()
	store := mustStore(t, root)

	b, err := backup.Open(store, testOptions(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	body := []byte("linked")
	if _, err := b.AddFile(backup.AddFileInput{
		Entry: fsmeta.FileEntry{Path: "/h1", Kind: fsmeta.KindRegular, Mode: 0o600, Size: int64(len(body))},
		Dev:   3, Ino: 33, Nlink: 2, Body: bytes.NewReader(body),
	}); err != nil {
		t.Fatalf("add h1: %v", err)
	}
	if _, err := b.AddFile(backup.AddFileInput{
		Entry: fsmeta.FileEntry{Path: "/h2", Kind: fsmeta.KindRegular, Mode: 0o600, Size: int64(len(body))},
		Dev:   3, Ino: 33, Nlink: 2, Body: bytes.NewReader(body),
	}); err != nil {
		t.Fatalf("add h2: %v", err)
	}
	if _, verr := b.Commit(); verr != nil {
		t.Fatalf("Commit: %v", verr)
	}

	backupPath := filepath.Join(root, b.Group(), b.Name())
	r, verr := Open(backupPath, false, nil)
	if verr != nil {
		t.Fatalf("Open restore: %v", verr)
	}
	defer r.Close()
	if verr := r.Plan(); verr != nil {
		t.Fatalf("Plan: %v", verr)
	}

	dest := t.TempDir()
	res, verr := r.Run(dest, nil)
	if verr != nil {
		t.Fatalf("Run: %v", verr)
	}
	if !res.OK {
		t.Fatalf("restore not OK: %+v", res.Failures)
	}

	info1, err := os.Stat(filepath.Join(dest, "h1"))
	if err != nil {
		t.Fatalf("stat h1: %v", err)
	}
	info2, err := os.Stat(filepath.Join(dest, "h2"))
	if err != nil {
		t.Fatalf("stat h2: %v", err)
	}
	if !os.SameFile(info1, info2) {
		t.Error("h1 and h2 should be the same inode after restore")
	}
}

func TestOpenRejectsInvalidBackupPath(t *testing.T) {
	root := t.TempDir()
	bad := filepath.Join(root, "2026.07.30", "not-a-valid-name")
	if err := os.MkdirAll(bad, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, verr := Open(bad, false, nil); verr == nil || !verr.IsCode(ErrorInvalidBackupPath) {
		t.Fatalf("expected ErrorInvalidBackupPath, got %v", verr)
	}
}

func TestRestoreWithPathPrefixFilter(t *testing.T) {
	root := t.TempDir()
	store := mustStore(t, root)

	b, err := backup.Open(store, testOptions(), nil)
	if err != nil {
		t.Fatalf("backup.Open: %v", err)
	}
	mtime := time.Unix(8000, 0)
	if _, err := b.AddFile(backup.AddFileInput{
		Entry: fsmeta.FileEntry{Path: "/keep", Kind: fsmeta.KindDirectory, Mode: 0o755, Mtime: mtime},
	}); err != nil {
		t.Fatalf("add /keep: %v", err)
	}
	body := []byte("wanted")
	if _, err := b.AddFile(backup.AddFileInput{
		Entry: fsmeta.FileEntry{Path: "/keep/f.txt", Kind: fsmeta.KindRegular, Mode: 0o644, Mtime: mtime, Size: int64(len(body))},
		Dev:   1, Ino: 1, Nlink: 1, Body: bytes.NewReader(body),
	}); err != nil {
		t.Fatalf("add /keep/f.txt: %v", err)
	}
	if _, err := b.AddFile(backup.AddFileInput{
		Entry: fsmeta.FileEntry{Path: "/skip", Kind: fsmeta.KindDirectory, Mode: 0o755, Mtime: mtime},
	}); err != nil {
		t.Fatalf("add /skip: %v", err)
	}
	if _, err := b.AddFile(backup.AddFileInput{
		Entry: fsmeta.FileEntry{Path: "/skip/g.txt", Kind: fsmeta.KindRegular, Mode: 0o644, Mtime: mtime, Size: 5},
		Dev:   2, Ino: 2, Nlink: 1, Body: bytes.NewReader([]byte("nope!")),
	}); err != nil {
		t.Fatalf("add /skip/g.txt: %v", err)
	}
	if _, verr := b.Commit(); verr != nil {
		t.Fatalf("Commit: %v", verr)
	}

	backupPath := filepath.Join(root, b.Group(), b.Name())
	r, verr := Open(backupPath, false, nil)
	if verr != nil {
		t.Fatalf("Open: %v", verr)
	}
	defer r.Close()
	if verr := r.Plan(); verr != nil {
		t.Fatalf("Plan: %v", verr)
	}

	dest := t.TempDir()
	res, verr := r.Run(dest, []string{"keep"})
	if verr != nil {
		t.Fatalf("Run: %v", verr)
	}
	if !res.OK {
		t.Fatalf("restore not OK: %+v", res.Failures)
	}

	if _, err := os.Stat(filepath.Join(dest, "keep", "f.txt")); err != nil {
		t.Errorf("expected keep/f.txt to be restored: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "skip")); !os.IsNotExist(err) {
		t.Errorf("expected skip/ to be excluded by the prefix filter, got err=%v", err)
	}
}
