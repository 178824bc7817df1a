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

package backup

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/nabbar/vsbackup/internal/compressio"
	"github.com/nabbar/vsbackup/internal/fsmeta"
	"github.com/nabbar/vsbackup/internal/groupstore"
	"github.com/nabbar/vsbackup/internal/hashreader"
	"github.com/nabbar/vsbackup/internal/metalog"
)

func testOptions() Options {
	return Options{
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

func TestAddFileDedupWithinOneBackup(t *testing.T) {
	store := mustStore(t, t.TempDir())
	b, err := Open(store, testOptions(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	mtime := time.Unix(1000, 0)
	body := []byte("1234")

	oc, err := b.AddFile(AddFileInput{
		Entry: fsmeta.FileEntry{Path: "/d/a", Kind: fsmeta.KindRegular, Mode: 0o600, Mtime: mtime, Size: int64(len(body))},
		Dev:   1, Ino: 10, Nlink: 1, Body: bytes.NewReader(body),
	})
	if err != nil || oc != OutcomeOK {
		t.Fatalf("add a: oc=%v err=%v", oc, err)
	}

	oc, err = b.AddFile(AddFileInput{
		Entry: fsmeta.FileEntry{Path: "/d/b", Kind: fsmeta.KindRegular, Mode: 0o600, Mtime: mtime, Size: int64(len(body))},
		Dev:   1, Ino: 11, Nlink: 1, Body: bytes.NewReader(body),
	})
	if err != nil || oc != OutcomeOK {
		t.Fatalf("add b: oc=%v err=%v", oc, err)
	}

	ok, verr := b.Commit()
	if verr != nil {
		t.Fatalf("Commit: %v", verr)
	}
	if !ok {
		t.Fatal("expected successful commit")
	}

	metaPath := filepath.Join(store.Root, b.Group(), b.Name(), metadataFileName)
	recs, verr := metalog.LoadAll(metaPath, compressio.Bzip2)
	if verr != nil {
		t.Fatalf("LoadAll: %v", verr)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	statuses := map[fsmeta.Status]int{}
	for _, r := range recs {
		statuses[r.Status]++
	}
	if statuses[fsmeta.StatusUnique] != 1 || statuses[fsmeta.StatusExtern] != 1 {
		t.Fatalf("statuses = %+v, want one unique and one extern", statuses)
	}
	if recs[0].Hash != recs[1].Hash {
		t.Errorf("hashes should match for identical content: %q vs %q", recs[0].Hash, recs[1].Hash)
	}
}

func TestAddFileEmptyFileAlwaysUnique(t *testing.T) {
	store := mustStore(t, t.TempDir())
	b, err := Open(store, testOptions(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	oc, err := b.AddFile(AddFileInput{
		Entry: fsmeta.FileEntry{Path: "/d/empty", Kind: fsmeta.KindRegular, Mode: 0o600, Size: 0},
		Dev:   1, Ino: 20, Nlink: 1,
	})
	if err != nil || oc != OutcomeOK {
		t.Fatalf("add empty: oc=%v err=%v", oc, err)
	}

	if _, verr := b.Commit(); verr != nil {
		t.Fatalf("Commit: %v", verr)
	}

	metaPath := filepath.Join(store.Root, b.Group(), b.Name(), metadataFileName)
	recs, verr := metalog.LoadAll(metaPath, compressio.Bzip2)
	if verr != nil {
		t.Fatalf("LoadAll: %v", verr)
	}
	if len(recs) != 1 || recs[0].Status != fsmeta.StatusUnique {
		t.Fatalf("got %+v, want one unique record", recs)
	}
	if recs[0].Hash != hashreader.EmptyDigest(hashreader.SHA256) {
		t.Errorf("empty file hash = %q, want digest of empty body", recs[0].Hash)
	}
}

func TestAddFileHardLinkSecondSighting(t *testing.T) {
	store := mustStore(t, t.TempDir())
	b, err := Open(store, testOptions(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	body := []byte("aa")
	_, err = b.AddFile(AddFileInput{
		Entry: fsmeta.FileEntry{Path: "/d/h1", Kind: fsmeta.KindRegular, Mode: 0o600, Size: int64(len(body))},
		Dev:   1, Ino: 30, Nlink: 2, Body: bytes.NewReader(body),
	})
	if err != nil {
		t.Fatalf("add h1: %v", err)
	}

	oc, err := b.AddFile(AddFileInput{
		Entry: fsmeta.FileEntry{Path: "/d/h2", Kind: fsmeta.KindRegular, Mode: 0o600, Size: int64(len(body))},
		Dev:   1, Ino: 30, Nlink: 2, Body: bytes.NewReader(body),
	})
	if err != nil || oc != OutcomeOK {
		t.Fatalf("add h2: oc=%v err=%v", oc, err)
	}

	if _, verr := b.Commit(); verr != nil {
		t.Fatalf("Commit: %v", verr)
	}

	metaPath := filepath.Join(store.Root, b.Group(), b.Name(), metadataFileName)
	recs, verr := metalog.LoadAll(metaPath, compressio.Bzip2)
	if verr != nil {
		t.Fatalf("LoadAll: %v", verr)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d metadata records, want 1 (hardlink sighting carries none)", len(recs))
	}
}

func TestAddFileDuplicatePathRejected(t *testing.T) {
	store := mustStore(t, t.TempDir())
	b, err := Open(store, testOptions(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()

	entry := fsmeta.FileEntry{Path: "/d/dir", Kind: fsmeta.KindDirectory, Mode: 0o700}
	if _, err := b.AddFile(AddFileInput{Entry: entry}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := b.AddFile(AddFileInput{Entry: entry}); err == nil || !err.IsCode(ErrorDuplicatePath) {
		t.Fatalf("expected ErrorDuplicatePath, got %v", err)
	}
}

func TestAddFileForbiddenPathRejected(t *testing.T) {
	store := mustStore(t, t.TempDir())
	b, err := Open(store, testOptions(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()

	entry := fsmeta.FileEntry{Path: "/d/bad\nname", Kind: fsmeta.KindDirectory, Mode: 0o700}
	if _, err := b.AddFile(AddFileInput{Entry: entry}); err == nil || !err.IsCode(ErrorForbiddenPath) {
		t.Fatalf("expected ErrorForbiddenPath, got %v", err)
	}
}

func TestCrossBackupDedupSecondBackupExtern(t *testing.T) {
	root := t.TempDir()
	store := mustStore(t, root)
	opts := testOptions()

	mtime := time.Unix(2000, 0)
	body := []byte("unchanged")

	b1, err := Open(store, opts, nil)
	if err != nil {
		t.Fatalf("Open 1: %v", err)
	}
	if _, err := b1.AddFile(AddFileInput{
		Entry: fsmeta.FileEntry{Path: "/d/x", Kind: fsmeta.KindRegular, Mode: 0o600, Mtime: mtime, Size: int64(len(body))},
		Dev:   5, Ino: 50, Nlink: 1, Body: bytes.NewReader(body),
	}); err != nil {
		t.Fatalf("add x in b1: %v", err)
	}
	if _, verr := b1.Commit(); verr != nil {
		t.Fatalf("Commit 1: %v", verr)
	}

	b2, err := Open(store, opts, nil)
	if err != nil {
		t.Fatalf("Open 2: %v", err)
	}
	oc, err := b2.AddFile(AddFileInput{
		Entry: fsmeta.FileEntry{Path: "/d/x", Kind: fsmeta.KindRegular, Mode: 0o600, Mtime: mtime, Size: int64(len(body))},
		Dev:   5, Ino: 50, Nlink: 1, Body: bytes.NewReader(body),
	})
	if err != nil || oc != OutcomeOK {
		t.Fatalf("add x in b2: oc=%v err=%v", oc, err)
	}
	if _, verr := b2.Commit(); verr != nil {
		t.Fatalf("Commit 2: %v", verr)
	}

	metaPath := filepath.Join(store.Root, b2.Group(), b2.Name(), metadataFileName)
	recs, verr := metalog.LoadAll(metaPath, compressio.Bzip2)
	if verr != nil {
		t.Fatalf("LoadAll: %v", verr)
	}
	if len(recs) != 1 || recs[0].Status != fsmeta.StatusExtern {
		t.Fatalf("second backup's /d/x should be extern via the fingerprint shortcut, got %+v", recs)
	}
}

func TestAddFileSocketSkipped(t *testing.T) {
	store := mustStore(t, t.TempDir())
	b, err := Open(store, testOptions(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()

	oc, err := b.AddFile(AddFileInput{Entry: fsmeta.FileEntry{Path: "/d/sock", Kind: fsmeta.KindSocket}})
	if err != nil {
		t.Fatalf("AddFile socket: %v", err)
	}
	if oc != OutcomeSkipped {
		t.Fatalf("got %v, want OutcomeSkipped", oc)
	}
}
