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

// Package backup implements C5 (Backup writer): the per-run object that
// turns a stream of driver-supplied filesystem entries into one committed
// backup, consulting DedupIndex for each regular file and delegating
// layout concerns to GroupStore.
package backup

import (
	"io"
	"path/filepath"

	"github.com/nabbar/vsbackup/internal/compressio"
	"github.com/nabbar/vsbackup/internal/dedup"
	"github.com/nabbar/vsbackup/internal/fsmeta"
	"github.com/nabbar/vsbackup/internal/groupstore"
	"github.com/nabbar/vsbackup/internal/hashreader"
	"github.com/nabbar/vsbackup/internal/metalog"
	"github.com/nabbar/vsbackup/internal/tarstream"
	"github.com/nabbar/vsbackup/internal/vserr"
	"github.com/nabbar/vsbackup/internal/vslog"
)

const (
	dataFileName     = "data.tar"
	metadataFileName = "metadata.bz2"
)

// Options are the subset of the backup_items-adjacent configuration that
// governs this writer's behavior, independent of how the caller sourced
// them (file, env, flags).
type Options struct {
	MaxBackups        int
	MaxBackupGroups   int
	TrustModifyTime   bool
	PreserveHardLinks bool
	Compression       compressio.Algorithm
	HashAlgorithm     hashreader.Algorithm
}

type devIno struct {
	Dev uint64
	Ino uint64
}

// Outcome classifies what happened to one add_file call, replacing the
// exception-driven control flow of the original implementation with the
// explicit {Ok, Skipped, Failed} sum type of SPEC_FULL.md's re-architecture
// notes.
type Outcome uint8

const (
	OutcomeOK Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

// AddFileInput is one already-resolved filesystem entry as the driver
// hands it to the writer: stat has been taken, a link target or readable
// body has been resolved if applicable.
type AddFileInput struct {
	Entry fsmeta.FileEntry
	Dev   uint64
	Ino   uint64
	Nlink uint64
	Body  hashreader.Source
}

// Backup is one in-progress backup: owns the TarStream writer, the
// MetadataLog writer, and the DedupIndex seeded from every committed
// backup already in the group.
type Backup struct {
	store *groupstore.Store
	opts  Options
	log   vslog.Logger

	group          string
	name           string
	workSuffix     string
	inProgressPath string

	tar   *tarstream.Writer
	meta  *metalog.Writer
	index *dedup.Index

	seenPaths map[string]struct{}
	hardlinks map[devIno]string

	success bool
}

// Open asks store for a fresh in-progress backup directory, seeds a
// DedupIndex from every committed backup already in the chosen group, and
// opens the TarStream and MetadataLog writers inside it.
func Open(store *groupstore.Store, opts Options, log vslog.Logger) (*Backup, vserr.Error) {
	group, name, workSuffix, inProgressPath, obsErr, verr := store.CreateBackup(opts.MaxBackups)
	if verr != nil {
		return nil, verr
	}
	if obsErr != nil {
		vslog.Warn(log, "on_group_created observer failed", vslog.Fields{"group": group, "error": obsErr.Error()})
	}

	b := &Backup{
		store:          store,
		opts:           opts,
		log:            log,
		group:          group,
		name:           name,
		workSuffix:     workSuffix,
		inProgressPath: inProgressPath,
		index:          dedup.New(opts.TrustModifyTime),
		seenPaths:      make(map[string]struct{}),
		hardlinks:      make(map[devIno]string),
		success:        true,
	}

	if verr := b.seedDedupIndex(); verr != nil {
		store.CancelBackup(group, name, workSuffix)
		return nil, verr
	}

	tarPath := filepath.Join(inProgressPath, dataFileName+opts.Compression.Extension())
	tw, verr := tarstream.OpenWrite(tarPath, opts.Compression)
	if verr != nil {
		store.CancelBackup(group, name, workSuffix)
		return nil, verr
	}
	b.tar = tw

	metaPath := filepath.Join(inProgressPath, metadataFileName)
	mw, verr := metalog.OpenWrite(metaPath, compressio.Bzip2)
	if verr != nil {
		_ = tw.Close()
		store.CancelBackup(group, name, workSuffix)
		return nil, verr
	}
	b.meta = mw

	return b, nil
}

// seedDedupIndex loads known_hashes from every committed backup in the
// group and, when trust_modify_time is set, prev_fingerprints from the
// single most recent one, per spec.md §4.4/§4.5.
func (b *Backup) seedDedupIndex() vserr.Error {
	committed, verr := b.store.Backups(b.group, true)
	if verr != nil {
		return verr
	}

	var lastRecords []metalog.Record
	for _, name := range committed {
		metaPath := filepath.Join(b.store.Root, b.group, name, metadataFileName)
		recs, verr := metalog.LoadAll(metaPath, compressio.Bzip2)
		if verr != nil {
			vslog.Warn(b.log, "cannot load sibling backup metadata for dedup index", vslog.Fields{
				"backup": name, "error": verr.Error(),
			})
			continue
		}
		b.index.LoadKnownHashes(recs)
		lastRecords = recs
	}

	if b.opts.TrustModifyTime && lastRecords != nil {
		b.index.LoadPrevFingerprints(lastRecords)
	}
	return nil
}

// AddFile implements spec.md §4.5's add_file algorithm for one entry.
func (b *Backup) AddFile(in AddFileInput) (Outcome, vserr.Error) {
	path := fsmeta.NormalizePath(in.Entry.Path)
	if fsmeta.ContainsForbiddenByte(path) {
		return OutcomeFailed, ErrorForbiddenPath.Errorf(path)
	}
	if _, dup := b.seenPaths[path]; dup {
		return OutcomeFailed, ErrorDuplicatePath.Errorf(path)
	}
	b.seenPaths[path] = struct{}{}

	entry := in.Entry
	entry.Path = path

	if entry.Kind == fsmeta.KindSocket {
		vslog.Warn(b.log, "socket entry is not representable in a tar stream, skipping", vslog.Fields{"path": path})
		return OutcomeSkipped, nil
	}

	isHardLink := false
	if b.opts.PreserveHardLinks && entry.Kind == fsmeta.KindRegular && in.Nlink > 1 {
		key := devIno{Dev: in.Dev, Ino: in.Ino}
		if prior, ok := b.hardlinks[key]; ok {
			entry.Kind = fsmeta.KindHardlink
			entry.LinkTarget = prior
			entry.Size = 0
			isHardLink = true
		} else {
			b.hardlinks[key] = path
		}
	}

	var bodyToWrite io.Reader

	if entry.Kind == fsmeta.KindRegular && !isHardLink {
		switch {
		case entry.Size == 0:
			entry.Status = fsmeta.StatusUnique
			entry.Hash = hashreader.EmptyDigest(b.opts.HashAlgorithm)
		case in.Body != nil:
			hr := hashreader.New(in.Body, b.opts.HashAlgorithm)
			fp := fsmeta.Fingerprint{Dev: in.Dev, Ino: in.Ino, Mtime: entry.Mtime.Unix()}

			hash, known, verr := b.index.Lookup(path, fp, entry.Size, hr)
			if verr != nil {
				return OutcomeFailed, verr
			}
			entry.Hash = hash
			if known {
				entry.Status = fsmeta.StatusExtern
			} else {
				entry.Status = fsmeta.StatusUnique
				bodyToWrite = in.Body
			}
		default:
			vslog.Warn(b.log, "regular file has no readable body, skipping", vslog.Fields{"path": path})
			return OutcomeSkipped, ErrorNoBody.Errorf(path)
		}
	}

	if err := b.tar.AddEntry(entry, bodyToWrite); err != nil {
		return OutcomeFailed, ErrorTarWrite.ErrorParent(err)
	}

	if entry.Kind == fsmeta.KindRegular && entry.Status != fsmeta.StatusNone {
		rec := metalog.Record{
			Hash:        entry.Hash,
			Status:      entry.Status,
			Fingerprint: fsmeta.Fingerprint{Dev: in.Dev, Ino: in.Ino, Mtime: entry.Mtime.Unix()},
			Path:        path,
		}
		if err := b.meta.Append(rec); err != nil {
			return OutcomeFailed, ErrorMetaWrite.ErrorParent(err)
		}
		if entry.Status == fsmeta.StatusUnique {
			b.index.Insert(entry.Hash)
		}
	}

	return OutcomeOK, nil
}

// Commit closes the tar and metadata streams, asks the store to rename
// the in-progress directory into place and rotate groups, and folds
// observer-hook failures into the returned success flag rather than
// undoing already-committed state (spec.md §7, ObserverHookFailed).
//
// A non-nil vserr.Error means the backup itself could not be committed
// (TarWriteError/MetadataWriteError close-time failure cancels the
// in-progress directory; CommitRenameFailed leaves it in place for manual
// inspection, per spec.md §7).
func (b *Backup) Commit() (bool, vserr.Error) {
	tarErr := b.tar.Close()
	metaErr := b.meta.Close()
	if tarErr != nil || metaErr != nil {
		b.store.CancelBackup(b.group, b.name, b.workSuffix)
		if tarErr != nil {
			return false, ErrorTarWrite.ErrorParent(tarErr)
		}
		return false, ErrorMetaWrite.ErrorParent(metaErr)
	}

	obsErr, verr := b.store.CommitBackup(b.group, b.name, b.workSuffix)
	if verr != nil {
		return false, verr
	}
	if obsErr != nil {
		vslog.Warn(b.log, "on_backup_created observer failed", vslog.Fields{
			"group": b.group, "name": b.name, "error": obsErr.Error(),
		})
		b.success = false
	}

	rotObsErr, verr := b.store.RotateGroups(b.opts.MaxBackupGroups)
	if verr != nil {
		vslog.Warn(b.log, "group rotation failed", vslog.Fields{"error": verr.Error()})
		b.success = false
	}
	if rotObsErr != nil {
		vslog.Warn(b.log, "on_group_deleted observer failed", vslog.Fields{"error": rotObsErr.Error()})
		b.success = false
	}

	return b.success, nil
}

// Close abandons the backup: streams are closed best-effort and the
// in-progress directory is recursively removed. Safe to call after a
// partial Commit failure or a fatal AddFile error.
func (b *Backup) Close() {
	if b.tar != nil {
		_ = b.tar.Close()
	}
	if b.meta != nil {
		_ = b.meta.Close()
	}
	b.store.CancelBackup(b.group, b.name, b.workSuffix)
}

// Group and Name expose the identifiers this writer was allocated, mainly
// for logging at the call site.
func (b *Backup) Group() string { return b.group }
func (b *Backup) Name() string  { return b.name }

// Size reports the on-disk footprint of this backup once committed, for
// the CLI's post-commit backup summary (pyvsb's own du-style accounting).
func (b *Backup) Size() (int64, vserr.Error) {
	return b.store.Size(b.group, b.name)
}
