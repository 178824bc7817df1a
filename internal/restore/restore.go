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

// Package restore implements C6 (Restore reader): reconstructing a
// destination tree from one committed backup, sourcing extern-file bodies
// from whichever sibling backups in the same group supply them.
package restore

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nabbar/vsbackup/internal/compressio"
	"github.com/nabbar/vsbackup/internal/fsmeta"
	"github.com/nabbar/vsbackup/internal/groupstore"
	"github.com/nabbar/vsbackup/internal/metalog"
	"github.com/nabbar/vsbackup/internal/tarstream"
	"github.com/nabbar/vsbackup/internal/vserr"
	"github.com/nabbar/vsbackup/internal/vslog"
)

const (
	dataFileName     = "data.tar"
	metadataFileName = "metadata.bz2"
)

// Failure records one entry that could not be restored; the run as a
// whole still completes, per spec.md §7 (per-entry errors, not fatal).
type Failure struct {
	Path   string
	Reason string
}

// Result is the outcome of a restore pass: OK iff every planned entry was
// successfully restored.
type Result struct {
	OK       bool
	Failures []Failure
}

func (r *Result) fail(path, reason string) {
	r.OK = false
	r.Failures = append(r.Failures, Failure{Path: path, Reason: reason})
}

type pendingAttr struct {
	destPath string
	entry    fsmeta.FileEntry
	isDir    bool
}

// Restore is one open backup being read back. AsRoot gates uid/gid
// restoration and device-node creation, both of which require root.
type Restore struct {
	store *groupstore.Store
	root  string
	group string
	name  string

	reader *tarstream.Reader

	ownRecords   map[string]metalog.Record
	neededHashes map[string]struct{}
	externSource map[string][]byte

	log    vslog.Logger
	asRoot bool
}

// Open parses backupPath into (backup_root, group, name) from its
// directory layout, validates both path components against the fixed
// group/backup regexes, opens the backup's own TarStream in
// decompress-to-temp mode and loads its MetadataLog.
func Open(backupPath string, asRoot bool, log vslog.Logger) (*Restore, vserr.Error) {
	backupPath = strings.TrimRight(backupPath, string(filepath.Separator))
	name := filepath.Base(backupPath)
	groupDir := filepath.Dir(backupPath)
	group := filepath.Base(groupDir)
	root := filepath.Dir(groupDir)

	if !groupstore.ValidateBackupName(name) || !groupstore.ValidateGroupName(group) {
		return nil, ErrorInvalidBackupPath.Errorf(backupPath)
	}

	store, verr := groupstore.New(root, 0, log)
	if verr != nil {
		return nil, verr
	}

	tr, verr := tarstream.OpenRead(filepath.Join(root, group, name, dataFileName), true)
	if verr != nil {
		return nil, verr
	}

	metaPath := filepath.Join(root, group, name, metadataFileName)
	recs, verr := metalog.LoadAll(metaPath, compressio.Bzip2)
	if verr != nil {
		_ = tr.Close()
		return nil, ErrorLoadMetadata.ErrorParent(verr)
	}

	ownRecords := make(map[string]metalog.Record, len(recs))
	needed := make(map[string]struct{})
	for _, rec := range recs {
		ownRecords[rec.Path] = rec
		if rec.Status == fsmeta.StatusExtern {
			needed[rec.Hash] = struct{}{}
		}
	}

	return &Restore{
		store: store, root: root, group: group, name: name,
		reader:       tr,
		ownRecords:   ownRecords,
		neededHashes: needed,
		externSource: make(map[string][]byte),
		log:          log,
		asRoot:       asRoot,
	}, nil
}

// Close releases the backup's own TarStream reader.
func (r *Restore) Close() vserr.Error {
	return r.reader.Close()
}

type candidate struct {
	name        string
	uniquePaths map[string]string // hash -> path inside this candidate's tar
}

// Plan builds externSource: hash -> body, by selecting sibling backups in
// the same group in the order spec.md §4.6 prescribes — most hashes
// supplied first, ties broken by oldest timestamp — and extracting only
// the still-unresolved bodies from each one opened.
func (r *Restore) Plan() vserr.Error {
	if len(r.neededHashes) == 0 {
		return nil
	}

	siblingNames, verr := r.store.Backups(r.group, true)
	if verr != nil {
		return verr
	}

	var candidates []candidate
	for _, sib := range siblingNames {
		if sib == r.name {
			continue
		}
		metaPath := filepath.Join(r.root, r.group, sib, metadataFileName)
		recs, verr := metalog.LoadAll(metaPath, compressio.Bzip2)
		if verr != nil {
			vslog.Warn(r.log, "cannot load sibling metadata while planning restore", vslog.Fields{
				"backup": sib, "error": verr.Error(),
			})
			continue
		}
		up := make(map[string]string)
		for _, rec := range recs {
			if rec.Status == fsmeta.StatusUnique {
				up[rec.Hash] = rec.Path
			}
		}
		candidates = append(candidates, candidate{name: sib, uniquePaths: up})
	}

	supplyCount := func(c candidate) int {
		n := 0
		for h := range r.neededHashes {
			if _, ok := c.uniquePaths[h]; ok {
				n++
			}
		}
		return n
	}

	sort.Slice(candidates, func(i, j int) bool {
		si, sj := supplyCount(candidates[i]), supplyCount(candidates[j])
		if si != sj {
			return si > sj
		}
		return candidates[i].name < candidates[j].name
	})

	unresolved := make(map[string]struct{}, len(r.neededHashes))
	for h := range r.neededHashes {
		unresolved[h] = struct{}{}
	}

	for _, c := range candidates {
		if len(unresolved) == 0 {
			break
		}
		needsThis := false
		for h := range unresolved {
			if _, ok := c.uniquePaths[h]; ok {
				needsThis = true
				break
			}
		}
		if !needsThis {
			continue
		}

		tr, verr := tarstream.OpenRead(filepath.Join(r.root, r.group, c.name, dataFileName), true)
		if verr != nil {
			vslog.Warn(r.log, "cannot open sibling tar stream while planning restore", vslog.Fields{
				"backup": c.name, "error": verr.Error(),
			})
			continue
		}
		for h := range unresolved {
			path, ok := c.uniquePaths[h]
			if !ok {
				continue
			}
			_, body, verr := tr.ExtractByName(path)
			if verr != nil {
				vslog.Warn(r.log, "cannot extract sibling body while planning restore", vslog.Fields{
					"backup": c.name, "path": path, "error": verr.Error(),
				})
				continue
			}
			r.externSource[h] = body
			delete(unresolved, h)
		}
		_ = tr.Close()
	}

	return nil
}

// Run performs the restore pass into destRoot: it iterates the backup's
// own tar once, materializing every entry, then restores uid/gid/mode/
// mtime attributes in a second pass (directories deepest-first, so a
// child's creation never clobbers its parent's mtime). When prefixes is
// non-empty, only entries whose path matches one of them (exact path or
// a path-separator-bounded descendant) are restored — the CLI's
// "restore-backup-path flag and optional positional path-prefix filters"
// surface (spec.md §6).
func (r *Restore) Run(destRoot string, prefixes []string) (*Result, vserr.Error) {
	res := &Result{OK: true}
	var pending []pendingAttr

	for {
		e, body, err := r.reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ErrorLoadMetadata.ErrorParent(err)
		}

		if !matchesAnyPrefix(e.Path, prefixes) {
			continue
		}

		dest := filepath.Join(destRoot, e.Path)

		switch e.Kind {
		case fsmeta.KindDirectory:
			if err := os.MkdirAll(dest, 0o700); err != nil {
				res.fail(e.Path, err.Error())
				continue
			}
			pending = append(pending, pendingAttr{destPath: dest, entry: e, isDir: true})

		case fsmeta.KindSymlink:
			if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
				res.fail(e.Path, err.Error())
				continue
			}
			_ = os.Remove(dest)
			if err := os.Symlink(e.LinkTarget, dest); err != nil {
				res.fail(e.Path, err.Error())
				continue
			}
			pending = append(pending, pendingAttr{destPath: dest, entry: e})

		case fsmeta.KindHardlink:
			target := filepath.Join(destRoot, fsmeta.NormalizePath(e.LinkTarget))
			if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
				res.fail(e.Path, err.Error())
				continue
			}
			if err := os.Link(target, dest); err != nil {
				res.fail(e.Path, err.Error())
				continue
			}

		case fsmeta.KindRegular:
			rec, ok := r.ownRecords[e.Path]
			if !ok {
				res.fail(e.Path, "no metadata record for regular entry")
				continue
			}

			var data io.Reader
			if rec.Status == fsmeta.StatusUnique {
				if body != nil {
					data = body
				} else {
					data = bytes.NewReader(nil)
				}
			} else {
				b, ok := r.externSource[rec.Hash]
				if !ok {
					res.fail(e.Path, "missing extern source for hash "+rec.Hash)
					continue
				}
				data = bytes.NewReader(b)
			}

			if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
				res.fail(e.Path, err.Error())
				continue
			}
			f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, e.Mode.Perm())
			if err != nil {
				res.fail(e.Path, err.Error())
				continue
			}
			_, copyErr := io.Copy(f, data)
			closeErr := f.Close()
			if copyErr != nil {
				res.fail(e.Path, copyErr.Error())
				continue
			}
			if closeErr != nil {
				res.fail(e.Path, closeErr.Error())
				continue
			}
			pending = append(pending, pendingAttr{destPath: dest, entry: e})

		case fsmeta.KindFifo, fsmeta.KindCharDevice, fsmeta.KindBlockDevice:
			if !r.asRoot {
				vslog.Warn(r.log, "device/fifo node restoration requires root, skipping", vslog.Fields{"path": e.Path})
				continue
			}
			if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
				res.fail(e.Path, err.Error())
				continue
			}
			if err := mknod(dest, e); err != nil {
				res.fail(e.Path, err.Error())
				continue
			}
			pending = append(pending, pendingAttr{destPath: dest, entry: e})

		default:
			res.fail(e.Path, "entry kind cannot be restored: "+e.Kind.String())
		}
	}

	applyAttributes(pending, r.asRoot)
	return res, nil
}

// matchesAnyPrefix reports whether path equals one of prefixes or sits
// underneath one of them. An empty prefixes list matches everything.
func matchesAnyPrefix(path string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		p = fsmeta.NormalizePath(p)
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// applyAttributes restores uid/gid/mode/mtime per spec.md §4.6: directory
// attributes last, deepest directories first, so creating a deeper child
// does not reset a shallower parent's mtime.
func applyAttributes(pending []pendingAttr, asRoot bool) {
	var dirs, others []pendingAttr
	for _, p := range pending {
		if p.isDir {
			dirs = append(dirs, p)
		} else {
			others = append(others, p)
		}
	}

	sort.Slice(dirs, func(i, j int) bool {
		return strings.Count(dirs[i].destPath, string(filepath.Separator)) >
			strings.Count(dirs[j].destPath, string(filepath.Separator))
	})

	for _, p := range others {
		applyOneAttr(p, asRoot)
	}
	for _, p := range dirs {
		applyOneAttr(p, asRoot)
	}
}

func applyOneAttr(p pendingAttr, asRoot bool) {
	isSymlink := p.entry.Kind == fsmeta.KindSymlink

	if asRoot {
		if isSymlink {
			_ = os.Lchown(p.destPath, int(p.entry.UID), int(p.entry.GID))
		} else {
			_ = os.Chown(p.destPath, int(p.entry.UID), int(p.entry.GID))
		}
	}
	if !isSymlink {
		_ = os.Chmod(p.destPath, p.entry.Mode.Perm())
		_ = os.Chtimes(p.destPath, p.entry.Mtime, p.entry.Mtime)
	}
}
