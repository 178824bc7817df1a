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

// Package groupstore implements C7 (GroupStore): the on-disk layout
// manager for backup roots, groups and in-progress/committed backup
// directories, including the atomic-rename commit and group rotation.
package groupstore

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-uuid"

	"github.com/nabbar/vsbackup/internal/fsmeta"
	"github.com/nabbar/vsbackup/internal/vserr"
	"github.com/nabbar/vsbackup/internal/vslog"
)

// DefaultDirMode is the root/group directory mode used when New is called
// with a zero Perm.
const DefaultDirMode = fsmeta.Perm(0o700)

var (
	groupNameRe  = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}$`)
	backupNameRe = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}-\d{2}:\d{2}:\d{2}$`)
)

const (
	groupNameLayout  = "2006.01.02"
	backupNameLayout = "2006.01.02-15:04:05"
)

// ValidateGroupName reports whether name matches the fixed group directory
// regex, per spec.md §4.7.
func ValidateGroupName(name string) bool { return groupNameRe.MatchString(name) }

// ValidateBackupName reports whether name matches the fixed backup
// directory regex, per spec.md §4.7.
func ValidateBackupName(name string) bool { return backupNameRe.MatchString(name) }

// Observers are the optional post-action callbacks spec.md §6/§9 names:
// on_group_created, on_group_deleted, on_backup_created. Any may be nil.
// An observer returning an error does not undo the action it observed
// (spec.md §7, ObserverHookFailed) — the caller is expected to fold that
// error into the run's overall success flag.
type Observers struct {
	OnGroupCreated  func(log vslog.Logger, group string) error
	OnGroupDeleted  func(log vslog.Logger, group string) error
	OnBackupCreated func(log vslog.Logger, group, name string) error
}

// Store is the layout manager rooted at an absolute backup_root.
type Store struct {
	Root    string
	Log     vslog.Logger
	Obs     Observers
	DirMode fsmeta.Perm

	now func() time.Time
}

// New builds a Store rooted at root, creating the root directory (mode
// dirMode, or DefaultDirMode if zero) if it does not already exist. Group
// directories created later by CreateBackup reuse the same mode; restored
// directories are governed separately by restore.Run, which spec.md §4.6
// fixes at 0700 regardless of this setting.
func New(root string, dirMode fsmeta.Perm, log vslog.Logger) (*Store, vserr.Error) {
	if dirMode == 0 {
		dirMode = DefaultDirMode
	}
	if err := os.MkdirAll(root, dirMode.FileMode()); err != nil {
		return nil, ErrorMkdir.ErrorParent(err)
	}
	return &Store{Root: root, Log: log, DirMode: dirMode, now: time.Now}, nil
}

// Groups lists group directories under root matching the group regex,
// ascending by name (equivalently, ascending by date).
func (s *Store) Groups() ([]string, vserr.Error) {
	ents, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, ErrorReadDir.ErrorParent(err)
	}
	var out []string
	for _, e := range ents {
		if e.IsDir() && groupNameRe.MatchString(e.Name()) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Backups lists child directories of <root>/<group>, ascending by name.
// When onlyCommitted is true, only names matching the backup regex (no
// leading dot) are returned; otherwise every directory whose name does
// not start with a dot is returned, whether or not it matches the regex.
// Only directories are ever listed.
func (s *Store) Backups(group string, onlyCommitted bool) ([]string, vserr.Error) {
	dir := filepath.Join(s.Root, group)
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, ErrorReadDir.ErrorParent(err)
	}
	var out []string
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if onlyCommitted {
			if backupNameRe.MatchString(name) {
				out = append(out, name)
			}
			continue
		}
		if !strings.HasPrefix(name, ".") {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// CreateBackup implements spec.md §4.7: pick or create the group to
// receive a new backup, allocate a timestamp name, create its in-progress
// directory and return the pieces the caller needs to open TarStream and
// MetadataLog inside it. workSuffix disambiguates the in-progress
// directory name from the committed name it will later be renamed to; it
// is empty unless an in-progress directory for this exact timestamp
// already exists (two CreateBackup calls landing in the same second),
// in which case a short UUID suffix keeps the two runs' writes from
// silently landing in the same directory. The committed name itself is
// never suffixed, since spec.md §4.7 fixes its format; if a committed
// backup in the group already holds the current second's name, the name
// is advanced one second at a time until it is free.
func (s *Store) CreateBackup(maxBackups int) (group, name, workSuffix, inProgressPath string, obsErr error, verr vserr.Error) {
	groups, err := s.Groups()
	if err != nil {
		return "", "", "", "", nil, err
	}

	today := s.now().Format(groupNameLayout)

	if len(groups) == 0 {
		group = today
	} else {
		newest := groups[len(groups)-1]
		committed, err := s.Backups(newest, true)
		if err != nil {
			return "", "", "", "", nil, err
		}
		if len(committed) >= maxBackups {
			group = today
		} else {
			group = newest
		}
	}

	dirMode := s.DirMode
	if dirMode == 0 {
		dirMode = DefaultDirMode
	}

	groupPath := filepath.Join(s.Root, group)
	created := false
	if _, statErr := os.Stat(groupPath); os.IsNotExist(statErr) {
		if err := os.MkdirAll(groupPath, dirMode.FileMode()); err != nil {
			return "", "", "", "", nil, ErrorMkdir.ErrorParent(err)
		}
		created = true
	}

	stamp := s.now()
	name = stamp.Format(backupNameLayout)
	for {
		if _, statErr := os.Stat(filepath.Join(groupPath, name)); statErr != nil {
			break
		}
		stamp = stamp.Add(time.Second)
		name = stamp.Format(backupNameLayout)
	}
	inProgressPath = filepath.Join(groupPath, "."+name)
	if _, statErr := os.Stat(inProgressPath); statErr == nil {
		id, genErr := uuid.GenerateUUID()
		if genErr != nil {
			return "", "", "", "", nil, ErrorMkdir.ErrorParent(genErr)
		}
		workSuffix = "-" + id[:8]
		inProgressPath = filepath.Join(groupPath, "."+name+workSuffix)
		vslog.Warn(s.Log, "in-progress backup directory already exists for this timestamp, disambiguating", vslog.Fields{
			"group": group, "name": name, "suffix": workSuffix,
		})
	}
	if err := os.MkdirAll(inProgressPath, dirMode.FileMode()); err != nil {
		return "", "", "", "", nil, ErrorMkdir.ErrorParent(err)
	}

	if created && s.Obs.OnGroupCreated != nil {
		obsErr = s.Obs.OnGroupCreated(s.Log, group)
	}

	return group, name, workSuffix, inProgressPath, obsErr, nil
}

// CommitBackup renames <group>/.<name><workSuffix> to <group>/<name>,
// making the backup visible to observers walking the group directory in a
// single atomic step, then fires on_backup_created. A non-nil obsErr means
// the rename already happened — the backup is committed regardless, per
// spec.md §4.5: the observer has already seen committed state.
func (s *Store) CommitBackup(group, name, workSuffix string) (obsErr error, verr vserr.Error) {
	groupPath := filepath.Join(s.Root, group)
	from := filepath.Join(groupPath, "."+name+workSuffix)
	to := filepath.Join(groupPath, name)

	if err := os.Rename(from, to); err != nil {
		return nil, ErrorRename.ErrorParent(err)
	}

	if s.Obs.OnBackupCreated != nil {
		obsErr = s.Obs.OnBackupCreated(s.Log, group, name)
	}
	return obsErr, nil
}

// CancelBackup recursively removes <group>/.<name><workSuffix>. Errors are
// logged, never surfaced, per spec.md §4.7.
func (s *Store) CancelBackup(group, name, workSuffix string) {
	path := filepath.Join(s.Root, group, "."+name+workSuffix)
	if err := os.RemoveAll(path); err != nil {
		vslog.Error(s.Log, "cancel backup: cannot remove in-progress directory", vslog.Fields{
			"path": path, "error": err.Error(),
		})
	}
}

// Size returns the on-disk footprint of a committed backup: the sum of
// every regular file's size directly under <root>/<group>/<name> (the tar
// body plus the metadata log), a du-style figure the CLI prints in its
// post-commit backup summary.
func (s *Store) Size(group, name string) (int64, vserr.Error) {
	dir := filepath.Join(s.Root, group, name)
	ents, err := os.ReadDir(dir)
	if err != nil {
		return 0, ErrorReadDir.ErrorParent(err)
	}

	var total int64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return 0, ErrorStat.ErrorParent(err)
		}
		total += info.Size()
	}
	return total, nil
}

// RotateGroups deletes every committed group beyond the first maxGroups
// (sorted descending by name, i.e. newest first), firing on_group_deleted
// for each successful deletion.
func (s *Store) RotateGroups(maxGroups int) (obsErr error, verr vserr.Error) {
	all, err := s.Groups()
	if err != nil {
		return nil, err
	}

	var groups []string
	for _, g := range all {
		committed, err := s.Backups(g, true)
		if err != nil {
			return nil, err
		}
		if len(committed) >= 1 {
			groups = append(groups, g)
		}
	}

	sort.Sort(sort.Reverse(sort.StringSlice(groups)))

	if len(groups) <= maxGroups {
		return nil, nil
	}

	for _, g := range groups[maxGroups:] {
		path := filepath.Join(s.Root, g)
		if err := os.RemoveAll(path); err != nil {
			vslog.Error(s.Log, "rotate groups: cannot remove group directory", vslog.Fields{
				"group": g, "error": err.Error(),
			})
			continue
		}
		if s.Obs.OnGroupDeleted != nil {
			if e := s.Obs.OnGroupDeleted(s.Log, g); e != nil {
				obsErr = e
			}
		}
	}
	return obsErr, nil
}
