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

// Package driver walks a configured backup item's filesystem tree,
// resolving each entry into the (path, stat, link target, body) tuple
// the core's Backup.AddFile expects, running the item's before/after
// shell hooks around the walk.
package driver

import (
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/nabbar/vsbackup/internal/backup"
	"github.com/nabbar/vsbackup/internal/config"
	"github.com/nabbar/vsbackup/internal/fsmeta"
	"github.com/nabbar/vsbackup/internal/vslog"
)

// Driver walks one backup_items entry.
type Driver struct {
	root   string
	item   config.Item
	filter Filter
	log    vslog.Logger
}

// New compiles item's filter and binds it to root, ready for Run.
func New(root string, item config.Item, log vslog.Logger) (*Driver, error) {
	f, verr := NewFilter(item.Filters)
	if verr != nil {
		return nil, verr
	}
	return &Driver{root: root, item: item, filter: f, log: log}, nil
}

// runHook shells out to /bin/sh -c command, logging a non-zero exit as a
// warning that does not abort the run, per the original tool's
// before/after semantics.
func (d *Driver) runHook(phase, command string) {
	if command == "" {
		return
	}
	vslog.Info(d.log, "running backup item hook", vslog.Fields{"phase": phase, "root": d.root})
	cmd := exec.Command("/bin/sh", "-c", command)
	out, err := cmd.CombinedOutput()
	if err != nil {
		vslog.Warn(d.log, "backup item hook exited non-zero", vslog.Fields{
			"phase": phase, "root": d.root, "error": err.Error(), "output": string(out),
		})
	}
}

// Run walks root depth-first, parents before children, feeding every
// allowed entry to add. The before hook runs once before the walk starts,
// the after hook once it ends, regardless of per-entry outcomes.
func (d *Driver) Run(add func(backup.AddFileInput) (backup.Outcome, error)) error {
	d.runHook("before", d.item.Before)
	defer d.runHook("after", d.item.After)

	return filepath.Walk(d.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			vslog.Warn(d.log, "cannot stat entry while walking backup item", vslog.Fields{"path": path, "error": err.Error()})
			return nil
		}

		rel, relErr := filepath.Rel(d.root, path)
		if relErr != nil {
			rel = path
		}
		if rel != "." && !d.filter.Allowed(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		in, closeBody, buildErr := d.buildEntry(path, info)
		if buildErr != nil {
			vslog.Warn(d.log, "cannot resolve entry, skipping", vslog.Fields{"path": path, "error": buildErr.Error()})
			return nil
		}

		_, addErr := add(in)
		if closeBody != nil {
			closeBody()
		}
		if addErr != nil {
			vslog.Warn(d.log, "entry rejected by backup writer", vslog.Fields{"path": path, "error": addErr.Error()})
		}
		return nil
	})
}

func (d *Driver) buildEntry(path string, info os.FileInfo) (backup.AddFileInput, func(), error) {
	raw, _ := fsmeta.FromFileInfo(info)

	entry := fsmeta.FileEntry{
		Path:  path,
		Kind:  fsmeta.KindFromFileMode(info.Mode()),
		Mode:  info.Mode(),
		UID:   raw.UID,
		GID:   raw.GID,
		Mtime: info.ModTime(),
		Size:  info.Size(),
	}

	in := backup.AddFileInput{
		Entry: entry,
		Dev:   raw.Dev,
		Ino:   raw.Ino,
		Nlink: raw.Nlink,
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return in, nil, err
		}
		in.Entry.LinkTarget = target
		return in, nil, nil

	case info.Mode().IsRegular():
		f, err := os.Open(path)
		if err != nil {
			return in, nil, err
		}
		in.Body = f
		return in, func() { _ = f.Close() }, nil

	case info.Mode()&os.ModeCharDevice != 0 || info.Mode()&os.ModeDevice != 0:
		in.Entry.Devmajor = fsmeta.Major(raw.Rdev)
		in.Entry.Devminor = fsmeta.Minor(raw.Rdev)
		return in, nil, nil

	default:
		return in, nil, nil
	}
}

// SortedItemPaths returns the configured backup_items keys in a
// deterministic, lexicographic run order.
func SortedItemPaths(items map[string]config.Item) []string {
	out := make([]string, 0, len(items))
	for p := range items {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
