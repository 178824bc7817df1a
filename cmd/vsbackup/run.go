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

package main

import (
	"fmt"
	"os"

	"github.com/nabbar/vsbackup/internal/backup"
	"github.com/nabbar/vsbackup/internal/compressio"
	"github.com/nabbar/vsbackup/internal/config"
	"github.com/nabbar/vsbackup/internal/configloader"
	"github.com/nabbar/vsbackup/internal/driver"
	"github.com/nabbar/vsbackup/internal/groupstore"
	"github.com/nabbar/vsbackup/internal/hashreader"
	"github.com/nabbar/vsbackup/internal/restore"
	"github.com/nabbar/vsbackup/internal/vslog"
)

// runBackup loads cfg, takes the backup_root lock, opens one Backup and
// feeds it every configured backup_items entry in turn, committing once
// all of them have been walked.
func runBackup(configPath string, log vslog.Logger, quiet bool) (bool, error) {
	cfg, verr := configloader.Load(configPath)
	if verr != nil {
		return false, verr
	}

	store, verr := groupstore.New(cfg.BackupRoot, cfg.RootDirMode, log)
	if verr != nil {
		return false, verr
	}

	lock, verr := groupstore.AcquireLock(cfg.BackupRoot)
	if verr != nil {
		return false, verr
	}
	defer func() { _ = lock.Release() }()

	opts, err := buildOptions(cfg)
	if err != nil {
		return false, err
	}

	b, verr := backup.Open(store, opts, log)
	if verr != nil {
		return false, verr
	}

	bars := newProgress(quiet)
	defer bars.wait()

	for _, path := range driver.SortedItemPaths(cfg.BackupItems) {
		item := cfg.BackupItems[path]
		d, dErr := driver.New(path, item, log)
		if dErr != nil {
			vslog.Warn(log, "skipping unreadable backup item", vslog.Fields{"path": path, "error": dErr.Error()})
			continue
		}

		bar := bars.item(path)
		if rErr := d.Run(func(in backup.AddFileInput) (backup.Outcome, error) {
			out, aErr := b.AddFile(in)
			bar.tick()
			if aErr != nil {
				return out, aErr
			}
			return out, nil
		}); rErr != nil {
			vslog.Warn(log, "backup item walk reported an error", vslog.Fields{"path": path, "error": rErr.Error()})
		}
		bar.done()
	}

	success, verr := b.Commit()
	if verr != nil {
		return false, verr
	}

	size, szErr := b.Size()
	if szErr != nil {
		vslog.Warn(log, "cannot compute committed backup size", vslog.Fields{"error": szErr.Error()})
	}
	printBackupSummary(quiet, success, b.Group(), b.Name(), size)

	return success, nil
}

// runRestore opens backupPath, plans its extern-hash sourcing across
// sibling backups in the same group, and restores it into destRoot,
// filtered to prefixes when non-empty.
func runRestore(configPath, backupPath, destRoot string, prefixes []string, log vslog.Logger, quiet bool) (bool, error) {
	_, verr := configloader.Load(configPath)
	if verr != nil {
		return false, verr
	}

	asRoot := os.Geteuid() == 0

	r, verr := restore.Open(backupPath, asRoot, log)
	if verr != nil {
		return false, verr
	}
	defer func() { _ = r.Close() }()

	if verr := r.Plan(); verr != nil {
		return false, verr
	}

	res, verr := r.Run(destRoot, prefixes)
	if verr != nil {
		return false, verr
	}

	printRestoreSummary(quiet, res)
	return res.OK, nil
}

// buildOptions resolves cfg's string compression/hash-algorithm choices
// into their internal/compressio and internal/hashreader enum values.
// config.Validate already restricted the strings to the recognized set,
// so a parse failure here means Default()'s own value was bypassed and is
// a caller bug, not a user-facing configuration error.
func buildOptions(cfg config.Config) (backup.Options, error) {
	comp, recognized := compressio.ParseAlgorithm(cfg.Compression)
	if !recognized {
		return backup.Options{}, fmt.Errorf("unresolvable compression algorithm %q", cfg.Compression)
	}
	hash, recognized := hashreader.ParseAlgorithm(cfg.HashAlgorithm)
	if !recognized {
		return backup.Options{}, fmt.Errorf("unresolvable hash algorithm %q", cfg.HashAlgorithm)
	}
	return backup.Options{
		MaxBackups:        cfg.MaxBackups,
		MaxBackupGroups:   cfg.MaxBackupGroups,
		TrustModifyTime:   cfg.TrustModifyTime,
		PreserveHardLinks: cfg.PreserveHardLinks,
		Compression:       comp,
		HashAlgorithm:     hash,
	}, nil
}
