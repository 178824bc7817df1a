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

package groupstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/nabbar/vsbackup/internal/fsmeta"
	"github.com/nabbar/vsbackup/internal/vserr"
)

const lockFileName = ".lock"

// lockDiagnostics is written as JSON into the sentinel once it is held,
// purely to help an operator looking at a LockBusy report identify who
// holds it. The flock syscall itself is the actual exclusion mechanism.
type lockDiagnostics struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
}

// Lock is a held advisory exclusive lock on <backup_root>/.lock.
type Lock struct {
	fl *flock.Flock
}

// AcquireLock opens/creates <root>/.lock, takes a non-blocking exclusive
// flock on it, writes pid/start-time diagnostics, then re-stats the file
// to confirm it is still the same inode it just locked (protection against
// an unlink race per spec.md §5).
func AcquireLock(root string) (*Lock, vserr.Error) {
	path := filepath.Join(root, lockFileName)

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, ErrorLockFailed.ErrorParent(err)
	}
	if !ok {
		return nil, ErrorLockBusy.Error(nil)
	}

	diagBefore, statErr := fsmeta.Lstat(path)
	if statErr != nil {
		_ = fl.Unlock()
		return nil, ErrorLockFailed.ErrorParent(statErr)
	}

	diag := lockDiagnostics{PID: os.Getpid(), StartedAt: time.Now()}
	if b, err := json.Marshal(diag); err == nil {
		_ = os.WriteFile(path, b, 0o600)
	}

	diagAfter, statErr := fsmeta.Lstat(path)
	if statErr != nil {
		_ = fl.Unlock()
		return nil, ErrorLockFailed.ErrorParent(statErr)
	}
	if diagBefore.Dev != diagAfter.Dev || diagBefore.Ino != diagAfter.Ino {
		_ = fl.Unlock()
		return nil, ErrorLockRace.Error(nil)
	}

	return &Lock{fl: fl}, nil
}

// Release drops the flock. The sentinel file itself is left in place for
// the next run to reuse.
func (l *Lock) Release() vserr.Error {
	if err := l.fl.Unlock(); err != nil {
		return ErrorLockFailed.ErrorParent(err)
	}
	return nil
}
