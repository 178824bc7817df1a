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
	"fmt"

	"github.com/nabbar/vsbackup/internal/vserr"
)

const pkgName = "vsbackup/groupstore"

const (
	ErrorMkdir vserr.CodeError = iota + vserr.MinPkgGroupStore
	ErrorStat
	ErrorReadDir
	ErrorRename
	ErrorRemove
	ErrorLockBusy
	ErrorLockFailed
	ErrorLockRace
)

func init() {
	if vserr.ExistInMapMessage(ErrorMkdir) {
		panic(fmt.Errorf("error code collision %s", pkgName))
	}
	vserr.RegisterIdFctMessage(ErrorMkdir, getMessage)
}

func getMessage(code vserr.CodeError) string {
	switch code {
	case ErrorMkdir:
		return "cannot create directory"
	case ErrorStat:
		return "cannot stat path"
	case ErrorReadDir:
		return "cannot list directory entries"
	case ErrorRename:
		return "cannot atomically rename in-progress backup to committed name"
	case ErrorRemove:
		return "cannot recursively remove directory"
	case ErrorLockBusy:
		return "another run already holds the backup root lock"
	case ErrorLockFailed:
		return "cannot acquire the backup root lock"
	case ErrorLockRace:
		return "lock sentinel file was replaced out from under us (unlink race)"
	}
	return vserr.NullMessage
}
