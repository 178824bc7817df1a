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

package metalog

import (
	"fmt"

	"github.com/nabbar/vsbackup/internal/vserr"
)

const pkgName = "vsbackup/metalog"

const (
	ErrorFileOpen vserr.CodeError = iota + vserr.MinPkgMetaLog
	ErrorFileCreate
	ErrorFileClose
	ErrorCompressOpen
	ErrorCompressClose
	ErrorWrite
	ErrorCorrupt
)

func init() {
	if vserr.ExistInMapMessage(ErrorFileOpen) {
		panic(fmt.Errorf("error code collision %s", pkgName))
	}
	vserr.RegisterIdFctMessage(ErrorFileOpen, getMessage)
}

func getMessage(code vserr.CodeError) string {
	switch code {
	case ErrorFileOpen:
		return "cannot open metadata log file"
	case ErrorFileCreate:
		return "cannot create metadata log file"
	case ErrorFileClose:
		return "closing metadata log file occurs error"
	case ErrorCompressOpen:
		return "cannot open compression envelope for metadata log"
	case ErrorCompressClose:
		return "closing compression envelope occurs error"
	case ErrorWrite:
		return "cannot write metadata log record"
	case ErrorCorrupt:
		return "metadata log line does not match the 4-field record schema: %s"
	}
	return vserr.NullMessage
}
