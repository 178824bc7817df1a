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

package tarstream

import (
	"fmt"

	"github.com/nabbar/vsbackup/internal/vserr"
)

const pkgName = "vsbackup/tarstream"

const (
	ErrorFileOpen vserr.CodeError = iota + vserr.MinPkgTarStream
	ErrorFileCreate
	ErrorFileClose
	ErrorCompressOpen
	ErrorCompressClose
	ErrorTarNext
	ErrorTarWriteHeader
	ErrorIOCopy
	ErrorNotFound
	ErrorNoVariant
	ErrorUnsupportedKind
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
		return "cannot open tar stream file"
	case ErrorFileCreate:
		return "cannot create tar stream file"
	case ErrorFileClose:
		return "closing tar stream file occurs error"
	case ErrorCompressOpen:
		return "cannot open compression envelope for tar stream"
	case ErrorCompressClose:
		return "closing compression envelope occurs error"
	case ErrorTarNext:
		return "cannot get next tar entry"
	case ErrorTarWriteHeader:
		return "cannot write tar header"
	case ErrorIOCopy:
		return "io copy into tar stream occurs error"
	case ErrorNotFound:
		return "entry not found in tar stream: %s"
	case ErrorNoVariant:
		return "no data.tar variant (plain, .bz2, .gz) found at: %s"
	case ErrorUnsupportedKind:
		return "entry kind cannot be represented in a tar stream: %s"
	}
	return vserr.NullMessage
}
