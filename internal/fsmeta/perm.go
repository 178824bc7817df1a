/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

package fsmeta

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Perm is an octal-string-friendly os.FileMode, used wherever a backup
// item's directory permission needs to round-trip through config or logs
// without losing the leading zero a human expects ("0700", not "448").
type Perm os.FileMode

// ParsePerm accepts an octal string ("0700", "700") the way the teacher's
// file/perm.Parse does, quote characters trimmed defensively.
func ParsePerm(s string) (Perm, error) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid permission %q: %w", s, err)
	}
	return Perm(v), nil
}

func (p Perm) FileMode() os.FileMode { return os.FileMode(p) }

func (p Perm) String() string { return fmt.Sprintf("%#o", uint32(p)) }

// KindFromFileMode maps an os.FileMode (as returned by os.Lstat) to the
// augmented Kind taxonomy of spec.md §3.
func KindFromFileMode(m os.FileMode) Kind {
	switch {
	case m.IsRegular():
		return KindRegular
	case m.IsDir():
		return KindDirectory
	case m&os.ModeSymlink != 0:
		return KindSymlink
	case m&os.ModeNamedPipe != 0:
		return KindFifo
	case m&os.ModeCharDevice != 0:
		return KindCharDevice
	case m&os.ModeDevice != 0:
		return KindBlockDevice
	case m&os.ModeSocket != 0:
		return KindSocket
	default:
		return KindUnknown
	}
}
