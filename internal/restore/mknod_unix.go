//go:build !windows

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

package restore

import (
	"syscall"

	"github.com/nabbar/vsbackup/internal/fsmeta"
)

// mknod recreates a FIFO, character device or block device entry. Device
// nodes encode (major, minor) into a single dev_t the way the kernel
// expects; FIFOs carry no device number.
func mknod(dest string, e fsmeta.FileEntry) error {
	mode := uint32(e.Mode.Perm())
	switch e.Kind {
	case fsmeta.KindFifo:
		mode |= syscall.S_IFIFO
		return syscall.Mknod(dest, mode, 0)
	case fsmeta.KindCharDevice:
		mode |= syscall.S_IFCHR
	case fsmeta.KindBlockDevice:
		mode |= syscall.S_IFBLK
	}
	dev := int(unixMakedev(uint32(e.Devmajor), uint32(e.Devminor)))
	return syscall.Mknod(dest, mode, dev)
}

func unixMakedev(major, minor uint32) uint64 {
	return uint64(minor&0xff) | uint64(major&0xfff)<<8 |
		uint64(minor&^0xff)<<12 | uint64(major&^0xfff)<<32
}
