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
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"

	"github.com/nabbar/vsbackup/internal/restore"
)

// ok/bad mirror the teacher's console package's colorType-keyed *color.Color
// map, scoped here to the two outcomes a run summary ever reports.
var (
	ok  = color.New(color.FgGreen, color.Bold)
	bad = color.New(color.FgRed, color.Bold)
)

func stdout() io.Writer {
	return colorable.NewColorableStdout()
}

func printBackupSummary(quiet bool, success bool, group, name string, size int64) {
	if quiet {
		return
	}
	w := stdout()
	if success {
		_, _ = ok.Fprintf(w, "backup complete: %s/%s (%d bytes)\n", group, name, size)
	} else {
		_, _ = bad.Fprintf(w, "backup finished with errors: %s/%s (%d bytes)\n", group, name, size)
	}
}

func printRestoreSummary(quiet bool, res *restore.Result) {
	if quiet {
		return
	}
	w := stdout()
	if res.OK {
		_, _ = ok.Fprintln(w, "restore complete")
		return
	}
	_, _ = bad.Fprintf(w, "restore finished with %d failure(s):\n", len(res.Failures))
	for _, f := range res.Failures {
		_, _ = bad.Fprintf(w, "  %s: %s\n", f.Path, f.Reason)
	}
}

func fprintError(w *os.File, err error) {
	_, _ = bad.Fprintln(w, fmt.Sprintf("vsbackup: %v", err))
}
