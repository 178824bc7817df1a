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
	"os"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// progressSet owns the mpb container for one run. The number of entries a
// backup_items walk will produce is not known ahead of time (driver.Run
// streams them one at a time), so each item's bar tracks a plain
// incrementing count rather than a percentage-of-total.
type progressSet struct {
	p     *mpb.Progress
	quiet bool
}

func newProgress(quiet bool) *progressSet {
	if quiet {
		return &progressSet{quiet: true}
	}
	return &progressSet{p: mpb.New(mpb.WithOutput(os.Stderr), mpb.WithWidth(40))}
}

func (s *progressSet) wait() {
	if s.p != nil {
		s.p.Wait()
	}
}

type progressBar struct {
	bar   *mpb.Bar
	count int64
}

// item starts a new bar labeled with the backup_items path being walked.
func (s *progressSet) item(label string) *progressBar {
	if s.quiet {
		return &progressBar{}
	}
	bar := s.p.AddBar(0,
		mpb.PrependDecorators(decor.Name(label, decor.WC{W: len(label) + 1, C: decor.DSyncSpaceR})),
		mpb.AppendDecorators(decor.CountersNoUnit("%d files")),
	)
	return &progressBar{bar: bar}
}

func (b *progressBar) tick() {
	if b.bar == nil {
		return
	}
	b.count++
	b.bar.SetCurrent(b.count)
}

// done freezes the bar's total at its final count so mpb renders it as
// complete instead of stalled.
func (b *progressBar) done() {
	if b.bar == nil {
		return
	}
	b.bar.SetTotal(b.count, true)
}
