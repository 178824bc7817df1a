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

package driver

import (
	"regexp"

	"github.com/nabbar/vsbackup/internal/config"
	"github.com/nabbar/vsbackup/internal/vserr"
)

type filterRule struct {
	allow bool
	re    *regexp.Regexp
}

// Filter is the compiled form of a backup item's ordered (allow, regex)
// list: the first rule whose regex matches a relative child path wins;
// if none match, the path is allowed, per spec.md §6.
type Filter struct {
	rules []filterRule
}

// NewFilter compiles every rule once, at driver construction, so each
// walked entry only pays for a regexp match, never a compile.
func NewFilter(rules []config.FilterRule) (Filter, vserr.Error) {
	f := Filter{rules: make([]filterRule, 0, len(rules))}
	for _, r := range rules {
		re, err := regexp.Compile(r.Regex)
		if err != nil {
			return Filter{}, ErrorFilterRegex.Errorf(r.Regex)
		}
		f.rules = append(f.rules, filterRule{allow: r.Allow, re: re})
	}
	return f, nil
}

// Allowed reports whether relPath should be walked, applying the
// first-match-wins, default-allow rule.
func (f Filter) Allowed(relPath string) bool {
	for _, r := range f.rules {
		if r.re.MatchString(relPath) {
			return r.allow
		}
	}
	return true
}
