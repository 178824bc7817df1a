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

// Package vserr provides the error taxonomy shared by every core component:
// a numeric CodeError (one registered message table per owning package) plus
// a parent-chaining Error type, so a tar write failure can carry the os.Error
// that caused it without losing its own identity.
package vserr

import (
	"fmt"
)

var idMsgFct = make(map[CodeError]Message)

// Message renders a human string for a registered CodeError.
type Message func(code CodeError) (message string)

// CodeError is a package-scoped numeric error identity, analogous to an
// HTTP status code but namespaced per package via the MinPkg* offsets.
type CodeError uint16

const (
	UnknownError CodeError = 0
	UnknownMessage          = "unknown error"
	NullMessage             = ""
)

func (c CodeError) Uint16() uint16 { return uint16(c) }

func (c CodeError) Message() string {
	if c == UnknownError {
		return UnknownMessage
	}
	if f, ok := idMsgFct[c]; ok {
		if m := f(c); m != "" {
			return m
		}
	}
	return UnknownMessage
}

// Error builds a new Error carrying this code and any parent errors.
func (c CodeError) Error(parent ...error) Error {
	return New(c.Uint16(), c.Message(), parent...)
}

// ErrorParent is sugar for Error(p) used throughout the core for the common
// case of wrapping exactly one underlying cause.
func (c CodeError) ErrorParent(p error) Error {
	return c.Error(p)
}

// Errorf formats the registered message with args before wrapping it.
func (c CodeError) Errorf(args ...interface{}) Error {
	return New(c.Uint16(), fmt.Sprintf(c.Message(), args...))
}

// ExistInMapMessage reports whether code already has a registered message
// function — used at package init to panic loudly on a code collision.
func ExistInMapMessage(code CodeError) bool {
	_, ok := idMsgFct[code]
	return ok
}

// RegisterIdFctMessage binds a package's message function into the shared
// registry. Called once from each package's init().
func RegisterIdFctMessage(code CodeError, fct Message) {
	idMsgFct[code] = fct
}
