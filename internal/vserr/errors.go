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

package vserr

import (
	"errors"
	"strings"
)

// Error extends the standard error with a code and a parent chain.
type Error interface {
	error

	IsCode(code CodeError) bool
	HasCode(code CodeError) bool
	GetCode() CodeError

	HasParent() bool
	AddParent(parent ...error)
	GetParent() []error

	Unwrap() []error
}

type ers struct {
	c CodeError
	m string
	p []error
}

func New(code uint16, message string, parent ...error) Error {
	e := &ers{c: CodeError(code), m: message}
	e.AddParent(parent...)
	return e
}

func (e *ers) Error() string {
	if e.m == "" {
		return UnknownMessage
	}
	if len(e.p) == 0 {
		return e.m
	}
	var sb strings.Builder
	sb.WriteString(e.m)
	for _, p := range e.p {
		sb.WriteString(": ")
		sb.WriteString(p.Error())
	}
	return sb.String()
}

func (e *ers) IsCode(code CodeError) bool { return e.c == code }

func (e *ers) HasCode(code CodeError) bool {
	if e.c == code {
		return true
	}
	for _, p := range e.p {
		if Is(p) && Get(p).HasCode(code) {
			return true
		}
	}
	return false
}

func (e *ers) GetCode() CodeError { return e.c }

func (e *ers) HasParent() bool { return len(e.p) > 0 }

func (e *ers) AddParent(parent ...error) {
	for _, p := range parent {
		if p != nil {
			e.p = append(e.p, p)
		}
	}
}

func (e *ers) GetParent() []error { return e.p }

func (e *ers) Unwrap() []error { return e.p }

// Is reports whether err is (or wraps) a vserr.Error.
func Is(err error) bool {
	var e Error
	return errors.As(err, &e)
}

// Get extracts the vserr.Error from err, or nil if it is not one.
func Get(err error) Error {
	var e Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// HasCode reports whether err, or any of its parents, carries code.
func HasCode(err error, code CodeError) bool {
	if e := Get(err); e != nil {
		return e.HasCode(code)
	}
	return false
}
