package serline

/*
MIT License

Copyright (c) 2020-2023 the serline authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

import (
	"fmt"
	"net"

	"github.com/pkg/errors"
)

/*Error is the error type emitted by the transports in this package.  It
conforms to net.Error so callers can interrogate Timeout() and Temporary()
without caring whether the bytes travelled over a socket or a serial port.*/
type Error struct {
	timeout   bool
	temporary bool
	err       error
}

/*newErr wraps err in an Error carrying the timeout and temporary flags*/
func newErr(timeout, temporary bool, err error) *Error {
	return &Error{timeout: timeout, temporary: temporary, err: err}
}

//Error conforms to the error interface
func (e *Error) Error() string { return e.err.Error() }

//Timeout conforms to net.Error
func (e *Error) Timeout() bool { return e.timeout }

//Temporary conforms to net.Error
func (e *Error) Temporary() bool { return e.temporary }

//Unwrap exposes the wrapped error to errors.Is / errors.As
func (e *Error) Unwrap() error { return e.err }

/*IsTimeout returns true if err is a net.Error flagged as a timeout.  Calling
this with a nil error is a programming mistake and will panic.*/
func IsTimeout(err error) bool {
	if err == nil {
		panic("IsTimeout called with a nil error")
	}
	if ne, ok := err.(net.Error); ok {
		return ne.Timeout()
	}
	return false
}

/*IsTemporary returns true if err is a net.Error flagged as temporary.  Calling
this with a nil error is a programming mistake and will panic.*/
func IsTemporary(err error) bool {
	if err == nil {
		panic("IsTemporary called with a nil error")
	}
	if ne, ok := err.(net.Error); ok {
		return ne.Temporary()
	}
	return false
}

var (
	/*ErrEmptyReply is returned when a reply was expected but the device coughed
	up nothing before the line delimiter.  An empty line is never a success.*/
	ErrEmptyReply = errors.New("empty reply: zero bytes before the line delimiter")

	//ErrBytesArgs means Command.Bytes was fed the wrong number or kind of arguments
	ErrBytesArgs = errors.New("rendered command contains %! - wrong args for prototype")

	//ErrBytesFormat means the rendered command failed the Command.CommandRegexp check
	ErrBytesFormat = errors.New("rendered command does not match its CommandRegexp")

	//ErrNoFlush is returned by Client.Flush when the transport cannot flush
	ErrNoFlush = errors.New("transport does not support flushing")
)

/*ProtocolError means a reply arrived but does not have the shape the issued
command requires: wrong field count, bytes that do not decode as text, or a
reply that fails the command's Reply pattern.  The raw reply rides along so
the caller can log or inspect what the device actually said.*/
type ProtocolError struct {
	Command string //name of the command whose reply was malformed
	Reason  string //what exactly was wrong with it
	Raw     []byte //the reply as received, delimiter stripped
}

//Error conforms to the error interface
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: malformed reply: %s (got %q)", e.Command, e.Reason, e.Raw)
}
