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
	"context"
	"fmt"
	"io"
	"regexp"
	"time"
)

/*Handle is what every transport speaks regardless of calling convention: it
can describe itself in some human readable form (fmt.Stringer), be (re)opened,
and be closed.  A Handle is exclusively owned by whoever dials it - it is
never shared between clients, and clients never destroy it on the owner's
behalf.

Any error returned must be castable to net.Error.*/
type Handle interface {
	fmt.Stringer
	io.Closer
	Open() error
}

/*Transport is a Handle speaking the blocking convention: each call occupies
the caller until the wire round trip finishes, or until the transport's own
configured timeout gives up on it.

WriteReadline writes buf (which may be empty, meaning "just read") and then
reads exactly one line.  Framing is strict: a line is complete only when the
delimiter byte arrives, the returned slice includes that delimiter, and a
partial line is never returned - a stall is surfaced as the transport's
timeout error.  Write shovels buf out with no reply expected.*/
type Transport interface {
	Handle
	WriteReadline(buf []byte) ([]byte, error)
	Write(buf []byte) error
}

/*ContextTransport is a Handle speaking the suspending convention: the same
two operations, but each call can be abandoned through its context.  The
framing rules of Transport apply unchanged.*/
type ContextTransport interface {
	Handle
	WriteReadline(ctx context.Context, buf []byte) ([]byte, error)
	Write(ctx context.Context, buf []byte) error
}

//FlushMode selects which direction Flush clears
type FlushMode int

//Flush modes, numbered the way the serial line device servers do it
const (
	FlushInput  FlushMode = iota //discard anything sitting in the receive buffer
	FlushOutput                  //wait until everything queued has actually left
	FlushBoth                    //drain output, then discard input
)

/*Flusher is an optional extension a transport may offer to clear its
buffers.  Socket transports generally cannot; serial ports can.*/
type Flusher interface {
	Flush(mode FlushMode) error
}

var known = map[*regexp.Regexp]func(context.Context, time.Duration, string) (Handle, error){
	netRe: func(ctx context.Context, dur time.Duration, dial string) (Handle, error) {
		return NewNetTransport(ctx, dur, dial)
	},
	serialRe: func(ctx context.Context, dur time.Duration, dial string) (Handle, error) {
		return NewSerialTransport(ctx, dur, dial)
	},
}

/*Dial resolves a dial string of the form scheme://rest into a transport
Handle.  The scheme decides both the transport kind and, as a consequence,
which calling convention the returned Handle speaks: feed it to NewCapability
or NewClient and stop worrying about it.  timeout bounds each wire operation
on the resulting transport, and ctx bounds its whole lifetime.*/
func Dial(ctx context.Context, timeout time.Duration, dial string) (Handle, error) {
	for re, funcptr := range known {
		if re.MatchString(dial) {
			return funcptr(ctx, timeout, dial)
		}
	}
	return nil, newErr(false, false, fmt.Errorf("no known way to dial %q", dial))
}
