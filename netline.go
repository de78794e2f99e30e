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

package serline

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"regexp"
	"time"

	"github.com/pkg/errors"
)

var _ ContextTransport = &NetTransport{}
var netRe = regexp.MustCompile(`^(tcp|tcp4|tcp6)://(.*:[a-zA-Z0-9]*)$`)

/*NewNetTransport opens a line-oriented connection to a remote host.
dial should be in the form of: 'tcp[46]{0,1}://<host>:<port>'

NetTransport speaks the suspending convention: every wire operation takes a
context and can be abandoned through it.  timeout additionally bounds each
whole-line operation at the socket level via deadlines; if timeout is zero
only the per-call context limits anything.  Errors carry net.Error semantics,
so timeouts and temporary conditions are distinguishable:

  nt, _ := NewNetTransport(ctx, 500*time.Millisecond, "tcp://localhost:4242")
  line, e := nt.WriteReadline(ctx, []byte("*IDN?\n"))
  if e != nil && IsTimeout(e) {
    // device went quiet
  }

The caller is responsible for handling errors. This pkg just propagates any
error encountered.
*/
func NewNetTransport(ctx context.Context, timeout time.Duration, dial string) (*NetTransport, error) {
	if !netRe.MatchString(dial) {
		return nil, newErr(false, false, fmt.Errorf("dial string not in correct form"))
	}
	matches := netRe.FindAllStringSubmatch(dial, -1) //capture groups used
	nctx, cancel := context.WithCancel(ctx)
	nt := &NetTransport{
		network: matches[0][1],
		address: matches[0][2],
		timeout: timeout,
		delim:   '\n',
		ctx:     nctx,
		cancel:  cancel,
	}
	return nt, nt.Open()
}

/*NetTransport provides a line-framed ContextTransport over an outgoing
socket.  It owns exactly one net.Conn at a time; Open tears down and redials.*/
type NetTransport struct {
	network, address string
	cancel           context.CancelFunc
	ctx              context.Context
	timeout          time.Duration
	delim            byte
	conn             net.Conn
	rdr              *bufio.Reader
}

/*String conforms to the fmt.Stringer interface*/
func (nt *NetTransport) String() string {
	return fmt.Sprintf("%v line connection to %v", nt.network, nt.address)
}

/*Open forcibly disconnects (ignoring errors) any live connection and attempts
the connect process again.  It returns an error if it was unable to start*/
func (nt *NetTransport) Open() (err error) {
	select {
	case <-nt.ctx.Done():
		return newErr(false, false, nt.ctx.Err())
	default:
	}
	if nt.conn != nil {
		nt.conn.Close()
		nt.conn = nil
	}
	dialer := net.Dialer{
		Timeout:   nt.timeout,
		KeepAlive: 1 * time.Second,
	}
	//Errors from DialContext implement net.Error
	if nt.conn, err = dialer.DialContext(nt.ctx, nt.network, nt.address); err != nil {
		return err
	}
	nt.rdr = bufio.NewReader(nt.conn)
	return nil
}

/*WriteReadline writes buf (possibly empty) and reads exactly one line,
returned with its trailing delimiter.  A line that stalls before the delimiter
is a timeout error, never a partial return.  Cancelling ctx mid-read unblocks
the call even when ctx carries no deadline.*/
func (nt *NetTransport) WriteReadline(ctx context.Context, buf []byte) ([]byte, error) {
	if err := nt.Write(ctx, buf); err != nil {
		return nil, err
	}
	//ReadBytes only honors socket deadlines, so a cancel-only context needs a
	//watcher to expire the read out from under it
	done := make(chan struct{})
	conn := nt.conn //Close nils the field, the watcher keeps its own handle
	go func() {
		select {
		case <-ctx.Done():
			conn.SetReadDeadline(time.Now())
		case <-nt.ctx.Done():
			conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()
	line, err := nt.rdr.ReadBytes(nt.delim)
	close(done)
	if err != nil {
		if ctx.Err() != nil {
			return nil, wrapNet(ctx.Err())
		}
		if nt.ctx.Err() != nil {
			return nil, wrapNet(nt.ctx.Err())
		}
		return nil, wrapNet(errors.Wrapf(err, "gave up after %d bytes waiting for delimiter %q", len(line), nt.delim))
	}
	return line, nil
}

/*Write shovels buf onto the wire with no reply expected.  An empty buf is a
no-op (sans the liveness checks), which is how "just read a line" is spelled.*/
func (nt *NetTransport) Write(ctx context.Context, buf []byte) error {
	select {
	case <-nt.ctx.Done():
		defer nt.Close()
		return newErr(false, false, nt.ctx.Err())
	case <-ctx.Done():
		return newErr(false, false, ctx.Err())
	default:
	}
	if nt.conn == nil {
		return newErr(false, false, errors.New("broken connection"))
	}
	nt.conn.SetDeadline(nt.deadline(ctx))
	if len(buf) == 0 {
		return nil
	}
	n, err := nt.conn.Write(buf)
	if err != nil {
		return wrapNet(errors.Wrapf(err, "wrote %d of %d bytes", n, len(buf)))
	}
	if n != len(buf) {
		return newErr(false, false, errors.Errorf("wrote %d of %d bytes", n, len(buf)))
	}
	return nil
}

/*Close conforms to io.Closer, and poisons every later operation*/
func (nt *NetTransport) Close() error {
	nt.cancel()
	defer func() { nt.conn = nil }()
	if nt.conn != nil {
		return nt.conn.Close()
	}
	return nil
}

/*deadline picks the sooner of the configured timeout and the caller's context
deadline.  The zero time means no deadline at all.*/
func (nt *NetTransport) deadline(ctx context.Context) time.Time {
	var dl time.Time
	if nt.timeout > 0 {
		dl = time.Now().Add(nt.timeout)
	}
	if d, ok := ctx.Deadline(); ok && (dl.IsZero() || d.Before(dl)) {
		dl = d
	}
	return dl
}

/*wrapNet keeps net.Error flags intact while converting to the package Error*/
func wrapNet(err error) *Error {
	if ne, ok := errors.Cause(err).(net.Error); ok {
		return newErr(ne.Timeout(), ne.Temporary(), err)
	}
	return newErr(false, false, err)
}
