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

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

/*Client is the programmatic face of one device: it owns one Dispatcher over
one transport Handle and turns named commands into decoded replies.  Build
one Client per managed device and hand it around explicitly - there is no
process-wide shared instance, on purpose.

The Client never destroys the Handle it was given; whoever dialed it closes
it.*/
type Client struct {
	handle Handle
	d      *Dispatcher
	term   []byte
	cmds   Commands
	log    zerolog.Logger
}

//ClientOption adjusts a Client during construction
type ClientOption func(*Client)

/*Terminator sets the line terminator appended to every outgoing command
frame.  The default is "\n"; plenty of instruments insist on "\r\n" or a bare
"\r" instead.*/
func Terminator(term string) ClientOption {
	return func(c *Client) { c.term = []byte(term) }
}

/*Logger installs a zerolog logger; the Client and its Dispatcher trace each
exchange at debug level through it.  The default is a nop.*/
func Logger(log zerolog.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

/*CommandSet merges extra named commands into the Client's set, on top of the
builtins.  Later merges win on name collisions.*/
func CommandSet(cmds Commands) ClientOption {
	return func(c *Client) { c.cmds = Merge(c.cmds, cmds) }
}

/*NewClient wraps the transport Handle h in a Client.  h may speak either
calling convention; the right adapter is bound here, once, and the Client
behaves identically either way.*/
func NewClient(h Handle, opts ...ClientOption) (*Client, error) {
	d, err := NewDispatcher(h)
	if err != nil {
		return nil, err
	}
	c := &Client{
		handle: h,
		d:      d,
		term:   []byte("\n"),
		cmds:   Builtin(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.d.SetLogger(c.log)
	return c, nil
}

/*String conforms to the fmt.Stringer interface*/
func (c *Client) String() string { return fmt.Sprintf("client over %s", c.handle) }

/*Open re-opens the underlying transport*/
func (c *Client) Open() error { return c.handle.Open() }

/*Close closes the underlying transport*/
func (c *Client) Close() error { return c.handle.Close() }

/*Commands returns a copy of the Client's command set, mostly so callers can
render listings without being able to mutate the live set*/
func (c *Client) Commands() Commands { return c.cmds.Clone() }

/*Run renders the named command with args, appends the line terminator, and
exchanges it.  The reply comes back raw (terminator stripped) after passing
the command's Reply shape check, when one is defined.  A fire-and-forget
command returns a nil reply.*/
func (c *Client) Run(ctx context.Context, name string, args ...interface{}) ([]byte, error) {
	cmd, ok := c.cmds[name]
	if !ok {
		return nil, errors.Errorf("no command named %q", name)
	}
	frame, err := cmd.Bytes(args...)
	if err != nil {
		return nil, err
	}
	reply, err := c.d.Exchange(ctx, append(frame, c.term...), cmd.ExpectReply)
	if err != nil {
		return nil, err
	}
	if cmd.Reply != nil && !cmd.Reply.Match(reply) {
		return nil, &ProtocolError{Command: name, Reason: "reply does not match " + cmd.Reply.String(), Raw: reply}
	}
	return reply, nil
}

/*Ask writes s with the line terminator appended and reads the single reply
line, as one guarded wire cycle.  It is the escape hatch for one-off queries
that are not worth a Command definition.*/
func (c *Client) Ask(ctx context.Context, s string) ([]byte, error) {
	return c.d.Exchange(ctx, append([]byte(s), c.term...), true)
}

/*WriteString writes a string of characters down the line with no reply
expected, and returns the number of characters written.*/
func (c *Client) WriteString(ctx context.Context, s string) (int, error) {
	if _, err := c.d.Exchange(ctx, []byte(s), false); err != nil {
		return 0, err
	}
	return len(s), nil
}

/*WriteChars writes the bytes directly down the line with no reply expected,
and returns the number of bytes written.*/
func (c *Client) WriteChars(ctx context.Context, b []byte) (int, error) {
	if _, err := c.d.Exchange(ctx, b, false); err != nil {
		return 0, err
	}
	return len(b), nil
}

/*ReadLine reads one line from the device without sending anything first,
for devices that volunteer data on their own schedule.  The guard is held for
the whole read, so a concurrent command cannot steal the line.*/
func (c *Client) ReadLine(ctx context.Context) ([]byte, error) {
	return c.d.Exchange(ctx, nil, true)
}

/*Flush clears the transport's buffers per mode, if the transport knows how.
Transports without buffers to speak of (sockets) return ErrNoFlush.*/
func (c *Client) Flush(mode FlushMode) error {
	if f, ok := c.handle.(Flusher); ok {
		return f.Flush(mode)
	}
	return errors.Wrapf(ErrNoFlush, "%s", c.handle)
}
