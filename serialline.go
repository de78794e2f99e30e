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
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

var _ Transport = &SerialTransport{}
var _ Flusher = &SerialTransport{}
var serialRe = regexp.MustCompile(`^(?:rs232|serial)://([^:]*):([0-9]+)$`)

//serialOpen is swapped out by tests to avoid needing physical hardware
var serialOpen = serial.Open

/*SerialTransport wraps a serial port into a line-framed blocking Transport.
It also implements Flusher, since serial ports accumulate garbage in their
buffers like nothing else does.*/
type SerialTransport struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	mode    *serial.Mode
	newline byte
	dev     string
	conn    serial.Port
}

/*SerialOption tweaks the line discipline of a SerialTransport before it
opens.  Each option validates its value; an out-of-range value fails
construction rather than silently picking something.*/
type SerialOption func(*SerialTransport) error

/*CharLength sets the character length in bits: 8, 7, 6 or 5.*/
func CharLength(bits int) SerialOption {
	return func(st *SerialTransport) error {
		switch bits {
		case 5, 6, 7, 8:
			st.mode.DataBits = bits
			return nil
		}
		return errors.Errorf("charlength has to be 5, 6, 7 or 8 bits, passed %d", bits)
	}
}

/*Parity sets the parity: "none" (or "empty"), "even" or "odd".*/
func Parity(parity string) SerialOption {
	return func(st *SerialTransport) error {
		switch strings.ToLower(parity) {
		case "none", "empty":
			st.mode.Parity = serial.NoParity
		case "even":
			st.mode.Parity = serial.EvenParity
		case "odd":
			st.mode.Parity = serial.OddParity
		default:
			return errors.Errorf("parity has to be 'none', 'empty', 'even' or 'odd', passed %q", parity)
		}
		return nil
	}
}

/*StopBits sets the number of stop bits: 1, 1.5 or 2.*/
func StopBits(bits float64) SerialOption {
	return func(st *SerialTransport) error {
		switch bits {
		case 1:
			st.mode.StopBits = serial.OneStopBit
		case 1.5:
			st.mode.StopBits = serial.OnePointFiveStopBits
		case 2:
			st.mode.StopBits = serial.TwoStopBits
		default:
			return errors.Errorf("stopbits has to be 1, 1.5 or 2, passed %v", bits)
		}
		return nil
	}
}

/*Newline sets the end-of-line byte the device terminates replies with.
The default is 13 (carriage return), which is what most serial instruments
actually emit no matter what their manual claims.*/
func Newline(b byte) SerialOption {
	return func(st *SerialTransport) error {
		st.newline = b
		return nil
	}
}

/*NewSerialTransport opens a connection to a serial device, by default in 8N1
mode with a carriage-return line delimiter; options adjust all of that.
Dial should be in the form of "serial://<device>:<baud>".  timeout bounds how
long a read waits for the delimiter before giving up.*/
func NewSerialTransport(ctx context.Context, timeout time.Duration, dial string, opts ...SerialOption) (*SerialTransport, error) {
	if !serialRe.MatchString(dial) {
		return nil, newErr(false, false, fmt.Errorf("dial string not in correct form"))
	}
	matches := serialRe.FindAllStringSubmatch(dial, -1) //capture groups used
	baud, _ := strconv.ParseInt(matches[0][2], 10, 64)
	nctx, cancel := context.WithCancel(ctx)

	st := &SerialTransport{
		ctx:     nctx,
		cancel:  cancel,
		timeout: timeout,
		mode: &serial.Mode{
			BaudRate: int(baud),
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
		newline: 13,
		dev:     matches[0][1],
	}
	for _, opt := range opts {
		if err := opt(st); err != nil {
			cancel()
			return nil, newErr(false, false, err)
		}
	}
	return st, st.Open()
}

/*String conforms to the fmt.Stringer interface*/
func (st *SerialTransport) String() string {
	return fmt.Sprintf("serial line connection to %v:%d", st.dev, st.mode.BaudRate)
}

/*Open forcibly closes any previously open port (ignoring errors) and attempts
the connect process again.  It returns an error if it was unable to start*/
func (st *SerialTransport) Open() (err error) {
	select {
	case <-st.ctx.Done():
		return newErr(false, false, st.ctx.Err())
	default:
	}
	if st.conn != nil {
		st.conn.Close()
		st.conn = nil
	}
	if st.conn, err = serialOpen(st.dev, st.mode); err != nil {
		return newErr(false, false, errors.Wrapf(err, "unable to open serial device %q", st.dev))
	}
	if st.timeout > 0 {
		if err = st.conn.SetReadTimeout(st.timeout); err != nil {
			return newErr(false, false, errors.Wrap(err, "unable to set read timeout"))
		}
	}
	return nil
}

/*WriteReadline writes buf (possibly empty) and then reads byte by byte until
the newline delimiter shows up.  The returned line includes the delimiter.  If
the port stops producing bytes before the delimiter arrives, that is a timeout
error and whatever fragment was read is discarded - partial lines are never
returned.*/
func (st *SerialTransport) WriteReadline(buf []byte) ([]byte, error) {
	if err := st.Write(buf); err != nil {
		return nil, err
	}
	line := make([]byte, 0, 64)
	one := make([]byte, 1)
	for {
		n, err := st.conn.Read(one)
		switch {
		case err == io.EOF || (err == nil && n == 0): //port timeout
			return nil, newErr(true, true, errors.Errorf("gave up after %d bytes waiting for delimiter %q", len(line), st.newline))
		case err != nil:
			return nil, newErr(false, false, err)
		}
		line = append(line, one[0])
		if one[0] == st.newline {
			return line, nil
		}
	}
}

/*Write conforms to the Transport contract, but immediately returns upon ctx
destruction after closing the underlying port*/
func (st *SerialTransport) Write(buf []byte) error {
	select {
	case <-st.ctx.Done():
		defer st.Close()
		return newErr(false, false, st.ctx.Err())
	default:
	}
	if st.conn == nil {
		return newErr(false, false, errors.New("broken connection"))
	}
	if len(buf) == 0 {
		return nil
	}
	n, err := st.conn.Write(buf)
	switch {
	case err == io.EOF:
		return newErr(true, true, err)
	case err != nil:
		return newErr(false, false, err)
	case n != len(buf):
		return newErr(false, false, errors.Errorf("wrote %d of %d bytes", n, len(buf)))
	}
	return nil
}

/*Flush clears the port's buffers per mode: FlushInput discards pending
receive bytes, FlushOutput waits for queued transmit bytes to drain, and
FlushBoth does both in that order.*/
func (st *SerialTransport) Flush(mode FlushMode) error {
	if st.conn == nil {
		return newErr(false, false, errors.New("broken connection"))
	}
	switch mode {
	case FlushInput:
		return st.conn.ResetInputBuffer()
	case FlushOutput:
		return st.conn.Drain()
	case FlushBoth:
		if err := st.conn.Drain(); err != nil {
			return err
		}
		return st.conn.ResetInputBuffer()
	}
	return newErr(false, false, errors.Errorf("flush mode %d not valid", mode))
}

/*Close conforms to io.Closer, but immediately returns upon ctx
destruction after closing the underlying port*/
func (st *SerialTransport) Close() error {
	defer func() { st.conn = nil }()
	select {
	case <-st.ctx.Done():
		return newErr(false, false, st.ctx.Err()) //Context closed: return that error
	default:
		if st.conn != nil {
			return st.conn.Close()
		}
		return nil
	}
}
