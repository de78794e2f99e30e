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
	"bytes"
	"context"
	"testing"
	"time"

	"go.bug.st/serial"
)

/*fakePort is a scriptable serial.Port: reads pop bytes off a queue, an empty
queue reads as the zero-byte result a real port produces on timeout.*/
type fakePort struct {
	pending  []byte
	wrote    bytes.Buffer
	drained  bool
	resetIn  bool
	closed   bool
	writeErr error
}

func (fp *fakePort) SetMode(*serial.Mode) error { return nil }
func (fp *fakePort) Read(p []byte) (int, error) {
	if len(fp.pending) == 0 {
		return 0, nil //port timeout behavior
	}
	n := copy(p, fp.pending)
	fp.pending = fp.pending[n:]
	return n, nil
}
func (fp *fakePort) Write(p []byte) (int, error) {
	if fp.writeErr != nil {
		return 0, fp.writeErr
	}
	return fp.wrote.Write(p)
}
func (fp *fakePort) Drain() error             { fp.drained = true; return nil }
func (fp *fakePort) ResetInputBuffer() error  { fp.resetIn = true; return nil }
func (fp *fakePort) ResetOutputBuffer() error { return nil }
func (fp *fakePort) SetDTR(dtr bool) error    { return nil }
func (fp *fakePort) SetRTS(rts bool) error    { return nil }
func (fp *fakePort) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return &serial.ModemStatusBits{}, nil
}
func (fp *fakePort) SetReadTimeout(t time.Duration) error { return nil }
func (fp *fakePort) Close() error                         { fp.closed = true; return nil }
func (fp *fakePort) Break(d time.Duration) error          { return nil }

var _ = serial.Port(&fakePort{})

//Flush(FlushOutput) leans on Port.Drain, which only exists since v1.6
var _ func(serial.Port) error = serial.Port.Drain

/*withFakePort swaps the package's port opener for one returning fp, and
hands back a restore func*/
func withFakePort(fp *fakePort) func() {
	orig := serialOpen
	serialOpen = func(dev string, mode *serial.Mode) (serial.Port, error) { return fp, nil }
	return func() { serialOpen = orig }
}

func TestNewSerialTransport(t *testing.T) {
	fp := &fakePort{}
	defer withFakePort(fp)()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := NewSerialTransport(ctx, 0, "tcp://not-a-serial-thing:9600"); err == nil {
		t.Error("Bad dial string should fail")
	}

	st, err := NewSerialTransport(ctx, 100*time.Millisecond, "serial:///dev/ttyFake:57600")
	if err != nil {
		t.Fatal("Shouldnt get an error:", err)
	}
	_ = st.String()

	//replies terminate with the default newline, a carriage return
	fp.pending = []byte("PONG\r")
	line, err := st.WriteReadline([]byte("PING\r"))
	if err != nil || !bytes.Equal(line, []byte("PONG\r")) {
		t.Errorf("wanted %q, got %q / %v", "PONG\r", line, err)
	}
	if fp.wrote.String() != "PING\r" {
		t.Errorf("wrote %q on the wire, wanted %q", fp.wrote.String(), "PING\r")
	}

	//a port that dries up before the delimiter is a timeout, not a fragment
	fp.pending = []byte("PON")
	if _, err := st.WriteReadline([]byte("PING\r")); err == nil || !IsTimeout(err) {
		t.Error("partial line should surface as a timeout, got", err)
	}

	if err := st.Close(); err != nil {
		t.Error("Should have returned a nil error:", err)
	}
	if !fp.closed {
		t.Error("Close should close the port")
	}
}

func TestSerialOptions(t *testing.T) {
	fp := &fakePort{}
	defer withFakePort(fp)()
	ctx := context.Background()

	st, err := NewSerialTransport(ctx, 0, "serial:///dev/ttyFake:9600",
		CharLength(7), Parity("even"), StopBits(2), Newline('\n'))
	if err != nil {
		t.Fatal("valid options should construct:", err)
	}
	if st.mode.DataBits != 7 || st.mode.Parity != serial.EvenParity || st.mode.StopBits != serial.TwoStopBits || st.newline != '\n' {
		t.Error("options were not applied:", st.mode, st.newline)
	}

	bad := []SerialOption{
		CharLength(9),
		Parity("dunno"),
		StopBits(3),
	}
	for i, opt := range bad {
		if _, err := NewSerialTransport(ctx, 0, "serial:///dev/ttyFake:9600", opt); err == nil {
			t.Errorf("bad option %d should fail construction", i)
		}
	}
}

func TestSerialFlush(t *testing.T) {
	fp := &fakePort{}
	defer withFakePort(fp)()

	st, err := NewSerialTransport(context.Background(), 0, "serial:///dev/ttyFake:9600")
	if err != nil {
		t.Fatal(err)
	}

	if err := st.Flush(FlushInput); err != nil || !fp.resetIn {
		t.Error("FlushInput should reset the input buffer:", err)
	}
	fp.resetIn, fp.drained = false, false
	if err := st.Flush(FlushOutput); err != nil || !fp.drained {
		t.Error("FlushOutput should drain:", err)
	}
	fp.resetIn, fp.drained = false, false
	if err := st.Flush(FlushBoth); err != nil || !fp.drained || !fp.resetIn {
		t.Error("FlushBoth should drain then reset:", err)
	}
	if err := st.Flush(FlushMode(42)); err == nil {
		t.Error("an unknown flush mode should error")
	}
}

func TestSerialDeadContext(t *testing.T) {
	fp := &fakePort{}
	defer withFakePort(fp)()

	ctx, cancel := context.WithCancel(context.Background())
	st, err := NewSerialTransport(ctx, 0, "serial:///dev/ttyFake:9600")
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	if err := st.Write([]byte("x\r")); err == nil {
		t.Error("Write on a dead context should fail")
	}
	if err := st.Open(); err == nil {
		t.Error("Should always get an error on a dead context")
	}
}
