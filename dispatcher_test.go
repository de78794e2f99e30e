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
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
)

/*traceHandle is a blocking transport that timestamps every wire touch so the
trace shows whether two commands' cycles ever interleaved.*/
type traceHandle struct {
	mu    sync.Mutex
	delay time.Duration
	wire  []string
	fail  error
}

func (th *traceHandle) String() string { return "trace transport" }
func (th *traceHandle) Open() error    { return nil }
func (th *traceHandle) Close() error   { return nil }

func (th *traceHandle) record(ev string) {
	th.mu.Lock()
	th.wire = append(th.wire, ev)
	th.mu.Unlock()
}

func (th *traceHandle) WriteReadline(buf []byte) ([]byte, error) {
	if th.fail != nil {
		return nil, th.fail
	}
	payload := strings.TrimRight(string(buf), "\n")
	th.record("tx>" + payload)
	time.Sleep(th.delay) //something not unlike a device thinking it over
	th.record("rx>" + payload)
	return []byte("ok " + payload + "\n"), nil
}

func (th *traceHandle) Write(buf []byte) error {
	if th.fail != nil {
		return th.fail
	}
	th.record("tx>" + strings.TrimRight(string(buf), "\n"))
	return nil
}

var _ Transport = &traceHandle{}

func TestDispatcherSerializes(t *testing.T) {
	th := &traceHandle{delay: 2 * time.Millisecond}
	d, err := NewDispatcher(th)
	if err != nil {
		t.Fatal("unable to build dispatcher:", err)
	}

	const n = 9
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := fmt.Sprintf("CMD%d\n", i)
			if _, err := d.Exchange(context.Background(), []byte(payload), true); err != nil {
				t.Error("exchange failed:", err)
			}
		}(i)
	}
	wg.Wait()

	if len(th.wire) != 2*n {
		t.Fatalf("expected %d wire events, got %d: %v", 2*n, len(th.wire), th.wire)
	}
	for i := 0; i < len(th.wire); i += 2 {
		tx, rx := th.wire[i], th.wire[i+1]
		if !strings.HasPrefix(tx, "tx>") || "rx>"+tx[3:] != rx {
			t.Fatalf("cycle %d interleaved on the wire: %v then %v (full trace %v)", i/2, tx, rx, th.wire)
		}
	}
}

func TestDispatcherCancelReleasesGuard(t *testing.T) {
	th := &traceHandle{delay: 50 * time.Millisecond}
	d, _ := NewDispatcher(th)

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		close(started)
		if _, err := d.Exchange(context.Background(), []byte("SLOW\n"), true); err != nil {
			t.Error("in-flight command should finish cleanly:", err)
		}
	}()
	<-started
	time.Sleep(5 * time.Millisecond) //let SLOW take the slot

	//a waiter that gives up must not leave the slot held
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if _, err := d.Exchange(ctx, []byte("IMPATIENT\n"), true); !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected the waiter to give up with the context's error, got", err)
	}

	<-done
	if _, err := d.Exchange(context.Background(), []byte("NEXT\n"), true); err != nil {
		t.Error("dispatcher should be usable after a cancelled waiter:", err)
	}
}

func TestDispatcherPropagatesUnchanged(t *testing.T) {
	boom := newErr(false, false, errors.New("connection closed"))
	th := &traceHandle{fail: boom}
	d, _ := NewDispatcher(th)

	if _, err := d.Exchange(context.Background(), []byte("Q\n"), true); !errors.Is(err, boom) {
		t.Error("transport error must propagate unchanged, got", err)
	}
	if _, err := d.Exchange(context.Background(), []byte("Q\n"), false); !errors.Is(err, boom) {
		t.Error("transport error must propagate unchanged on sends too, got", err)
	}

	//failure never wedges the guard
	th.fail = nil
	if reply, err := d.Exchange(context.Background(), []byte("Q\n"), true); err != nil || string(reply) != "ok Q" {
		t.Errorf("dispatcher should recover for the next command, got %q / %v", reply, err)
	}
}

func TestDispatcherSendHasNoReply(t *testing.T) {
	th := &traceHandle{}
	d, _ := NewDispatcher(th)
	reply, err := d.Exchange(context.Background(), []byte("RST\n"), false)
	if err != nil || reply != nil {
		t.Errorf("fire-and-forget should yield nil reply, got %q / %v", reply, err)
	}
}
