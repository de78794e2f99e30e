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
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

/*Dispatcher serializes command traffic onto one transport.  It owns exactly
one Capability over exactly one Handle; multiple Dispatchers must never share
a Handle.  Its only mutable state is the single-slot guard: when two logical
commands are issued concurrently, one full request/reply cycle completes (or
fails) on the wire before the next begins, so command and reply bytes never
interleave.

The guard is a weighted semaphore rather than a mutex so a caller whose
context dies while waiting simply stops waiting - the slot is never left held
by a goroutine that unwound, and the next command cannot deadlock.*/
type Dispatcher struct {
	cap  Capability
	slot *semaphore.Weighted
	log  zerolog.Logger
}

/*NewDispatcher binds h to a Capability and wraps it in a Dispatcher.  The
Dispatcher does not own h's lifecycle: the caller created it and the caller
closes it.*/
func NewDispatcher(h Handle) (*Dispatcher, error) {
	c, err := NewCapability(h)
	if err != nil {
		return nil, err
	}
	return &Dispatcher{cap: c, slot: semaphore.NewWeighted(1), log: zerolog.Nop()}, nil
}

/*SetLogger installs a zerolog logger for per-exchange debug traces.  The
default is a nop.  Call before the Dispatcher goes into service.*/
func (d *Dispatcher) SetLogger(log zerolog.Logger) { d.log = log }

/*Exchange acquires exclusive access to the transport, performs one round
trip (or one write, when no reply is expected), releases, and returns the raw
reply bytes with the line delimiter stripped - or nil when expectReply is
false.  The payload goes out verbatim: framing, terminators, and command
syntax are the caller's business.

Errors from the capability propagate unchanged - no retries, no rewriting.
A failed Exchange leaves the Dispatcher ready for the next command.*/
func (d *Dispatcher) Exchange(ctx context.Context, payload []byte, expectReply bool) ([]byte, error) {
	if err := d.slot.Acquire(ctx, 1); err != nil {
		return nil, err //gave up waiting: the slot was never ours
	}
	defer d.slot.Release(1)

	start := time.Now()
	if !expectReply {
		err := d.cap.Send(ctx, payload)
		d.log.Debug().Bytes("tx", payload).Dur("took", time.Since(start)).Err(err).Msg("send")
		return nil, err
	}
	reply, err := d.cap.RequestReply(ctx, payload)
	d.log.Debug().Bytes("tx", payload).Bytes("rx", reply).Dur("took", time.Since(start)).Err(err).Msg("exchange")
	return reply, err
}
