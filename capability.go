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
	"bytes"
	"context"

	"github.com/pkg/errors"
)

/*Capability is the one calling convention the rest of this package is
written against: suspending, context-first.  RequestReply performs exactly
one write-then-read-a-line round trip and returns the reply with its trailing
line delimiter stripped; Send performs exactly one write.  Neither buffers
nor batches anything across calls.

A reply that is empty once the delimiter is stripped fails with
ErrEmptyReply; transport failures pass through unchanged.*/
type Capability interface {
	RequestReply(ctx context.Context, frame []byte) ([]byte, error)
	Send(ctx context.Context, frame []byte) error
}

/*NewCapability binds a transport Handle to the Capability shape.  Which
adapter wraps it is decided here, once, by the convention the Handle actually
speaks - a ContextTransport is taken as-is modulo plumbing, a blocking
Transport gets its calls fenced by a pre-flight context check.  A Handle
speaking neither convention is an error, not a guess.*/
func NewCapability(h Handle) (Capability, error) {
	switch t := h.(type) {
	case ContextTransport:
		return &suspendCap{t: t}, nil
	case Transport:
		return &blockCap{t: t}, nil
	default:
		return nil, errors.Errorf("transport %T speaks neither the blocking nor the suspending convention", h)
	}
}

/*chomp strips the trailing line delimiter bytes and flags empty replies.
A bare delimiter - the device pressing enter at us - is an empty reply.*/
func chomp(line []byte) ([]byte, error) {
	trimmed := bytes.TrimRight(line, "\r\n")
	if len(trimmed) == 0 {
		return nil, ErrEmptyReply
	}
	return trimmed, nil
}

/*suspendCap adapts a ContextTransport: the context threads straight through,
and the transport's own machinery honors it mid-flight.*/
type suspendCap struct {
	t ContextTransport
}

func (s *suspendCap) RequestReply(ctx context.Context, frame []byte) ([]byte, error) {
	line, err := s.t.WriteReadline(ctx, frame)
	if err != nil {
		return nil, err
	}
	return chomp(line)
}

func (s *suspendCap) Send(ctx context.Context, frame []byte) error {
	return s.t.Write(ctx, frame)
}

/*blockCap adapts a blocking Transport.  The call occupies the calling
goroutine for the full round trip; the context is only consulted before the
wire is touched, since a blocking transport cannot be interrupted mid-call -
it is expected to enforce its own configured timeout instead.*/
type blockCap struct {
	t Transport
}

func (b *blockCap) RequestReply(ctx context.Context, frame []byte) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, newErr(false, false, ctx.Err())
	default:
	}
	line, err := b.t.WriteReadline(frame)
	if err != nil {
		return nil, err
	}
	return chomp(line)
}

func (b *blockCap) Send(ctx context.Context, frame []byte) error {
	select {
	case <-ctx.Done():
		return newErr(false, false, ctx.Err())
	default:
	}
	return b.t.Write(frame)
}
