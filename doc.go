/*Package serline is a command/response client for devices that speak a
line-oriented text protocol over some byte stream.  The usual suspects are lab
instruments and embedded controllers hanging off a serial line or a terminal
server: you shovel an ASCII command terminated by a newline down the wire, the
device answers with a single line, and everybody moves on.  This package
handles the shoveling so callers only deal in commands and decoded replies.

Purpose


Two things make this less trivial than fmt.Fprintf on a socket.  First, the
underlying transport may speak either of two calling conventions: a blocking
one (the call occupies the caller until the wire round trip finishes) or a
suspending one (the call takes a context and can be abandoned mid flight).
The Capability adapter normalizes both into one shape, bound once at
construction, so the Dispatcher and everything above it is written exactly
once.  Second, several goroutines may poke the same device at the same time,
and a device gets very confused when two commands interleave on the wire.
The Dispatcher holds a single-slot guard so one command's full request/reply
cycle completes before the next begins, and a caller that gives up waiting
releases its claim on the slot rather than wedging everybody behind it.

Implemented


Currently, the following dial schemes are implemented:
  tcp://<host:port> - Outgoing sockets of type tcp (either v4 or v6)
  tcp4://<host:port> - Outgoing sockets of type tcp v4
  tcp6://<host:port> - Outgoing sockets of type tcp v6
  serial://<device>:<baud> - Serial connection
  rs232://<device>:<baud> - Serial connection


Error Handling


Nothing in here retries, reconnects, or papers over a flaky wire.  Transport
failures, empty replies, and malformed replies each surface as their own
distinct error so the caller - who actually knows what the device is and what
a sane recovery looks like - can decide what to do.  A failed command leaves
the client perfectly usable for the next one.

*/
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
