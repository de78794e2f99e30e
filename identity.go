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
	"regexp"
	"strings"
)

const idnName = "*IDN?"

/*Builtin returns the command set every Client starts with.  Currently that
is just the IEEE 488.2 identity query; device-specific vocabularies get
merged on top via CommandSet.*/
func Builtin() Commands {
	return Commands{
		idnName: {
			Name:          idnName,
			Prototype:     "*IDN?",
			CommandRegexp: regexp.MustCompile(`^\*IDN\?$`),
			ExpectReply:   true,
			Description:   "IEEE 488.2 identity query",
		},
	}
}

/*Identity is a decoded *IDN? reply: the four comma-separated fields every
488.2 instrument answers with.*/
type Identity struct {
	Vendor  string
	Model   string
	Serial  string
	Version string
}

//String implements the Stringer interface
func (id Identity) String() string {
	return fmt.Sprintf("%s %s (serial %s, version %s)", id.Vendor, id.Model, id.Serial, id.Version)
}

/*parseIdentity decodes one raw reply line (delimiter already stripped) into
an Identity.  Decoding is pure: same bytes in, same record out.  The reply
must be ASCII text with exactly four comma-separated fields; anything else is
a ProtocolError, never a truncated or garbage Identity.*/
func parseIdentity(raw []byte) (Identity, error) {
	for _, b := range raw {
		if b > 0x7f {
			return Identity{}, &ProtocolError{Command: idnName, Reason: "reply is not ASCII text", Raw: raw}
		}
	}
	fields := strings.Split(string(raw), ",")
	if len(fields) != 4 {
		return Identity{}, &ProtocolError{Command: idnName, Reason: fmt.Sprintf("want 4 comma separated fields, got %d", len(fields)), Raw: raw}
	}
	return Identity{
		Vendor:  strings.TrimSpace(fields[0]),
		Model:   strings.TrimSpace(fields[1]),
		Serial:  strings.TrimSpace(fields[2]),
		Version: strings.TrimSpace(fields[3]),
	}, nil
}

/*Identity issues the *IDN? query and decodes the reply.  Transport and
empty-reply failures propagate as-is; a reply of the wrong shape is a
ProtocolError.*/
func (c *Client) Identity(ctx context.Context) (Identity, error) {
	reply, err := c.Run(ctx, idnName)
	if err != nil {
		return Identity{}, err
	}
	return parseIdentity(reply)
}
