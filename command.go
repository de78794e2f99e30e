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
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
)

/*Command is a named device operation: how to build its request frame and
what shape its reply must have.  A Command knows nothing about transports or
ordering - it only renders bytes and judges replies.*/
type Command struct {
	/*Name is the human name of the command, typically without any arguments.
	EG if the Prototype is something like "POS %d", the name should be something
	that makes sense for your average human being: like "Go to position"*/
	Name string

	/*Prototype is the command prototype that is fed, with any arguments, to
	fmt.Sprintf and converted to bytes to shovel down the line.  That is,
	    fmt.Sprintf(.Prototype, args...)
	is sent, with the client's line terminator appended.  Write Prototypes
	without the terminator.*/
	Prototype string

	/*CommandRegexp is the regex that the rendered command must match before
	being sent.  This works in conjunction with .Prototype in the following way
	such that c, defined by:
	     c := fmt.Sprintf(.Prototype, v ...interface{})
	must not contain %! (a sign of too many/few/wrong parameters), and
	     CommandRegexp.MatchString(c)
	must be true.  A nil CommandRegexp accepts any rendering.*/
	CommandRegexp *regexp.Regexp

	/*ExpectReply says whether the device answers this command with a line.
	When false the command is fire-and-forget.*/
	ExpectReply bool

	/*Reply is an optional regexp a received reply must match.  A reply that
	fails the match is a ProtocolError, not a success with odd bytes in it.
	nil accepts any reply.*/
	Reply *regexp.Regexp

	//Description is a human readable string briefly explaining the command's purpose
	Description string
}

/*sanitize derenders ASCII control seq to readable equivalents*/
func sanitize(i interface{}) string {
	var str string
	switch s := i.(type) {
	case *regexp.Regexp:
		if s == nil {
			return "-"
		}
		str = s.String()
	case string:
		str = s
	}
	return strings.Replace(strings.Replace(str, "\r", "\\r", -1), "\n", "\\n", -1)
}

//String implements the Stringer interface
func (c Command) String() string {
	return fmt.Sprintf("%s: Prototype:%q CommandRegexp:%q Reply:%q ExpectReply:%v", c.Name, sanitize(c.Prototype), sanitize(c.CommandRegexp), sanitize(c.Reply), c.ExpectReply)
}

/*Bytes returns the raw frame that should be sent to the device based on the
Command.Prototype and any optional arguments passed to it via
  fmt.Sprintf(.Prototype, v...)
If the resulting string contains any "%!" sequences, then this assumes the
command was not properly fed through fmt.Sprintf, and returns the package
error ErrBytesArgs.  This currently does not allow for embedded "%!"
sequences, which should be fixed via lexical analysis.

If .CommandRegexp is nil, any command formed (sans the above rule) is
acceptable.  If not, the formed command is compared against CommandRegexp,
and a mismatch returns the package error ErrBytesFormat.

BUG: Current implementation disallows handling of commands with "%!" sequences
*/
func (c Command) Bytes(v ...interface{}) ([]byte, error) {
	str := fmt.Sprintf(c.Prototype, v...)
	//checking for wrong, or invalid arguments
	if strings.Contains(str, "%!") {
		return []byte(str), ErrBytesArgs
	}
	//make sure whatever we stuffed matches the provided regexp
	if c.CommandRegexp != nil && !c.CommandRegexp.MatchString(str) {
		return []byte(str), ErrBytesFormat
	}
	return []byte(str), nil
}

//Commands is a map of Command structures where the key should be Command.Name
type Commands map[string]Command

//String implements the Stringer() interface
func (c Commands) String() (r string) {
	cmds := sort.StringSlice{}
	for cmd := range c {
		cmds = append(cmds, cmd)
	}
	cmds.Sort()

	buf := bytes.NewBufferString("")
	tw := tablewriter.NewWriter(buf)
	tw.SetAutoWrapText(false)
	tw.SetHeader([]string{"Name", "Prototype", "Command Regex", "Reply Regex", "Expects Reply", "Description"})

	for _, cc := range cmds {
		cmd := c[cc]
		tw.Append([]string{
			cc,
			sanitize(cmd.Prototype),
			sanitize(cmd.CommandRegexp),
			sanitize(cmd.Reply),
			fmt.Sprintf("%v", cmd.ExpectReply),
			cmd.Description,
		})
	}
	tw.Render()
	return buf.String()
}

//JSONLabels returns a json array of the stored command names
func (c Commands) JSONLabels() (r string) {
	r = "["
	i := 0
	for lab := range c {
		switch i {
		default:
			r += ","
		case 0:
		}
		i++
		r += fmt.Sprintf("%q", lab)
	}
	r += "]"
	return
}

/*Contains returns true if the command set contains all of the passed named
commands.  It checks the key values, not the embedded Command.Name values*/
func (c Commands) Contains(named ...string) bool {
	if c == nil || len(named) == 0 {
		return false
	}
	for _, name := range named {
		if _, ok := c[name]; !ok {
			return false
		}
	}
	return true
}

/*Clone returns a deep copy of the Commands*/
func (c Commands) Clone() Commands {
	r := Commands{}
	for name, cmd := range c {
		r[name] = cmd
	}
	return r
}

/*Merge takes multiple command sets and returns a single command set.  Later
sets win on name collisions.*/
func Merge(cmds ...Commands) Commands {
	c := Commands{}
	for _, cmdset := range cmds {
		for name, cmd := range cmdset {
			c[name] = cmd
		}
	}
	return c
}
