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

/*serline is a small poke-the-device tool: dial a serial or socket device,
query its identity, or shovel a raw frame at it and see what comes back.*/
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kingpin"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/ctrlio/serline"
)

var (
	app     = kingpin.New("serline", "Line-oriented command/response client for serial and socket devices")
	dial    = app.Flag("dial", "Dial string, eg tcp://localhost:5000 or serial:///dev/ttyUSB0:9600").Default("tcp://localhost:5000").String()
	timeout = app.Flag("timeout", "Per-operation wire timeout").Default("500ms").Duration()
	term    = app.Flag("terminator", `Line terminator appended to commands (\n and \r escapes accepted)`).Default(`\n`).String()
	cfgFile = app.Flag("config", "Serial profile file (charlength, parity, stopbits, newline)").String()
	debug   = app.Flag("debug", "Trace every exchange").Bool()

	idn = app.Command("idn", "Query and print the device identity")

	raw      = app.Command("raw", "Send one raw frame")
	rawFrame = raw.Arg("frame", "Frame to send, without terminator").Required().String()
	rawWait  = raw.Flag("wait", "Await a one line reply and print it").Bool()

	list = app.Command("list", "Print the built-in command table")
)

func main() {
	selected := kingpin.MustParse(app.Parse(os.Args[1:]))

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	if *debug {
		log = log.Level(zerolog.DebugLevel)
	}

	ctx := context.Background()
	handle, err := dialHandle(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("dial", *dial).Msg("unable to dial")
	}
	defer handle.Close()

	client, err := serline.NewClient(handle, serline.Terminator(unescape(*term)), serline.Logger(log))
	if err != nil {
		log.Fatal().Err(err).Msg("unable to build client")
	}
	log.Debug().Stringer("transport", handle).Msg("connected")

	switch selected {
	case idn.FullCommand():
		ident, err := client.Identity(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("identity query failed")
		}
		fmt.Println(ident)

	case raw.FullCommand():
		if *rawWait {
			reply, err := client.Ask(ctx, *rawFrame)
			if err != nil {
				log.Fatal().Err(err).Msg("exchange failed")
			}
			fmt.Printf("%s\n", reply)
			return
		}
		if _, err := client.WriteString(ctx, *rawFrame+unescape(*term)); err != nil {
			log.Fatal().Err(err).Msg("write failed")
		}

	case list.FullCommand():
		fmt.Print(client.Commands())
	}
}

/*dialHandle resolves the dial flag into a transport.  A serial dial with a
config file gets the full profile treatment; everything else goes through the
scheme registry with defaults.*/
func dialHandle(ctx context.Context) (serline.Handle, error) {
	serialish := strings.HasPrefix(*dial, "serial://") || strings.HasPrefix(*dial, "rs232://")
	if !serialish || *cfgFile == "" {
		return serline.Dial(ctx, *timeout, *dial)
	}

	v := viper.New()
	v.SetConfigFile(*cfgFile)
	v.SetDefault("charlength", 8)
	v.SetDefault("parity", "none")
	v.SetDefault("stopbits", 1.0)
	v.SetDefault("newline", 13)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return serline.NewSerialTransport(ctx, *timeout, *dial,
		serline.CharLength(v.GetInt("charlength")),
		serline.Parity(v.GetString("parity")),
		serline.StopBits(v.GetFloat64("stopbits")),
		serline.Newline(byte(v.GetInt("newline"))),
	)
}

/*unescape turns the printable \n and \r the shell hands us into the real
control bytes*/
func unescape(s string) string {
	return strings.NewReplacer(`\n`, "\n", `\r`, "\r").Replace(s)
}
