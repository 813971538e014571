// Command streamcodec compresses, decompresses and verifies data with the
// streaming transform driver.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
)

// CLI defines the streamcodec command-line interface.
type CLI struct {
	Globals

	Compress   CompressCmd   `cmd:"" help:"Compress a file or stdin."`
	Decompress DecompressCmd `cmd:"" help:"Decompress a file or stdin, detecting the codec if none is given."`
	Verify     VerifyCmd     `cmd:"" help:"Round trip a file through one or more codecs and report the result."`
	Detect     DetectCmd     `cmd:"" help:"Print the codec that produced a compressed file."`
	Probe      ProbeCmd      `cmd:"" help:"Periodically round trip built-in payloads through every codec."`
	Codecs     CodecsCmd     `cmd:"" help:"List the available codecs."`
}

// streams are the command's standard input and output.
type streams struct {
	in  io.Reader
	out io.Writer
}

func main() {
	if err := execute(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "streamcodec:", err)
		os.Exit(1)
	}
}

func execute(args []string, stdin io.Reader, stdout io.Writer) error {
	var cli CLI

	parser, err := kong.New(&cli,
		kong.Name("streamcodec"),
		kong.Description("Bounded streaming compression and round trip verification."),
		kong.UsageOnError(),
	)
	if err != nil {
		return err
	}

	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	return ctx.Run(&cli.Globals, &streams{in: stdin, out: stdout})
}
