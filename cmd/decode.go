package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"

	"github.com/cn5x/grbldecode/grbl"
	"github.com/cn5x/grbldecode/transport"
)

var printEvents bool
var defaultPrintEvents = false

// decodeLines decodes every line read from r, writing decoded output to w.
func decodeLines(ctx context.Context, r io.Reader, w io.Writer) error {
	var writeErr error
	machine := grbl.NewMachine(grbl.NotifierFunc(func(ctx context.Context, event grbl.Event) {
		if printEvents && writeErr == nil {
			_, writeErr = fmt.Fprintf(w, "# %s %+v\n", event.Name(), event)
		}
	}))
	decoder := transport.NewLineDecoder(machine)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		decoded := decoder.Decode(ctx, line)
		if writeErr != nil {
			return writeErr
		}
		if decoded == "" {
			continue
		}
		if _, err := fmt.Fprintln(w, decoded); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read error: %w", err)
	}
	return writeErr
}

var DecodeCmd = &cobra.Command{
	Use:   "decode [path]",
	Short: "Decode lines received from Grbl.",
	Long:  "Reads lines as sent by Grbl from the given file, or from stdin, and prints what each one means.",
	Args:  cobra.MaximumNArgs(1),
	Run: GetRunFn(func(cmd *cobra.Command, args []string) (err error) {
		var input io.Reader = cmd.InOrStdin()
		path := "(STDIN)"
		if len(args) > 0 {
			path = args[0]
			var file *os.File
			file, err = os.Open(path)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, file.Close()) }()
			input = file
		}

		ctx, logger := log.MustWithAttrs(cmd.Context(), "path", path, "output", outputValue.String())
		cmd.SetContext(ctx)

		output, err := outputValue.Open(cmd)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, output.Close()) }()

		logger.Debug("Decoding")
		return decodeLines(ctx, input, output)
	}),
}

func init() {
	AddOutputFlags(DecodeCmd)
	DecodeCmd.PersistentFlags().BoolVarP(&printEvents, "events", "e", defaultPrintEvents, "Also print machine state changes, as comments")

	RootCmd.AddCommand(DecodeCmd)

	resetFlagsFns = append(resetFlagsFns, func() {
		printEvents = defaultPrintEvents
	})
}
