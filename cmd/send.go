package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"

	"github.com/cn5x/grbldecode/grbl"
	"github.com/cn5x/grbldecode/transport"
)

var realTimeCommandNames []string

// Wait after the last command for late push messages, such as [MSG:] after a real time command.
const sendSettleTime = 200 * time.Millisecond

var SendCmd = &cobra.Command{
	Use:   "send [command...]",
	Short: "Send commands to Grbl, and print the decoded replies.",
	Long: "Sends each real time command given with --real-time, followed by each command argument, " +
		"waiting for each to be replied. Real time commands are: " + strings.Join(transport.RealTimeCommandNames(), ", ") + ".",
	Run: GetRunFn(func(cmd *cobra.Command, args []string) (err error) {
		ctx, logger := log.MustWithAttrs(
			cmd.Context(),
			"port-name", portName,
			"address", address,
		)
		cmd.SetContext(ctx)

		if len(args) == 0 && len(realTimeCommandNames) == 0 {
			return errors.New("nothing to send")
		}
		realTimeCommands := make([]transport.RealTimeCommand, len(realTimeCommandNames))
		for i, name := range realTimeCommandNames {
			if realTimeCommands[i], err = transport.ParseRealTimeCommand(name); err != nil {
				return err
			}
		}

		connection, disconnect, err := connect(ctx, grbl.NewMachine(nil))
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, disconnect()) }()

		output := connection.Output()
		outputCh := output.Subscribe("send", 1024)
		printDone := make(chan struct{})
		go func() {
			defer close(printDone)
			for o := range outputCh {
				if o.Decoded == "" {
					continue
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), o.Decoded); err != nil {
					logger.Error("Failed to print output", "err", err)
				}
			}
		}()
		defer func() {
			output.Unsubscribe("send")
			<-printDone
		}()

		for _, command := range realTimeCommands {
			logger.Info("Sending real time command", "command", command)
			if err := connection.SendRealTimeCommand(command); err != nil {
				return err
			}
		}
		for _, command := range args {
			if err := sendCommand(ctx, connection, command); err != nil {
				return err
			}
		}

		select {
		case <-time.After(sendSettleTime):
		case <-ctx.Done():
			return context.Cause(ctx)
		}
		return nil
	}),
}

func init() {
	AddPortFlags(SendCmd)
	SendCmd.PersistentFlags().StringSliceVarP(&realTimeCommandNames, "real-time", "r", nil, "Real time command to send, may be repeated")

	RootCmd.AddCommand(SendCmd)

	resetFlagsFns = append(resetFlagsFns, func() {
		realTimeCommandNames = nil
	})
}
