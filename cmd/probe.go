package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"

	"github.com/cn5x/grbldecode/grbl"
)

var probeTimeout time.Duration
var defaultProbeTimeout = 2 * time.Minute

var ProbeCmd = &cobra.Command{
	Use:   "probe block",
	Short: "Run a probing cycle and print where the probe stopped.",
	Long:  "Sends a probing block, such as \"G38.2 Z-10 F50\", waits for the cycle to finish and prints the probed machine coordinates, comma separated, as Grbl reports them.",
	Args:  cobra.ExactArgs(1),
	Run: GetRunFn(func(cmd *cobra.Command, args []string) (err error) {
		block := args[0]
		ctx, logger := log.MustWithAttrs(
			cmd.Context(),
			"port-name", portName,
			"address", address,
			"block", block,
		)
		cmd.SetContext(ctx)

		machine := grbl.NewMachine(nil)
		connection, disconnect, err := connect(ctx, machine)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, disconnect()) }()

		logger.Info("Probing")
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		outcome, err := connection.Probe(probeCtx, block)
		if err != nil {
			return err
		}

		switch outcome.Outcome {
		case grbl.OutcomeProbe:
		case grbl.OutcomeError, grbl.OutcomeAlarm:
			return fmt.Errorf("probe failed: %s", outcome.Line)
		default:
			return fmt.Errorf("probe failed: %s", outcome.Outcome)
		}
		if !outcome.Success {
			return errors.New("probe failed: no contact")
		}

		probe := machine.ProbeResult()
		if probe == nil {
			return errors.New("probe failed: no probe result decoded")
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), probe.Coordinates.Sprint(probe.Axes))
		return err
	}),
}

func init() {
	AddPortFlags(ProbeCmd)
	ProbeCmd.PersistentFlags().DurationVar(&probeTimeout, "probe-timeout", defaultProbeTimeout, "Timeout for the probing cycle to finish")

	RootCmd.AddCommand(ProbeCmd)

	resetFlagsFns = append(resetFlagsFns, func() {
		probeTimeout = defaultProbeTimeout
	})
}
