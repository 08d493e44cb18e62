package main

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"

	"github.com/cn5x/grbldecode/grbl"
)

var SettingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read Grbl settings and print them with their descriptions.",
	Long:  "Sends $$ and prints every setting reported, one per line, as \"$N=V\" followed by the setting name, unit and description.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) (err error) {
		ctx, logger := log.MustWithAttrs(
			cmd.Context(),
			"port-name", portName,
			"address", address,
			"output", outputValue.String(),
		)
		cmd.SetContext(ctx)

		output, err := outputValue.Open(cmd)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, output.Close()) }()

		machine := grbl.NewMachine(nil)
		connection, disconnect, err := connect(ctx, machine)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, disconnect()) }()

		logger.Info("Requesting settings")
		if err := sendCommand(ctx, connection, "$$"); err != nil {
			return err
		}

		settings := machine.Snapshot().Settings
		for _, number := range slices.Sorted(maps.Keys(settings)) {
			if _, err := fmt.Fprintf(
				output, "$%d=%s\t%s\n", number, settings[number], grbl.SettingDescription(number),
			); err != nil {
				return err
			}
		}
		return nil
	}),
}

func init() {
	AddPortFlags(SettingsCmd)
	AddOutputFlags(SettingsCmd)

	RootCmd.AddCommand(SettingsCmd)
}
