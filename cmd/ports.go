package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cn5x/grbldecode/transport"
)

var PortsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports available to --port-name.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		ports, err := transport.ListSerialPorts()
		if err != nil {
			return err
		}
		for _, port := range ports {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), port); err != nil {
				return err
			}
		}
		return nil
	}),
}

func init() {
	RootCmd.AddCommand(PortsCmd)
}
