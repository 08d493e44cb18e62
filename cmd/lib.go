package main

import (
	"os"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"
)

// Exit is replaced by tests.
var Exit = os.Exit

// GetRunFn adapts fn to cobra's Run, logging any returned error and exiting with status 1.
func GetRunFn(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		if err := fn(cmd, args); err != nil {
			logger := log.MustLogger(cmd.Context())
			logger.Error("Failed", "err", err)
			if logDebugFile != nil {
				_ = logDebugFile.Close()
			}
			Exit(1)
		}
	}
}
