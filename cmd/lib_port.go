package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"

	"github.com/cn5x/grbldecode/grbl"
	"github.com/cn5x/grbldecode/transport"
)

var portName string
var defaultPortName = ""

var address string
var defaultAddress = ""

var timeout time.Duration
var defaultTimeout = 5 * time.Second

var softReset bool
var defaultSoftReset = false

func AddPortFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&portName, "port-name", "p", defaultPortName, "Serial port name to open")
	cmd.PersistentFlags().StringVarP(&address, "address", "a", defaultAddress, "TCP address to connect to, as served by the serve command")
	cmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", defaultTimeout, "Timeout for connecting, and for Grbl to reply to each command")
	cmd.PersistentFlags().BoolVar(&softReset, "soft-reset", defaultSoftReset, "Soft-reset Grbl after connecting, and wait for its welcome message")
}

func GetOpenPortFn() (transport.OpenPortFn, error) {
	if portName != "" && address != "" {
		return nil, errors.New("flags --port-name and --address can not be set simultaneously")
	}

	if portName != "" {
		return transport.OpenSerial(portName), nil
	}

	if address != "" {
		return transport.DialTCP(address, timeout), nil
	}

	return nil, errors.New("either --port-name or --address must be set")
}

// connect opens a Connection tracking state in machine. The returned function must be called
// to disconnect.
func connect(ctx context.Context, machine *grbl.Machine) (*transport.Connection, func() error, error) {
	openPortFn, err := GetOpenPortFn()
	if err != nil {
		return nil, nil, err
	}

	connection := transport.NewConnection(openPortFn, machine)
	if err := connection.Connect(ctx); err != nil {
		return nil, nil, err
	}
	disconnect := func() error {
		return connection.Disconnect(ctx)
	}

	if softReset {
		resetCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := connection.SoftReset(resetCtx); err != nil {
			return nil, nil, errors.Join(err, disconnect())
		}
	}

	log.MustLogger(ctx).Info("Connected")
	return connection, disconnect, nil
}

// sendCommand sends command expecting it to be replied with ok.
func sendCommand(ctx context.Context, connection *transport.Connection, command string) error {
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	reply, err := connection.SendCommand(sendCtx, command)
	if err != nil {
		return err
	}
	if reply.Outcome != grbl.OutcomeOK {
		return fmt.Errorf("command %#v failed: %s", command, reply.Line)
	}
	return nil
}

func init() {
	resetFlagsFns = append(resetFlagsFns, func() {
		portName = defaultPortName
		address = defaultAddress
		timeout = defaultTimeout
		softReset = defaultSoftReset
	})
}
