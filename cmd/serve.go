package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"

	"github.com/cn5x/grbldecode/transport"
)

var listenAddress string
var defaultListenAddress = "127.0.0.1:9999"

// bridge pipes conn to a newly opened port, until either side closes.
func bridge(ctx context.Context, conn net.Conn, openPortFn transport.OpenPortFn) error {
	logger := log.MustLogger(ctx)

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			return fmt.Errorf("failed to set TCP no delay: %w", err)
		}
	}

	port, err := openPortFn(ctx)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	logger.Info("Copying I/O")
	go func() {
		_, err := io.Copy(conn, port)
		errCh <- err
	}()
	go func() {
		_, err := io.Copy(port, conn)
		errCh <- err
	}()

	pending := 2
	select {
	case err = <-errCh:
		pending--
	case <-ctx.Done():
	}
	logger.Info("Closing connection")
	err = errors.Join(err, conn.Close())
	logger.Info("Closing port")
	err = errors.Join(err, port.Close())
	logger.Info("Waiting for copy routines to return")
	for range pending {
		<-errCh
	}
	return err
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a TCP server connected to a serial port.",
	Long:  "Opens a TCP server, and pipes each accepted connection to the serial port, one at a time. Other commands reach it with --address. There's NO security implemented, this can only be used in secure networks at your own risk.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) (err error) {
		ctx, logger := log.MustWithAttrs(
			cmd.Context(),
			"port-name", portName,
			"listen-address", listenAddress,
		)
		cmd.SetContext(ctx)

		openPortFn := transport.OpenSerial(portName)

		logger.Info("Listening")
		var listenConfig net.ListenConfig
		listener, err := listenConfig.Listen(ctx, "tcp", listenAddress)
		if err != nil {
			return fmt.Errorf("failed to listen: %s: %w", listenAddress, err)
		}
		go func() {
			<-ctx.Done()
			_ = listener.Close()
		}()

		for {
			logger.Info("Accepting connection")
			conn, err := listener.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error("Failed to accept connection", "err", err)
				continue
			}
			connCtx, connLogger := log.MustWithGroupAttrs(
				ctx,
				"Connection",
				"LocalAddr", conn.LocalAddr(),
				"RemoteAddr", conn.RemoteAddr(),
			)
			connLogger.Info("Accepted")

			if err := bridge(connCtx, conn, openPortFn); err != nil {
				connLogger.Error("Connection failed", "err", err)
			}
		}
	}),
}

func init() {
	ServeCmd.PersistentFlags().StringVarP(&portName, "port-name", "p", defaultPortName, "Serial port name to open")
	if err := ServeCmd.MarkPersistentFlagRequired("port-name"); err != nil {
		panic(err)
	}
	ServeCmd.PersistentFlags().StringVar(&listenAddress, "listen-address", defaultListenAddress, "TCP address to listen on (host:port)")

	RootCmd.AddCommand(ServeCmd)

	resetFlagsFns = append(resetFlagsFns, func() {
		listenAddress = defaultListenAddress
	})
}
