package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"

	"github.com/cn5x/grbldecode/broker"
	"github.com/cn5x/grbldecode/eventstream"
	"github.com/cn5x/grbldecode/grbl"
	"github.com/cn5x/grbldecode/transport"
	"github.com/cn5x/grbldecode/worker"
)

var statusInterval time.Duration
var defaultStatusInterval = 200 * time.Millisecond

var httpAddress string
var defaultHttpAddress = ""

var logEvents bool
var defaultLogEvents = false

func printOutput(connection *transport.Connection, cmd *cobra.Command) func(context.Context) error {
	output := connection.Output()
	outputCh := output.Subscribe("monitor", 1024)
	return func(ctx context.Context) error {
		defer output.Unsubscribe("monitor")
		for {
			select {
			case <-ctx.Done():
				return nil
			case o, ok := <-outputCh:
				if !ok {
					return fmt.Errorf("connection lost: %w", grbl.ErrDisconnected)
				}
				// Status reports are polled continuously, and would flood the output.
				if transport.IsStatusReport(o.Line) || o.Decoded == "" {
					continue
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), o.Decoded); err != nil {
					return err
				}
			}
		}
	}
}

func logMachineEvents(events *broker.Broker[grbl.Event]) func(context.Context) error {
	eventCh := events.Subscribe("log", 1024)
	return func(ctx context.Context) error {
		defer events.Unsubscribe("log")
		logger := log.MustLogger(ctx)
		for {
			select {
			case <-ctx.Done():
				return nil
			case event, ok := <-eventCh:
				if !ok {
					return nil
				}
				logger.Info(event.Name(), "event", fmt.Sprintf("%+v", event))
			}
		}
	}
}

func queryGcode(connection *transport.Connection) func(context.Context) error {
	return func(ctx context.Context) error {
		for _, query := range []func(context.Context) (grbl.TerminalReply, error){
			connection.QueryGcodeState,
			connection.QueryGcodeParams,
		} {
			queryCtx, cancel := context.WithTimeout(ctx, timeout)
			reply, err := query(queryCtx)
			cancel()
			if err != nil {
				return err
			}
			if reply.Outcome != grbl.OutcomeOK {
				log.MustLogger(ctx).Warn("Query failed", "reply", reply.Line)
			}
		}
		// Returning would stop all other workers.
		<-ctx.Done()
		return nil
	}
}

func serveHTTP(server *eventstream.Server) func(context.Context) error {
	return func(ctx context.Context) error {
		logger := log.MustLogger(ctx)
		httpServer := &http.Server{
			Addr:    httpAddress,
			Handler: server,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("Listening")
			errCh <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("Shutting down")
		server.Close()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		if serveErr := <-errCh; !errors.Is(serveErr, http.ErrServerClosed) {
			err = errors.Join(err, serveErr)
		}
		return err
	}
}

var MonitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Connect to Grbl and track its state.",
	Long: "Connects to Grbl, polls its status and prints decoded messages. " +
		"With --http-address, the machine state and its changes are served over HTTP, " +
		"Server-Sent Events and WebSocket. There's NO security implemented, this can only be used in secure networks at your own risk.",
	Args: cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) (err error) {
		ctx, logger := log.MustWithAttrs(
			cmd.Context(),
			"port-name", portName,
			"address", address,
			"status-interval", statusInterval,
			"http-address", httpAddress,
		)
		cmd.SetContext(ctx)

		events := broker.NewBroker[grbl.Event]()
		defer events.Close()
		machine := grbl.NewMachine(grbl.NotifierFunc(func(ctx context.Context, event grbl.Event) {
			if err := events.Publish(event); err != nil && !errors.Is(err, broker.ErrNoSubscribers) {
				logger.Warn("Failed to publish event", "event", event.Name(), "err", err)
			}
		}))

		connection, disconnect, err := connect(ctx, machine)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, disconnect()) }()

		workers := worker.NewManager()
		workers.Add("Output", printOutput(connection, cmd))
		if logEvents {
			workers.Add("Events", logMachineEvents(events))
		}
		if httpAddress != "" {
			server := eventstream.NewServer(ctx, machine, events)
			workers.Add("Event Stream", server.Run)
			workers.Add("HTTP", serveHTTP(server))
		}
		workers.Add("Status Poll", func(ctx context.Context) error {
			return connection.PollStatus(ctx, statusInterval)
		})
		workers.Add("G-Code Query", queryGcode(connection))

		workers.Start(ctx)
		return workers.Wait(ctx)
	}),
}

func init() {
	AddPortFlags(MonitorCmd)
	MonitorCmd.PersistentFlags().DurationVarP(&statusInterval, "status-interval", "i", defaultStatusInterval, "Interval between status report queries")
	MonitorCmd.PersistentFlags().StringVar(&httpAddress, "http-address", defaultHttpAddress, "TCP address to serve machine state on (host:port)")
	MonitorCmd.PersistentFlags().BoolVar(&logEvents, "log-events", defaultLogEvents, "Log every machine state change")

	RootCmd.AddCommand(MonitorCmd)

	resetFlagsFns = append(resetFlagsFns, func() {
		statusInterval = defaultStatusInterval
		httpAddress = defaultHttpAddress
		logEvents = defaultLogEvents
	})
}
