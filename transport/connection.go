package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fornellas/slogxt/log"

	"github.com/cn5x/grbldecode/broker"
	"github.com/cn5x/grbldecode/grbl"
)

// Polling reads allow the receive worker to notice cancellation.
const readTimeout = 100 * time.Millisecond

// Output is a line received from Grbl, along with what the decoders made of it.
type Output struct {
	Line    string
	Decoded string
}

type signalBrokers struct {
	ok    *broker.Broker[string]
	error *broker.Broker[string]
	alarm *broker.Broker[string]
	probe *broker.Broker[string]
}

func newSignalBrokers() *signalBrokers {
	return &signalBrokers{
		ok:    broker.NewBroker[string](),
		error: broker.NewBroker[string](),
		alarm: broker.NewBroker[string](),
		probe: broker.NewBroker[string](),
	}
}

// forLine returns the broker signaling the given reply line, or nil if the line signals nothing.
func (s *signalBrokers) forLine(line string) *broker.Broker[string] {
	switch {
	case line == "ok":
		return s.ok
	case strings.HasPrefix(line, "error:"):
		return s.error
	case strings.HasPrefix(line, "ALARM:"):
		return s.alarm
	case strings.HasPrefix(line, "[PRB:"):
		return s.probe
	default:
		return nil
	}
}

func (s *signalBrokers) signals() grbl.Signals {
	return grbl.Signals{OK: s.ok, Error: s.error, Alarm: s.alarm, Probe: s.probe}
}

func (s *signalBrokers) close() {
	s.ok.Close()
	s.error.Close()
	s.alarm.Close()
	s.probe.Close()
}

// LineDecoder routes each received line to the status report or the response decoder.
type LineDecoder struct {
	status   *grbl.StatusReportDecoder
	response *grbl.ResponseDecoder
}

func NewLineDecoder(machine *grbl.Machine) *LineDecoder {
	return &LineDecoder{
		status:   grbl.NewStatusReportDecoder(machine),
		response: grbl.NewResponseDecoder(machine),
	}
}

// IsStatusReport returns whether line is a real time status report.
func IsStatusReport(line string) bool {
	return strings.HasPrefix(line, "<")
}

// Decode applies line to the machine state, returning what should be shown to the user.
func (d *LineDecoder) Decode(ctx context.Context, line string) string {
	if IsStatusReport(line) {
		return d.status.Decode(ctx, line)
	}
	return d.response.Decode(ctx, line)
}

// Connection feeds every line received from a Grbl controller to the decoders, in arrival order,
// and signals replies to waiting callers.
type Connection struct {
	openPortFn OpenPortFn
	machine    *grbl.Machine
	decoder    *LineDecoder

	mu               sync.Mutex
	port             Port
	receiveCtxCancel context.CancelFunc
	receiveErrCh     chan error
	signals          *signalBrokers
	output           *broker.Broker[Output]
}

// NewConnection creates a disconnected Connection. All decoded state goes to machine.
func NewConnection(openPortFn OpenPortFn, machine *grbl.Machine) *Connection {
	c := &Connection{
		openPortFn: openPortFn,
		machine:    machine,
		decoder:    NewLineDecoder(machine),
		signals:    newSignalBrokers(),
		output:     broker.NewBroker[Output](),
	}
	// Waits while disconnected resolve immediately.
	c.signals.close()
	c.output.Close()
	return c
}

func (c *Connection) Machine() *grbl.Machine {
	return c.machine
}

// Connect opens the port and starts receiving. Received lines are decoded until Disconnect is
// called or a read error happens. On read errors, all signals and the Output broker are closed,
// and Disconnect must still be called, returning the error.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port != nil {
		return errors.New("transport: already connected")
	}

	port, err := c.openPortFn(ctx)
	if err != nil {
		return err
	}

	if err := port.SetReadTimeout(readTimeout); err != nil {
		closeErr := port.Close()
		if closeErr != nil {
			closeErr = fmt.Errorf("transport: port close error: %w", closeErr)
		}
		return errors.Join(fmt.Errorf("transport: error setting read timeout: %w", err), closeErr)
	}

	c.port = port
	c.signals = newSignalBrokers()
	c.output = broker.NewBroker[Output]()
	c.receiveErrCh = make(chan error, 1)

	var receiveCtx context.Context
	receiveCtx, c.receiveCtxCancel = context.WithCancel(ctx)
	go c.receiveWorker(receiveCtx, &lineReader{port: port, buf: make([]byte, 256)}, c.signals, c.output, c.receiveErrCh)

	return nil
}

type lineReader struct {
	port    Port
	buf     []byte
	pending []byte
}

// ReadLine returns the next line, without its terminator.
func (r *lineReader) ReadLine(ctx context.Context) (string, error) {
	for {
		if i := bytes.IndexByte(r.pending, '\n'); i >= 0 {
			line := string(bytes.TrimSuffix(r.pending[:i], []byte("\r")))
			r.pending = r.pending[i+1:]
			return line, nil
		}
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("transport: receive: context error: %w", err)
		}
		n, err := r.port.Read(r.buf)
		if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
			return "", fmt.Errorf("transport: receive: read error: %w", err)
		}
		r.pending = append(r.pending, r.buf[:n]...)
	}
}

func (c *Connection) receiveWorker(
	ctx context.Context,
	reader *lineReader,
	signals *signalBrokers,
	output *broker.Broker[Output],
	errCh chan<- error,
) {
	var err error
	for {
		var line string
		line, err = reader.ReadLine(ctx)
		if err != nil {
			break
		}
		c.dispatch(ctx, line, signals, output)
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	} else {
		log.MustLogger(ctx).Error("Receive failed", "err", err)
	}
	signals.close()
	output.Close()
	errCh <- err
}

func (c *Connection) dispatch(
	ctx context.Context, line string, signals *signalBrokers, output *broker.Broker[Output],
) {
	logger := log.MustLogger(ctx)
	logger.Debug("Received", "line", line)

	decoded := c.decoder.Decode(ctx, line)
	if signal := signals.forLine(line); signal != nil {
		if err := signal.Publish(line); err != nil && !errors.Is(err, broker.ErrNoSubscribers) {
			logger.Warn("Failed to signal reply", "line", line, "err", err)
		}
	}

	if err := output.Publish(Output{Line: line, Decoded: decoded}); err != nil &&
		!errors.Is(err, broker.ErrNoSubscribers) {
		logger.Warn("Failed to publish output", "line", line, "err", err)
	}
}

// Signals returns the reply signals of the current connection.
func (c *Connection) Signals() grbl.Signals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signals.signals()
}

// Output returns the broker where every received line is published. It is closed on
// disconnection, and replaced on each Connect.
func (c *Connection) Output() *broker.Broker[Output] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.output
}

func (c *Connection) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return fmt.Errorf("transport: %w", grbl.ErrDisconnected)
	}
	n, err := c.port.Write(data)
	if err != nil {
		return fmt.Errorf("transport: write error: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("transport: write error: wrote %d bytes, expected %d", n, len(data))
	}
	return nil
}

// SendRealTimeCommand writes a real time command, which Grbl does not reply to.
func (c *Connection) SendRealTimeCommand(command RealTimeCommand) error {
	return c.write([]byte{byte(command)})
}

// SendCommand sends a single line command and blocks until it is replied with ok, error or an
// alarm. A reply outcome other than ok is not an error; the caller inspects it.
func (c *Connection) SendCommand(ctx context.Context, command string) (grbl.TerminalReply, error) {
	if strings.ContainsAny(command, "\r\n") {
		return grbl.TerminalReply{}, fmt.Errorf("transport: command must be a single line: %#v", command)
	}
	log.MustLogger(ctx).Debug("Sending command", "command", command)
	waiter := grbl.NewReplyWaiter(c.Signals())
	reply, err := waiter.AwaitTerminalReply(ctx, func() error {
		return c.write([]byte(command + "\n"))
	})
	if err != nil {
		return reply, fmt.Errorf("transport: command %#v: %w", command, err)
	}
	return reply, nil
}

// QueryGcodeParams sends $#, having its replies returned as decoded output.
func (c *Connection) QueryGcodeParams(ctx context.Context) (grbl.TerminalReply, error) {
	c.machine.RequestGcodeParams()
	return c.SendCommand(ctx, "$#")
}

// QueryGcodeState sends $G, having its reply returned as decoded output.
func (c *Connection) QueryGcodeState(ctx context.Context) (grbl.TerminalReply, error) {
	c.machine.RequestGcodeState()
	return c.SendCommand(ctx, "$G")
}

// Probe sends a probing block, such as "G38.2 Z-10 F50", and blocks until the probe cycle ends.
func (c *Connection) Probe(ctx context.Context, block string) (grbl.ProbeOutcome, error) {
	if strings.ContainsAny(block, "\r\n") {
		return grbl.ProbeOutcome{}, fmt.Errorf("transport: probe block must be a single line: %#v", block)
	}
	log.MustLogger(ctx).Debug("Sending probe", "block", block)
	c.machine.RequestProbe()
	waiter := grbl.NewReplyWaiter(c.Signals())
	outcome, err := waiter.AwaitProbeOutcome(ctx, func() error {
		return c.write([]byte(block + "\n"))
	})
	if err != nil {
		return outcome, fmt.Errorf("transport: probe %#v: %w", block, err)
	}
	return outcome, nil
}

var resetID atomic.Uint64

// SoftReset sends a soft reset and blocks until Grbl sends its welcome message.
func (c *Connection) SoftReset(ctx context.Context) error {
	output := c.Output()
	name := fmt.Sprintf("soft-reset-%d", resetID.Add(1))
	outputCh := output.Subscribe(name, 100)
	defer output.Unsubscribe(name)

	log.MustLogger(ctx).Info("Resetting Grbl")
	if err := c.SendRealTimeCommand(RealTimeCommandSoftReset); err != nil {
		return err
	}
	for {
		select {
		case o, ok := <-outputCh:
			if !ok {
				return fmt.Errorf("transport: waiting for welcome message: %w", grbl.ErrDisconnected)
			}
			if grbl.IsWelcome(o.Line) {
				return nil
			}
		case <-ctx.Done():
			return fmt.Errorf("transport: waiting for welcome message: %w", context.Cause(ctx))
		}
	}
}

// PollStatus requests a status report every interval, until ctx is done.
func (c *Connection) PollStatus(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.SendRealTimeCommand(RealTimeCommandStatusReportQuery); err != nil {
				return err
			}
		}
	}
}

// Disconnect stops receiving, closes the port and resets the machine state. Outstanding waits
// resolve as disconnected.
func (c *Connection) Disconnect(ctx context.Context) (err error) {
	c.mu.Lock()
	if c.port == nil {
		c.mu.Unlock()
		return nil
	}
	c.receiveCtxCancel()
	errCh := c.receiveErrCh
	c.mu.Unlock()

	err = <-errCh

	c.mu.Lock()
	if closeErr := c.port.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("transport: port close error: %w", closeErr))
	}
	c.port = nil
	c.receiveCtxCancel = nil
	c.receiveErrCh = nil
	c.mu.Unlock()

	c.machine.Reset(ctx)
	return err
}
