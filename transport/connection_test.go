package transport

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/fornellas/slogxt/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cn5x/grbldecode/grbl"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	return log.WithLogger(t.Context(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeController is the Grbl side of a connection.
type fakeController struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func (f *fakeController) readLine() string {
	f.t.Helper()
	line, err := f.reader.ReadString('\n')
	assert.NoError(f.t, err)
	return strings.TrimSuffix(line, "\n")
}

func (f *fakeController) readByte() byte {
	f.t.Helper()
	b, err := f.reader.ReadByte()
	assert.NoError(f.t, err)
	return b
}

func (f *fakeController) write(lines ...string) {
	for _, line := range lines {
		if _, err := f.conn.Write([]byte(line + "\r\n")); err != nil {
			return
		}
	}
}

func newTestConnection(t *testing.T) (context.Context, *Connection, *fakeController) {
	t.Helper()
	ctx := testContext(t)

	client, server := net.Pipe()
	connection := NewConnection(func(context.Context) (Port, error) {
		return NewTCPPort(client), nil
	}, grbl.NewMachine(nil))
	require.NoError(t, connection.Connect(ctx))
	t.Cleanup(func() {
		_ = server.Close()
		_ = connection.Disconnect(ctx)
	})

	return ctx, connection, &fakeController{t: t, conn: server, reader: bufio.NewReader(server)}
}

func TestConnectionSendCommand(t *testing.T) {
	ctx, connection, controller := newTestConnection(t)

	outputCh := connection.Output().Subscribe("test", 10)

	go func() {
		assert.Equal(t, "$$", controller.readLine())
		controller.write("$0=10", "$100=80.000", "ok")
	}()

	reply, err := connection.SendCommand(ctx, "$$")
	require.NoError(t, err)
	require.Equal(t, grbl.TerminalReply{Outcome: grbl.OutcomeOK, Line: "ok"}, reply)

	value, ok := connection.Machine().Setting(100)
	require.True(t, ok)
	require.Equal(t, "80.000", value)

	var outputs []Output
	for range 3 {
		outputs = append(outputs, <-outputCh)
	}
	require.Equal(t, "$0=10", outputs[0].Line)
	require.Contains(t, outputs[1].Decoded, "1st axis travel resolution")
	require.Equal(t, Output{Line: "ok", Decoded: "ok"}, outputs[2])
}

func TestConnectionSendCommandError(t *testing.T) {
	ctx, connection, controller := newTestConnection(t)

	go func() {
		controller.readLine()
		controller.write("error:20")
	}()

	reply, err := connection.SendCommand(ctx, "G5")
	require.NoError(t, err)
	require.Equal(t, grbl.TerminalReply{Outcome: grbl.OutcomeError, Line: "error:20"}, reply)

	_, err = connection.SendCommand(ctx, "G0\nG1")
	require.Error(t, err)
}

func TestConnectionAlarm(t *testing.T) {
	ctx, connection, controller := newTestConnection(t)

	go func() {
		controller.readLine()
		controller.write("ALARM:2")
	}()

	reply, err := connection.SendCommand(ctx, "G0 X1000")
	require.NoError(t, err)
	require.Equal(t, grbl.OutcomeAlarm, reply.Outcome)
	require.Equal(t, grbl.StatusAlarm, connection.Machine().Status())
}

func TestConnectionQueries(t *testing.T) {
	ctx, connection, controller := newTestConnection(t)

	outputCh := connection.Output().Subscribe("test", 20)

	go func() {
		assert.Equal(t, "$G", controller.readLine())
		controller.write("[GC:G0 G55 G17 G21 G90 G94 M5 M9 T0 F0 S0]", "ok")
		assert.Equal(t, "$#", controller.readLine())
		controller.write("[G54:0.000,0.000,0.000]", "[G55:1.000,2.000,3.000]", "[TLO:0.000]", "[PRB:0.000,0.000,0.000:0]", "ok")
	}()

	reply, err := connection.QueryGcodeState(ctx)
	require.NoError(t, err)
	require.Equal(t, grbl.OutcomeOK, reply.Outcome)
	require.Equal(t, grbl.CoordinateSystemG55, connection.Machine().ActiveCoordinateSystem())
	require.Equal(t, "[GC:G0 G55 G17 G21 G90 G94 M5 M9 T0 F0 S0]", (<-outputCh).Decoded)
	<-outputCh

	reply, err = connection.QueryGcodeParams(ctx)
	require.NoError(t, err)
	require.Equal(t, grbl.OutcomeOK, reply.Outcome)
	require.Equal(t, grbl.Vector{1, 2, 3}, connection.Machine().Snapshot().ActiveOffset)
	for _, line := range []string{"[G54:0.000,0.000,0.000]", "[G55:1.000,2.000,3.000]", "[TLO:0.000]", "[PRB:0.000,0.000,0.000:0]"} {
		require.Equal(t, line, (<-outputCh).Decoded)
	}
}

func TestConnectionProbe(t *testing.T) {
	ctx, connection, controller := newTestConnection(t)

	go func() {
		assert.Equal(t, "G38.2 Z-10 F50", controller.readLine())
		controller.write("<Run|MPos:0.000,0.000,-1.000|Pn:P>", "[PRB:0.000,0.000,-1.500:1]", "ok")
	}()

	outcome, err := connection.Probe(ctx, "G38.2 Z-10 F50")
	require.NoError(t, err)
	require.Equal(t, grbl.ProbeOutcome{
		Outcome:     grbl.OutcomeProbe,
		Line:        "[PRB:0.000,0.000,-1.500:1]",
		Success:     true,
		Coordinates: []float64{0, 0, -1.5},
	}, outcome)
	probe := connection.Machine().ProbeResult()
	require.NotNil(t, probe)
	require.True(t, probe.Success)
}

func TestConnectionStatusReports(t *testing.T) {
	_, connection, controller := newTestConnection(t)

	go controller.write("<Idle|MPos:1.000,2.000,3.000|FS:0,0|WCO:0.000,0.000,1.000>")

	require.Eventually(t, func() bool {
		return connection.Machine().Status() == grbl.StatusIdle
	}, time.Second, 10*time.Millisecond)
	z, ok := connection.Machine().WorkPosition("Z")
	require.True(t, ok)
	require.Equal(t, 2.0, z)
}

func TestConnectionRealTimeCommands(t *testing.T) {
	ctx, connection, controller := newTestConnection(t)

	go func() {
		assert.NoError(t, connection.SendRealTimeCommand(RealTimeCommandFeedHold))
	}()
	require.Equal(t, byte('!'), controller.readByte())

	pollCtx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- connection.PollStatus(pollCtx, 5*time.Millisecond) }()
	require.Equal(t, byte('?'), controller.readByte())
	require.Equal(t, byte('?'), controller.readByte())
	cancel()
	// Unblock a poll that may be writing.
	go func() { _, _ = io.Copy(io.Discard, controller.reader) }()
	require.NoError(t, <-errCh)
}

func TestConnectionSoftReset(t *testing.T) {
	ctx, connection, controller := newTestConnection(t)

	go controller.write("<Run|MPos:1.000,2.000,3.000>")
	require.Eventually(t, func() bool {
		return connection.Machine().Status() == grbl.StatusRun
	}, time.Second, 10*time.Millisecond)

	go func() {
		assert.Equal(t, byte(RealTimeCommandSoftReset), controller.readByte())
		controller.write("[MSG:Reset to continue]", "Grbl 1.1h ['$' for help]")
	}()
	require.NoError(t, connection.SoftReset(ctx))
	require.Equal(t, grbl.StatusNone, connection.Machine().Status())
}

func TestLineDecoder(t *testing.T) {
	ctx := testContext(t)
	machine := grbl.NewMachine(nil)
	decoder := NewLineDecoder(machine)

	require.Empty(t, decoder.Decode(ctx, "<Hold:0|MPos:0.000,0.000,0.000>"))
	require.Equal(t, grbl.StatusHoldComplete, machine.Status())
	require.Equal(t, "ok", decoder.Decode(ctx, "ok"))
	require.True(t, IsStatusReport("<Idle>"))
	require.False(t, IsStatusReport("[MSG:<Idle>]"))
}

func TestConnectionDisconnected(t *testing.T) {
	ctx, connection, controller := newTestConnection(t)

	go func() {
		controller.readLine()
		_ = controller.conn.Close()
	}()

	reply, err := connection.SendCommand(ctx, "G4 P10")
	require.ErrorIs(t, err, grbl.ErrDisconnected)
	require.Equal(t, grbl.OutcomeDisconnected, reply.Outcome)

	require.Error(t, connection.Disconnect(ctx))
	_, ok := <-connection.Output().Subscribe("late", 1)
	require.False(t, ok)
	require.ErrorIs(t, connection.SendRealTimeCommand(RealTimeCommandSoftReset), grbl.ErrDisconnected)
	require.NoError(t, connection.Disconnect(ctx))
}

func TestConnectionReplyBeforeDisconnection(t *testing.T) {
	ctx, connection, controller := newTestConnection(t)

	go func() {
		controller.readLine()
		controller.write("ok")
		_ = controller.conn.Close()
	}()

	reply, err := connection.SendCommand(ctx, "G4 P0")
	require.NoError(t, err)
	require.Equal(t, grbl.TerminalReply{Outcome: grbl.OutcomeOK, Line: "ok"}, reply)
}

func TestConnectionDisconnectResetsMachine(t *testing.T) {
	ctx, connection, controller := newTestConnection(t)

	go controller.write("<Run|MPos:1.000,2.000,3.000>")
	require.Eventually(t, func() bool {
		return connection.Machine().Status() == grbl.StatusRun
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, connection.Disconnect(ctx))
	require.Equal(t, grbl.NewMachineState(), connection.Machine().Snapshot())

	_, err := connection.SendCommand(ctx, "$$")
	require.ErrorIs(t, err, grbl.ErrDisconnected)
}

func TestConnectionNotConnected(t *testing.T) {
	ctx := testContext(t)
	connection := NewConnection(func(context.Context) (Port, error) {
		return nil, io.ErrClosedPipe
	}, grbl.NewMachine(nil))

	require.ErrorIs(t, connection.Connect(ctx), io.ErrClosedPipe)
	_, err := connection.SendCommand(ctx, "$$")
	require.ErrorIs(t, err, grbl.ErrDisconnected)
	require.NoError(t, connection.Disconnect(ctx))
}

func TestRealTimeCommand(t *testing.T) {
	command, err := ParseRealTimeCommand("feed-hold")
	require.NoError(t, err)
	require.Equal(t, RealTimeCommandFeedHold, command)
	require.Equal(t, "feed-hold", command.String())

	_, err = ParseRealTimeCommand("bogus")
	require.Error(t, err)
	require.Equal(t, "unknown (0x1)", RealTimeCommand(1).String())

	names := RealTimeCommandNames()
	require.Contains(t, names, "soft-reset")
	require.True(t, slices.IsSorted(names))
	for _, name := range names {
		command, err := ParseRealTimeCommand(name)
		require.NoError(t, err)
		require.Equal(t, name, command.String())
	}
}
