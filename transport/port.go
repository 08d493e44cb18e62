package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/fornellas/slogxt/log"
	"go.bug.st/serial"
)

// Port is the byte stream to a Grbl controller. serial.Port implements it.
type Port interface {
	io.ReadWriteCloser
	// SetReadTimeout makes Read return after t when no data arrives, so reads can be interrupted.
	SetReadTimeout(t time.Duration) error
}

// OpenPortFn opens the Port for a new connection.
type OpenPortFn func(ctx context.Context) (Port, error)

// SerialMode is the serial line configuration Grbl uses.
var SerialMode = serial.Mode{
	BaudRate: 115200,
	DataBits: 8,
	Parity:   serial.NoParity,
	StopBits: serial.OneStopBit,
}

// OpenSerial returns an OpenPortFn for the named serial port.
func OpenSerial(name string) OpenPortFn {
	return func(ctx context.Context) (Port, error) {
		log.MustLogger(ctx).Info("Opening serial port", "port-name", name)
		mode := SerialMode
		port, err := serial.Open(name, &mode)
		if err != nil {
			return nil, fmt.Errorf("transport: serial port open error: %s: %w", name, err)
		}
		return port, nil
	}
}

// ListSerialPorts returns the names of serial ports available in the system.
func ListSerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("transport: failed to list serial ports: %w", err)
	}
	return ports, nil
}

// TCPPort is a Port over a TCP connection, such as one served by "grbld serve".
type TCPPort struct {
	conn        net.Conn
	readTimeout time.Duration
}

// DialTCP returns an OpenPortFn connecting to address.
func DialTCP(address string, timeout time.Duration) OpenPortFn {
	return func(ctx context.Context) (Port, error) {
		log.MustLogger(ctx).Info("Dialing TCP port", "address", address, "timeout", timeout)
		dialer := &net.Dialer{
			Timeout: timeout,
		}
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err != nil {
			return nil, fmt.Errorf("transport: dial error: %s: %w", address, err)
		}
		return NewTCPPort(conn), nil
	}
}

func NewTCPPort(conn net.Conn) *TCPPort {
	return &TCPPort{conn: conn, readTimeout: serial.NoTimeout}
}

func (p *TCPPort) Read(b []byte) (int, error) {
	deadline := time.Time{}
	if p.readTimeout != serial.NoTimeout {
		deadline = time.Now().Add(p.readTimeout)
	}
	if err := p.conn.SetReadDeadline(deadline); err != nil {
		return 0, err
	}
	return p.conn.Read(b)
}

func (p *TCPPort) Write(b []byte) (int, error) {
	return p.conn.Write(b)
}

func (p *TCPPort) SetReadTimeout(t time.Duration) error {
	p.readTimeout = t
	return nil
}

func (p *TCPPort) Close() error {
	return p.conn.Close()
}
