package grbl

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/fornellas/slogxt/log"
)

// Notifier receives change events, in the order they happened. It is called without any lock
// held, from the goroutine decoding lines.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event Event)

func (f NotifierFunc) Notify(ctx context.Context, event Event) {
	f(ctx, event)
}

// Machine owns the MachineState of a controller session. All decoders of a session share the same
// Machine; each decoded line is applied as a single critical section.
type Machine struct {
	mu       sync.Mutex
	state    MachineState
	notifier Notifier
}

// NewMachine creates a Machine with default state. notifier may be nil.
func NewMachine(notifier Notifier) *Machine {
	return &Machine{
		state:    NewMachineState(),
		notifier: notifier,
	}
}

// transition collects events while the state is mutated under lock.
type transition struct {
	ctx    context.Context
	state  *MachineState
	events []Event
}

func (t *transition) emit(event Event) {
	t.events = append(t.events, event)
}

func (t *transition) setStatus(status MachineStatus) {
	if t.state.Status == status {
		return
	}
	t.emit(StatusChanged{Old: t.state.Status, New: status})
	t.state.Status = status
}

// update applies fn to the state and, once the lock is released, notifies all events fn emitted.
func (m *Machine) update(ctx context.Context, fn func(t *transition) string) string {
	m.mu.Lock()
	t := &transition{ctx: ctx, state: &m.state}
	output := fn(t)
	m.mu.Unlock()

	if m.notifier != nil {
		for _, event := range t.events {
			m.notifier.Notify(ctx, event)
		}
	}
	return output
}

// Snapshot returns a deep copy of the current state.
func (m *Machine) Snapshot() MachineState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Copy()
}

// Reset restores the default state, as for a new session.
func (m *Machine) Reset(ctx context.Context) {
	m.update(ctx, func(t *transition) string {
		t.reset()
		return ""
	})
}

func (t *transition) reset() {
	log.MustLogger(t.ctx).Debug("Resetting machine state")
	*t.state = NewMachineState()
	t.emit(Reset{})
}

// softReset restores what a controller reset clears. Settings, axes, coordinate systems, tool
// length offset and the last probe result are kept.
func (t *transition) softReset() {
	log.MustLogger(t.ctx).Debug("Controller reset")
	defaults := NewMachineState()
	s := t.state
	s.Status = defaults.Status
	s.Pins = defaults.Pins
	s.Overrides = defaults.Overrides
	s.Buffer = defaults.Buffer
	s.Accessories = defaults.Accessories
	s.FeedRate = defaults.FeedRate
	s.SpindleRate = defaults.SpindleRate
	s.LineNumber = defaults.LineNumber
	s.DigitalOutputs = defaults.DigitalOutputs
	s.DigitalInputs = defaults.DigitalInputs
	s.Modal = defaults.Modal
	s.Pending = defaults.Pending
	t.emit(Reset{})
	t.setActiveCoordinateSystem(defaults.ActiveCoordinateSystem)
}

// SetAxes redefines the axes. count must be within MinAxes and MaxAxes, and names must hold one
// letter per axis.
func (m *Machine) SetAxes(ctx context.Context, count int, names string) error {
	var err error
	m.update(ctx, func(t *transition) string {
		err = t.setAxes(count, names)
		return ""
	})
	return err
}

func (t *transition) setAxes(count int, names string) error {
	if count < MinAxes || count > MaxAxes {
		return fmt.Errorf("grbl: axis count %d outside of range %d-%d", count, MinAxes, MaxAxes)
	}
	if len(names) < count {
		return fmt.Errorf("grbl: %d axis names for %d axes: %#v", len(names), count, names)
	}
	axisNames := strings.Split(names[:count], "")
	if t.state.AxisCount == count && slices.Equal(t.state.AxisNames, axisNames) {
		return nil
	}
	t.state.AxisCount = count
	t.state.AxisNames = axisNames
	t.emit(AxesChanged{Count: count, Names: slices.Clone(axisNames)})
	return nil
}

func (m *Machine) setPending(fn func(p *PendingRequests)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.state.Pending)
}

// RequestNextStatus makes the next decoded status report to be returned to the caller.
func (m *Machine) RequestNextStatus() {
	m.setPending(func(p *PendingRequests) { p.Status = true })
}

// RequestGcodeParams makes $# replies to be returned to the caller, until [PRB:...] is received.
func (m *Machine) RequestGcodeParams() {
	m.setPending(func(p *PendingRequests) { p.GcodeParams = true })
}

// RequestGcodeState makes the next [GC:...] reply to be returned to the caller.
func (m *Machine) RequestGcodeState() {
	m.setPending(func(p *PendingRequests) { p.GcodeState = true })
}

// RequestProbe makes the next [PRB:...] reply to be returned to the caller.
func (m *Machine) RequestProbe() {
	m.setPending(func(p *PendingRequests) { p.Probe = true })
}

// Setting returns the raw value of a $N setting, if it was received.
func (m *Machine) Setting(number int) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Setting(number)
}

// Status returns the last reported machine status.
func (m *Machine) Status() MachineStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Status
}

// WorkPosition returns the work position of the named axis.
func (m *Machine) WorkPosition(axis string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.AxisValue(m.state.WorkPosition, axis)
}

// MachinePosition returns the machine position of the named axis.
func (m *Machine) MachinePosition(axis string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.AxisValue(m.state.MachinePosition, axis)
}

// WorkCoordinateOffset returns the work coordinate offset of the named axis.
func (m *Machine) WorkCoordinateOffset(axis string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.AxisValue(m.state.WorkCoordinateOffset, axis)
}

// ActiveCoordinateSystem returns the coordinate system selected in the G-code parser.
func (m *Machine) ActiveCoordinateSystem() CoordinateSystem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ActiveCoordinateSystem
}

// CoordinateSystemOffset returns the offset of the given coordinate system.
func (m *Machine) CoordinateSystemOffset(c CoordinateSystem) (Vector, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.state.CoordinateSystems[c]
	return v, ok
}

// ProbeResult returns the last probe result, or nil if none was received.
func (m *Machine) ProbeResult() *ProbeResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Probe == nil {
		return nil
	}
	probe := *m.state.Probe
	return &probe
}
