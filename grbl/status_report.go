package grbl

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/fornellas/slogxt/log"
)

// StatusReportDecoder decodes real time status reports such as
// <Idle|MPos:0.000,0.000,0.000|FS:0,0|WCO:0.000,0.000,0.000>.
type StatusReportDecoder struct {
	machine *Machine
}

func NewStatusReportDecoder(machine *Machine) *StatusReportDecoder {
	return &StatusReportDecoder{machine: machine}
}

// statusReport holds what was seen while decoding a single status report.
type statusReport struct {
	*transition
	oldMachinePosition      Vector
	oldWorkPosition         Vector
	oldWorkCoordinateOffset Vector
	pins                    *PinSet
	overrides               bool
	accessories             bool
	digital                 bool
}

type statusFieldDecoder struct {
	prefix string
	decode func(r *statusReport, payload string) error
}

var statusFieldDecoders = []statusFieldDecoder{
	{"MPos:", (*statusReport).decodeMachinePosition},
	{"WPos:", (*statusReport).decodeWorkPosition},
	{"WCO:", (*statusReport).decodeWorkCoordinateOffset},
	{"Bf:", (*statusReport).decodeBuffer},
	{"Ov:", (*statusReport).decodeOverrides},
	{"Pn:", (*statusReport).decodePins},
	{"A:", (*statusReport).decodeAccessories},
	{"FS:", (*statusReport).decodeFeedSpindle},
	{"F:", (*statusReport).decodeFeed},
	{"Ln:", (*statusReport).decodeLineNumber},
}

// findStatusFieldDecoder returns the decoder with the longest prefix matching field.
func findStatusFieldDecoder(field string) (statusFieldDecoder, bool) {
	var found statusFieldDecoder
	for _, d := range statusFieldDecoders {
		if strings.HasPrefix(field, d.prefix) && len(d.prefix) > len(found.prefix) {
			found = d
		}
	}
	return found, found.decode != nil
}

// Decode applies the status report to the machine state. It returns the line itself if the next
// status report was requested, an error description if the line is not a status report, or an
// empty string otherwise.
func (d *StatusReportDecoder) Decode(ctx context.Context, line string) string {
	if len(line) < 2 || line[0] != '<' || line[len(line)-1] != '>' {
		err := fmt.Errorf("grbl: %w: %#v", ErrMalformedStatus, line)
		log.MustLogger(ctx).Error("Failed to decode status report", "err", err)
		return err.Error()
	}

	return d.machine.update(ctx, func(t *transition) string {
		r := &statusReport{
			transition:              t,
			oldMachinePosition:      t.state.MachinePosition,
			oldWorkPosition:         t.state.WorkPosition,
			oldWorkCoordinateOffset: t.state.WorkCoordinateOffset,
		}
		r.decodeFields(strings.Split(line[1:len(line)-1], "|"))
		r.finish()

		if t.state.Pending.Status {
			t.state.Pending.Status = false
			return line
		}
		return ""
	})
}

func (r *statusReport) decodeFields(fields []string) {
	logger := log.MustLogger(r.ctx)
	for _, field := range fields {
		if status := MachineStatus(field); status.Valid() {
			r.setStatus(status)
			continue
		}
		decoder, ok := findStatusFieldDecoder(field)
		if !ok {
			logger.Debug("Ignoring status report field", "field", field)
			continue
		}
		if err := decoder.decode(r, field[len(decoder.prefix):]); err != nil {
			logger.Error("Failed to decode status report field", "field", field, "err", err)
		}
	}
}

func (r *statusReport) finish() {
	s := r.state

	if s.WorkCoordinateOffset != r.oldWorkCoordinateOffset {
		r.emit(WorkCoordinateOffsetChanged{Old: r.oldWorkCoordinateOffset, New: s.WorkCoordinateOffset})
	}
	if s.MachinePosition != r.oldMachinePosition || s.WorkPosition != r.oldWorkPosition {
		r.emit(PositionChanged{
			OldMachine: r.oldMachinePosition,
			Machine:    s.MachinePosition,
			OldWork:    r.oldWorkPosition,
			Work:       s.WorkPosition,
			Source:     s.PositionSource,
		})
	}

	// Without digital information alongside overrides, all digital I/O is off.
	if r.overrides && !r.digital {
		for i := range DigitalIOCount {
			r.setDigitalOutput(i, false)
			r.setDigitalInput(i, false)
		}
	}
	if r.overrides && !r.accessories {
		r.setAccessories(Accessories{})
	}

	var pins PinSet
	if r.pins != nil {
		pins = *r.pins
	}
	r.setPins(pins)
}

func (r *statusReport) decodeMachinePosition(payload string) error {
	v, n, err := NewVectorFromCSV(payload)
	if err != nil {
		return err
	}
	copy(r.state.MachinePosition[:n], v[:n])
	r.state.PositionSource = PositionSourceMachine
	r.state.recomputeDerivedPosition()
	return nil
}

func (r *statusReport) decodeWorkPosition(payload string) error {
	v, n, err := NewVectorFromCSV(payload)
	if err != nil {
		return err
	}
	copy(r.state.WorkPosition[:n], v[:n])
	r.state.PositionSource = PositionSourceWork
	r.state.recomputeDerivedPosition()
	return nil
}

func (r *statusReport) decodeWorkCoordinateOffset(payload string) error {
	v, n, err := NewVectorFromCSV(payload)
	if err != nil {
		return err
	}
	copy(r.state.WorkCoordinateOffset[:n], v[:n])
	r.state.recomputeDerivedPosition()
	return nil
}

func parseInts(payload string, count int) ([]int, error) {
	values := strings.Split(payload, ",")
	if len(values) != count {
		return nil, fmt.Errorf("%w: expected %d values: %#v", ErrNumericParse, count, payload)
	}
	ints := make([]int, count)
	for i, value := range values {
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %#v", ErrNumericParse, value)
		}
		ints[i] = n
	}
	return ints, nil
}

func (r *statusReport) decodeBuffer(payload string) error {
	values, err := parseInts(payload, 2)
	if err != nil {
		return err
	}
	buffer := Buffer{Used: values[0], Total: values[1]}
	if buffer != r.state.Buffer {
		r.emit(BufferChanged{Old: r.state.Buffer, New: buffer})
		r.state.Buffer = buffer
	}
	return nil
}

var validRapidOverrides = []int{25, 50, 100}

func (r *statusReport) decodeOverrides(payload string) error {
	r.overrides = true
	values, err := parseInts(payload, 3)
	if err != nil {
		return err
	}
	overrides := Overrides{Feed: values[0], Rapid: r.state.Overrides.Rapid, Spindle: values[2]}
	if slices.Contains(validRapidOverrides, values[1]) {
		overrides.Rapid = values[1]
	} else {
		err = fmt.Errorf("invalid rapid override %d%%, must be one of %v", values[1], validRapidOverrides)
	}
	if overrides != r.state.Overrides {
		r.emit(OverridesChanged{Old: r.state.Overrides, New: overrides})
		r.state.Overrides = overrides
	}
	return err
}

func (r *statusReport) decodePins(payload string) error {
	pins, err := NewPinSet(payload)
	r.pins = &pins
	return err
}

func (r *statusReport) setPins(pins PinSet) {
	old := r.state.Pins
	if pins == old {
		return
	}
	r.state.Pins = pins
	r.emit(PinsChanged{Old: old, New: pins})
	if pins.Has(PinProbe) && !old.Has(PinProbe) {
		r.emit(ProbeContact{})
	}
	if pins.Has(PinSoftReset) && !old.Has(PinSoftReset) {
		r.emit(ResetRequested{})
	}
}

func (r *statusReport) decodeAccessories(payload string) error {
	r.accessories = true

	letters := payload
	var bits string
	if i := strings.IndexByte(payload, 'D'); i >= 0 {
		r.digital = true
		letters, bits = payload[:i], payload[i+1:]
	}

	var accessories Accessories
	var err error
	for _, letter := range letters {
		switch letter {
		case 'S':
			accessories.SpindleClockwise = true
		case 'C':
			accessories.SpindleCounterClockwise = true
		case 'F':
			accessories.Flood = true
		case 'M':
			accessories.Mist = true
		default:
			err = fmt.Errorf("unknown accessory: %#v", string(letter))
		}
	}
	r.setAccessories(accessories)

	if r.digital {
		if digitalErr := r.decodeDigital(bits); digitalErr != nil {
			return digitalErr
		}
	}
	return err
}

func (r *statusReport) setAccessories(accessories Accessories) {
	if accessories == r.state.Accessories {
		return
	}
	r.emit(AccessoriesChanged{Old: r.state.Accessories, New: accessories})
	r.state.Accessories = accessories
}

// decodeDigital decodes the bits following D. With 4 bits, all are outputs; with 8 bits, the
// leftmost 4 are inputs. Bits are read right to left: the last character is index 0.
func (r *statusReport) decodeDigital(bits string) error {
	for _, bit := range bits {
		if bit != '0' && bit != '1' {
			return fmt.Errorf("%w: digital state: %#v", ErrNumericParse, bits)
		}
	}
	switch len(bits) {
	case DigitalIOCount:
		for k := range DigitalIOCount {
			r.setDigitalOutput(k, bits[len(bits)-1-k] == '1')
		}
	case 2 * DigitalIOCount:
		for k := range DigitalIOCount {
			r.setDigitalOutput(k, bits[7-k] == '1')
			r.setDigitalInput(k, bits[3-k] == '1')
		}
	default:
		return fmt.Errorf("%w: digital state must have 4 or 8 bits: %#v", ErrNumericParse, bits)
	}
	return nil
}

func (r *statusReport) setDigitalOutput(index int, value bool) {
	if r.state.DigitalOutputs[index] == value {
		return
	}
	r.state.DigitalOutputs[index] = value
	r.emit(DigitalOutputChanged{Index: index, Value: value})
}

func (r *statusReport) setDigitalInput(index int, value bool) {
	if r.state.DigitalInputs[index] == value {
		return
	}
	r.state.DigitalInputs[index] = value
	r.emit(DigitalInputChanged{Index: index, Value: value})
}

func (r *statusReport) setFeedSpindle(feed, spindle float64) {
	if feed == r.state.FeedRate && spindle == r.state.SpindleRate {
		return
	}
	r.state.FeedRate = feed
	r.state.SpindleRate = spindle
	r.emit(FeedSpindleChanged{FeedRate: feed, SpindleRate: spindle})
}

func (r *statusReport) decodeFeedSpindle(payload string) error {
	v, n, err := NewVectorFromCSV(payload)
	if err != nil {
		return err
	}
	if n != 2 {
		return fmt.Errorf("%w: expected feed and spindle: %#v", ErrNumericParse, payload)
	}
	r.setFeedSpindle(v[0], v[1])
	return nil
}

func (r *statusReport) decodeFeed(payload string) error {
	feed, err := strconv.ParseFloat(payload, 64)
	if err != nil {
		return fmt.Errorf("%w: feed: %#v", ErrNumericParse, payload)
	}
	r.setFeedSpindle(feed, r.state.SpindleRate)
	return nil
}

func (r *statusReport) decodeLineNumber(payload string) error {
	lineNumber, err := strconv.Atoi(payload)
	if err != nil {
		return fmt.Errorf("%w: line number: %#v", ErrNumericParse, payload)
	}
	if lineNumber != r.state.LineNumber {
		r.emit(LineNumberChanged{Old: r.state.LineNumber, New: lineNumber})
		r.state.LineNumber = lineNumber
	}
	return nil
}
