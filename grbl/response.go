package grbl

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fornellas/slogxt/log"

	"github.com/cn5x/grbldecode/gcode"
)

// ResponseDecoder decodes every line that is not a real time status report: responses (ok, error,
// alarm), settings and push messages.
type ResponseDecoder struct {
	machine *Machine
}

func NewResponseDecoder(machine *Machine) *ResponseDecoder {
	return &ResponseDecoder{machine: machine}
}

// IsWelcome returns whether line is the message Grbl sends after a reset.
func IsWelcome(line string) bool {
	return strings.HasPrefix(line, "Grbl ") || strings.HasPrefix(line, "GrblHAL ")
}

// Decode applies the line to the machine state, and returns what should be shown to the caller.
//
//gocyclo:ignore
func (d *ResponseDecoder) Decode(ctx context.Context, line string) string {
	switch {
	case line == "ok":
		return line
	case strings.HasPrefix(line, "error:"):
		return d.decodeError(ctx, line)
	case strings.HasPrefix(line, "ALARM:"):
		return d.decodeAlarm(ctx, line)
	case strings.HasPrefix(line, "$"):
		return d.decodeSetting(ctx, line)
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return d.decodePushMessage(ctx, line)
	case IsWelcome(line):
		d.machine.update(ctx, func(t *transition) string {
			t.softReset()
			return ""
		})
		return line
	default:
		if line != "" {
			log.MustLogger(ctx).Info("Not decoded", "err", fmt.Errorf("%w: %#v", ErrUndecodedSentence, line))
		}
		return line
	}
}

// parseCode parses the number after error: or ALARM:, which Grbl may report as a float.
func parseCode(s string) (int, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: code: %#v", ErrNumericParse, s)
	}
	return int(f), nil
}

func (d *ResponseDecoder) decodeError(ctx context.Context, line string) string {
	logger := log.MustLogger(ctx)
	raw := strings.TrimPrefix(line, "error:")
	code, err := parseCode(raw)
	if err != nil {
		logger.Warn("Failed to decode error", "err", err)
		return fmt.Sprintf("error:%s: %s,\n%s", raw, unknownErrorDescription.Name, unknownErrorDescription.Description)
	}
	if _, err := LookupError(code); err != nil {
		logger.Warn("Failed to decode error", "err", err)
	}
	return ErrorMessage(code)
}

func (d *ResponseDecoder) decodeAlarm(ctx context.Context, line string) string {
	logger := log.MustLogger(ctx)
	raw := strings.TrimPrefix(line, "ALARM:")
	code, err := parseCode(raw)
	var description CodeDescription
	if err == nil {
		description, err = LookupAlarm(code)
	} else {
		code = -1
		description = unknownAlarmDescription
	}
	if err != nil {
		logger.Warn("Failed to decode alarm", "err", err)
	}

	d.machine.update(ctx, func(t *transition) string {
		t.setStatus(StatusAlarm)
		t.emit(AlarmRaised{Code: code, Description: description})
		return ""
	})

	if code < 0 {
		return fmt.Sprintf("ALARM:%s: %s,\n%s", raw, description.Name, description.Description)
	}
	return AlarmMessage(code)
}

func (d *ResponseDecoder) decodeSetting(ctx context.Context, line string) string {
	if strings.HasPrefix(line, "$N") {
		return line
	}
	numberStr, value, ok := strings.Cut(line[1:], "=")
	if !ok {
		return line
	}
	number, err := parseCode(numberStr)
	if err != nil {
		log.MustLogger(ctx).Warn("Failed to decode setting", "line", line, "err", err)
		return line
	}
	d.machine.update(ctx, func(t *transition) string {
		old, ok := t.state.Settings[number]
		t.state.Settings[number] = value
		if !ok || old != value {
			t.emit(SettingChanged{Number: number, Old: old, New: value})
		}
		return ""
	})
	return line + " >> " + SettingDescription(number)
}

func (d *ResponseDecoder) decodePushMessage(ctx context.Context, line string) string {
	tag, payload, _ := strings.Cut(line[1:len(line)-1], ":")

	if len(tag) == 3 && tag[0] == 'G' {
		if number, err := strconv.Atoi(tag[1:]); err == nil {
			if c := CoordinateSystem(number); c.Valid() {
				return d.machine.update(ctx, func(t *transition) string {
					return t.decodeCoordinateSystem(line, c, payload)
				})
			}
		}
	}

	var decode func(t *transition, line, payload string) string
	switch tag {
	case "TLO":
		decode = (*transition).decodeToolLengthOffset
	case "PRB":
		decode = (*transition).decodeProbe
	case "GC":
		decode = (*transition).decodeGcodeState
	case "AXS":
		decode = (*transition).decodeAxes
	case "OPT":
		decode = (*transition).decodeBuildOptions
	case "VER":
		decode = (*transition).decodeVersion
	case "MSG":
		decode = (*transition).decodeFeedback
	default:
		// [D:...] and any other push message
		return line
	}
	return d.machine.update(ctx, func(t *transition) string {
		return decode(t, line, payload)
	})
}

// gcodeParamsOutput returns line if a $# query is in progress.
func (t *transition) gcodeParamsOutput(line string) string {
	if t.state.Pending.GcodeParams {
		return line
	}
	return ""
}

func (t *transition) decodeCoordinateSystem(line string, c CoordinateSystem, payload string) string {
	v, _, err := NewVectorFromCSV(payload)
	if err != nil {
		log.MustLogger(t.ctx).Error("Failed to decode coordinate system", "coordinate_system", c, "err", err)
		return t.gcodeParamsOutput(line)
	}
	v = v.Truncate(t.state.AxisCount)

	if old := t.state.CoordinateSystems[c]; old != v {
		t.state.CoordinateSystems[c] = v
		t.emit(CoordinateSystemOffsetChanged{CoordinateSystem: c, Old: old, New: v})
	}
	if c == t.state.ActiveCoordinateSystem {
		t.state.ActiveOffset = v
	}
	if c == CoordinateSystemG92 {
		t.state.G92Offset = v
	}
	return t.gcodeParamsOutput(line)
}

func (t *transition) decodeToolLengthOffset(line, payload string) string {
	tlo, err := strconv.ParseFloat(payload, 64)
	if err != nil {
		log.MustLogger(t.ctx).Error(
			"Failed to decode tool length offset", "err", fmt.Errorf("%w: %#v", ErrNumericParse, payload),
		)
		return t.gcodeParamsOutput(line)
	}
	if tlo != t.state.ToolLengthOffset {
		t.emit(ToolLengthOffsetChanged{Old: t.state.ToolLengthOffset, New: tlo})
		t.state.ToolLengthOffset = tlo
	}
	return t.gcodeParamsOutput(line)
}

// NewProbeResult parses the payload of [PRB:x,y,z:1].
func NewProbeResult(payload string) (ProbeResult, error) {
	idx := strings.LastIndex(payload, ":")
	if idx < 0 {
		return ProbeResult{}, fmt.Errorf("%w: probe result missing success flag: %#v", ErrNumericParse, payload)
	}
	coordinates, n, err := NewVectorFromCSV(payload[:idx])
	if err != nil {
		return ProbeResult{}, err
	}
	var success bool
	switch payload[idx+1:] {
	case "1":
		success = true
	case "0":
	default:
		return ProbeResult{}, fmt.Errorf("%w: probe success flag: %#v", ErrNumericParse, payload[idx+1:])
	}
	return ProbeResult{Coordinates: coordinates, Axes: n, Success: success}, nil
}

func (t *transition) decodeProbe(line, payload string) string {
	probe, err := NewProbeResult(payload)
	if err != nil {
		log.MustLogger(t.ctx).Error("Failed to decode probe result", "err", err)
	} else {
		t.state.Probe = &probe
		t.emit(ProbeResultChanged{Result: probe})
	}

	// [PRB:...] terminates both $# and probe cycles.
	if t.state.Pending.GcodeParams || t.state.Pending.Probe {
		t.state.Pending.GcodeParams = false
		t.state.Pending.Probe = false
		return line
	}
	return ""
}

func (t *transition) setModal(group string, from, to fmt.Stringer, apply func()) {
	if from.String() == to.String() {
		return
	}
	apply()
	t.emit(ModalStateChanged{Group: group, Old: from.String(), New: to.String()})
}

type stringer string

func (s stringer) String() string { return string(s) }

func floatStringer(letter string, f float64) stringer {
	return stringer(letter + strconv.FormatFloat(f, 'f', -1, 64))
}

//gocyclo:ignore
func (t *transition) decodeGcodeState(line, payload string) string {
	modal := &t.state.Modal
	var unknown []string
	var coolant []Coolant

	for wordStr := range strings.FieldsSeq(payload) {
		word, err := gcode.NewWordFromString(wordStr)
		if err != nil {
			unknown = append(unknown, wordStr)
			continue
		}
		switch normalized := word.NormalizedString(); normalized {
		case "G54", "G55", "G56", "G57", "G58", "G59":
			t.setActiveCoordinateSystem(CoordinateSystem(int(word.Number())))
		case "G17", "G18", "G19":
			plane := Plane(int(word.Number()) - 17)
			t.setModal("plane", modal.Plane, plane, func() { modal.Plane = plane })
		case "G20", "G21":
			units := UnitsMillimeters
			if normalized == "G20" {
				units = UnitsInches
			}
			t.setModal("units", modal.Units, units, func() { modal.Units = units })
		case "G90", "G91":
			distance := DistanceModeAbsolute
			if normalized == "G91" {
				distance = DistanceModeRelative
			}
			t.setModal("distance", modal.Distance, distance, func() { modal.Distance = distance })
		case "G0", "G1", "G2", "G3", "G38.2", "G38.3", "G38.4", "G38.5", "G80":
			motion := MotionMode(normalized)
			t.setModal("motion", modal.Motion, motion, func() { modal.Motion = motion })
		case "G93", "G94":
			feedMode := FeedModeUnitsPerMinute
			if normalized == "G93" {
				feedMode = FeedModeInverseTime
			}
			t.setModal("feed_mode", modal.FeedMode, feedMode, func() { modal.FeedMode = feedMode })
		case "M3", "M4", "M5":
			spindle := map[string]Spindle{"M3": SpindleClockwise, "M4": SpindleCounterClockwise, "M5": SpindleOff}[normalized]
			t.setModal("spindle", modal.Spindle, spindle, func() { modal.Spindle = spindle })
		case "M7", "M8", "M78", "M9":
			coolant = append(coolant, map[string]Coolant{
				"M7": CoolantMist, "M8": CoolantFlood, "M78": CoolantMistAndFlood, "M9": CoolantOff,
			}[normalized])
		default:
			n := word.Number()
			switch word.Letter() {
			case 'T':
				t.setModal("tool", floatStringer("T", modal.Tool), floatStringer("T", n), func() { modal.Tool = n })
			case 'S':
				t.setModal("spindle_speed", floatStringer("S", modal.SpindleSpeed), floatStringer("S", n), func() { modal.SpindleSpeed = n })
			case 'F':
				t.setModal("feed_rate", floatStringer("F", modal.FeedRate), floatStringer("F", n), func() { modal.FeedRate = n })
			default:
				unknown = append(unknown, wordStr)
			}
		}
	}

	if len(coolant) > 0 {
		// Grbl reports "M7 M8" when both mist and flood are on.
		newCoolant := coolant[0]
		for _, c := range coolant[1:] {
			if (newCoolant == CoolantMist && c == CoolantFlood) || (newCoolant == CoolantFlood && c == CoolantMist) {
				newCoolant = CoolantMistAndFlood
			} else {
				newCoolant = c
			}
		}
		t.setModal("coolant", modal.Coolant, newCoolant, func() { modal.Coolant = newCoolant })
	}

	requested := t.state.Pending.GcodeState
	t.state.Pending.GcodeState = false

	if len(unknown) > 0 {
		err := fmt.Errorf("%w: %s", ErrUnknownModalWord, strings.Join(unknown, " "))
		log.MustLogger(t.ctx).Warn("Failed to decode G-code parser state", "line", line, "err", err)
		return fmt.Sprintf("Unknown G-code parser state in %s: %s", line, strings.Join(unknown, " "))
	}
	if requested {
		return line
	}
	return ""
}

func (t *transition) setActiveCoordinateSystem(c CoordinateSystem) {
	old := t.state.ActiveCoordinateSystem
	if old == c {
		return
	}
	t.state.ActiveCoordinateSystem = c
	t.state.ActiveOffset = t.state.CoordinateSystems[c]
	t.emit(CoordinateSystemChanged{Old: old, New: c})
}

func (t *transition) decodeAxes(line, payload string) string {
	logger := log.MustLogger(t.ctx)
	countStr, names, ok := strings.Cut(payload, ":")
	if !ok {
		logger.Error("Failed to decode axes", "line", line, "err", errors.New("missing axis names"))
		return line
	}
	count, err := strconv.Atoi(countStr)
	if err != nil {
		logger.Error("Failed to decode axes", "line", line, "err", fmt.Errorf("%w: %#v", ErrNumericParse, countStr))
		return line
	}
	// Grbl built with REPORT_VALUE_FOR_AXIS_NAME_ONCE may report fewer names than axes.
	count = min(count, len(names))
	if err := t.setAxes(count, names); err != nil {
		logger.Error("Failed to decode axes", "line", line, "err", err)
	}
	return line
}

func (t *transition) decodeBuildOptions(line, payload string) string {
	values := strings.Split(payload, ",")
	options := BuildOptions{Codes: values[0]}
	var err error
	if len(values) > 1 {
		if options.PlannerBlocks, err = strconv.Atoi(values[1]); err != nil {
			err = fmt.Errorf("%w: planner blocks: %#v", ErrNumericParse, values[1])
		}
	}
	if err == nil && len(values) > 2 {
		if options.RxBufferBytes, err = strconv.Atoi(values[2]); err != nil {
			err = fmt.Errorf("%w: rx buffer bytes: %#v", ErrNumericParse, values[2])
		}
	}
	if err != nil {
		log.MustLogger(t.ctx).Error("Failed to decode build options", "line", line, "err", err)
	}
	t.state.BuildOptions = options

	available := strings.Contains(options.Codes, "D")
	if available != t.state.DigitalIOAvailable {
		t.state.DigitalIOAvailable = available
		t.emit(DigitalCapabilityChanged{Available: available})
	}
	return ""
}

func (t *transition) decodeVersion(line, payload string) string {
	// Build info follows the version, and is usually empty.
	t.state.Version = strings.TrimSuffix(payload, ":")
	return line
}

func (t *transition) decodeFeedback(line, payload string) string {
	t.emit(FeedbackMessage{Text: payload})
	return line
}
