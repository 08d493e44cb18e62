package grbl

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

////////////////////////////////////////////////////////////////////////////////////////////////////
// Machine status
////////////////////////////////////////////////////////////////////////////////////////////////////

// MachineStatus is the state token of a status report.
type MachineStatus string

const (
	StatusNone           MachineStatus = ""
	StatusIdle           MachineStatus = "Idle"
	StatusRun            MachineStatus = "Run"
	StatusHoldComplete   MachineStatus = "Hold:0"
	StatusHoldInProgress MachineStatus = "Hold:1"
	StatusJog            MachineStatus = "Jog"
	StatusAlarm          MachineStatus = "Alarm"
	StatusDoorClosed     MachineStatus = "Door:0"
	StatusDoorAjar       MachineStatus = "Door:1"
	StatusDoorOpened     MachineStatus = "Door:2"
	StatusDoorResuming   MachineStatus = "Door:3"
	StatusCheck          MachineStatus = "Check"
	StatusHome           MachineStatus = "Home"
	StatusSleep          MachineStatus = "Sleep"
)

var machineStatusDescriptions = map[MachineStatus]string{
	StatusIdle:           "Grbl is waiting for work.",
	StatusRun:            "Running G-code.",
	StatusHoldComplete:   "Hold complete. Ready to resume.",
	StatusHoldInProgress: "Hold in-progress. Reset will throw an alarm.",
	StatusJog:            "Jogging.",
	StatusAlarm:          "Alarm. Unlock or home to continue.",
	StatusDoorClosed:     "Door closed. Ready to resume.",
	StatusDoorAjar:       "Machine stopped. Door still ajar. Can't resume until closed.",
	StatusDoorOpened:     "Door opened. Hold (or parking retract) in-progress. Reset will throw an alarm.",
	StatusDoorResuming:   "Door closed and resuming. Restoring from park, if applicable. Reset will throw an alarm.",
	StatusCheck:          "G-code check mode.",
	StatusHome:           "Homing cycle in progress.",
	StatusSleep:          "Sleeping.",
}

// Valid returns whether the status is one of the reported states.
func (s MachineStatus) Valid() bool {
	_, ok := machineStatusDescriptions[s]
	return ok
}

// Description gives a human readable explanation of the status.
func (s MachineStatus) Description() string {
	if description, ok := machineStatusDescriptions[s]; ok {
		return description
	}
	if s == StatusNone {
		return "No status received."
	}
	return fmt.Sprintf("Unknown status %#v.", string(s))
}

////////////////////////////////////////////////////////////////////////////////////////////////////
// Coordinate systems
////////////////////////////////////////////////////////////////////////////////////////////////////

// CoordinateSystem identifies a coordinate system slot reported by $#, by its G-code number.
type CoordinateSystem int

const (
	CoordinateSystemG28 CoordinateSystem = 28
	CoordinateSystemG30 CoordinateSystem = 30
	CoordinateSystemG54 CoordinateSystem = 54
	CoordinateSystemG55 CoordinateSystem = 55
	CoordinateSystemG56 CoordinateSystem = 56
	CoordinateSystemG57 CoordinateSystem = 57
	CoordinateSystemG58 CoordinateSystem = 58
	CoordinateSystemG59 CoordinateSystem = 59
	CoordinateSystemG92 CoordinateSystem = 92
)

// CoordinateSystems lists all known coordinate systems.
var CoordinateSystems = []CoordinateSystem{
	CoordinateSystemG28,
	CoordinateSystemG30,
	CoordinateSystemG54,
	CoordinateSystemG55,
	CoordinateSystemG56,
	CoordinateSystemG57,
	CoordinateSystemG58,
	CoordinateSystemG59,
	CoordinateSystemG92,
}

func (c CoordinateSystem) Valid() bool {
	return slices.Contains(CoordinateSystems, c)
}

func (c CoordinateSystem) String() string {
	return fmt.Sprintf("G%d", int(c))
}

// PositionSource tells which position was last received from Grbl, and is thus authoritative.
type PositionSource int

const (
	PositionSourceNone PositionSource = iota
	PositionSourceMachine
	PositionSourceWork
)

func (p PositionSource) String() string {
	switch p {
	case PositionSourceMachine:
		return "MPos"
	case PositionSourceWork:
		return "WPos"
	default:
		return "None"
	}
}

////////////////////////////////////////////////////////////////////////////////////////////////////
// Modal state
////////////////////////////////////////////////////////////////////////////////////////////////////

type MotionMode string

const (
	MotionModeRapid               MotionMode = "G0"
	MotionModeLinear              MotionMode = "G1"
	MotionModeArcClockwise        MotionMode = "G2"
	MotionModeArcCounterClockwise MotionMode = "G3"
	MotionModeProbeToward         MotionMode = "G38.2"
	MotionModeProbeTowardNoError  MotionMode = "G38.3"
	MotionModeProbeAway           MotionMode = "G38.4"
	MotionModeProbeAwayNoError    MotionMode = "G38.5"
	MotionModeCancel              MotionMode = "G80"
)

func (m MotionMode) String() string {
	return string(m)
}

type Plane int

const (
	PlaneXY Plane = iota
	PlaneZX
	PlaneYZ
)

func (p Plane) String() string {
	return [...]string{"G17", "G18", "G19"}[p]
}

type Units int

const (
	UnitsMillimeters Units = iota
	UnitsInches
)

func (u Units) String() string {
	if u == UnitsInches {
		return "G20"
	}
	return "G21"
}

type DistanceMode int

const (
	DistanceModeAbsolute DistanceMode = iota
	DistanceModeRelative
)

func (d DistanceMode) String() string {
	if d == DistanceModeRelative {
		return "G91"
	}
	return "G90"
}

type FeedMode int

const (
	FeedModeUnitsPerMinute FeedMode = iota
	FeedModeInverseTime
)

func (f FeedMode) String() string {
	if f == FeedModeInverseTime {
		return "G93"
	}
	return "G94"
}

type Spindle int

const (
	SpindleOff Spindle = iota
	SpindleClockwise
	SpindleCounterClockwise
)

func (s Spindle) String() string {
	return [...]string{"M5", "M3", "M4"}[s]
}

type Coolant int

const (
	CoolantOff Coolant = iota
	CoolantMist
	CoolantFlood
	CoolantMistAndFlood
)

func (c Coolant) String() string {
	return [...]string{"M9", "M7", "M8", "M78"}[c]
}

// ModalState is the G-code parser state, as reported by [GC:...].
type ModalState struct {
	Motion       MotionMode
	Plane        Plane
	Units        Units
	Distance     DistanceMode
	FeedMode     FeedMode
	Spindle      Spindle
	Coolant      Coolant
	Tool         float64
	SpindleSpeed float64
	FeedRate     float64
}

var defaultModalState = ModalState{
	Motion: MotionModeRapid,
}

////////////////////////////////////////////////////////////////////////////////////////////////////
// Pins
////////////////////////////////////////////////////////////////////////////////////////////////////

// Pin is an input pin Grbl reports as triggered.
type Pin uint16

const (
	PinLimitX Pin = 1 << iota
	PinLimitY
	PinLimitZ
	PinLimitA
	PinLimitB
	PinLimitC
	PinProbe
	PinDoor
	PinHold
	PinSoftReset
	PinCycleStart
)

var pinLetters = []struct {
	letter byte
	pin    Pin
}{
	{'X', PinLimitX},
	{'Y', PinLimitY},
	{'Z', PinLimitZ},
	{'A', PinLimitA},
	{'B', PinLimitB},
	{'C', PinLimitC},
	{'P', PinProbe},
	{'D', PinDoor},
	{'H', PinHold},
	{'R', PinSoftReset},
	{'S', PinCycleStart},
}

// PinSet holds all triggered pins.
type PinSet uint16

// NewPinSet parses the Pn: letters. Unknown letters are skipped and reported in the error.
func NewPinSet(letters string) (PinSet, error) {
	var set PinSet
	var unknown []byte
	for i := 0; i < len(letters); i++ {
		found := false
		for _, pl := range pinLetters {
			if pl.letter == letters[i] {
				set |= PinSet(pl.pin)
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, letters[i])
		}
	}
	if len(unknown) > 0 {
		return set, fmt.Errorf("unknown pins: %#v", string(unknown))
	}
	return set, nil
}

func (s PinSet) Has(pin Pin) bool {
	return s&PinSet(pin) != 0
}

func (s PinSet) String() string {
	var b strings.Builder
	for _, pl := range pinLetters {
		if s.Has(pl.pin) {
			b.WriteByte(pl.letter)
		}
	}
	return b.String()
}

////////////////////////////////////////////////////////////////////////////////////////////////////
// Status report values
////////////////////////////////////////////////////////////////////////////////////////////////////

// Overrides are the current override values in percent of programmed values.
type Overrides struct {
	Feed    int
	Rapid   int
	Spindle int
}

var defaultOverrides = Overrides{Feed: 100, Rapid: 100, Spindle: 100}

// Buffer is the planner buffer fill, as reported by Bf:.
type Buffer struct {
	Used  int
	Total int
}

// Accessories are the spindle and coolant outputs reported by A:.
type Accessories struct {
	SpindleClockwise        bool
	SpindleCounterClockwise bool
	Flood                   bool
	Mist                    bool
}

// DigitalIOCount is the number of digital outputs and inputs.
const DigitalIOCount = 4

// ProbeResult is the last [PRB:...] report.
type ProbeResult struct {
	Coordinates Vector
	// Number of coordinates reported
	Axes    int
	Success bool
}

// BuildOptions is the compile time options report [OPT:codes,blocks,rx].
type BuildOptions struct {
	Codes         string
	PlannerBlocks int
	RxBufferBytes int
}

// PendingRequests are one shot flags telling the decoders a caller asked for the next reply of
// a given kind to be returned.
type PendingRequests struct {
	Status      bool
	GcodeParams bool
	GcodeState  bool
	Probe       bool
}

////////////////////////////////////////////////////////////////////////////////////////////////////
// MachineState
////////////////////////////////////////////////////////////////////////////////////////////////////

// MinAxes is the minimum number of axes Grbl reports.
const MinAxes = 3

var defaultAxisNames = []string{"X", "Y", "Z"}

// MachineState is everything known about the controller, accumulated from decoded lines.
type MachineState struct {
	AxisCount int
	AxisNames []string

	MachinePosition      Vector
	WorkPosition         Vector
	WorkCoordinateOffset Vector
	PositionSource       PositionSource

	ActiveCoordinateSystem CoordinateSystem
	CoordinateSystems      map[CoordinateSystem]Vector
	ActiveOffset           Vector
	G92Offset              Vector
	ToolLengthOffset       float64
	Probe                  *ProbeResult

	Modal ModalState

	Status      MachineStatus
	Pins        PinSet
	Overrides   Overrides
	Buffer      Buffer
	Accessories Accessories
	FeedRate    float64
	SpindleRate float64
	LineNumber  int

	DigitalOutputs     [DigitalIOCount]bool
	DigitalInputs      [DigitalIOCount]bool
	DigitalIOAvailable bool

	Settings     map[int]string
	BuildOptions BuildOptions
	Version      string

	Pending PendingRequests
}

// NewMachineState returns the state of a freshly connected controller.
func NewMachineState() MachineState {
	s := MachineState{
		AxisCount:              len(defaultAxisNames),
		AxisNames:              slices.Clone(defaultAxisNames),
		ActiveCoordinateSystem: CoordinateSystemG54,
		CoordinateSystems:      map[CoordinateSystem]Vector{},
		Modal:                  defaultModalState,
		Overrides:              defaultOverrides,
		Settings:               map[int]string{},
	}
	for _, c := range CoordinateSystems {
		s.CoordinateSystems[c] = Vector{}
	}
	return s
}

// Copy returns a deep copy.
func (s MachineState) Copy() MachineState {
	s.AxisNames = slices.Clone(s.AxisNames)
	s.CoordinateSystems = maps.Clone(s.CoordinateSystems)
	s.Settings = maps.Clone(s.Settings)
	if s.Probe != nil {
		probe := *s.Probe
		s.Probe = &probe
	}
	return s
}

// AxisIndex returns the index for the axis name.
func (s *MachineState) AxisIndex(name string) (int, bool) {
	i := slices.Index(s.AxisNames, name)
	return i, i >= 0
}

// AxisValue returns the value of v for the named axis.
func (s *MachineState) AxisValue(v Vector, name string) (float64, bool) {
	i, ok := s.AxisIndex(name)
	if !ok {
		return 0, false
	}
	return v[i], true
}

// Setting returns the raw value of a $N setting, if it was received.
func (s *MachineState) Setting(number int) (string, bool) {
	value, ok := s.Settings[number]
	return value, ok
}

func (s *MachineState) recomputeDerivedPosition() {
	switch s.PositionSource {
	case PositionSourceWork:
		s.MachinePosition = s.WorkPosition.Add(s.WorkCoordinateOffset)
	default:
		s.WorkPosition = s.MachinePosition.Sub(s.WorkCoordinateOffset)
	}
}
