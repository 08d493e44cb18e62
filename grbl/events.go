package grbl

// Event is a change notification emitted after a line is decoded. The set of events is closed:
// all implementations live in this package.
type Event interface {
	Name() string
	isEvent()
}

type StatusChanged struct {
	Old MachineStatus
	New MachineStatus
}

type PositionChanged struct {
	OldMachine Vector
	Machine    Vector
	OldWork    Vector
	Work       Vector
	Source     PositionSource
}

type WorkCoordinateOffsetChanged struct {
	Old Vector
	New Vector
}

type OverridesChanged struct {
	Old Overrides
	New Overrides
}

type BufferChanged struct {
	Old Buffer
	New Buffer
}

type PinsChanged struct {
	Old PinSet
	New PinSet
}

// ProbeContact fires once when the probe pin becomes triggered.
type ProbeContact struct{}

// ResetRequested fires once when the soft reset pin becomes triggered.
type ResetRequested struct{}

type AccessoriesChanged struct {
	Old Accessories
	New Accessories
}

type FeedSpindleChanged struct {
	FeedRate    float64
	SpindleRate float64
}

type LineNumberChanged struct {
	Old int
	New int
}

type DigitalOutputChanged struct {
	Index int
	Value bool
}

type DigitalInputChanged struct {
	Index int
	Value bool
}

type CoordinateSystemChanged struct {
	Old CoordinateSystem
	New CoordinateSystem
}

type CoordinateSystemOffsetChanged struct {
	CoordinateSystem CoordinateSystem
	Old              Vector
	New              Vector
}

type ToolLengthOffsetChanged struct {
	Old float64
	New float64
}

type ProbeResultChanged struct {
	Result ProbeResult
}

// ModalStateChanged is emitted per modal group, with the G-code words for old and new values.
type ModalStateChanged struct {
	Group string
	Old   string
	New   string
}

type AxesChanged struct {
	Count int
	Names []string
}

type SettingChanged struct {
	Number int
	Old    string
	New    string
}

type DigitalCapabilityChanged struct {
	Available bool
}

type AlarmRaised struct {
	Code        int
	Description CodeDescription
}

// FeedbackMessage is a [MSG:...] push message.
type FeedbackMessage struct {
	Text string
}

// Reset is emitted when the controller resets, or when the state is reset to defaults.
type Reset struct{}

func (StatusChanged) Name() string                 { return "StatusChanged" }
func (PositionChanged) Name() string               { return "PositionChanged" }
func (WorkCoordinateOffsetChanged) Name() string   { return "WorkCoordinateOffsetChanged" }
func (OverridesChanged) Name() string              { return "OverridesChanged" }
func (BufferChanged) Name() string                 { return "BufferChanged" }
func (PinsChanged) Name() string                   { return "PinsChanged" }
func (ProbeContact) Name() string                  { return "ProbeContact" }
func (ResetRequested) Name() string                { return "ResetRequested" }
func (AccessoriesChanged) Name() string            { return "AccessoriesChanged" }
func (FeedSpindleChanged) Name() string            { return "FeedSpindleChanged" }
func (LineNumberChanged) Name() string             { return "LineNumberChanged" }
func (DigitalOutputChanged) Name() string          { return "DigitalOutputChanged" }
func (DigitalInputChanged) Name() string           { return "DigitalInputChanged" }
func (CoordinateSystemChanged) Name() string       { return "CoordinateSystemChanged" }
func (CoordinateSystemOffsetChanged) Name() string { return "CoordinateSystemOffsetChanged" }
func (ToolLengthOffsetChanged) Name() string       { return "ToolLengthOffsetChanged" }
func (ProbeResultChanged) Name() string            { return "ProbeResultChanged" }
func (ModalStateChanged) Name() string             { return "ModalStateChanged" }
func (AxesChanged) Name() string                   { return "AxesChanged" }
func (SettingChanged) Name() string                { return "SettingChanged" }
func (DigitalCapabilityChanged) Name() string      { return "DigitalCapabilityChanged" }
func (AlarmRaised) Name() string                   { return "AlarmRaised" }
func (FeedbackMessage) Name() string               { return "FeedbackMessage" }
func (Reset) Name() string                         { return "Reset" }

func (StatusChanged) isEvent()                 {}
func (PositionChanged) isEvent()               {}
func (WorkCoordinateOffsetChanged) isEvent()   {}
func (OverridesChanged) isEvent()              {}
func (BufferChanged) isEvent()                 {}
func (PinsChanged) isEvent()                   {}
func (ProbeContact) isEvent()                  {}
func (ResetRequested) isEvent()                {}
func (AccessoriesChanged) isEvent()            {}
func (FeedSpindleChanged) isEvent()            {}
func (LineNumberChanged) isEvent()             {}
func (DigitalOutputChanged) isEvent()          {}
func (DigitalInputChanged) isEvent()           {}
func (CoordinateSystemChanged) isEvent()       {}
func (CoordinateSystemOffsetChanged) isEvent() {}
func (ToolLengthOffsetChanged) isEvent()       {}
func (ProbeResultChanged) isEvent()            {}
func (ModalStateChanged) isEvent()             {}
func (AxesChanged) isEvent()                   {}
func (SettingChanged) isEvent()                {}
func (DigitalCapabilityChanged) isEvent()      {}
func (AlarmRaised) isEvent()                   {}
func (FeedbackMessage) isEvent()               {}
func (Reset) isEvent()                         {}
