package transport

import (
	"fmt"
	"maps"
	"slices"
)

// RealTimeCommand is a single byte command Grbl acts upon as soon as it is received, bypassing the
// line buffer.
type RealTimeCommand byte

const (
	RealTimeCommandSoftReset         RealTimeCommand = 0x18
	RealTimeCommandStatusReportQuery RealTimeCommand = '?'
	RealTimeCommandCycleStartResume  RealTimeCommand = '~'
	RealTimeCommandFeedHold          RealTimeCommand = '!'
	RealTimeCommandSafetyDoor        RealTimeCommand = 0x84
	RealTimeCommandJogCancel         RealTimeCommand = 0x85

	RealTimeCommandFeedOverrideReset      RealTimeCommand = 0x90
	RealTimeCommandFeedOverrideIncrease10 RealTimeCommand = 0x91
	RealTimeCommandFeedOverrideDecrease10 RealTimeCommand = 0x92
	RealTimeCommandFeedOverrideIncrease1  RealTimeCommand = 0x93
	RealTimeCommandFeedOverrideDecrease1  RealTimeCommand = 0x94

	RealTimeCommandRapidOverride100 RealTimeCommand = 0x95
	RealTimeCommandRapidOverride50  RealTimeCommand = 0x96
	RealTimeCommandRapidOverride25  RealTimeCommand = 0x97

	RealTimeCommandSpindleOverrideReset      RealTimeCommand = 0x99
	RealTimeCommandSpindleOverrideIncrease10 RealTimeCommand = 0x9A
	RealTimeCommandSpindleOverrideDecrease10 RealTimeCommand = 0x9B
	RealTimeCommandSpindleOverrideIncrease1  RealTimeCommand = 0x9C
	RealTimeCommandSpindleOverrideDecrease1  RealTimeCommand = 0x9D

	RealTimeCommandToggleSpindleStop  RealTimeCommand = 0x9E
	RealTimeCommandToggleFloodCoolant RealTimeCommand = 0xA0
	RealTimeCommandToggleMistCoolant  RealTimeCommand = 0xA1
)

var realTimeCommandNames = map[RealTimeCommand]string{
	RealTimeCommandSoftReset:                 "soft-reset",
	RealTimeCommandStatusReportQuery:         "status-report",
	RealTimeCommandCycleStartResume:          "cycle-start",
	RealTimeCommandFeedHold:                  "feed-hold",
	RealTimeCommandSafetyDoor:                "safety-door",
	RealTimeCommandJogCancel:                 "jog-cancel",
	RealTimeCommandFeedOverrideReset:         "feed-100",
	RealTimeCommandFeedOverrideIncrease10:    "feed+10",
	RealTimeCommandFeedOverrideDecrease10:    "feed-10",
	RealTimeCommandFeedOverrideIncrease1:     "feed+1",
	RealTimeCommandFeedOverrideDecrease1:     "feed-1",
	RealTimeCommandRapidOverride100:          "rapid-100",
	RealTimeCommandRapidOverride50:           "rapid-50",
	RealTimeCommandRapidOverride25:           "rapid-25",
	RealTimeCommandSpindleOverrideReset:      "spindle-100",
	RealTimeCommandSpindleOverrideIncrease10: "spindle+10",
	RealTimeCommandSpindleOverrideDecrease10: "spindle-10",
	RealTimeCommandSpindleOverrideIncrease1:  "spindle+1",
	RealTimeCommandSpindleOverrideDecrease1:  "spindle-1",
	RealTimeCommandToggleSpindleStop:         "toggle-spindle",
	RealTimeCommandToggleFloodCoolant:        "toggle-flood",
	RealTimeCommandToggleMistCoolant:         "toggle-mist",
}

// ParseRealTimeCommand returns the command with the given name, such as "feed-hold".
func ParseRealTimeCommand(name string) (RealTimeCommand, error) {
	for command, commandName := range realTimeCommandNames {
		if commandName == name {
			return command, nil
		}
	}
	return 0, fmt.Errorf("transport: unknown real time command: %#v", name)
}

// RealTimeCommandNames returns the sorted names accepted by ParseRealTimeCommand.
func RealTimeCommandNames() []string {
	return slices.Sorted(maps.Values(realTimeCommandNames))
}

func (c RealTimeCommand) String() string {
	if name, ok := realTimeCommandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown (%#x)", byte(c))
}
