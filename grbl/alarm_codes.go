package grbl

var alarmCodes = map[int]CodeDescription{
	0: {Name: "No Alarm."},
	1: {Name: "Hard limit", Description: "Hard limit has been triggered. Machine position is likely lost due to sudden halt. Re-homing is highly recommended."},
	2: {Name: "Soft limit", Description: "Soft limit alarm. G-code motion target exceeds machine travel. Machine position retained. Alarm may be safely unlocked."},
	3: {Name: "Abort during cycle", Description: "Reset while in motion. Machine position is likely lost due to sudden halt. Re-homing is highly recommended."},
	4: {Name: "Probe fail", Description: "Probe fail. Probe is not in the expected initial state before starting probe cycle when G38.2 and G38.3 is not triggered and G38.4 and G38.5 is triggered."},
	5: {Name: "Probe fail", Description: "Probe fail. Probe did not contact the workpiece within the programmed travel for G38.2 and G38.4."},
	6: {Name: "Homing fail", Description: "Homing fail. The active homing cycle was reset."},
	7: {Name: "Homing fail", Description: "Homing fail. Safety door was opened during homing cycle."},
	8: {Name: "Homing fail", Description: "Homing fail. Pull off travel failed to clear limit switch. Try increasing pull-off setting or check wiring."},
	9: {Name: "Homing fail", Description: "Homing fail. Could not find limit switch within search distances. Try increasing max travel, decreasing pull-off distance, or check wiring."},
}
