package grbl

var settingCodes = map[int]CodeDescription{
	0:   {Name: "Step pulse time", Unit: "microseconds", Description: "Sets time length per step (Minimum 3usec)."},
	1:   {Name: "Step idle delay", Unit: "milliseconds", Description: "Sets a short hold delay when stopping to let dynamics settle before disabling steppers. Value 255 keeps motors enabled with no delay."},
	2:   {Name: "Step pulse invert", Unit: "mask", Description: "Inverts the step signal. Set axis bit to invert (00000ZYX)."},
	3:   {Name: "Step direction invert", Unit: "mask", Description: "Inverts the direction signal. Set axis bit to invert (00000ZYX)."},
	4:   {Name: "Invert step enable pin", Unit: "boolean", Description: "Inverts the stepper driver enable pin signal."},
	5:   {Name: "Invert limit pins", Unit: "boolean", Description: "Inverts the all of the limit input pins."},
	6:   {Name: "Invert probe pin", Unit: "boolean", Description: "Inverts the probe input pin signal."},
	10:  {Name: "Status report options", Unit: "mask", Description: "Alters data included in status reports."},
	11:  {Name: "Junction deviation", Unit: "millimeters", Description: "Sets how fast Grbl travels through consecutive motions. Lower value slows it down."},
	12:  {Name: "Arc tolerance", Unit: "millimeters", Description: "Sets the G2 and G3 arc tracing accuracy based on radial error. Beware: A very small value may effect performance."},
	13:  {Name: "Report in inches", Unit: "boolean", Description: "Enables inch units when returning any position and rate value that is not a settings value."},
	20:  {Name: "Soft limits enable", Unit: "boolean", Description: "Enables soft limits checks within machine travel and sets alarm when exceeded. Requires homing."},
	21:  {Name: "Hard limits enable", Unit: "boolean", Description: "Enables hard limits. Immediately halts motion and throws an alarm when switch is triggered."},
	22:  {Name: "Homing cycle enable", Unit: "boolean", Description: "Enables homing cycle. Requires limit switches on all axes."},
	23:  {Name: "Homing direction invert", Unit: "mask", Description: "Homing searches for a switch in the positive direction. Set axis bit (00000ZYX) to search in negative direction."},
	24:  {Name: "Homing locate feed rate", Unit: "units (millimeters or degrees)/min", Description: "Feed rate to slowly engage limit switch to determine its location accurately."},
	25:  {Name: "Homing search seek rate", Unit: "units (millimeters or degrees)/min", Description: "Seek rate to quickly find the limit switch before the slower locating phase."},
	26:  {Name: "Homing switch debounce delay", Unit: "milliseconds", Description: "Sets a short delay between phases of homing cycle to let a switch debounce."},
	27:  {Name: "Homing switch pull-off distance", Unit: "millimeters", Description: "Retract distance after triggering switch to disengage it. Homing will fail if switch isn't cleared."},
	30:  {Name: "Maximum spindle speed", Unit: "RPM", Description: "Maximum spindle speed. Sets PWM to 100% duty cycle."},
	31:  {Name: "Minimum spindle speed", Unit: "RPM", Description: "Minimum spindle speed. Sets PWM to 0.4% or lowest duty cycle."},
	32:  {Name: "Laser-mode enable", Unit: "boolean", Description: "Enables laser mode. Consecutive G1/2/3 commands will not halt when spindle speed is changed."},
	100: {Name: "1st axis travel resolution", Unit: "step/unit", Description: "1st axis travel resolution in steps per unit (millimeter or degree)."},
	101: {Name: "2nd axis travel resolution", Unit: "step/unit", Description: "2nd axis travel resolution in steps per unit (millimeter or degree)."},
	102: {Name: "3rd axis travel resolution", Unit: "step/unit", Description: "3rd axis travel resolution in steps per unit (millimeter or degree)."},
	103: {Name: "4th axis travel resolution", Unit: "step/unit", Description: "4th axis travel resolution in steps per unit (millimeter or degree)."},
	104: {Name: "5th axis travel resolution", Unit: "step/unit", Description: "5th axis travel resolution in steps per unit (millimeter or degree)."},
	105: {Name: "6th axis travel resolution", Unit: "step/unit", Description: "6th axis travel resolution in steps per unit (millimeter or degree)."},
	110: {Name: "1st axis maximum rate", Unit: "unit/min", Description: "1st axis maximum rate. Used as G0 rapid rate."},
	111: {Name: "2nd axis maximum rate", Unit: "unit/min", Description: "2nd axis maximum rate. Used as G0 rapid rate."},
	112: {Name: "3rd axis maximum rate", Unit: "unit/min", Description: "3rd axis maximum rate. Used as G0 rapid rate."},
	113: {Name: "4th axis maximum rate", Unit: "unit/min", Description: "4th axis maximum rate. Used as G0 rapid rate."},
	114: {Name: "5th axis maximum rate", Unit: "unit/min", Description: "5th axis maximum rate. Used as G0 rapid rate."},
	115: {Name: "6th axis maximum rate", Unit: "unit/min", Description: "6th axis maximum rate. Used as G0 rapid rate."},
	120: {Name: "1st axis acceleration", Unit: "unit/sec^2", Description: "1st axis acceleration. Used for motion planning to not exceed motor torque and lose steps."},
	121: {Name: "2nd axis acceleration", Unit: "unit/sec^2", Description: "2nd axis acceleration. Used for motion planning to not exceed motor torque and lose steps."},
	122: {Name: "3rd axis acceleration", Unit: "unit/sec^2", Description: "3rd axis acceleration. Used for motion planning to not exceed motor torque and lose steps."},
	123: {Name: "4th axis acceleration", Unit: "unit/sec^2", Description: "4th axis acceleration. Used for motion planning to not exceed motor torque and lose steps."},
	124: {Name: "5th axis acceleration", Unit: "unit/sec^2", Description: "5th axis acceleration. Used for motion planning to not exceed motor torque and lose steps."},
	125: {Name: "6th axis acceleration", Unit: "unit/sec^2", Description: "6th axis acceleration. Used for motion planning to not exceed motor torque and lose steps."},
	130: {Name: "1st axis maximum travel", Unit: "unit (millimeters or degrees)", Description: "Maximum 1st axis travel distance from homing switch. Determines valid machine space for soft-limits and homing search distances."},
	131: {Name: "2nd axis maximum travel", Unit: "unit (millimeters or degrees)", Description: "Maximum 2nd axis travel distance from homing switch. Determines valid machine space for soft-limits and homing search distances."},
	132: {Name: "3rd axis maximum travel", Unit: "unit (millimeters or degrees)", Description: "Maximum 3rd axis travel distance from homing switch. Determines valid machine space for soft-limits and homing search distances."},
	133: {Name: "4th axis maximum travel", Unit: "unit (millimeters or degrees)", Description: "Maximum 4th axis travel distance from homing switch. Determines valid machine space for soft-limits and homing search distances."},
	134: {Name: "5th axis maximum travel", Unit: "unit (millimeters or degrees)", Description: "Maximum 5th axis travel distance from homing switch. Determines valid machine space for soft-limits and homing search distances."},
	135: {Name: "6th axis maximum travel", Unit: "unit (millimeters or degrees)", Description: "Maximum 6th axis travel distance from homing switch. Determines valid machine space for soft-limits and homing search distances."},
}
