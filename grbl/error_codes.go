package grbl

var errorCodes = map[int]CodeDescription{
	1:  {Name: "Expected command letter", Description: "G-code words consist of a letter and a value. Letter was not found."},
	2:  {Name: "Bad number format", Description: "Numeric value format is not valid or missing an expected value."},
	3:  {Name: "Invalid statement", Description: "Grbl '$' system command was not recognized or supported."},
	4:  {Name: "Value < 0", Description: "Negative value received for an expected positive value."},
	5:  {Name: "Setting disabled", Description: "Homing cycle is not enabled via settings."},
	6:  {Name: "Value < 3 usec", Description: "Minimum step pulse time must be greater than 3usec."},
	7:  {Name: "EEPROM read fail. Using defaults", Description: "EEPROM read failed. Reset and restored to default values."},
	8:  {Name: "Not idle", Description: "Grbl '$' command cannot be used unless Grbl is IDLE. Ensures smooth operation during a job."},
	9:  {Name: "G-code lock", Description: "G-code locked out during alarm or jog state."},
	10: {Name: "Homing not enabled", Description: "Soft limits cannot be enabled without homing also enabled."},
	11: {Name: "Line overflow", Description: "Max characters per line exceeded. Line was not processed and executed."},
	12: {Name: "Step rate > 30kHz", Description: "(Compile Option) Grbl '$' setting value exceeds the maximum step rate supported."},
	13: {Name: "Check Door", Description: "Safety door detected as opened and door state initiated."},
	14: {Name: "Line length exceeded", Description: "(Grbl-Mega Only) Build info or startup line exceeded EEPROM line length limit."},
	15: {Name: "Travel exceeded", Description: "Jog target exceeds machine travel. Command ignored."},
	16: {Name: "Invalid jog command", Description: "Jog command with no '=' or contains prohibited g-code."},
	17: {Name: "Setting disabled", Description: "Laser mode requires PWM output."},
	20: {Name: "Unsupported command", Description: "Unsupported or invalid g-code command found in block."},
	21: {Name: "Modal group violation", Description: "More than one g-code command from same modal group found in block."},
	22: {Name: "Undefined feed rate", Description: "Feed rate has not yet been set or is undefined."},
	23: {Name: "Invalid gcode ID:23", Description: "G-code command in block requires an integer value."},
	24: {Name: "Invalid gcode ID:24", Description: "Two G-code commands that both require the use of the XYZ axis words were detected in the block."},
	25: {Name: "Invalid gcode ID:25", Description: "A G-code word was repeated in the block."},
	26: {Name: "Invalid gcode ID:26", Description: "A G-code command implicitly or explicitly requires XYZ axis words in the block, but none were detected."},
	27: {Name: "Invalid gcode ID:27", Description: "N line number value is not within the valid range of 1 - 9,999,999."},
	28: {Name: "Invalid gcode ID:28", Description: "A G-code command was sent, but is missing some required P or L value words in the line."},
	29: {Name: "Invalid gcode ID:29", Description: "Grbl supports six work coordinate systems G54-G59. G59.1, G59.2, and G59.3 are not supported."},
	30: {Name: "Invalid gcode ID:30", Description: "The G53 G-code command requires either a G0 seek or G1 feed motion mode to be active. A different motion was active."},
	31: {Name: "Invalid gcode ID:31", Description: "There are unused axis words in the block and G80 motion mode cancel is active."},
	32: {Name: "Invalid gcode ID:32", Description: "A G2 or G3 arc was commanded but there are no XYZ axis words in the selected plane to trace the arc."},
	33: {Name: "Invalid gcode ID:33", Description: "The motion command has an invalid target. G2, G3, and G38.2 generates this error, if the arc is impossible to generate or if the probe target is the current position."},
	34: {Name: "Invalid gcode ID:34", Description: "A G2 or G3 arc, traced with the radius definition, had a mathematical error when computing the arc geometry. Try either breaking up the arc into semi-circles or quadrants, or redefine them with the arc offset definition."},
	35: {Name: "Invalid gcode ID:35", Description: "A G2 or G3 arc, traced with the offset definition, is missing the IJK offset word in the selected plane to trace the arc."},
	36: {Name: "Invalid gcode ID:36", Description: "There are unused, leftover G-code words that aren't used by any command in the block."},
	37: {Name: "Invalid gcode ID:37", Description: "The G43.1 dynamic tool length offset command cannot apply an offset to an axis other than its configured axis. The Grbl default axis is the Z-axis."},
	38: {Name: "Invalid gcode ID:38", Description: "Tool number greater than max supported value."},
}
