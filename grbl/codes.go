package grbl

import "fmt"

// CodeDescription describes an error, alarm or setting code.
type CodeDescription struct {
	Name        string
	Unit        string
	Description string
}

var unknownErrorDescription = CodeDescription{
	Name:        "Unknown error",
	Description: "Error code is not documented for this Grbl version.",
}

var unknownAlarmDescription = CodeDescription{
	Name:        "Unknown alarm",
	Description: "Alarm code is not documented for this Grbl version.",
}

// LookupError returns the description of a Grbl error code. Unknown codes return a generic
// description and an error wrapping ErrUnknownErrorCode.
func LookupError(code int) (CodeDescription, error) {
	if description, ok := errorCodes[code]; ok {
		return description, nil
	}
	return unknownErrorDescription, fmt.Errorf("%w: %d", ErrUnknownErrorCode, code)
}

// LookupAlarm returns the description of a Grbl alarm code. Unknown codes return a generic
// description and an error wrapping ErrUnknownAlarmCode.
func LookupAlarm(code int) (CodeDescription, error) {
	if description, ok := alarmCodes[code]; ok {
		return description, nil
	}
	return unknownAlarmDescription, fmt.Errorf("%w: %d", ErrUnknownAlarmCode, code)
}

// LookupSetting returns the description of a Grbl setting. Unknown settings return an empty
// description and an error wrapping ErrUnknownSettingCode.
func LookupSetting(number int) (CodeDescription, error) {
	if description, ok := settingCodes[number]; ok {
		return description, nil
	}
	return CodeDescription{}, fmt.Errorf("%w: %d", ErrUnknownSettingCode, number)
}

// ErrorMessage formats an error code as "error:N: name,\ndescription".
func ErrorMessage(code int) string {
	description, _ := LookupError(code)
	return fmt.Sprintf("error:%d: %s,\n%s", code, description.Name, description.Description)
}

// AlarmMessage formats an alarm code as "ALARM:N: name,\ndescription".
func AlarmMessage(code int) string {
	description, _ := LookupAlarm(code)
	return fmt.Sprintf("ALARM:%d: %s,\n%s", code, description.Name, description.Description)
}

// SettingDescription formats a setting as "name (unit) : description". Unknown settings render
// with empty fields.
func SettingDescription(number int) string {
	description, _ := LookupSetting(number)
	return fmt.Sprintf("%s (%s) : %s", description.Name, description.Unit, description.Description)
}
