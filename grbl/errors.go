package grbl

import "errors"

// ErrMalformedStatus is returned when a status report is not delimited by < and >.
var ErrMalformedStatus = errors.New("malformed status report")

// ErrNumericParse is returned when a numeric field payload can not be parsed. The field is skipped
// and its previous value retained.
var ErrNumericParse = errors.New("numeric parse failure")

// ErrUnknownErrorCode is returned for error codes outside the error table.
var ErrUnknownErrorCode = errors.New("unknown error code")

// ErrUnknownAlarmCode is returned for alarm codes outside the alarm table.
var ErrUnknownAlarmCode = errors.New("unknown alarm code")

// ErrUnknownSettingCode is returned for setting numbers outside the settings table.
var ErrUnknownSettingCode = errors.New("unknown setting code")

// ErrUnknownModalWord is returned for G-code parser state words that are not tracked.
var ErrUnknownModalWord = errors.New("unknown modal word")

// ErrUndecodedSentence is returned for lines that could not be classified.
var ErrUndecodedSentence = errors.New("undecoded sentence")

// ErrDisconnected is returned by waits resolved due to the transport going away.
var ErrDisconnected = errors.New("disconnected")
