package shell

import "strconv"

// StatusVar is the environment entry name carrying the decimal exit
// code of the most recent foreground pipeline (spec.md §4.6). No other
// variables are touched by the Status Recorder.
const StatusVar = "?"

// RecordStatus writes status into env's StatusVar entry.
func RecordStatus(env Environment, status int) {
	_ = env.Set(StatusVar, strconv.Itoa(status))
}
