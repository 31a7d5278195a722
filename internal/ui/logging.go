package ui

import (
	"io"
	"log"
)

var debugLog = log.New(io.Discard, "", log.LstdFlags)

// SetVerboseLogging toggles verbose UI logging.
func SetVerboseLogging(enabled bool) {
	if enabled {
		debugLog.SetOutput(log.Writer())
		return
	}
	debugLog.SetOutput(io.Discard)
}
