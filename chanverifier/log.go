package chanverifier

import "github.com/btcsuite/btclog"

// log is the package-wide logger, silent until the embedding application
// wires in a real one via UseLogger.
var log btclog.Logger

func init() {
	UseLogger(btclog.Disabled)
}

// DisableLog disables all library log output.
func DisableLog() {
	UseLogger(btclog.Disabled)
}

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger btclog.Logger) {
	log = logger
}
