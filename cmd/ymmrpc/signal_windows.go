//go:build windows

package main

import "os"

// shutdownSignals is Ctrl+C only; the runtime maps console close and
// Ctrl+Break to os.Interrupt.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
