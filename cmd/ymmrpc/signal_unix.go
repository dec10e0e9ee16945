//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals also includes SIGTERM, sent by service managers.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}
