//go:build windows

package discord

import (
	"fmt"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

// dialTimeout bounds each pipe attempt.
const dialTimeout = time.Second

func connectToDiscord() (net.Conn, error) {
	timeout := dialTimeout
	for i := range ipcSlots {
		conn, err := winio.DialPipe(fmt.Sprintf(`\\.\pipe\discord-ipc-%d`, i), &timeout)
		if err == nil {
			return conn, nil
		}
	}
	return nil, ErrIPCNotAvailable
}
