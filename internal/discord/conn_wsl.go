// WSL2 cannot reach the Windows named pipe directly. A relay such as
//
//	socat UNIX-LISTEN:/tmp/discord-ipc-0,fork EXEC:"npiperelay.exe -ep -s //./pipe/discord-ipc-0"
//
// exposes it as a unix socket; the extra paths below cover where such
// relays usually put it.

//go:build linux

package discord

import (
	"fmt"
	"os"
	"strings"
)

func isWSL() bool {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(data)), "microsoft")
}

func wslSocketPaths() []string {
	if !isWSL() {
		return nil
	}
	var paths []string
	for _, dir := range []string{"/mnt/wslg/runtime-dir", "/mnt/wslg"} {
		for i := range ipcSlots {
			paths = append(paths, fmt.Sprintf("%s/discord-ipc-%d", dir, i))
		}
	}
	return paths
}
