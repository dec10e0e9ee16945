//go:build !windows

package discord

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// dialTimeout bounds each socket attempt.
const dialTimeout = time.Second

// socketPaths lists candidate sockets in probe order: the runtime dir,
// the temp dir, then Snap and Flatpak sandboxes.
func socketPaths() []string {
	var dirs []string
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		dirs = append(dirs, dir)
	}
	for _, env := range []string{"TMPDIR", "TMP", "TEMP"} {
		if dir := os.Getenv(env); dir != "" {
			dirs = append(dirs, dir)
			break
		}
	}
	dirs = append(dirs, "/tmp")

	run := filepath.Join("/run/user", strconv.Itoa(os.Getuid()))
	for _, sandbox := range []string{
		"snap.discord",
		"snap.discord-canary",
		"snap.discord-ptb",
		"app/com.discordapp.Discord",
		"app/com.discordapp.DiscordCanary",
		"app/com.discordapp.DiscordPTB",
	} {
		dirs = append(dirs, filepath.Join(run, sandbox))
	}

	var paths []string
	for _, dir := range dirs {
		for i := range ipcSlots {
			paths = append(paths, filepath.Join(dir, fmt.Sprintf("discord-ipc-%d", i)))
		}
	}
	return append(paths, wslSocketPaths()...)
}

func connectToDiscord() (net.Conn, error) {
	for _, path := range socketPaths() {
		conn, err := net.DialTimeout("unix", path, dialTimeout)
		if err == nil {
			return conn, nil
		}
	}
	if isWSL() {
		return nil, fmt.Errorf("%w: under WSL the Windows pipe needs a socat + npiperelay.exe relay", ErrIPCNotAvailable)
	}
	return nil, ErrIPCNotAvailable
}
