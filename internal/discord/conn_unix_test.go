//go:build !windows

package discord

import (
	"net"
	"path/filepath"
	"strings"
	"testing"
)

func TestSocketPathsOrder(t *testing.T) {
	runtime := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", runtime)

	paths := socketPaths()
	if len(paths) == 0 {
		t.Fatal("no candidate paths")
	}
	if want := filepath.Join(runtime, "discord-ipc-0"); paths[0] != want {
		t.Errorf("first path = %q, want %q", paths[0], want)
	}
	var flatpak bool
	for _, p := range paths {
		if strings.Contains(p, "com.discordapp.Discord/discord-ipc-") {
			flatpak = true
		}
	}
	if !flatpak {
		t.Error("flatpak socket paths missing")
	}
}

func TestConnectToDiscordFindsSocket(t *testing.T) {
	runtime := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", runtime)

	ln, err := net.Listen("unix", filepath.Join(runtime, "discord-ipc-3"))
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	defer ln.Close()
	go func() {
		if c, err := ln.Accept(); err == nil {
			c.Close()
		}
	}()

	conn, err := connectToDiscord()
	if err != nil {
		t.Fatalf("connectToDiscord: %v", err)
	}
	conn.Close()
}
