// Package paths centralizes file and directory names used across the project.
// All data directory file names are defined here as the single source of truth.
package paths

import (
	"os"
	"path/filepath"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names.
const (
	SettingsFile     = "settings.toml"
	HostSnapshotFile = "host.json"
	LogFile          = "ymmrpc.log"
)

const (
	BinaryName = "ymmrpc"
	// DataDirName is the directory created under the user config dir.
	DataDirName = "ymmrpc"
)

// ReleaseManifest is the repo-relative path of the version manifest.
const ReleaseManifest = ".release-manifest.json"

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// Settings returns the full path to the settings file.
func (d DataDir) Settings() string { return filepath.Join(d.Root, SettingsFile) }

// HostSnapshot returns the full path to the snapshot written by the host shim.
func (d DataDir) HostSnapshot() string { return filepath.Join(d.Root, HostSnapshotFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// DefaultRoot returns the platform default data directory, typically
// %APPDATA%\ymmrpc on Windows and ~/.config/ymmrpc elsewhere. Falls back to
// ./.ymmrpc when no config directory can be determined.
func DefaultRoot() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "."+DataDirName)
	}
	return filepath.Join(base, DataDirName)
}
