// Package host reads what the editor exposes about itself: the snapshot file
// written by the editor-side shim, the live main window title and whether
// the editor process is still running.
//
// Every lookup is best effort. Missing files, unexpected shapes and absent
// windows all surface as "nothing found" so callers can fall back quietly.
package host

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// SnapshotVersion is the snapshot schema this package understands.
const SnapshotVersion = 1

// maxUnwrapDepth bounds the recursive unwrap of wrapped values.
const maxUnwrapDepth = 8

// ErrNoWindow is returned when the editor's main window cannot be found.
var ErrNoWindow = errors.New("host main window not found")

// ///////////////////////////////////////////////
// Snapshot
// ///////////////////////////////////////////////

// Snapshot is the editor state written by the shim.
type Snapshot struct {
	// Version is the schema version. See [SnapshotVersion].
	Version int `json:"$version"`
	// PID is the editor process ID.
	PID int `json:"pid"`
	// Executable is the full path of the editor executable.
	Executable string `json:"executable"`
	// MainWindowTitle is the title last seen by the shim.
	MainWindowTitle string `json:"mainWindowTitle"`
	// ProjectFilePath is either a string or an object holding the string
	// under "Value", possibly nested.
	ProjectFilePath json.RawMessage `json:"projectFilePath,omitempty"`
}

// ReadSnapshot reads and decodes the snapshot at path.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read host snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse host snapshot: %w", err)
	}
	if s.Version > SnapshotVersion {
		return nil, fmt.Errorf("host snapshot version %d is newer than supported %d", s.Version, SnapshotVersion)
	}
	return &s, nil
}

// ProjectPath unwraps ProjectFilePath. It reports false when no non-empty
// path is present.
func (s *Snapshot) ProjectPath() (string, bool) {
	path, ok := unwrapString(s.ProjectFilePath, 0)
	if !ok || path == "" {
		return "", false
	}
	return path, true
}

// unwrapString returns raw as a string, or recurses into its "Value" (or
// "value") member until a string is found.
func unwrapString(raw json.RawMessage, depth int) (string, bool) {
	if len(raw) == 0 || depth > maxUnwrapDepth {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", false
	}
	for _, key := range []string{"Value", "value"} {
		if inner, ok := obj[key]; ok {
			return unwrapString(inner, depth+1)
		}
	}
	return "", false
}
