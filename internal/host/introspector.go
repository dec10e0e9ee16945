package host

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Introspector answers questions about the running editor from the snapshot
// file, falling back to live window lookup where the platform allows it.
type Introspector struct {
	snapshotPath string
}

// NewIntrospector returns an Introspector reading the snapshot at path.
func NewIntrospector(snapshotPath string) *Introspector {
	return &Introspector{snapshotPath: snapshotPath}
}

func (in *Introspector) snapshot() (*Snapshot, bool) {
	s, err := ReadSnapshot(in.snapshotPath)
	if err != nil {
		slog.Debug("host snapshot unavailable", "path", in.snapshotPath, "error", err)
		return nil, false
	}
	return s, true
}

// CurrentProjectPath returns the path of the open project, if any.
func (in *Introspector) CurrentProjectPath() (string, bool) {
	s, ok := in.snapshot()
	if !ok {
		return "", false
	}
	return s.ProjectPath()
}

// Executable returns the editor executable path, or "" if unknown.
func (in *Introspector) Executable() string {
	s, ok := in.snapshot()
	if !ok {
		return ""
	}
	return s.Executable
}

// MainWindowTitle returns the editor's main window title. The live title of
// the editor process is preferred; the snapshot's copy is used otherwise.
func (in *Introspector) MainWindowTitle() (string, error) {
	s, ok := in.snapshot()
	if !ok {
		return "", ErrNoWindow
	}
	if s.PID > 0 {
		title, err := windowTitle(s.PID)
		if err == nil && title != "" {
			return title, nil
		}
		if err != nil && !errors.Is(err, ErrNoWindow) {
			slog.Debug("live window title lookup failed", "pid", s.PID, "error", err)
		}
	}
	if s.MainWindowTitle != "" {
		return s.MainWindowTitle, nil
	}
	return "", ErrNoWindow
}

// WaitHostExit blocks until the editor process named by the snapshot has
// exited, checking every interval. It returns nil on exit and ctx.Err() on
// cancellation. While no snapshot or PID is available it keeps waiting.
func (in *Introspector) WaitHostExit(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s, ok := in.snapshot()
			if !ok || s.PID <= 0 {
				continue
			}
			if !processAlive(s.PID) {
				slog.Info("host process exited", "pid", s.PID)
				return nil
			}
		}
	}
}
