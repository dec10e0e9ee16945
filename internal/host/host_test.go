package host

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"
)

func writeSnapshot(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "host.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ///////////////////////////////////////////////
// Snapshot
// ///////////////////////////////////////////////

func TestProjectPathUnwrap(t *testing.T) {
	deep := `"C:\\v\\deep.ymmp"`
	for range maxUnwrapDepth + 2 {
		deep = `{"Value":` + deep + `}`
	}

	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{"plain string", `"C:\\v\\a.ymmp"`, `C:\v\a.ymmp`, true},
		{"wrapped", `{"Value":"C:\\v\\a.ymmp"}`, `C:\v\a.ymmp`, true},
		{"doubly wrapped", `{"Value":{"Value":"/v/b.ymmp"}}`, "/v/b.ymmp", true},
		{"lowercase key", `{"value":"/v/c.ymmp"}`, "/v/c.ymmp", true},
		{"null", `null`, "", false},
		{"empty string", `""`, "", false},
		{"wrapped null", `{"Value":null}`, "", false},
		{"no value key", `{"Path":"/v/d.ymmp"}`, "", false},
		{"number", `42`, "", false},
		{"too deep", deep, "", false},
		{"absent", ``, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Snapshot{ProjectFilePath: json.RawMessage(tt.raw)}
			got, ok := s.ProjectPath()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ProjectPath() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestReadSnapshot(t *testing.T) {
	path := writeSnapshot(t, `{
		"$version": 1,
		"pid": 4242,
		"executable": "C:\\YMM4Lite\\YukkuriMovieMaker.exe",
		"mainWindowTitle": "YukkuriMovieMaker v4 Lite",
		"projectFilePath": {"Value": "C:\\v\\MyVideo.ymmp"}
	}`)

	s, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if s.PID != 4242 || s.Executable != `C:\YMM4Lite\YukkuriMovieMaker.exe` {
		t.Errorf("snapshot = %+v", s)
	}
	if p, ok := s.ProjectPath(); !ok || p != `C:\v\MyVideo.ymmp` {
		t.Errorf("ProjectPath() = (%q, %v)", p, ok)
	}
}

func TestReadSnapshotErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		missing bool
		wantMsg string
	}{
		{name: "missing", missing: true, wantMsg: "read host snapshot"},
		{name: "malformed", content: `{"pid":`, wantMsg: "parse host snapshot"},
		{name: "future version", content: `{"$version": 9}`, wantMsg: "newer than supported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "host.json")
			if !tt.missing {
				path = writeSnapshot(t, tt.content)
			}
			_, err := ReadSnapshot(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("ReadSnapshot error = %v, want %q", err, tt.wantMsg)
			}
		})
	}
}

// ///////////////////////////////////////////////
// Introspector
// ///////////////////////////////////////////////

func TestIntrospectorMissingSnapshot(t *testing.T) {
	in := NewIntrospector(filepath.Join(t.TempDir(), "host.json"))

	if p, ok := in.CurrentProjectPath(); ok || p != "" {
		t.Errorf("CurrentProjectPath() = (%q, %v), want no project", p, ok)
	}
	if _, err := in.MainWindowTitle(); !errors.Is(err, ErrNoWindow) {
		t.Errorf("MainWindowTitle error = %v, want ErrNoWindow", err)
	}
	if in.Executable() != "" {
		t.Errorf("Executable() = %q, want empty", in.Executable())
	}
}

func TestIntrospectorReadsSnapshot(t *testing.T) {
	path := writeSnapshot(t, `{"$version":1,"pid":0,"executable":"/opt/ymm4","mainWindowTitle":"YMM4 Lite","projectFilePath":"/v/a.ymmp"}`)
	in := NewIntrospector(path)

	if p, ok := in.CurrentProjectPath(); !ok || p != "/v/a.ymmp" {
		t.Errorf("CurrentProjectPath() = (%q, %v)", p, ok)
	}
	title, err := in.MainWindowTitle()
	if err != nil || title != "YMM4 Lite" {
		t.Errorf("MainWindowTitle() = (%q, %v)", title, err)
	}
	if in.Executable() != "/opt/ymm4" {
		t.Errorf("Executable() = %q", in.Executable())
	}
}

func TestIntrospectorSeesSnapshotUpdates(t *testing.T) {
	path := writeSnapshot(t, `{"projectFilePath":"/v/a.ymmp"}`)
	in := NewIntrospector(path)
	in.CurrentProjectPath()

	os.WriteFile(path, []byte(`{"projectFilePath":null}`), 0o644)
	if _, ok := in.CurrentProjectPath(); ok {
		t.Error("closed project still reported")
	}
}

func TestIntrospectorNoTitle(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("live window lookup may find a title on Windows")
	}
	path := writeSnapshot(t, `{"pid":1}`)
	if _, err := NewIntrospector(path).MainWindowTitle(); !errors.Is(err, ErrNoWindow) {
		t.Errorf("MainWindowTitle error = %v, want ErrNoWindow", err)
	}
}

// ///////////////////////////////////////////////
// Process Liveness
// ///////////////////////////////////////////////

// deadPID is above the default Linux pid_max and never a valid Windows PID.
const deadPID = 99999999

func TestProcessAlive(t *testing.T) {
	if !processAlive(os.Getpid()) {
		t.Error("processAlive(self) = false")
	}
	if processAlive(deadPID) {
		t.Error("processAlive(deadPID) = true")
	}
}

func TestWaitHostExit(t *testing.T) {
	path := writeSnapshot(t, `{"pid":99999999}`)
	in := NewIntrospector(path)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := in.WaitHostExit(ctx, 10*time.Millisecond); err != nil {
		t.Errorf("WaitHostExit = %v, want nil for exited host", err)
	}
}

func TestWaitHostExitCancelled(t *testing.T) {
	path := writeSnapshot(t, `{"pid":`+strconv.Itoa(os.Getpid())+`}`)
	in := NewIntrospector(path)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := in.WaitHostExit(ctx, 10*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitHostExit = %v, want deadline exceeded for a live host", err)
	}
}
