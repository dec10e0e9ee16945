// Package settings loads, validates and persists the user settings that drive
// the presence engine.
//
// Settings live in a TOML file in the data directory. The package handles
// presence toggles, custom presence templates and buttons, privacy rules,
// daemon behavior and logging, applies schema migrations, and exposes an
// observable [Store] the engine subscribes to.
package settings

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/namakemono-san/ymmrpc/internal/atomicfile"
	"github.com/namakemono-san/ymmrpc/internal/migrate"
	"github.com/namakemono-san/ymmrpc/internal/paths"
	"github.com/namakemono-san/ymmrpc/internal/presence"
)

// UI thread affinity modes for [HostSettings.UIThreadAffinity].
const (
	AffinityAuto = "auto"
	AffinityOn   = "on"
	AffinityOff  = "off"
)

// ///////////////////////////////////////////////
// Settings Types
// ///////////////////////////////////////////////

// Settings is the top-level settings document.
type Settings struct {
	// Version is the schema version used for migrations.
	Version int `toml:"version"`
	// Presence holds the default presence toggles.
	Presence PresenceSettings `toml:"presence"`
	// Custom holds the user-defined presence templates.
	Custom CustomSettings `toml:"custom"`
	// Behavior holds scheduler and daemon behavior.
	Behavior BehaviorSettings `toml:"behavior"`
	// Privacy holds project hiding rules.
	Privacy PrivacySettings `toml:"privacy"`
	// Host holds editor-specific detection settings.
	Host HostSettings `toml:"host"`
	// Log holds logging settings.
	Log LogSettings `toml:"log"`
}

// PresenceSettings toggles the presence as a whole and the project line.
type PresenceSettings struct {
	// Enabled publishes presence when true; false clears it.
	Enabled bool `toml:"enabled"`
	// ShowProject includes the open project name in the default details line.
	ShowProject bool `toml:"show_project"`
}

// CustomSettings replaces the default presence with user templates when
// Enabled is set. Text fields support the {project} placeholder.
type CustomSettings struct {
	Enabled        bool   `toml:"enabled"`
	Details        string `toml:"details"`
	State          string `toml:"state"`
	LargeImageKey  string `toml:"large_image_key"`
	LargeImageText string `toml:"large_image_text"`
	SmallImageKey  string `toml:"small_image_key"`
	SmallImageText string `toml:"small_image_text"`
	ButtonsEnabled bool   `toml:"buttons_enabled"`
	Button1        Button `toml:"button1"`
	Button2        Button `toml:"button2"`
}

// Button is one presence button slot. A slot is shown only when both fields
// are set.
type Button struct {
	Label string `toml:"label"`
	URL   string `toml:"url"`
}

// BehaviorSettings holds scheduler and daemon behavior.
type BehaviorSettings struct {
	// UpdateIntervalSeconds is the presence refresh period.
	UpdateIntervalSeconds int `toml:"update_interval_seconds"`
	// UpdateDebounceMS delays a change-triggered refresh so bursts of edits
	// coalesce into one push. Zero refreshes immediately.
	UpdateDebounceMS int `toml:"update_debounce_ms"`
	// RetryConnect re-attempts the Discord connection on each tick after a
	// failed connect.
	RetryConnect bool `toml:"retry_connect"`
	// CheckUpdates queries the release manifest at startup.
	CheckUpdates bool `toml:"check_updates"`
}

// PrivacySettings holds project hiding rules.
type PrivacySettings struct {
	// HiddenProjects lists doublestar glob patterns matched against the
	// project file path. Matching projects are shown as untitled.
	HiddenProjects []string `toml:"hidden_projects"`
}

// HostSettings holds editor-specific detection settings.
type HostSettings struct {
	// EditionMarker is the case-insensitive token identifying the Lite
	// edition in the executable path or window title.
	EditionMarker string `toml:"edition_marker"`
	// UIThreadAffinity selects whether host queries run on a dedicated
	// OS-locked thread: "auto" (Windows only), "on" or "off".
	UIThreadAffinity string `toml:"ui_thread_affinity"`
}

// LogSettings holds logging settings.
type LogSettings struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
	// Console mirrors log output to stderr.
	Console bool `toml:"console"`
}

// ///////////////////////////////////////////////
// Defaults
// ///////////////////////////////////////////////

// Default returns Settings populated with the built-in defaults.
func Default() *Settings {
	return &Settings{
		Version: migrate.Settings.CurrentVersion,
		Presence: PresenceSettings{
			Enabled:     true,
			ShowProject: true,
		},
		Behavior: BehaviorSettings{
			UpdateIntervalSeconds: 15,
			UpdateDebounceMS:      500,
			RetryConnect:          false,
			CheckUpdates:          true,
		},
		Privacy: PrivacySettings{
			HiddenProjects: []string{},
		},
		Host: HostSettings{
			EditionMarker:    "Lite",
			UIThreadAffinity: AffinityAuto,
		},
		Log: LogSettings{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// Clone returns a deep copy of s.
func (s *Settings) Clone() *Settings {
	c := *s
	c.Privacy.HiddenProjects = slices.Clone(s.Privacy.HiddenProjects)
	if c.Privacy.HiddenProjects == nil {
		c.Privacy.HiddenProjects = []string{}
	}
	return &c
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// PeekVersion reads the version field from raw TOML. Missing, zero or
// unparseable versions are reported as 1, the flat plugin layout.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil || v.Version == 0 {
		return 1
	}
	return v.Version
}

// Load reads dataDir/settings.toml. A missing file yields [Default].
func Load(dataDir string) (*Settings, error) {
	return LoadFile(filepath.Join(dataDir, paths.SettingsFile))
}

// LoadFile reads and validates the settings file at path, migrating older
// schemas in place. The pre-migration file is kept as path+".bak".
func LoadFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	version := PeekVersion(data)
	migrated := migrate.Settings.Needs(version)
	if migrated {
		if err := atomicfile.Write(path+".bak", data, 0o644); err != nil {
			slog.Warn("failed to write settings backup", "error", err)
		}
		data, _, err = migrate.Settings.Run(data, version)
		if err != nil {
			return nil, fmt.Errorf("migrate settings: %w", err)
		}
	}

	s := Default()
	if err := toml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	s.Version = migrate.Settings.CurrentVersion
	if s.Privacy.HiddenProjects == nil {
		s.Privacy.HiddenProjects = []string{}
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	if migrated {
		if err := s.Save(path); err != nil {
			slog.Warn("failed to save migrated settings", "error", err)
		}
	}
	return s, nil
}

// Save encodes s as TOML and writes it atomically to path.
func (s *Settings) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks that all values are within acceptable ranges.
func (s *Settings) Validate() error {
	if s.Behavior.UpdateIntervalSeconds <= 0 {
		return fmt.Errorf("update_interval_seconds must be > 0, got %d", s.Behavior.UpdateIntervalSeconds)
	}
	if s.Behavior.UpdateDebounceMS < 0 {
		return fmt.Errorf("update_debounce_ms must be >= 0, got %d", s.Behavior.UpdateDebounceMS)
	}
	if strings.TrimSpace(s.Host.EditionMarker) == "" {
		return errors.New("host.edition_marker must not be empty")
	}
	switch s.Host.UIThreadAffinity {
	case AffinityAuto, AffinityOn, AffinityOff:
	default:
		return fmt.Errorf("invalid host.ui_thread_affinity %q: must be auto, on, or off", s.Host.UIThreadAffinity)
	}
	if !validLogLevels[strings.ToLower(s.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", s.Log.Level)
	}
	if s.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be > 0, got %d", s.Log.MaxSizeMB)
	}
	for _, p := range s.Privacy.HiddenProjects {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid privacy.hidden_projects pattern %q", p)
		}
	}
	return nil
}

// ///////////////////////////////////////////////
// Accessors
// ///////////////////////////////////////////////

// UpdateInterval returns the presence refresh period.
func (s *Settings) UpdateInterval() time.Duration {
	return time.Duration(s.Behavior.UpdateIntervalSeconds) * time.Second
}

// UpdateDebounce returns the change-triggered refresh delay.
func (s *Settings) UpdateDebounce() time.Duration {
	return time.Duration(s.Behavior.UpdateDebounceMS) * time.Millisecond
}

// ProjectVisible reports whether the project at path may be named in the
// presence. Paths are matched with forward slashes regardless of platform.
func (s *Settings) ProjectVisible(path string) bool {
	if path == "" {
		return true
	}
	normalized := strings.ReplaceAll(path, `\`, "/")
	for _, pattern := range s.Privacy.HiddenProjects {
		matched, err := doublestar.Match(pattern, normalized)
		if err != nil {
			slog.Warn("invalid glob pattern", "pattern", pattern, "error", err)
			continue
		}
		if matched {
			return false
		}
	}
	return true
}

// PresenceSnapshot converts s into the read-only view the presence engine
// consumes.
func (s *Settings) PresenceSnapshot() presence.Settings {
	return presence.Settings{
		Enabled:              s.Presence.Enabled,
		ShowProject:          s.Presence.ShowProject,
		CustomEnabled:        s.Custom.Enabled,
		CustomDetails:        s.Custom.Details,
		CustomState:          s.Custom.State,
		CustomLargeImageKey:  s.Custom.LargeImageKey,
		CustomLargeImageText: s.Custom.LargeImageText,
		CustomSmallImageKey:  s.Custom.SmallImageKey,
		CustomSmallImageText: s.Custom.SmallImageText,
		CustomButtonsEnabled: s.Custom.ButtonsEnabled,
		Buttons: [2]presence.ButtonSlot{
			{Label: s.Custom.Button1.Label, URL: s.Custom.Button1.URL},
			{Label: s.Custom.Button2.Label, URL: s.Custom.Button2.URL},
		},
	}
}
