// Package presence turns editor state and user settings into Discord Rich
// Presence payloads and keeps a single presence connection up to date.
//
// The package has three parts:
//
//   - [Detector] decides once whether the editor is the Lite or Standard
//     edition, which selects the Discord application identity.
//   - [Build] is a pure function from [Settings] and [Context] to [Payload].
//   - [Scheduler] owns the client handle, a periodic timer and the
//     initialize / update / dispose lifecycle.
//
// The package never reads files or talks to Discord directly: settings,
// project lookup, UI-thread marshaling and the client are all injected.
package presence

import "time"

// ///////////////////////////////////////////////
// Settings
// ///////////////////////////////////////////////

// ButtonSlot is one configured button. It is published only when both Label
// and URL are non-empty.
type ButtonSlot struct {
	Label string
	URL   string
}

// Settings is the read-only snapshot of user settings taken for each update.
// Empty strings mean unset.
type Settings struct {
	Enabled     bool
	ShowProject bool

	CustomEnabled        bool
	CustomDetails        string
	CustomState          string
	CustomLargeImageKey  string
	CustomLargeImageText string
	CustomSmallImageKey  string
	CustomSmallImageText string
	CustomButtonsEnabled bool
	Buttons              [2]ButtonSlot
}

// DefaultSettings mirrors the defaults of a fresh settings file.
func DefaultSettings() Settings {
	return Settings{Enabled: true, ShowProject: true}
}

// ///////////////////////////////////////////////
// Edition
// ///////////////////////////////////////////////

// Edition identifies the editor flavor.
type Edition int

const (
	Standard Edition = iota
	Lite
)

// Discord application identities, one per edition.
const (
	StandardAppID = "1353376132732420136"
	LiteAppID     = "1455192227734098075"
)

func (e Edition) String() string {
	if e == Lite {
		return "Lite"
	}
	return "Standard"
}

// AppID returns the Discord application ID registered for e.
func (e Edition) AppID() string {
	if e == Lite {
		return LiteAppID
	}
	return StandardAppID
}

// stateText is the default state line for e.
func (e Edition) stateText() string {
	if e == Lite {
		return "Working on YMM4 Lite"
	}
	return "Working on YMM4"
}

// ///////////////////////////////////////////////
// Context and Payload
// ///////////////////////////////////////////////

// Context carries the non-settings inputs of a build.
type Context struct {
	// StartTime is when the presence session began; shown as elapsed time.
	StartTime time.Time
	// Edition is the detected editor edition.
	Edition Edition
	// ProjectName is the open project's file name without extension, or ""
	// when none is open or it is hidden.
	ProjectName string
	// Version is shown in the large image tooltip. Empty uses DefaultVersion.
	Version string
}

// Button is a published presence button.
type Button struct {
	Label string
	URL   string
}

// Payload is a fully built presence. Empty strings are absent and are not
// transmitted. Buttons is nil when there are none.
type Payload struct {
	Details        string
	State          string
	LargeImageKey  string
	LargeImageText string
	SmallImageKey  string
	SmallImageText string
	StartTime      time.Time
	Buttons        []Button
}
