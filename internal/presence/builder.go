package presence

import (
	"strings"
)

const (
	// DefaultVersion is the version shown when none is supplied.
	DefaultVersion = "0.3.1"
	// DefaultLargeImageKey is the application asset used for the large image.
	DefaultLargeImageKey = "icon"
	// ProjectExt is the editor's project file extension.
	ProjectExt = ".ymmp"
	// Untitled stands in for the project name when none is open.
	Untitled = "無題"
	// ProjectPlaceholder is replaced with the project display name in custom
	// templates.
	ProjectPlaceholder = "{project}"

	editingProjectSuffix = " を編集中..."
	editingGeneric       = "動画を編集中..."
)

// Build returns the custom payload when custom presence is enabled and the
// default payload otherwise.
func Build(s Settings, c Context) Payload {
	if s.CustomEnabled {
		return BuildCustom(s, c)
	}
	return BuildDefault(s, c)
}

// BuildDefault builds the built-in presence card.
func BuildDefault(s Settings, c Context) Payload {
	details := editingGeneric
	if s.ShowProject {
		details = displayName(c.ProjectName) + editingProjectSuffix
	}
	return Payload{
		Details:        details,
		State:          c.Edition.stateText(),
		LargeImageKey:  DefaultLargeImageKey,
		LargeImageText: "YMM-RPC v" + versionOrDefault(c.Version),
		StartTime:      c.StartTime,
	}
}

// BuildCustom builds the card from the user's templates. Text fields have
// every {project} replaced with the project file name. The small image key
// is used verbatim.
func BuildCustom(s Settings, c Context) Payload {
	r := strings.NewReplacer(ProjectPlaceholder, displayName(c.ProjectName))

	largeKey := s.CustomLargeImageKey
	if largeKey == "" {
		largeKey = DefaultLargeImageKey
	}

	p := Payload{
		Details:        r.Replace(s.CustomDetails),
		State:          r.Replace(s.CustomState),
		LargeImageKey:  largeKey,
		LargeImageText: r.Replace(s.CustomLargeImageText),
		SmallImageKey:  s.CustomSmallImageKey,
		SmallImageText: r.Replace(s.CustomSmallImageText),
		StartTime:      c.StartTime,
	}
	if s.CustomButtonsEnabled {
		p.Buttons = buttons(s.Buttons)
	}
	return p
}

// buttons keeps the slots that have both a label and a URL, in slot order.
// It returns nil rather than an empty slice when no slot qualifies.
func buttons(slots [2]ButtonSlot) []Button {
	var out []Button
	for _, b := range slots {
		if b.Label == "" || b.URL == "" {
			continue
		}
		out = append(out, Button{Label: b.Label, URL: b.URL})
	}
	return out
}

func displayName(project string) string {
	if project == "" {
		project = Untitled
	}
	return project + ProjectExt
}

func versionOrDefault(v string) string {
	if v == "" {
		return DefaultVersion
	}
	return v
}

// ProjectName returns the file name of path without its extension. Both
// slash and backslash separators are accepted, since project paths come from
// a Windows host.
func ProjectName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		path = path[i+1:]
	}
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		path = path[:i]
	}
	return path
}
