package settings

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for one settings
// field or section.
type FieldDoc struct {
	// Comment is shown above the field.
	Comment string
	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// Docs maps dotted TOML paths (e.g. "custom.button1.label") to their
// documentation. [Render] uses it to annotate settings files.
var Docs = map[string]FieldDoc{
	"version": {
		Comment: "Settings schema version. Do not edit.",
	},

	// Presence
	"presence.enabled": {
		Comment: "Publish presence to Discord. When false the presence is cleared.",
	},
	"presence.show_project": {
		Comment: "Show the open project name in the details line.\nWhen false, or when no project is open, a generic line is shown.",
	},

	// Custom
	"custom": {
		Comment: "Custom presence replaces the default card when enabled.\nText fields support {project}, replaced with the project file name (\"無題.ymmp\" when none).",
	},
	"custom.enabled": {},
	"custom.details": {
		Alternatives: []string{`details = "Editing {project}"`},
	},
	"custom.state": {},
	"custom.large_image_key": {
		Comment: "Image keys must match assets uploaded to the Discord application.\nAn empty large_image_key falls back to \"icon\".",
	},
	"custom.large_image_text": {},
	"custom.small_image_key": {},
	"custom.small_image_text": {},
	"custom.buttons_enabled": {
		Comment: "Show up to two buttons. A button is shown only when both label and url are set.",
	},
	"custom.button1.label": {
		Alternatives: []string{`label = "Channel"`},
	},
	"custom.button1.url": {
		Alternatives: []string{`url = "https://example.com"`},
	},

	// Behavior
	"behavior.update_interval_seconds": {
		Comment: "Seconds between presence refreshes.",
	},
	"behavior.update_debounce_ms": {
		Comment: "Delay before a settings change is pushed, so bursts of edits send one update. 0 pushes immediately.",
	},
	"behavior.retry_connect": {
		Comment: "Retry connecting to Discord on every refresh after a failed connect.\nWhen false a failed connect stays down until restart.",
	},
	"behavior.check_updates": {
		Comment: "Check for a newer release at startup.",
	},

	// Privacy
	"privacy.hidden_projects": {
		Comment: "Glob patterns for project files whose name is never shown.\nSupports ** and forward slashes on every platform.",
		Alternatives: []string{`hidden_projects = ["**/clients/**", "**/secret*.ymmp"]`},
	},

	// Host
	"host.edition_marker": {
		Comment: "Case-insensitive token identifying the Lite edition in the executable path or window title.",
	},
	"host.ui_thread_affinity": {
		Comment: "Run editor queries on a dedicated OS thread. Options: \"auto\", \"on\", \"off\"\n  auto: on for Windows, off elsewhere",
		Alternatives: []string{`ui_thread_affinity = "off"`},
	},

	// Log
	"log.level": {
		Comment: "Minimum log level. Options: \"trace\", \"debug\", \"info\", \"warn\", \"error\"",
		Alternatives: []string{`level = "debug"`},
	},
	"log.max_size_mb": {
		Comment: "Log file size in megabytes before rotation.",
	},
	"log.console": {
		Comment: "Mirror log output to the terminal.",
	},
}

// ///////////////////////////////////////////////
// Rendering
// ///////////////////////////////////////////////

// Render encodes s as TOML annotated with [Docs]: section banners, comments
// above documented keys and commented-out alternatives below them.
func Render(s *Settings) ([]byte, error) {
	var raw bytes.Buffer
	if err := toml.NewEncoder(&raw).Encode(s); err != nil {
		return nil, fmt.Errorf("encoding settings: %w", err)
	}

	out := []string{
		"# ///////////////////////////////////////////////",
		"# YMM-RPC Settings",
		"# ///////////////////////////////////////////////",
		"",
	}
	emitted := map[string]bool{}
	var section []string

	for _, line := range strings.Split(raw.String(), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "[[") {
			injectUndocumented(&out, section, emitted)
			name := strings.Trim(trimmed, "[] ")
			section = strings.Split(name, ".")

			out = append(out, "", fmt.Sprintf("# ///// %s /////", sectionTitle(name)), "")
			out = appendComment(out, Docs[name].Comment)
			out = append(out, trimmed)
			continue
		}

		if !strings.Contains(trimmed, "=") || strings.HasPrefix(trimmed, "#") {
			out = append(out, trimmed)
			continue
		}

		key := strings.TrimSpace(strings.SplitN(trimmed, "=", 2)[0])
		full := key
		if len(section) > 0 {
			full = strings.Join(section, ".") + "." + key
		}
		emitted[full] = true

		doc := Docs[full]
		out = appendComment(out, doc.Comment)
		out = append(out, trimmed)
		for _, alt := range doc.Alternatives {
			out = append(out, "# "+alt)
		}
	}
	injectUndocumented(&out, section, emitted)

	return []byte(strings.TrimRight(strings.Join(out, "\n"), "\n") + "\n"), nil
}

func appendComment(out []string, comment string) []string {
	if comment == "" {
		return out
	}
	for _, cl := range strings.Split(comment, "\n") {
		out = append(out, "# "+cl)
	}
	return out
}

// injectUndocumented appends commented entries for documented keys of the
// current section that the encoder did not emit. Keys are sorted.
func injectUndocumented(out *[]string, section []string, emitted map[string]bool) {
	if len(section) == 0 {
		return
	}
	prefix := strings.Join(section, ".") + "."

	var missing []string
	for path := range Docs {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(rest, ".") || emitted[path] {
			continue
		}
		missing = append(missing, path)
	}
	sort.Strings(missing)

	for _, path := range missing {
		doc := Docs[path]
		*out = append(*out, "")
		*out = appendComment(*out, doc.Comment)
		for _, alt := range doc.Alternatives {
			*out = append(*out, "# "+alt)
		}
		emitted[path] = true
	}
}

// sectionTitle turns "custom.button1" into "Button1".
func sectionTitle(section string) string {
	parts := strings.Split(section, ".")
	last := parts[len(parts)-1]
	if last == "" {
		return ""
	}
	return strings.ToUpper(last[:1]) + last[1:]
}
