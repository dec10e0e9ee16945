package settings

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/namakemono-san/ymmrpc/internal/migrate"
)

func init() {
	migrate.Settings.Register(migrate.Migration{
		Version:     2,
		Description: "move flat plugin keys into sections",
		Upgrade:     sectionFlatKeys,
	})
}

// flatKeys maps the top-level keys written by the editor plugin to their
// sectioned location.
var flatKeys = map[string][]string{
	"IsEnabled":               {"presence", "enabled"},
	"IsShowProject":           {"presence", "show_project"},
	"CustomRpcEnabled":        {"custom", "enabled"},
	"CustomRpcDetails":        {"custom", "details"},
	"CustomRpcState":          {"custom", "state"},
	"CustomRpcLargeImageKey":  {"custom", "large_image_key"},
	"CustomRpcLargeImageText": {"custom", "large_image_text"},
	"CustomRpcSmallImageKey":  {"custom", "small_image_key"},
	"CustomRpcSmallImageText": {"custom", "small_image_text"},
	"CustomRpcEnableButtons":  {"custom", "buttons_enabled"},
	"CustomRpcButton1Label":   {"custom", "button1", "label"},
	"CustomRpcButton1Url":     {"custom", "button1", "url"},
	"CustomRpcButton2Label":   {"custom", "button2", "label"},
	"CustomRpcButton2Url":     {"custom", "button2", "url"},
}

// sectionFlatKeys rewrites a version 1 document. Tables already present are
// kept, flat keys are moved into them, and unknown flat keys are dropped.
func sectionFlatKeys(data []byte) ([]byte, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse v1 settings: %w", err)
	}

	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if _, ok := v.(map[string]any); ok {
			out[k] = v
		}
	}
	for key, dest := range flatKeys {
		if v, ok := raw[key]; ok {
			setPath(out, dest, v)
		}
	}
	out["version"] = 2

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return nil, fmt.Errorf("encode v2 settings: %w", err)
	}
	return buf.Bytes(), nil
}

// setPath assigns v at the nested table path, creating tables as needed and
// replacing non-table values that are in the way.
func setPath(root map[string]any, path []string, v any) {
	m := root
	for _, seg := range path[:len(path)-1] {
		next, ok := m[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[seg] = next
		}
		m = next
	}
	m[path[len(path)-1]] = v
}
