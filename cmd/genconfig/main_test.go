package main

import (
	"reflect"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/namakemono-san/ymmrpc/internal/settings"
)

// The generated file must decode back to the defaults it was rendered from.
func TestRenderedDefaultsRoundTrip(t *testing.T) {
	data, err := settings.Render(settings.Default())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	got := &settings.Settings{}
	if _, err := toml.Decode(string(data), got); err != nil {
		t.Fatalf("decode rendered output: %v\n%s", err, data)
	}
	if !reflect.DeepEqual(got, settings.Default()) {
		t.Errorf("rendered defaults decode to %+v, want %+v", got, settings.Default())
	}
}

func TestRenderedDefaultsAnnotated(t *testing.T) {
	data, err := settings.Render(settings.Default())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := string(data)

	for _, want := range []string{
		"# YMM-RPC Settings",
		"# ///// Presence /////",
		"# ///// Button1 /////",
		"# Seconds between presence refreshes.",
		`# hidden_projects = ["**/clients/**", "**/secret*.ymmp"]`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered output missing %q", want)
		}
	}
	if strings.Contains(out, "  enabled") {
		t.Error("rendered output keeps encoder indentation")
	}
}
