package ymmrpc

import (
	"reflect"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/namakemono-san/ymmrpc/internal/settings"
)

func TestDefaultSettingsTOMLMatchesDefaults(t *testing.T) {
	got := &settings.Settings{}
	if _, err := toml.Decode(string(DefaultSettingsTOML), got); err != nil {
		t.Fatalf("decode embedded settings: %v", err)
	}
	if !reflect.DeepEqual(got, settings.Default()) {
		t.Errorf("embedded settings decode to %+v, want %+v (run go generate ./internal/settings)", got, settings.Default())
	}
}
