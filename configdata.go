// Package ymmrpc provides embedded assets for the YMM-RPC daemon.
//
// The root package exists solely to embed settings.default.toml. The daemon
// copies it into the data directory on first run.
package ymmrpc

import _ "embed"

// DefaultSettingsTOML holds the annotated default settings file, regenerated
// by go generate in internal/settings.
//
//go:embed settings.default.toml
var DefaultSettingsTOML []byte
