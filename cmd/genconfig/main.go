// Package main implements the genconfig tool that writes settings.default.toml
// from settings.Default().
//
// It is invoked by go generate via the directive in internal/settings/settings.go.
package main

import (
	"fmt"
	"os"

	"github.com/namakemono-san/ymmrpc/internal/settings"
)

func main() {
	data, err := settings.Render(settings.Default())
	if err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		os.Exit(1)
	}

	// go generate runs from internal/settings; the embedding package is the
	// module root.
	outPath := "../../settings.default.toml"
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", outPath, err)
		os.Exit(1)
	}
	fmt.Println("wrote settings.default.toml")
}
