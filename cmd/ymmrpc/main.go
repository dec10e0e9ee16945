// Command ymmrpc publishes YukkuriMovieMaker4 editing activity to Discord
// Rich Presence.
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/namakemono-san/ymmrpc/internal/paths"
)

// version is set at build time with -X main.version=... and otherwise
// derived from the embedded VCS revision.
var version = "dev"

func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	dataDir string
}

func (g *globalOptions) dirs() paths.DataDir {
	return paths.DataDir{Root: g.dataDir}
}

func newRootCommand() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:           paths.BinaryName,
		Short:         "Discord Rich Presence for YukkuriMovieMaker4",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Version = resolveVersion()
	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")
	root.PersistentFlags().StringVar(&g.dataDir, "data-dir", paths.DefaultRoot(), "directory holding settings, host snapshot and logs")

	root.AddCommand(
		newRunCommand(g),
		newLogsCommand(g),
		newSettingsCommand(g),
		newVersionCommand(),
	)
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
