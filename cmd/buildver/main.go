// Command buildver prints the version string passed to
// -X main.version when building ymmrpc.
//
//	on tag v0.4.0:          0.4.0
//	2 commits past v0.4.0:  0.4.0-dev.2+g1a2b3c4
//	no tags:                0.3.1-dev+1a2b3c4
//
// A dirty tree appends "dirty" to the build metadata. The untagged base
// comes from the release manifest.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/namakemono-san/ymmrpc/internal/paths"
	"github.com/namakemono-san/ymmrpc/internal/presence"
)

func main() {
	fmt.Print(buildVersion(git))
}

// git runs a git subcommand and returns its trimmed output.
func git(args ...string) (string, error) {
	out, err := exec.Command("git", args...).Output()
	return strings.TrimSpace(string(out)), err
}

func buildVersion(run func(args ...string) (string, error)) string {
	dirty := false
	if status, err := run("status", "--porcelain"); err == nil && status != "" {
		dirty = true
	}

	if desc, err := run("describe", "--tags", "--match", "v*"); err == nil {
		return fromDescribe(desc, dirty)
	}

	base := manifestVersion(paths.ReleaseManifest)
	hash, err := run("rev-parse", "--short=7", "HEAD")
	if err != nil {
		return base + "-dev"
	}
	return base + "-dev+" + withDirty(hash, dirty)
}

// describeRe matches "v<tag>-<commits>-g<hash>" from git describe.
var describeRe = regexp.MustCompile(`^v?(.+)-(\d+)-(g[0-9a-f]+)$`)

func fromDescribe(desc string, dirty bool) string {
	if m := describeRe.FindStringSubmatch(desc); m != nil {
		return fmt.Sprintf("%s-dev.%s+%s", m[1], m[2], withDirty(m[3], dirty))
	}
	tag := strings.TrimPrefix(desc, "v")
	if dirty {
		return tag + "-dirty"
	}
	return tag
}

func withDirty(meta string, dirty bool) string {
	if dirty {
		return meta + ".dirty"
	}
	return meta
}

// manifestVersion returns the "." entry of the release manifest, or the
// presence tooltip default when the manifest is unusable.
func manifestVersion(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return presence.DefaultVersion
	}
	var manifest map[string]string
	if json.Unmarshal(data, &manifest) != nil || manifest["."] == "" {
		return presence.DefaultVersion
	}
	return manifest["."]
}
