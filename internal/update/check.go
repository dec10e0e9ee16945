// Package update compares the running version against the release
// manifest published in the repository.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/namakemono-san/ymmrpc/internal/paths"
)

// ManifestURL is the release manifest location. It can be overridden with
//
//	-X github.com/namakemono-san/ymmrpc/internal/update.ManifestURL=...
var ManifestURL = "https://raw.githubusercontent.com/namakemono-san/YMM-RPC/main/" + paths.ReleaseManifest

// manifestLimit caps the manifest body.
const manifestLimit = 64 << 10

// Checker fetches the release manifest.
type Checker struct {
	url    string
	client *retryablehttp.Client
}

// NewChecker returns a Checker for the manifest at url.
func NewChecker(url string) *Checker {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = 5 * time.Second
	client.Logger = nil
	return &Checker{url: url, client: client}
}

// Latest returns the newest stable version, stored under the "." key of
// the manifest.
func (c *Checker) Latest(ctx context.Context) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("build manifest request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: status %d", c.url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, manifestLimit))
	if err != nil {
		return "", fmt.Errorf("read manifest: %w", err)
	}

	var manifest map[string]string
	if err := json.Unmarshal(body, &manifest); err != nil {
		return "", fmt.Errorf("parse manifest: %w", err)
	}
	latest := manifest["."]
	if latest == "" {
		return "", fmt.Errorf("manifest has no stable version")
	}
	return latest, nil
}

// Newer returns the latest version and whether it is newer than current.
func (c *Checker) Newer(ctx context.Context, current string) (string, bool, error) {
	latest, err := c.Latest(ctx)
	if err != nil {
		return "", false, err
	}
	return latest, Less(current, latest), nil
}

// Check logs when a newer release exists. Failures are logged at debug
// level only.
func Check(ctx context.Context, c *Checker, current string) {
	latest, newer, err := c.Newer(ctx, current)
	if err != nil {
		slog.Debug("version check failed", "error", err)
		return
	}
	if newer {
		slog.Info("new version available", "current", current, "latest", latest)
	}
}

// ///////////////////////////////////////////////
// Version Comparison
// ///////////////////////////////////////////////

// Less reports whether version a precedes b. Only major.minor.patch is
// compared numerically; a pre-release sorts before its release. Strings
// that are not versions never compare less.
func Less(a, b string) bool {
	va, ok := parseVersion(a)
	if !ok {
		return false
	}
	vb, ok := parseVersion(b)
	if !ok {
		return false
	}
	for i := range va.core {
		if va.core[i] != vb.core[i] {
			return va.core[i] < vb.core[i]
		}
	}
	return va.pre && !vb.pre
}

type version struct {
	core [3]int
	pre  bool
}

func parseVersion(s string) (version, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	var v version
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '-'); i >= 0 {
		s, v.pre = s[:i], true
	}

	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return version{}, false
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return version{}, false
		}
		v.core[i] = n
	}
	return v, true
}
