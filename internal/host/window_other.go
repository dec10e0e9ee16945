//go:build !windows

package host

// windowTitle has no live lookup off Windows; the snapshot title is used.
func windowTitle(int) (string, error) {
	return "", ErrNoWindow
}
