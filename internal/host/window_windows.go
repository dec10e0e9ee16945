//go:build windows

package host

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procGetWindowTextW      = user32.NewProc("GetWindowTextW")
	procGetWindowTextLength = user32.NewProc("GetWindowTextLengthW")
)

// Callbacks created by NewCallback are never freed, so a single one is shared
// and its target guarded by enumMu.
var (
	enumMu     sync.Mutex
	enumPID    uint32
	enumTitle  string
	enumWindow = windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		var pid uint32
		if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil || pid != enumPID {
			return 1
		}
		if !windows.IsWindowVisible(hwnd) {
			return 1
		}
		title := getWindowText(hwnd)
		if title == "" {
			return 1
		}
		enumTitle = title
		return 0
	})
)

// windowTitle returns the title of the first visible, titled top-level
// window owned by pid.
func windowTitle(pid int) (string, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumPID = uint32(pid)
	enumTitle = ""
	err := windows.EnumWindows(enumWindow, nil)
	if enumTitle != "" {
		// Stopping enumeration early makes EnumWindows report failure.
		return enumTitle, nil
	}
	if err != nil {
		return "", fmt.Errorf("enumerate windows: %w", err)
	}
	return "", ErrNoWindow
}

func getWindowText(hwnd windows.HWND) string {
	n, _, _ := procGetWindowTextLength.Call(uintptr(hwnd))
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	copied, _, _ := procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if copied == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:copied])
}
