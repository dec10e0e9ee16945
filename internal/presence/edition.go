package presence

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

// DefaultEditionMarker identifies the Lite edition.
const DefaultEditionMarker = "Lite"

// Invoker runs fn on whatever goroutine the host requires for UI access and
// returns its error. [Direct] is the no-affinity implementation.
type Invoker func(fn func() error) error

// Direct calls fn on the current goroutine.
func Direct(fn func() error) error { return fn() }

// TitleSource reads the editor's main window title.
type TitleSource interface {
	MainWindowTitle() (string, error)
}

// EditionSource reports the editor edition.
type EditionSource interface {
	Detect() Edition
}

// ///////////////////////////////////////////////
// Detector
// ///////////////////////////////////////////////

// Detector decides the edition at most once. The executable path is checked
// first; only if it lacks the marker is the window title queried through the
// invoker. Any failure resolves to Standard, and that result is kept.
type Detector struct {
	exePath string
	marker  string
	titles  TitleSource
	invoke  Invoker

	once    sync.Once
	edition Edition
	queries atomic.Int32
}

// NewDetector returns a Detector. An empty marker uses
// [DefaultEditionMarker]; a nil invoke uses [Direct]. titles may be nil.
func NewDetector(exePath, marker string, titles TitleSource, invoke Invoker) *Detector {
	if marker == "" {
		marker = DefaultEditionMarker
	}
	if invoke == nil {
		invoke = Direct
	}
	return &Detector{
		exePath: exePath,
		marker:  marker,
		titles:  titles,
		invoke:  invoke,
	}
}

// Detect returns the memoized edition.
func (d *Detector) Detect() Edition {
	d.once.Do(func() {
		d.edition = d.detect()
		slog.Info("editor edition detected", "edition", d.edition.String())
	})
	return d.edition
}

// TitleQueries returns how many times the window title was queried.
func (d *Detector) TitleQueries() int {
	return int(d.queries.Load())
}

func (d *Detector) detect() (ed Edition) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("edition detection panicked", "panic", fmt.Sprint(r))
			ed = Standard
		}
	}()

	if containsFold(d.exePath, d.marker) {
		return Lite
	}
	if d.titles == nil {
		return Standard
	}

	d.queries.Add(1)
	var title string
	err := d.invoke(func() error {
		var err error
		title, err = d.titles.MainWindowTitle()
		return err
	})
	if err != nil {
		slog.Debug("window title unavailable for edition detection", "error", err)
		return Standard
	}
	if containsFold(title, d.marker) {
		return Lite
	}
	return Standard
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
