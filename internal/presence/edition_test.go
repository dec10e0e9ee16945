package presence

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

type fakeTitles struct {
	title string
	err   error
	panic bool
	calls atomic.Int32
}

func (f *fakeTitles) MainWindowTitle() (string, error) {
	f.calls.Add(1)
	if f.panic {
		panic("window gone")
	}
	return f.title, f.err
}

func TestDetectorExecutablePath(t *testing.T) {
	titles := &fakeTitles{title: "YukkuriMovieMaker"}
	d := NewDetector(`C:\Program Files\YMM4Lite\YukkuriMovieMaker.exe`, "", titles, nil)

	if got := d.Detect(); got != Lite {
		t.Errorf("Detect() = %v, want Lite", got)
	}
	if d.TitleQueries() != 0 || titles.calls.Load() != 0 {
		t.Error("window title queried although the executable path matched")
	}
}

func TestDetectorWindowTitle(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		marker string
		want   Edition
	}{
		{"lite title", "YukkuriMovieMaker4 LITE v4.40", "", Lite},
		{"standard title", "YukkuriMovieMaker v4.40", "", Standard},
		{"custom marker", "YMM4 Portable", "portable", Lite},
		{"empty title", "", "", Standard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(`C:\YMM4\YukkuriMovieMaker.exe`, tt.marker, &fakeTitles{title: tt.title}, nil)
			if got := d.Detect(); got != tt.want {
				t.Errorf("Detect() = %v, want %v", got, tt.want)
			}
			if d.TitleQueries() != 1 {
				t.Errorf("TitleQueries() = %d, want 1", d.TitleQueries())
			}
		})
	}
}

func TestDetectorMemoizes(t *testing.T) {
	titles := &fakeTitles{title: "YMM4 Lite"}
	d := NewDetector("/opt/ymm4/ymm4", "", titles, nil)

	for range 5 {
		if got := d.Detect(); got != Lite {
			t.Fatalf("Detect() = %v, want Lite", got)
		}
	}
	if titles.calls.Load() != 1 {
		t.Errorf("title queried %d times, want 1", titles.calls.Load())
	}
}

func TestDetectorConcurrentMemoizes(t *testing.T) {
	titles := &fakeTitles{title: "YMM4"}
	d := NewDetector("", "", titles, nil)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Detect()
		}()
	}
	wg.Wait()

	if titles.calls.Load() != 1 {
		t.Errorf("title queried %d times, want 1", titles.calls.Load())
	}
}

func TestDetectorFailuresResolveStandard(t *testing.T) {
	tests := []struct {
		name   string
		titles *fakeTitles
	}{
		{"error", &fakeTitles{title: "Lite", err: errors.New("no window")}},
		{"panic", &fakeTitles{panic: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector("", "", tt.titles, nil)
			if got := d.Detect(); got != Standard {
				t.Errorf("Detect() = %v, want Standard", got)
			}
			d.Detect()
			if tt.titles.calls.Load() != 1 {
				t.Errorf("failure not cached: %d queries", tt.titles.calls.Load())
			}
		})
	}
}

func TestDetectorNoTitleSource(t *testing.T) {
	d := NewDetector("/usr/bin/ymm4", "", nil, nil)
	if got := d.Detect(); got != Standard {
		t.Errorf("Detect() = %v, want Standard", got)
	}
	if d.TitleQueries() != 0 {
		t.Errorf("TitleQueries() = %d, want 0", d.TitleQueries())
	}
}

func TestDetectorUsesInvoker(t *testing.T) {
	var invoked atomic.Int32
	invoke := func(fn func() error) error {
		invoked.Add(1)
		return fn()
	}
	d := NewDetector("", "", &fakeTitles{title: "lite"}, invoke)

	if got := d.Detect(); got != Lite {
		t.Errorf("Detect() = %v, want Lite", got)
	}
	if invoked.Load() != 1 {
		t.Errorf("invoker called %d times, want 1", invoked.Load())
	}
}

func TestDetectorInvokerError(t *testing.T) {
	titles := &fakeTitles{title: "lite"}
	invoke := func(func() error) error { return errors.New("dispatcher closed") }
	d := NewDetector("", "", titles, invoke)

	if got := d.Detect(); got != Standard {
		t.Errorf("Detect() = %v, want Standard", got)
	}
	if titles.calls.Load() != 0 {
		t.Error("title read although the invoker refused to run")
	}
}

func TestEditionAppID(t *testing.T) {
	if Standard.AppID() != "1353376132732420136" {
		t.Errorf("Standard.AppID() = %q", Standard.AppID())
	}
	if Lite.AppID() != "1455192227734098075" {
		t.Errorf("Lite.AppID() = %q", Lite.AppID())
	}
}
