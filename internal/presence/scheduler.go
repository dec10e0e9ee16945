package presence

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrDisposed is returned by operations on a disposed [Scheduler].
var ErrDisposed = errors.New("presence scheduler disposed")

// ///////////////////////////////////////////////
// Client
// ///////////////////////////////////////////////

// Client is a presence connection. Implementations need not be safe for
// concurrent use; the scheduler serializes calls.
type Client interface {
	Initialize() error
	SetPresence(p Payload) error
	ClearPresence() error
	Dispose() error
	IsInitialized() bool
	IsDisposed() bool
}

// Callbacks receive asynchronous connection notifications.
type Callbacks struct {
	OnReady func(user string)
	OnError func(err error)
}

// ClientFactory builds an unconnected client for a Discord application.
type ClientFactory func(appID string, cb Callbacks) Client

// ProjectSource reports the path of the project open in the editor.
type ProjectSource interface {
	CurrentProjectPath() (string, bool)
}

// ///////////////////////////////////////////////
// State
// ///////////////////////////////////////////////

// State is the lifecycle state of a [Scheduler].
type State int32

const (
	Uninitialized State = iota
	Initializing
	Ready
	Disposed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Disposed:
		return "disposed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ///////////////////////////////////////////////
// Options
// ///////////////////////////////////////////////

// Options configures a [Scheduler]. Settings and NewClient are required.
type Options struct {
	// Settings returns the current settings snapshot.
	Settings func() Settings
	// NewClient builds the presence client.
	NewClient ClientFactory
	// Edition selects the application identity. Nil means Standard.
	Edition EditionSource
	// Project looks up the open project. Nil means no project.
	Project ProjectSource
	// ProjectVisible filters project paths for privacy. Nil shows all.
	ProjectVisible func(path string) bool
	// Invoke runs each tick's update on the host's UI context. Nil runs
	// updates directly on the timer goroutine.
	Invoke Invoker
	// Clock drives the timer and debounce. Nil uses the real clock.
	Clock clockwork.Clock
	// Logger receives lifecycle logs. Nil uses slog.Default().
	Logger *slog.Logger
	// Version is shown in the default large image tooltip.
	Version string
	// Debounce delays the update that follows RequestUpdate.
	Debounce time.Duration
	// RetryConnect re-attempts InitializeClient on each tick while no client
	// is connected.
	RetryConnect bool
}

// ///////////////////////////////////////////////
// Scheduler
// ///////////////////////////////////////////////

// Scheduler owns one presence client and pushes payloads to it on a timer
// and on request. Initialize, update and dispose are serialized by a single
// mutex; the client's connect call runs outside it while the Initializing
// state keeps other initializers out.
type Scheduler struct {
	opts  Options
	clock clockwork.Clock
	log   *slog.Logger
	start time.Time

	mu      sync.Mutex
	state   State
	client  Client
	edition Edition
	loop    *tickLoop

	dirty atomic.Bool
	wake  chan struct{}
}

// tickLoop is one installed timer. Closing stop ends its goroutine.
type tickLoop struct {
	stop chan struct{}
	once sync.Once
}

func (l *tickLoop) halt() {
	l.once.Do(func() { close(l.stop) })
}

// stopped reports whether halt was called. select picks randomly among
// ready cases, so a halted loop can still receive a tick or wake.
func (l *tickLoop) stopped() bool {
	select {
	case <-l.stop:
		return true
	default:
		return false
	}
}

// NewScheduler returns a Scheduler in the Uninitialized state. The session
// start time is taken from the clock now.
func NewScheduler(opts Options) *Scheduler {
	if opts.Settings == nil {
		opts.Settings = DefaultSettings
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		opts:  opts,
		clock: clock,
		log:   log,
		start: clock.Now(),
		wake:  make(chan struct{}, 1),
	}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StartTime returns the session start shown as elapsed time.
func (s *Scheduler) StartTime() time.Time {
	return s.start
}

// ///////////////////////////////////////////////
// Initialization
// ///////////////////////////////////////////////

// InitializeClient connects the presence client unless a live one exists or
// another caller is already connecting. On failure the scheduler returns to
// Uninitialized and the partial client is disposed.
func (s *Scheduler) InitializeClient() error {
	s.mu.Lock()
	switch {
	case s.state == Disposed:
		s.mu.Unlock()
		return ErrDisposed
	case s.state == Initializing:
		s.mu.Unlock()
		return nil
	case s.client != nil && !s.client.IsDisposed():
		s.mu.Unlock()
		return nil
	}
	s.state = Initializing
	s.client = nil
	s.mu.Unlock()

	edition := Standard
	if s.opts.Edition != nil {
		edition = s.opts.Edition.Detect()
	}
	appID := edition.AppID()

	client, err := s.connect(appID)

	s.mu.Lock()
	if s.state == Disposed {
		s.mu.Unlock()
		if client != nil {
			client.Dispose()
		}
		return ErrDisposed
	}
	if err != nil {
		s.state = Uninitialized
		s.mu.Unlock()
		s.log.Warn("presence client initialization failed", "app_id", appID, "error", err)
		if client != nil {
			client.Dispose()
		}
		return fmt.Errorf("initialize presence client: %w", err)
	}
	s.client = client
	s.edition = edition
	s.state = Ready
	s.mu.Unlock()

	s.log.Info("presence client initialized", "app_id", appID, "edition", edition.String())
	return nil
}

// connect builds and initializes a client, converting panics into errors.
// The client is returned even on failure so the caller can dispose it.
func (s *Scheduler) connect(appID string) (client Client, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during initialize: %v", r)
		}
	}()
	client = s.opts.NewClient(appID, Callbacks{
		OnReady: func(user string) {
			s.log.Info("connected to Discord", "user", user)
		},
		OnError: func(err error) {
			s.log.Warn("Discord client error", "error", err)
		},
	})
	if client == nil {
		return nil, errors.New("client factory returned nil")
	}
	return client, client.Initialize()
}

// reconnect drops a client that lost its connection and initializes a new
// one. It does nothing while a connected client exists.
func (s *Scheduler) reconnect() {
	s.mu.Lock()
	var stale Client
	switch s.state {
	case Uninitialized:
	case Ready:
		if s.client != nil && s.client.IsInitialized() && !s.client.IsDisposed() {
			s.mu.Unlock()
			return
		}
		stale = s.client
		s.client = nil
		s.state = Uninitialized
	default:
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if stale != nil && !stale.IsDisposed() {
		stale.Dispose()
	}
	if err := s.InitializeClient(); err != nil && !errors.Is(err, ErrDisposed) {
		s.log.Debug("reconnect attempt failed", "error", err)
	}
}

// ///////////////////////////////////////////////
// Updates
// ///////////////////////////////////////////////

// UpdatePresence recomputes the payload and pushes it. It is a no-op when
// the scheduler is disposed or the client is not connected. Disabled
// settings clear the presence instead.
func (s *Scheduler) UpdatePresence() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Ready || s.client == nil || !s.client.IsInitialized() {
		return nil
	}
	s.dirty.Store(false)

	settings := s.opts.Settings()
	if !settings.Enabled {
		if err := s.client.ClearPresence(); err != nil {
			return fmt.Errorf("clear presence: %w", err)
		}
		return nil
	}

	p := Build(settings, Context{
		StartTime:   s.start,
		Edition:     s.edition,
		ProjectName: s.projectName(),
		Version:     s.opts.Version,
	})
	if err := s.client.SetPresence(p); err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	return nil
}

// projectName resolves the display name of the open project. Every lookup
// failure yields "".
func (s *Scheduler) projectName() (name string) {
	if s.opts.Project == nil {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Debug("project lookup panicked", "panic", fmt.Sprint(r))
			name = ""
		}
	}()
	path, ok := s.opts.Project.CurrentProjectPath()
	if !ok || path == "" {
		return ""
	}
	if s.opts.ProjectVisible != nil && !s.opts.ProjectVisible(path) {
		return ""
	}
	return ProjectName(path)
}

// RequestUpdate marks the presence stale and wakes the timer loop. Requests
// made before the next recomputation coalesce into one. Safe to call from
// any goroutine.
func (s *Scheduler) RequestUpdate() {
	s.dirty.Store(true)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Pending reports whether an update has been requested but not yet run.
func (s *Scheduler) Pending() bool {
	return s.dirty.Load()
}

// ///////////////////////////////////////////////
// Timer
// ///////////////////////////////////////////////

// StartTimer installs a periodic update every interval, stopping any timer
// installed before. It does not wait for an in-flight tick of the old timer.
func (s *Scheduler) StartTimer(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("timer interval must be > 0, got %v", interval)
	}

	s.mu.Lock()
	if s.state == Disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	old := s.loop
	loop := &tickLoop{stop: make(chan struct{})}
	s.loop = loop
	s.mu.Unlock()

	if old != nil {
		old.halt()
	}

	ticker := s.clock.NewTicker(interval)
	go s.run(loop, ticker)
	return nil
}

func (s *Scheduler) run(loop *tickLoop, ticker clockwork.Ticker) {
	defer ticker.Stop()

	var debounce clockwork.Timer
	var debounceC <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-loop.stop:
			return
		case <-ticker.Chan():
			if loop.stopped() {
				return
			}
			s.tick()
		case <-s.wake:
			if loop.stopped() {
				return
			}
			if s.opts.Debounce <= 0 {
				s.tick()
				continue
			}
			if debounceC == nil {
				debounce = s.clock.NewTimer(s.opts.Debounce)
				debounceC = debounce.Chan()
			}
		case <-debounceC:
			debounce, debounceC = nil, nil
			if loop.stopped() {
				return
			}
			if s.dirty.Load() {
				s.tick()
			}
		}
	}
}

// tick runs one update. Errors and panics are logged and never escape, so a
// failed tick does not stop the timer.
func (s *Scheduler) tick() {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("presence tick panicked", "panic", fmt.Sprint(r))
		}
	}()

	if s.opts.RetryConnect {
		s.reconnect()
	}

	update := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic during update: %v", r)
			}
		}()
		return s.UpdatePresence()
	}

	var err error
	if s.opts.Invoke != nil {
		err = s.opts.Invoke(update)
	} else {
		err = update()
	}
	if err != nil {
		s.log.Warn("presence update failed", "error", err)
	}
}

// ///////////////////////////////////////////////
// Dispose
// ///////////////////////////////////////////////

// Dispose stops the timer, clears the presence if connected and disposes the
// client. Only the first call has any effect.
func (s *Scheduler) Dispose() error {
	s.mu.Lock()
	if s.state == Disposed {
		s.mu.Unlock()
		return nil
	}
	s.state = Disposed
	loop := s.loop
	s.loop = nil
	client := s.client
	s.client = nil
	s.mu.Unlock()

	if loop != nil {
		loop.halt()
	}
	if client == nil || client.IsDisposed() {
		return nil
	}

	var errs []error
	if client.IsInitialized() {
		if err := client.ClearPresence(); err != nil {
			errs = append(errs, fmt.Errorf("clear presence: %w", err))
		}
	}
	if err := client.Dispose(); err != nil {
		errs = append(errs, fmt.Errorf("dispose client: %w", err))
	}
	s.log.Info("presence scheduler disposed")
	return errors.Join(errs...)
}
