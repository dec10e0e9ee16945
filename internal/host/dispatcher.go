package host

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ErrDispatcherClosed is returned by Invoke after Close.
var ErrDispatcherClosed = errors.New("host dispatcher closed")

// Dispatcher runs functions one at a time on a single goroutine locked to its
// OS thread, standing in for the editor's UI thread. Window APIs that require
// thread affinity go through it.
type Dispatcher struct {
	calls chan dispatchedCall
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

type dispatchedCall struct {
	fn     func() error
	result chan error
}

// NewDispatcher starts the dispatcher goroutine.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		calls: make(chan dispatchedCall),
		done:  make(chan struct{}),
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case <-d.done:
			return
		case c := <-d.calls:
			c.result <- runDispatched(c.fn)
		}
	}
}

func runDispatched(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in dispatched call: %v", r)
		}
	}()
	return fn()
}

// Invoke runs fn on the dispatcher goroutine and waits for its result.
// Panics in fn are returned as errors. Invoke must not be called from inside
// a dispatched function.
func (d *Dispatcher) Invoke(fn func() error) error {
	c := dispatchedCall{fn: fn, result: make(chan error, 1)}
	select {
	case d.calls <- c:
	case <-d.done:
		return ErrDispatcherClosed
	}
	return <-c.result
}

// Close stops the dispatcher after any running call finishes. Safe to call
// repeatedly.
func (d *Dispatcher) Close() error {
	d.once.Do(func() { close(d.done) })
	d.wg.Wait()
	return nil
}
