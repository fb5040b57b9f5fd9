package watch

import (
	"log/slog"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Debouncer coalesces rapid events into a single callback invocation.
// The callback receives every distinct path seen since the last invocation,
// sorted.
type Debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	callback func(paths []string)
	pending  sets.Set[string]
}

// NewDebouncer creates a debouncer that waits for interval of quiet before
// firing callback with the paths of the coalesced events.
func NewDebouncer(interval time.Duration, callback func(paths []string)) *Debouncer {
	return &Debouncer{
		interval: interval,
		callback: callback,
		pending:  sets.New[string](),
	}
}

// Trigger records an event for the given path and restarts the quiet period.
func (d *Debouncer) Trigger(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending.Insert(path)

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, d.fire)
}

func (d *Debouncer) fire() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("debouncer callback panicked", slog.Any("error", r))
		}
	}()

	d.mu.Lock()
	paths := sets.List(d.pending)
	d.pending = sets.New[string]()
	d.mu.Unlock()

	if len(paths) == 0 {
		return
	}

	d.callback(paths)
}

// Stop cancels any pending debounced callback and drops recorded paths.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	d.pending = sets.New[string]()
}
