// File: propbind/watch.go
package propbind

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultMaxSubscribers bounds concurrent subscriber channels per watcher.
const DefaultMaxSubscribers = 100 // Prevent resource exhaustion

// WatchOptions configures file watching behavior.
type WatchOptions struct {
	// PollInterval for file stat checks (minimum 100ms)
	PollInterval time.Duration

	// Debounce duration to avoid rapid reloads
	Debounce time.Duration

	// MaxSubscribers limits concurrent subscriber channels
	MaxSubscribers int

	// ReloadTimeout for file reload operations
	ReloadTimeout time.Duration

	// VerifyPermissions checks file hasn't been replaced with different permissions
	VerifyPermissions bool
}

// DefaultWatchOptions returns sensible defaults for file watching.
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		PollInterval:      DefaultPollInterval,
		Debounce:          DefaultDebounce,
		MaxSubscribers:    DefaultMaxSubscribers,
		ReloadTimeout:     DefaultReloadTimeout,
		VerifyPermissions: true,
	}
}

// Watcher polls a FileSource's backing file and reloads it on change.
// Provider targets bound through the source observe reloaded values on
// their next access; subscribers receive the keys that changed.
type Watcher struct {
	mu               sync.RWMutex
	ctx              context.Context
	cancel           context.CancelFunc
	opts             WatchOptions
	source           *FileSource
	lastModTime      time.Time
	lastSize         int64
	lastMode         os.FileMode
	watching         atomic.Bool
	reloadInProgress atomic.Bool
	subscribers      map[int64]chan string
	subscriberID     atomic.Int64
	debounceTimer    *time.Timer
}

// AutoReload starts watching the source's backing file and returns the
// watcher. Stop it with Watcher.Stop (or Container.Close when built through
// the builder).
func (f *FileSource) AutoReload(opts WatchOptions) *Watcher {
	if opts.PollInterval < MinPollInterval {
		opts.PollInterval = MinPollInterval
	}
	if opts.MaxSubscribers <= 0 {
		opts.MaxSubscribers = DefaultMaxSubscribers
	}
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = DefaultReloadTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		ctx:         ctx,
		cancel:      cancel,
		opts:        opts,
		source:      f,
		subscribers: make(map[int64]chan string),
	}

	// Get initial file state
	if info, err := os.Stat(f.path); err == nil {
		w.lastModTime = info.ModTime()
		w.lastSize = info.Size()
		w.lastMode = info.Mode()
	}

	go w.watchLoop()
	return w
}

// Subscribe returns a channel receiving the keys whose values changed on
// reload, plus watcher status events ("file_deleted", "reload_error:...").
// The channel is closed when the watcher stops.
func (w *Watcher) Subscribe() <-chan string {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Check subscriber limit
	if len(w.subscribers) >= w.opts.MaxSubscribers {
		// Return closed channel to prevent resource exhaustion
		ch := make(chan string)
		close(ch)
		return ch
	}

	// Create buffered channel to prevent blocking
	ch := make(chan string, 10)
	id := w.subscriberID.Add(1)
	w.subscribers[id] = ch

	// Cleanup goroutine
	go func() {
		<-w.ctx.Done()
		w.mu.Lock()
		delete(w.subscribers, id)
		close(ch)
		w.mu.Unlock()
	}()

	return ch
}

// SubscriberCount returns the number of active subscriber channels.
func (w *Watcher) SubscriberCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.subscribers)
}

// Watching reports whether the watch loop is running.
func (w *Watcher) Watching() bool {
	return w.watching.Load()
}

// watchLoop is the main file watching loop.
func (w *Watcher) watchLoop() {
	if !w.watching.CompareAndSwap(false, true) {
		return // Already watching
	}
	defer w.watching.Store(false)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.checkAndReload()
		}
	}
}

// checkAndReload checks if the file changed and triggers a reload.
func (w *Watcher) checkAndReload() {
	info, err := os.Stat(w.source.path)
	if err != nil {
		if os.IsNotExist(err) {
			// File was deleted, notify subscribers
			w.notifySubscribers("file_deleted")
		}
		return
	}

	changed := !info.ModTime().Equal(w.lastModTime) || info.Size() != w.lastSize

	// SECURITY: Verify permissions haven't changed suspiciously
	if w.opts.VerifyPermissions && w.lastMode != 0 {
		if (info.Mode() & 0077) != (w.lastMode & 0077) {
			// World/group permissions changed - potential security issue
			w.notifySubscribers("permissions_changed")
			// Don't reload on permission change for security
			return
		}
	}

	if changed {
		w.lastModTime = info.ModTime()
		w.lastSize = info.Size()
		w.lastMode = info.Mode()

		// Debounce rapid changes
		w.mu.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
		}
		w.debounceTimer = time.AfterFunc(w.opts.Debounce, w.performReload)
		w.mu.Unlock()
	}
}

// performReload reloads the file source and notifies subscribers with the
// keys that changed.
func (w *Watcher) performReload() {
	// Prevent concurrent reloads
	if !w.reloadInProgress.CompareAndSwap(false, true) {
		return
	}
	defer w.reloadInProgress.Store(false)

	ctx, cancel := context.WithTimeout(w.ctx, w.opts.ReloadTimeout)
	defer cancel()

	oldValues := w.source.snapshot()

	done := make(chan error, 1)
	go func() {
		done <- w.source.Reload()
	}()

	select {
	case err := <-done:
		if err != nil {
			w.notifySubscribers(fmt.Sprintf("reload_error:%v", err))
			return
		}

		// Compare and notify changes
		newValues := w.source.snapshot()
		for key, newVal := range newValues {
			if oldVal, existed := oldValues[key]; !existed || oldVal != newVal {
				w.notifySubscribers(key)
			}
		}

		// Check for deletions
		for key := range oldValues {
			if _, exists := newValues[key]; !exists {
				w.notifySubscribers(key)
			}
		}

	case <-ctx.Done():
		w.notifySubscribers("reload_timeout")
	}
}

// notifySubscribers sends a change notification to all subscriber channels.
func (w *Watcher) notifySubscribers(key string) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, ch := range w.subscribers {
		select {
		case ch <- key:
			// Sent successfully
		default:
			// Channel full, skip
		}
	}
}

// Stop terminates the watcher.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}

	// Stop debounce timer
	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.mu.Unlock()

	// Wait for watch loop to exit with timeout
	deadline := time.Now().Add(ShutdownTimeout)
	for w.watching.Load() && time.Now().Before(deadline) {
		time.Sleep(SpinWaitInterval)
	}
}
