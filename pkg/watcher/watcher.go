// Package watcher monitors the evomap config file so a running session
// picks up backend or key edits without a restart. It uses fsnotify where
// the filesystem supports it and falls back to stat polling on remote
// mounts (NFS, SMB, SSHFS) where inotify events are unreliable.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/debug"
)

// DefaultPollInterval is the stat interval when polling mode is active.
const DefaultPollInterval = 2 * time.Second

// ErrAlreadyStarted is returned by Start on a running watcher.
var ErrAlreadyStarted = errors.New("watcher already started")

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDuration sets how long a burst of writes is coalesced
// before one change signal fires. Editors and atomic saves produce
// several events per logical edit.
func WithDebounceDuration(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounceDuration = d }
}

// WithPollInterval sets the stat interval for polling mode.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.pollInterval = d }
}

// WithForcePoll skips fsnotify entirely. The EVOMAP_FORCE_POLLING and
// EVOMAP_FORCE_POLL environment variables have the same effect.
func WithForcePoll(force bool) WatcherOption {
	return func(w *Watcher) { w.forcePoll = force }
}

// Watcher watches one file and signals edits on Changed(). A removed file
// is not an error: config saves are atomic rename-over, so removal is just
// the first half of a write.
type Watcher struct {
	path             string
	debounceDuration time.Duration
	pollInterval     time.Duration
	forcePoll        bool

	mu        sync.RWMutex
	started   bool
	polling   bool
	fsType    FilesystemType
	lastMtime time.Time
	lastSize  int64

	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	changeCh  chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewWatcher creates a watcher for the given file. Nothing runs until
// Start is called.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		path:             abs,
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		changeCh:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debouncer = NewDebouncer(w.debounceDuration)
	return w, nil
}

// Start begins watching. The watch target is the file's directory, not
// the file itself: atomic saves replace the inode, and a directory watch
// survives that.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}
	w.ctx, w.cancel = context.WithCancel(context.Background())

	w.fsType = DetectFilesystemType(w.path)
	w.polling = w.forcePoll ||
		envBool("EVOMAP_FORCE_POLLING") || envBool("EVOMAP_FORCE_POLL") ||
		isRemoteFilesystem(w.fsType)

	if info, err := os.Stat(w.path); err == nil {
		w.lastMtime = info.ModTime()
		w.lastSize = info.Size()
	}

	if !w.polling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			err = fsw.Add(filepath.Dir(w.path))
		}
		if err != nil {
			if fsw != nil {
				fsw.Close()
			}
			debug.Log("fsnotify unavailable for %s, polling instead: %v", w.path, err)
			w.polling = true
		} else {
			w.fsWatcher = fsw
			go w.runFsnotify(fsw)
		}
	}
	if w.polling {
		go w.runPolling()
	}

	w.started = true
	return nil
}

// Stop ends the watch. The Changed channel stays open so a goroutine
// blocked on it does not spin; it simply never fires again.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	w.cancel()
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}
	w.debouncer.Cancel()
	w.started = false
}

// Changed signals once per debounced batch of edits.
func (w *Watcher) Changed() <-chan struct{} { return w.changeCh }

// Path returns the absolute watched path.
func (w *Watcher) Path() string { return w.path }

// IsStarted reports whether the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// IsPolling reports whether the watcher is in polling mode.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.polling
}

// FilesystemType returns the detected filesystem class for the path.
func (w *Watcher) FilesystemType() FilesystemType {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fsType
}

// PollInterval returns the configured stat interval.
func (w *Watcher) PollInterval() time.Duration { return w.pollInterval }

func (w *Watcher) runFsnotify(fsw *fsnotify.Watcher) {
	target := filepath.Base(w.path)
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.debouncer.Trigger(w.signal)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			debug.Log("config watch error: %v", err)
		}
	}
}

func (w *Watcher) runPolling() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
		}

		info, err := os.Stat(w.path)
		if err != nil {
			// Absent or mid-replace; the next successful stat will
			// register as a change via mtime/size.
			continue
		}
		w.mu.Lock()
		changed := info.ModTime().After(w.lastMtime) || info.Size() != w.lastSize
		if changed {
			w.lastMtime = info.ModTime()
			w.lastSize = info.Size()
		}
		w.mu.Unlock()
		if changed {
			w.debouncer.Trigger(w.signal)
		}
	}
}

// signal delivers one change notification. Sends never block: an unread
// pending signal already covers this change.
func (w *Watcher) signal() {
	if !w.IsStarted() {
		return
	}
	select {
	case w.changeCh <- struct{}{}:
	default:
	}
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
