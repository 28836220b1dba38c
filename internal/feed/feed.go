// Package feed keeps the current telemetry snapshot and scene in step with
// the telemetry file on disk and fans scene frames out to subscribers.
package feed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ziadkadry99/neurosphere/internal/audit"
	"github.com/ziadkadry99/neurosphere/internal/logging"
	"github.com/ziadkadry99/neurosphere/internal/metrics"
	"github.com/ziadkadry99/neurosphere/internal/scene"
	"github.com/ziadkadry99/neurosphere/internal/telemetry"
)

// FirstDevice selects whichever device appears first in the snapshot.
const FirstDevice = -1

// SnapshotRecorder stores a summary of every reload.
type SnapshotRecorder interface {
	LogSnapshot(ctx context.Context, sum audit.SnapshotSummary) (audit.SnapshotSummary, error)
}

// Options configures a Feed.
type Options struct {
	Path         string
	Scheme       telemetry.Scheme
	Device       int // device driving the scene, or FirstDevice
	Slice        int // time slice driving the scene
	Debounce     time.Duration
	PollInterval time.Duration // used when the file cannot be watched
	Poll         bool          // poll even when fsnotify is available
	Scene        *scene.State
	History      SnapshotRecorder
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
}

// Feed reloads the telemetry file when it changes.
type Feed struct {
	opts Options
	log  *zap.Logger

	mu     sync.RWMutex
	latest *telemetry.Snapshot

	subsMu sync.Mutex
	subs   map[chan scene.Frame]struct{}
}

// New returns a Feed. Zero durations get defaults and a nil scene gets a
// fresh unit sphere.
func New(opts Options) *Feed {
	if opts.Scheme == "" {
		opts.Scheme = telemetry.SchemeBasic
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 100 * time.Millisecond
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	if opts.Scene == nil {
		opts.Scene = scene.NewState(1)
	}
	return &Feed{
		opts: opts,
		log:  logging.OrNop(opts.Logger).With(zap.String("component", "feed")),
		subs: make(map[chan scene.Frame]struct{}),
	}
}

// Scene returns the scene state the feed drives.
func (f *Feed) Scene() *scene.State { return f.opts.Scene }

// Latest returns the most recent successfully parsed snapshot, or nil.
func (f *Feed) Latest() *telemetry.Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.latest
}

// Reload parses the telemetry file, updates the scene and notifies
// subscribers. A failed parse leaves the previous snapshot in place.
func (f *Feed) Reload(ctx context.Context) error {
	snap, err := telemetry.ParseFile(f.opts.Path, f.opts.Scheme)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.latest = snap
	f.mu.Unlock()

	dev := f.sceneDevice(snap)
	frame := f.opts.Scene.Update(scene.LevelsFromDevice(dev, f.opts.Slice))

	f.opts.Metrics.ObserveSnapshot(snap)
	f.opts.Metrics.SetSceneConnections(len(frame.Connections))

	if f.opts.History != nil {
		_, err := f.opts.History.LogSnapshot(ctx, audit.SnapshotSummary{
			Source:        snap.Source,
			Scheme:        string(snap.Scheme),
			Devices:       len(snap.Devices),
			ActiveDevices: snap.ActiveDevices(),
			Records:       snap.Report.Records,
			Skipped:       len(snap.Report.Skipped),
			LoadedAt:      snap.LoadedAt,
		})
		if err != nil {
			f.log.Warn("recording telemetry snapshot", zap.Error(err))
		}
	}

	f.log.Debug("telemetry reloaded",
		zap.Int("devices", len(snap.Devices)),
		zap.Int("records", snap.Report.Records),
		zap.Int("skipped", len(snap.Report.Skipped)),
		zap.Uint64("scene_version", frame.Version),
	)

	f.broadcast(frame)
	return nil
}

func (f *Feed) sceneDevice(snap *telemetry.Snapshot) *telemetry.Device {
	if f.opts.Device == FirstDevice {
		if len(snap.Devices) == 0 {
			return nil
		}
		return snap.Devices[0]
	}
	return snap.Device(f.opts.Device)
}

// Subscribe registers for scene frames. The current frame is delivered
// first. A subscriber that falls behind only sees the newest frame. The
// returned function unsubscribes and closes the channel.
func (f *Feed) Subscribe() (<-chan scene.Frame, func()) {
	ch := make(chan scene.Frame, 1)
	ch <- f.opts.Scene.Snapshot()

	f.subsMu.Lock()
	f.subs[ch] = struct{}{}
	n := len(f.subs)
	f.subsMu.Unlock()
	f.opts.Metrics.SetSubscribers(n)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.subsMu.Lock()
			delete(f.subs, ch)
			n := len(f.subs)
			close(ch)
			f.subsMu.Unlock()
			f.opts.Metrics.SetSubscribers(n)
		})
	}
}

func (f *Feed) broadcast(frame scene.Frame) {
	f.subsMu.Lock()
	defer f.subsMu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- frame:
			continue
		default:
		}
		// Drop the stale frame and replace it.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- frame:
		default:
		}
	}
}

// Run loads the file once and then reloads it on change until ctx is
// cancelled. Changes are picked up through fsnotify on the containing
// directory, falling back to polling the file's size and modification time.
func (f *Feed) Run(ctx context.Context) error {
	if err := f.Reload(ctx); err != nil {
		f.log.Warn("initial telemetry load failed", zap.String("path", f.opts.Path), zap.Error(err))
	}
	if f.opts.Poll {
		return f.poll(ctx)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		f.log.Warn("fsnotify unavailable, polling", zap.Error(err))
		return f.poll(ctx)
	}
	defer watcher.Close()

	dir := filepath.Dir(f.opts.Path)
	if err := watcher.Add(dir); err != nil {
		f.log.Warn("cannot watch telemetry directory, polling", zap.String("dir", dir), zap.Error(err))
		return f.poll(ctx)
	}
	f.log.Info("watching telemetry", zap.String("path", f.opts.Path))

	target := filepath.Clean(f.opts.Path)
	debounce := time.NewTimer(f.opts.Debounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("fsnotify event channel closed")
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(f.opts.Debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("fsnotify error channel closed")
			}
			f.log.Warn("fsnotify error", zap.Error(err))

		case <-debounce.C:
			if err := f.Reload(ctx); err != nil {
				f.log.Warn("telemetry reload failed", zap.Error(err))
			}
		}
	}
}

func (f *Feed) poll(ctx context.Context) error {
	ticker := time.NewTicker(f.opts.PollInterval)
	defer ticker.Stop()

	var last fileStamp
	if st, err := stamp(f.opts.Path); err == nil {
		last = st
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			st, err := stamp(f.opts.Path)
			if err != nil || st.same(last) {
				continue
			}
			last = st
			if err := f.Reload(ctx); err != nil {
				f.log.Warn("telemetry reload failed", zap.Error(err))
			}
		}
	}
}

type fileStamp struct {
	size    int64
	modTime time.Time
}

func (s fileStamp) same(o fileStamp) bool {
	return s.size == o.size && s.modTime.Equal(o.modTime)
}

func stamp(path string) (fileStamp, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return fileStamp{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return fileStamp{size: fi.Size(), modTime: fi.ModTime()}, nil
}
