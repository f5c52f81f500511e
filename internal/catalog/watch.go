package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const docChangeOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

// FileWatcher signals changes to a single file. It watches the parent
// directory instead of the file itself: rename-based saves replace the inode,
// and a document that does not exist yet cannot be watched directly.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	log     *zap.Logger
}

func NewFileWatcher(path string, log *zap.Logger) (*FileWatcher, error) {
	if log == nil {
		log = zap.NewNop()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &FileWatcher{watcher: w, path: abs, log: log}, nil
}

// Run calls onChange for every event touching the watched file and closes
// the underlying watcher when ctx is done.
func (fw *FileWatcher) Run(ctx context.Context, onChange func()) error {
	defer func() { _ = fw.watcher.Close() }()

	for {
		select {
		case ev, ok := <-fw.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != fw.path || !ev.Op.Has(docChangeOps) {
				continue
			}
			fw.log.Info("data file changed, invalidating stats cache",
				zap.String("path", fw.path),
				zap.String("op", ev.Op.String()),
			)
			onChange()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return nil
			}
			fw.log.Error("file watcher error", zap.Error(err))

		case <-ctx.Done():
			return nil
		}
	}
}

const defaultWatchRetry = 5 * time.Second

var errWatcherDown = errors.New("document watcher not running")

// WatchSupervisor keeps a Watcher feeding the stats cache for the life of a
// context. Whenever no watcher is running the cache is bypassed and Ready
// fails, so a lost change feed never serves stale stats.
type WatchSupervisor struct {
	New   func() (Watcher, error)
	Stats *StatsCache
	Log   *zap.Logger
	Retry time.Duration

	down atomic.Bool
}

func (s *WatchSupervisor) Run(ctx context.Context) {
	for {
		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return
		}

		s.Stats.SetBypass(true)
		s.down.Store(true)
		s.logger().Error("document watcher stopped, stats cache bypassed until it restarts",
			zap.Error(err), zap.Duration("retry_in", s.retry()))

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retry()):
		}
	}
}

// Ready reports whether a watcher is currently running.
func (s *WatchSupervisor) Ready(context.Context) error {
	if s.down.Load() {
		return errWatcherDown
	}
	return nil
}

func (s *WatchSupervisor) runOnce(ctx context.Context) error {
	w, err := s.New()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	if s.down.Load() {
		s.Stats.SetBypass(false)
		s.down.Store(false)
		s.logger().Info("document watcher restarted, stats cache enabled")
	}

	if err := w.Run(ctx, s.Stats.Invalidate); err != nil {
		return err
	}
	return errors.New("watcher exited")
}

func (s *WatchSupervisor) retry() time.Duration {
	if s.Retry <= 0 {
		return defaultWatchRetry
	}
	return s.Retry
}

func (s *WatchSupervisor) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
