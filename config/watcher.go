package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/coordmap/logging"
	"go.viam.com/coordmap/utils"
)

// DefaultWatchDebounce is how long a Watcher waits for writes to a config file to settle.
const DefaultWatchDebounce = 250 * time.Millisecond

// A Watcher re-reads a config file whenever it changes. Bursts of writes, like an editor saving
// through a temporary file, produce one re-read. Configs that fail to read are logged and
// skipped.
type Watcher struct {
	path    string
	logger  logging.Logger
	fsw     *fsnotify.Watcher
	configs chan *Config
	workers utils.StoppableWorkers

	closeOnce sync.Once
}

// NewWatcher starts watching path. The directory is watched rather than the file so that
// replacing the file is noticed too.
func NewWatcher(path string, debounceInterval time.Duration, logger logging.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating file watcher")
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		return nil, multierr.Combine(errors.Wrapf(err, "watching %s", abs), fsw.Close())
	}
	if debounceInterval <= 0 {
		debounceInterval = DefaultWatchDebounce
	}

	w := &Watcher{
		path:    abs,
		logger:  logger,
		fsw:     fsw,
		configs: make(chan *Config, 1),
	}
	w.workers = utils.NewStoppableWorkers(func(ctx context.Context) {
		w.watch(ctx, debounce.New(debounceInterval))
	})
	return w, nil
}

// Configs delivers each successfully re-read config. Only the newest unread config is kept.
func (w *Watcher) Configs() <-chan *Config {
	return w.configs
}

func (w *Watcher) watch(ctx context.Context, debounced func(func())) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			debounced(func() { w.reload(ctx) })
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.CWarnw(ctx, "config watcher error", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	cfg, err := Read(ctx, w.path, w.logger)
	if err != nil {
		w.logger.CWarnw(ctx, "ignoring invalid config change", "path", w.path, "error", err)
		return
	}
	w.logger.CInfow(ctx, "config changed", "path", w.path)
	for {
		select {
		case w.configs <- cfg:
			return
		default:
		}
		// drop the unread config in favor of this one
		select {
		case <-w.configs:
		default:
		}
	}
}

// Close stops watching. Configs is not closed since a debounced reload may still be pending.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.workers.Stop()
		err = w.fsw.Close()
	})
	return err
}
