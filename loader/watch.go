package loader

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pitabwire/util"
)

// ErrWatchUnsupported is returned when Watch is called on a loader that was
// not created from a local directory.
var ErrWatchUnsupported = errors.New("loader: watching requires a directory backed loader")

// watcher tracks filesystem change notifications and exposes them as a dirty
// set keyed by resource path relative to the loader root.
type watcher struct {
	fsw   *fsnotify.Watcher
	dir   string
	dirty sync.Map // relative path -> struct{}
}

// Watch starts filesystem change tracking for the loader's directory. While
// a watch is active, staleness of natively cached bundles is decided by
// change notifications instead of stat calls. Watching stops when ctx is
// cancelled.
func (l *Loader) Watch(ctx context.Context) error {
	if l.dir == "" {
		return ErrWatchUnsupported
	}

	l.watchMu.Lock()
	defer l.watchMu.Unlock()
	if l.watcher != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	w := &watcher{fsw: fsw, dir: l.dir}
	if err = w.addRecursive(l.dir); err != nil {
		_ = fsw.Close()
		return err
	}

	l.watcher = w
	go w.run(ctx, l)
	return nil
}

func (l *Loader) currentWatcher() *watcher {
	l.watchMu.Lock()
	defer l.watchMu.Unlock()
	return l.watcher
}

func (w *watcher) addRecursive(dir string) error {
	if err := w.fsw.Add(dir); err != nil {
		return err
	}

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != dir {
			return w.fsw.Add(path)
		}
		return nil
	})
}

func (w *watcher) run(ctx context.Context, l *Loader) {
	log := util.Log(ctx).WithField("dir", w.dir)

	defer func() {
		util.CloseAndLogOnError(ctx, w.fsw)
		l.watchMu.Lock()
		l.watcher = nil
		l.watchMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			rel, err := filepath.Rel(w.dir, event.Name)
			if err != nil {
				continue
			}
			w.dirty.Store(filepath.ToSlash(rel), struct{}{})

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("watch error")
		}
	}
}

func (w *watcher) isDirty(path string) bool {
	_, ok := w.dirty.Load(path)
	return ok
}

func (w *watcher) clear(path string) {
	w.dirty.Delete(path)
}
