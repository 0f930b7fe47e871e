package config

import (
	"reflect"

	"github.com/fsnotify/fsnotify"

	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/logging"
)

// Diff is the result of comparing two AGV fleet lists across a reload:
// added and removed hold the full descriptors, keyed by serial.
type Diff struct {
	Added   []AGV
	Removed []AGV
}

// DiffAGVs implements the "reload only ever adds or removes AGV entries,
// never mutates one in place" rule: an AGV whose fields changed between
// old and new is reported as a Removed+Added pair rather than an update,
// so callers (the supervisor) never need in-place session reconfiguration.
func DiffAGVs(old, new []AGV) Diff {
	oldBySerial := make(map[string]AGV, len(old))
	for _, a := range old {
		oldBySerial[a.Serial] = a
	}
	newBySerial := make(map[string]AGV, len(new))
	for _, a := range new {
		newBySerial[a.Serial] = a
	}

	var diff Diff
	for serial, n := range newBySerial {
		o, existed := oldBySerial[serial]
		if !existed {
			diff.Added = append(diff.Added, n)
			continue
		}
		if !reflect.DeepEqual(o, n) {
			diff.Removed = append(diff.Removed, o)
			diff.Added = append(diff.Added, n)
		}
	}
	for serial, o := range oldBySerial {
		if _, stillPresent := newBySerial[serial]; !stillPresent {
			diff.Removed = append(diff.Removed, o)
		}
	}
	return diff
}

// Watcher watches a config file for changes and re-Loads it, delivering
// each new Config on a channel. Callers compute the AGV diff against the
// previous load with DiffAGVs; Watcher never mutates live sessions itself.
type Watcher struct {
	path string
	fsw  *fsnotify.Watcher
	out  chan *Config
}

// NewWatcher starts watching the file at path itself (not its parent
// directory) and returns a Watcher delivering reloaded configs on
// Changes(). An editor that saves by renaming a new file into place
// replaces the watched file, and changes after that are not seen.
func NewWatcher(path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{path: path, fsw: fsw, out: make(chan *Config, 1)}
	go w.run()
	return w, nil
}

// Changes returns the channel new configs are delivered on.
func (w *Watcher) Changes() <-chan *Config {
	return w.out
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				logging.Warn("config reload failed, keeping previous config", logging.KeyErr, err)
				continue
			}
			w.out <- cfg
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Warn("config watcher error", logging.KeyErr, err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
