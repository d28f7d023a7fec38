package dataset

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Monitor watches the directory holding the dataset file and reports writes
// to it, so the loader cache can be invalidated when a fresh workbook is
// dropped in (by hand or by the email ingest).
type Monitor struct {
	path    string
	watcher *fsnotify.Watcher
	lastMod time.Time
	mu      sync.Mutex
}

// NewMonitor watches the directory containing path.
func NewMonitor(path string) (*Monitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	return &Monitor{
		path:    path,
		watcher: watcher,
	}, nil
}

func (m *Monitor) Close() error {
	return m.watcher.Close()
}

// Watch blocks, invoking handler each time the dataset file is written or
// replaced. Events for other files in the directory are ignored.
func (m *Monitor) Watch(handler func(path string)) error {
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != m.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil {
				continue
			}

			m.mu.Lock()
			if info.ModTime().After(m.lastMod) {
				m.lastMod = info.ModTime()
				go handler(event.Name)
			}
			m.mu.Unlock()
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
