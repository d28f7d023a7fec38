package dataset

import (
	"fmt"
	"sync"
)

// LoadError wraps a failure to read the source workbook. Without the clean
// table there is no dashboard, so callers treat it as fatal.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load dataset %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Loader reads, normalizes and caches clean tables keyed by file path. A
// path is read at most once until Invalidate is called for it; there is no
// hidden global registry.
type Loader struct {
	sheetName string
	mu        sync.RWMutex
	cache     map[string]*Table
}

func NewLoader(sheetName string) *Loader {
	return &Loader{
		sheetName: sheetName,
		cache:     make(map[string]*Table),
	}
}

// Load returns the clean table for path, reading and normalizing the
// workbook on first use. Repeated calls with the same path return the
// identical cached table.
func (l *Loader) Load(path string) (*Table, error) {
	l.mu.RLock()
	if t, ok := l.cache[path]; ok {
		l.mu.RUnlock()
		return t, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Another caller may have filled the entry while we waited.
	if t, ok := l.cache[path]; ok {
		return t, nil
	}

	df, err := ReadXLSX(path, l.sheetName)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if df.Error() != nil {
		return nil, &LoadError{Path: path, Err: df.Error()}
	}

	t := NewTable(Normalize(df))
	l.cache[path] = t
	return t, nil
}

// Invalidate drops the cached table for path so the next Load re-reads the
// source. Used when the underlying file is replaced.
func (l *Loader) Invalidate(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, path)
}
