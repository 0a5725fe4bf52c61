package icon

import (
	"bytes"
	"sync"
)

// Entry caches a single rendered bitmap. A lookup with a key that differs from
// the cached one re-renders, so edits to the source, rotation, or colors never
// serve stale bitmaps. Entry is safe for concurrent use and must not be copied.
type Entry struct {
	mu     sync.Mutex
	key    Key
	bitmap []byte
	valid  bool
}

// Get returns the cached bitmap for key, calling render on a miss.
// A failed render leaves the entry empty.
func (e *Entry) Get(key Key, render func() ([]byte, error)) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.valid && e.key == key {
		return e.bitmap, nil
	}

	b, err := render()
	if err != nil {
		e.valid = false
		e.bitmap = nil
		return nil, err
	}
	e.key, e.bitmap, e.valid = key, b, true
	return b, nil
}

// Preload stores an already rendered bitmap under key.
func (e *Entry) Preload(key Key, bitmap []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.key, e.bitmap, e.valid = key, bytes.Clone(bitmap), true
}

// Invalidate drops the cached bitmap.
func (e *Entry) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bitmap = nil
	e.valid = false
}

// Cached reports the current bitmap without rendering.
func (e *Entry) Cached() ([]byte, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bitmap, e.valid
}
