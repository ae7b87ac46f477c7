package tracker

import "sync"

// CachedDirectory memoizes an underlying Directory for the duration of one
// report run. Directory lookups hit a remote census service; a large report
// resolves the same handful of pusher IDs hundreds of times.
type CachedDirectory struct {
	next Directory

	mu          sync.RWMutex
	names       map[string]string
	affiliation map[string]string
}

// NewCachedDirectory wraps next with per-run memoization.
func NewCachedDirectory(next Directory) *CachedDirectory {
	return &CachedDirectory{
		next:        next,
		names:       make(map[string]string),
		affiliation: make(map[string]string),
	}
}

// DisplayName returns the memoized display name for id.
func (d *CachedDirectory) DisplayName(id string) string {
	return d.lookup(d.names, id, d.next.DisplayName)
}

// Affiliation returns the memoized affiliation for id.
func (d *CachedDirectory) Affiliation(id string) string {
	return d.lookup(d.affiliation, id, d.next.Affiliation)
}

func (d *CachedDirectory) lookup(m map[string]string, id string, fn func(string) string) string {
	d.mu.RLock()
	v, ok := m[id]
	d.mu.RUnlock()
	if ok {
		return v
	}
	v = fn(id)
	d.mu.Lock()
	m[id] = v
	d.mu.Unlock()
	return v
}
