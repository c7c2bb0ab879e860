package cachetier

import (
	"strings"
	"sync"
	"time"
)

// Storage is a set of named buckets kept in creation order.
type Storage struct {
	mu      sync.RWMutex
	buckets map[string]*Bucket
	order   []string
	now     func() time.Time
}

// NewStorage returns an empty storage.
func NewStorage() *Storage {
	return &Storage{
		buckets: make(map[string]*Bucket),
		now:     time.Now,
	}
}

// Open returns the named bucket, creating it when missing.
func (s *Storage) Open(name string) *Bucket {
	s.mu.RLock()
	b, ok := s.buckets[name]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buckets[name]; ok {
		return b
	}
	b = newBucket(name, s.now)
	s.buckets[name] = b
	s.order = append(s.order, name)
	return b
}

// Has reports whether the named bucket exists.
func (s *Storage) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.buckets[name]
	return ok
}

// Delete drops the named bucket and reports whether it existed.
func (s *Storage) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[name]; !ok {
		return false
	}
	delete(s.buckets, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Names returns bucket names, oldest bucket first.
func (s *Storage) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

func (s *Storage) snapshot() []*Bucket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Bucket, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.buckets[n])
	}
	return out
}

// Match looks key up in every bucket, oldest bucket first, and returns
// the first entry found.
func (s *Storage) Match(key string) (*Entry, *Bucket, bool) {
	for _, b := range s.snapshot() {
		if e, ok := b.Get(key); ok {
			b.hit()
			return e, b, true
		}
	}
	return nil, nil, false
}

// Invalidate removes every entry for path, with or without a query
// string, from every bucket.
func (s *Storage) Invalidate(path string) int {
	exact := keyPrefix + path
	withQuery := exact + "?"
	n := 0
	for _, b := range s.snapshot() {
		n += b.DeleteFunc(func(key string) bool {
			return key == exact || strings.HasPrefix(key, withQuery)
		})
	}
	return n
}

// Clear drops every bucket and returns how many entries they held.
func (s *Storage) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.buckets {
		n += b.Len()
	}
	s.buckets = make(map[string]*Bucket)
	s.order = nil
	return n
}

// Stats returns per-bucket counters, oldest bucket first.
func (s *Storage) Stats() []BucketStats {
	buckets := s.snapshot()
	out := make([]BucketStats, len(buckets))
	for i, b := range buckets {
		out[i] = b.Stats()
	}
	return out
}
