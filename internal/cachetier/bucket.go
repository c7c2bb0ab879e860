// Package cachetier implements tiered HTTP response caching: named buckets
// with FIFO trimming, a request classifier choosing cache-first or
// network-first per request class, and install/activate lifecycle for a
// versioned precache.
package cachetier

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Response is a fully buffered HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) clone() *Response {
	body := make([]byte, len(r.Body))
	copy(body, r.Body)
	return &Response{StatusCode: r.StatusCode, Header: r.Header.Clone(), Body: body}
}

// Entry is a stored response.
type Entry struct {
	Key      string
	Response *Response
	StoredAt time.Time
	// insertion-order doubly-linked list
	prev *Entry
	next *Entry
}

// BucketStats is a snapshot of one bucket's counters.
type BucketStats struct {
	Name      string `json:"name" yaml:"name"`
	Entries   int    `json:"entries" yaml:"entries"`
	Hits      int64  `json:"hits" yaml:"hits"`
	Misses    int64  `json:"misses" yaml:"misses"`
	Puts      int64  `json:"puts" yaml:"puts"`
	Evictions int64  `json:"evictions" yaml:"evictions"`
}

// Bucket maps request keys to responses and remembers insertion order.
// The head side of the list holds the newest entry, the tail side the
// oldest.
type Bucket struct {
	name    string
	entries map[string]*Entry
	mutex   sync.RWMutex
	head    *Entry
	tail    *Entry
	now     func() time.Time

	hits      int64
	misses    int64
	puts      int64
	evictions int64
}

func newBucket(name string, now func() time.Time) *Bucket {
	b := &Bucket{
		name:    name,
		entries: make(map[string]*Entry),
		head:    &Entry{},
		tail:    &Entry{},
		now:     now,
	}
	b.head.next = b.tail
	b.tail.prev = b.head
	return b
}

// Name returns the bucket name.
func (b *Bucket) Name() string {
	return b.name
}

// Get returns the entry stored under key. Lookups do not change order.
func (b *Bucket) Get(key string) (*Entry, bool) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	e, ok := b.entries[key]
	return e, ok
}

// Put stores resp under key as the newest entry, replacing any previous
// entry for the key. When limit is positive, the oldest entries are then
// deleted until at most limit remain. It returns how many were evicted.
func (b *Bucket) Put(key string, resp *Response, limit int) int {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if existing, ok := b.entries[key]; ok {
		b.removeFromList(existing)
		delete(b.entries, key)
	}

	e := &Entry{Key: key, Response: resp.clone(), StoredAt: b.now()}
	b.entries[key] = e
	b.addToFront(e)
	atomic.AddInt64(&b.puts, 1)

	evicted := 0
	for limit > 0 && len(b.entries) > limit {
		oldest := b.tail.prev
		b.removeFromList(oldest)
		delete(b.entries, oldest.Key)
		evicted++
	}
	atomic.AddInt64(&b.evictions, int64(evicted))
	return evicted
}

// Delete removes key and reports whether it was present.
func (b *Bucket) Delete(key string) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	e, ok := b.entries[key]
	if !ok {
		return false
	}
	b.removeFromList(e)
	delete(b.entries, key)
	return true
}

// DeleteFunc removes every entry whose key satisfies match.
func (b *Bucket) DeleteFunc(match func(key string) bool) int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	n := 0
	for key, e := range b.entries {
		if match(key) {
			b.removeFromList(e)
			delete(b.entries, key)
			n++
		}
	}
	return n
}

// Keys returns the stored keys, oldest first.
func (b *Bucket) Keys() []string {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	keys := make([]string, 0, len(b.entries))
	for e := b.tail.prev; e != b.head; e = e.prev {
		keys = append(keys, e.Key)
	}
	return keys
}

// Len returns the number of entries.
func (b *Bucket) Len() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.entries)
}

// Stats returns the bucket's counters.
func (b *Bucket) Stats() BucketStats {
	return BucketStats{
		Name:      b.name,
		Entries:   b.Len(),
		Hits:      atomic.LoadInt64(&b.hits),
		Misses:    atomic.LoadInt64(&b.misses),
		Puts:      atomic.LoadInt64(&b.puts),
		Evictions: atomic.LoadInt64(&b.evictions),
	}
}

func (b *Bucket) hit()  { atomic.AddInt64(&b.hits, 1) }
func (b *Bucket) miss() { atomic.AddInt64(&b.misses, 1) }

func (b *Bucket) addToFront(e *Entry) {
	e.prev = b.head
	e.next = b.head.next
	b.head.next.prev = e
	b.head.next = e
}

func (b *Bucket) removeFromList(e *Entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
}
