package isr

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoryCapacity bounds a MemoryStore built without an explicit size.
const DefaultMemoryCapacity = 5000

// MemoryStore keeps up to a fixed number of pages in process memory, evicting
// the least recently used one when full. Expired pages read as misses.
type MemoryStore struct {
	mu    sync.Mutex
	pages *lru.Cache[string, Page]
	now   func() time.Time
}

// NewMemoryStore returns an empty MemoryStore of DefaultMemoryCapacity.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithCapacity(DefaultMemoryCapacity)
}

// NewMemoryStoreWithCapacity returns an empty MemoryStore holding at most
// capacity pages. Non-positive values use DefaultMemoryCapacity.
func NewMemoryStoreWithCapacity(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	cache, err := lru.New[string, Page](capacity)
	if err != nil {
		panic(err)
	}
	return &MemoryStore{pages: cache, now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Page, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages.Get(key)
	if !ok {
		return Page{}, false, nil
	}
	if p.Expired(s.now()) {
		s.pages.Remove(key)
		return Page{}, false, nil
	}
	p.Body = append([]byte(nil), p.Body...)
	return p, true, nil
}

func (s *MemoryStore) Put(_ context.Context, page Page) error {
	page.Body = append([]byte(nil), page.Body...)
	s.mu.Lock()
	s.pages.Add(page.Key, page)
	s.mu.Unlock()
	return nil
}

// PruneExpired drops every expired page.
func (s *MemoryStore) PruneExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for _, key := range s.pages.Keys() {
		if p, ok := s.pages.Peek(key); ok && p.Expired(now) {
			s.pages.Remove(key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored pages.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages.Len()
}

func (s *MemoryStore) Close() error { return nil }
