// ABOUTME: Thread-safe TTL set of notification keys that were already emitted
// ABOUTME: Size-bounded with oldest-first eviction and periodic expiry sweeps

package notify

import (
	"container/list"
	"sync"
	"time"
)

type seenEntry struct {
	markedAt time.Time
	element  *list.Element
}

// seenSet tracks emitted keys. Entries expire after ttl; when full the
// oldest entry is evicted. The list keeps keys in mark order (oldest first).
type seenSet struct {
	mu      sync.Mutex
	entries map[string]*seenEntry
	order   *list.List
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	done   chan struct{}
	closed bool
}

func newSeenSet(ttl time.Duration, maxSize int, sweep time.Duration) *seenSet {
	s := &seenSet{
		entries: make(map[string]*seenEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if sweep > 0 {
		go s.sweepLoop(sweep)
	}
	return s
}

// markNew marks key and reports whether it was not already present.
func (s *seenSet) markNew(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && now.Sub(e.markedAt) < s.ttl {
		return false
	}
	s.markLocked(key, now)
	return true
}

func (s *seenSet) markLocked(key string, now time.Time) {
	if e, ok := s.entries[key]; ok {
		e.markedAt = now
		s.order.MoveToBack(e.element)
		return
	}
	if len(s.entries) >= s.maxSize {
		if front := s.order.Front(); front != nil {
			s.order.Remove(front)
			delete(s.entries, front.Value.(string))
		}
	}
	s.entries[key] = &seenEntry{markedAt: now, element: s.order.PushBack(key)}
}

// forget removes key so it may be emitted again.
func (s *seenSet) forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		s.order.Remove(e.element)
		delete(s.entries, key)
	}
}

func (s *seenSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *seenSet) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

// sweep drops expired entries. Entries are in mark order, so it stops at
// the first live one.
func (s *seenSet) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for e := s.order.Front(); e != nil; {
		key := e.Value.(string)
		if now.Sub(s.entries[key].markedAt) < s.ttl {
			return
		}
		next := e.Next()
		s.order.Remove(e)
		delete(s.entries, key)
		e = next
	}
}

func (s *seenSet) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		close(s.done)
		s.closed = true
	}
}
