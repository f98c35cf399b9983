package ipban

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemoryStore keeps bans in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	seq    int
	bans   map[string]*Ban
	byAddr map[string][]string
}

// NewMemoryStore creates an empty in-memory ban store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bans:   make(map[string]*Ban),
		byAddr: make(map[string][]string),
	}
}

// Add inserts a ban and returns it with its assigned ID.
func (s *MemoryStore) Add(ip string, category Category) Ban {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	b := &Ban{ID: strconv.Itoa(s.seq), IP: ip, Category: category}
	s.bans[b.ID] = b
	s.byAddr[ip] = append(s.byAddr[ip], b.ID)
	return *b
}

// Delete marks a ban as deleted. Deleted bans stay visible to Get.
func (s *MemoryStore) Delete(banID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bans[banID]
	if !ok {
		return false
	}
	b.Deleted = true
	return true
}

// Get returns a copy of the ban.
func (s *MemoryStore) Get(banID string) (Ban, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bans[banID]
	if !ok {
		return Ban{}, false
	}
	return *b, true
}

func (s *MemoryStore) BansFor(_ context.Context, ip string) ([]Ban, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byAddr[ip]
	out := make([]Ban, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.bans[id])
	}
	return out, nil
}

func (s *MemoryStore) RecordHit(_ context.Context, banID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bans[banID]
	if !ok || b.Deleted {
		return ErrBanNotFound
	}
	b.Hits++
	b.LastHitAt = at
	return nil
}
