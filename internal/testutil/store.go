package testutil

import (
	"context"
	"sync"

	"github.com/abdusco/shortlinks/internal"
)

// MemoryStore is an in-process redirect.Store with switchable failures.
type MemoryStore struct {
	mu    sync.Mutex
	links []*internal.ShortLink

	LookupErr    error
	IncrementErr error

	Lookups    int
	Increments int
}

func NewMemoryStore(links ...*internal.ShortLink) *MemoryStore {
	return &MemoryStore{links: links}
}

func (s *MemoryStore) Add(link *internal.ShortLink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = append(s.links, link)
}

func (s *MemoryStore) matching(key internal.LinkKey) []*internal.ShortLink {
	var found []*internal.ShortLink
	for _, l := range s.links {
		if l.ShortCode != key.Code {
			continue
		}
		if key.IsScoped() && l.Domain != key.Domain {
			continue
		}
		found = append(found, l)
	}
	return found
}

func (s *MemoryStore) FindByCode(_ context.Context, key internal.LinkKey) (*internal.ShortLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Lookups++

	if s.LookupErr != nil {
		return nil, s.LookupErr
	}

	found := s.matching(key)
	switch len(found) {
	case 0:
		return nil, internal.ErrLinkNotFound
	case 1:
		copied := *found[0]
		return &copied, nil
	default:
		return nil, internal.ErrAmbiguousCode
	}
}

func (s *MemoryStore) IncrementClicks(_ context.Context, key internal.LinkKey, clicks int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Increments++

	if s.IncrementErr != nil {
		return s.IncrementErr
	}

	for _, l := range s.matching(key) {
		if clicks > l.Clicks {
			l.Clicks = clicks
		}
	}
	return nil
}

// Clicks returns the counter of the link stored under code and domain, or
// -1 when there is none.
func (s *MemoryStore) Clicks(code, domain string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.matching(internal.Scoped(code, domain)) {
		return l.Clicks
	}
	return -1
}
