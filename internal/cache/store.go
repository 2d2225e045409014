package cache

import (
	"context"

	"github.com/abdusco/shortlinks/internal"
	"github.com/abdusco/shortlinks/internal/redirect"
)

var _ redirect.Store = (*CachedStore)(nil)

// CachedStore puts a LinkCache in front of a redirect.Store. Only scoped
// lookups are cached; a code-only lookup must see every domain's record to
// detect ambiguity.
type CachedStore struct {
	store redirect.Store
	cache LinkCache
}

func NewCachedStore(store redirect.Store, cache LinkCache) *CachedStore {
	return &CachedStore{store: store, cache: cache}
}

func (s *CachedStore) FindByCode(ctx context.Context, key internal.LinkKey) (*internal.ShortLink, error) {
	if !key.IsScoped() {
		return s.store.FindByCode(ctx, key)
	}

	if cached, err := s.cache.Get(ctx, key); err == nil && cached != nil {
		return cached, nil
	}

	link, err := s.store.FindByCode(ctx, key)
	if err != nil {
		return nil, err
	}

	_ = s.cache.Set(ctx, key, link)
	return link, nil
}

// IncrementClicks writes through to the store, then refreshes the cached
// counter for scoped keys or drops every cached copy of the code otherwise.
func (s *CachedStore) IncrementClicks(ctx context.Context, key internal.LinkKey, clicks int64) error {
	if err := s.store.IncrementClicks(ctx, key, clicks); err != nil {
		return err
	}

	if !key.IsScoped() {
		_ = s.cache.Invalidate(ctx, key.Code)
		return nil
	}

	cached, err := s.cache.Get(ctx, key)
	if err != nil || cached == nil {
		return nil
	}
	cached.Clicks = max(cached.Clicks, clicks)
	_ = s.cache.Set(ctx, key, cached)
	return nil
}
