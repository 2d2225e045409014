package redirect

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/abdusco/shortlinks/internal"
	"github.com/rs/zerolog/log"
)

// Store is the record store the executor reads links from and writes click
// counts to. FindByCode returns internal.ErrLinkNotFound for unknown keys.
type Store interface {
	FindByCode(ctx context.Context, key internal.LinkKey) (*internal.ShortLink, error)
	IncrementClicks(ctx context.Context, key internal.LinkKey, clicks int64) error
}

type Outcome struct {
	Found bool
	// URL is the normalized absolute destination, set when Found.
	URL  string
	Link *internal.ShortLink
}

type Executor struct {
	store Store
}

func NewExecutor(store Store) *Executor {
	return &Executor{store: store}
}

// Execute looks key up, bumps its click counter and returns where to send
// the client. Store failures during lookup are reported as a not-found
// outcome and counter failures are only logged. The returned error is
// non-nil only when the stored destination cannot be turned into a URL.
func (e *Executor) Execute(ctx context.Context, key internal.LinkKey) (Outcome, error) {
	link, err := e.store.FindByCode(ctx, key)
	if err != nil {
		if errors.Is(err, internal.ErrLinkNotFound) {
			log.Debug().Str("code", key.Code).Str("domain", key.Domain).Msg("link not found")
		} else {
			log.Error().Err(err).Str("code", key.Code).Str("domain", key.Domain).Msg("link lookup failed")
		}
		return Outcome{}, nil
	}
	if link == nil {
		return Outcome{}, nil
	}

	if err := e.store.IncrementClicks(ctx, key, max(link.Clicks, 0)+1); err != nil {
		log.Error().Err(err).Str("code", key.Code).Str("domain", key.Domain).Msg("failed to increment clicks")
	}

	dest := NormalizeURL(link.OriginalURL)
	if err := validateDestination(dest); err != nil {
		log.Warn().Err(err).Str("code", key.Code).Str("url", link.OriginalURL).Msg("unusable destination")
		return Outcome{}, err
	}

	return Outcome{Found: true, URL: dest, Link: link}, nil
}

// NormalizeURL prefixes https:// to destinations stored without a scheme.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	return "https://" + raw
}

func validateDestination(dest string) error {
	u, err := url.Parse(dest)
	if err != nil {
		return fmt.Errorf("%w: %v", internal.ErrInvalidDestination, err)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host in %q", internal.ErrInvalidDestination, dest)
	}
	return nil
}
