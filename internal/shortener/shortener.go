package shortener

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"

	"github.com/abdusco/shortlinks/internal"
)

const (
	codeCharset = "abcdefghijklmnopqrstuvwxyz0123456789"
	codeLength  = 4
)

var domainMappings = map[string]string{
	"amazon.in":     "amz.in",
	"amazon.com":    "amz.com",
	"amazon.co.uk":  "amz.uk",
	"amazon.de":     "amz.de",
	"amazon.co.jp":  "amz.jp",
	"amazon":        "amz.in",
	"myntra.com":    "myn.co",
	"flipkart.com":  "flp.co",
	"youtube.com":   "yt.co",
	"instagram.com": "ig.co",
	"facebook.com":  "fb.co",
}

// ShortDomainFor picks the short domain a link to host is minted under:
// the exact host, then its first label, then the first three letters of
// that label under .co.
func ShortDomainFor(host string) string {
	clean := strings.TrimPrefix(strings.ToLower(host), "www.")
	if d, ok := domainMappings[clean]; ok {
		return d
	}

	base, _, _ := strings.Cut(clean, ".")
	if d, ok := domainMappings[base]; ok {
		return d
	}

	if len(base) > 3 {
		base = base[:3]
	}
	return base + ".co"
}

// GenerateCode returns a random code. Uniqueness is left to the store's
// (short_code, domain) constraint.
func GenerateCode() string {
	code := make([]byte, codeLength)
	for i := range code {
		code[i] = codeCharset[rand.IntN(len(codeCharset))]
	}
	return string(code)
}

type Store interface {
	Create(ctx context.Context, link *internal.ShortLink) (*internal.ShortLink, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Shorten(ctx context.Context, longURL string) (*internal.ShortLink, error) {
	longURL = strings.TrimSpace(longURL)
	if !strings.HasPrefix(longURL, "http://") && !strings.HasPrefix(longURL, "https://") {
		return nil, internal.ErrInvalidURL
	}

	u, err := url.Parse(longURL)
	if err != nil || u.Hostname() == "" {
		return nil, internal.ErrInvalidURL
	}

	domain := ShortDomainFor(u.Hostname())
	code := GenerateCode()

	link, err := s.store.Create(ctx, &internal.ShortLink{
		ShortCode:   code,
		OriginalURL: longURL,
		ShortURL:    fmt.Sprintf("https://%s/%s", domain, code),
		Domain:      domain,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save shortened url: %w", err)
	}
	return link, nil
}
