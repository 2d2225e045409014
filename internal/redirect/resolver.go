package redirect

import (
	"net"
	"strings"

	"github.com/abdusco/shortlinks/internal"
	"github.com/samber/lo"
)

var DefaultDomains = []string{
	"amz.in",
	"myn.co",
	"flp.co",
	"yt.co",
	"ig.co",
	"fb.co",
}

// Resolver decides whether a request host and path name a short link.
type Resolver struct {
	domains map[string]struct{}
}

func NewResolver(domains []string) *Resolver {
	normalized := lo.FilterMap(domains, func(d string, _ int) (string, bool) {
		d = NormalizeHost(d)
		return d, d != ""
	})
	return &Resolver{
		domains: lo.SliceToMap(normalized, func(d string) (string, struct{}) {
			return d, struct{}{}
		}),
	}
}

func (r *Resolver) Recognizes(host string) bool {
	_, ok := r.domains[NormalizeHost(host)]
	return ok
}

// Resolve returns a domain scoped key when host is a short domain and path
// carries a non-empty code.
func (r *Resolver) Resolve(host, path string) (internal.LinkKey, bool) {
	domain := NormalizeHost(host)
	if _, ok := r.domains[domain]; !ok {
		return internal.LinkKey{}, false
	}

	code := strings.TrimPrefix(path, "/")
	if code == "" {
		return internal.LinkKey{}, false
	}

	return internal.Scoped(code, domain), true
}

func (r *Resolver) Domains() []string {
	return lo.Keys(r.domains)
}

// NormalizeHost lower-cases host and strips its port and a leading "www.".
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	return strings.TrimPrefix(host, "www.")
}
