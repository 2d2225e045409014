package internal

import "time"

type ShortLink struct {
	ID          int64     `json:"id"`
	ShortCode   string    `json:"short_code"`
	OriginalURL string    `json:"original_url"`
	ShortURL    string    `json:"short_url"`
	Domain      string    `json:"domain"`
	Clicks      int64     `json:"clicks"`
	CreatedAt   time.Time `json:"created_at"`
}

// LinkKey identifies a short link. An empty Domain means the lookup is not
// scoped to a short domain and matches the code alone.
type LinkKey struct {
	Code   string
	Domain string
}

func Scoped(code, domain string) LinkKey {
	return LinkKey{Code: code, Domain: domain}
}

func Unscoped(code string) LinkKey {
	return LinkKey{Code: code}
}

func (k LinkKey) IsScoped() bool {
	return k.Domain != ""
}
