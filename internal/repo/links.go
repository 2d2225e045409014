package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/abdusco/shortlinks/internal"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/rs/zerolog/log"
)

const (
	dialect    = "sqlite3"
	linksTable = "shortened_urls"
)

type linkRow struct {
	ID          int64  `db:"id" goqu:"skipinsert,skipupdate"`
	ShortCode   string `db:"short_code"`
	OriginalURL string `db:"original_url"`
	ShortURL    string `db:"short_url"`
	Domain      string `db:"domain"`
	Clicks      int64  `db:"clicks"`
	CreatedAt   Date   `db:"created_at" goqu:"skipupdate"`
}

var linkColumns = []any{"id", "short_code", "original_url", "short_url", "domain", "clicks", "created_at"}

type LinksRepo struct {
	db *sql.DB
}

func NewLinksRepo(db *sql.DB) *LinksRepo {
	return &LinksRepo{db: db}
}

func (r *LinksRepo) builder() *goqu.Database {
	return goqu.New(dialect, r.db)
}

// keyFilter matches the same rows for lookups and counter updates, so a
// scoped read is always followed by a scoped write.
func keyFilter(key internal.LinkKey) goqu.Ex {
	if key.IsScoped() {
		return goqu.Ex{"short_code": key.Code, "domain": key.Domain}
	}
	return goqu.Ex{"short_code": key.Code}
}

func (r *LinksRepo) Create(ctx context.Context, link *internal.ShortLink) (*internal.ShortLink, error) {
	log.Debug().
		Str("code", link.ShortCode).
		Str("domain", link.Domain).
		Str("url", link.OriginalURL).
		Msg("creating link")

	row := linkRow{
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		ShortURL:    link.ShortURL,
		Domain:      link.Domain,
		Clicks:      0,
		CreatedAt:   Date(time.Now().UTC().Truncate(time.Second)),
	}

	res, err := r.builder().Insert(linksTable).Rows(row).Executor().ExecContext(ctx)
	if err != nil {
		log.Error().Err(err).Str("code", link.ShortCode).Msg("failed to create link")
		return nil, fmt.Errorf("insert link: %w", err)
	}

	row.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read inserted id: %w", err)
	}

	created := row.toDomain()
	log.Info().Int64("id", created.ID).Str("code", created.ShortCode).Str("domain", created.Domain).Msg("link created")

	return created, nil
}

// FindByCode returns the link named by key. An unscoped key that matches
// links under several domains is reported as ErrAmbiguousCode rather than
// picking one of them.
func (r *LinksRepo) FindByCode(ctx context.Context, key internal.LinkKey) (*internal.ShortLink, error) {
	log.Debug().Str("code", key.Code).Str("domain", key.Domain).Msg("fetching link by code")

	query := r.builder().From(linksTable).
		Select(linkColumns...).
		Where(keyFilter(key)).
		Limit(2)

	var rows []linkRow
	if err := query.Executor().ScanStructsContext(ctx, &rows); err != nil {
		log.Error().Err(err).Str("code", key.Code).Msg("failed to fetch link")
		return nil, fmt.Errorf("select link: %w", err)
	}

	switch len(rows) {
	case 0:
		return nil, internal.ErrLinkNotFound
	case 1:
		return rows[0].toDomain(), nil
	default:
		return nil, internal.ErrAmbiguousCode
	}
}

func (r *LinksRepo) ListAll(ctx context.Context) ([]*internal.ShortLink, error) {
	query := r.builder().From(linksTable).
		Select(linkColumns...).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc())

	var rows []linkRow
	if err := query.Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	links := make([]*internal.ShortLink, len(rows))
	for i := range rows {
		links[i] = rows[i].toDomain()
	}
	return links, nil
}

func (r *linkRow) toDomain() *internal.ShortLink {
	return &internal.ShortLink{
		ID:          r.ID,
		ShortCode:   r.ShortCode,
		OriginalURL: r.OriginalURL,
		ShortURL:    r.ShortURL,
		Domain:      r.Domain,
		Clicks:      r.Clicks,
		CreatedAt:   r.CreatedAt.Time(),
	}
}
