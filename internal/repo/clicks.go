package repo

import (
	"context"
	"fmt"

	"github.com/abdusco/shortlinks/internal"
	"github.com/doug-martin/goqu/v9"
	"github.com/rs/zerolog/log"
)

// IncrementClicks stores clicks as the new counter value for the link named
// by key. Callers compute the value from a previous read, so two concurrent
// redirects may both write the same value.
func (r *LinksRepo) IncrementClicks(ctx context.Context, key internal.LinkKey, clicks int64) error {
	if clicks < 0 {
		return fmt.Errorf("negative click count %d", clicks)
	}

	query := r.builder().Update(linksTable).
		Set(goqu.Record{"clicks": clicks}).
		Where(keyFilter(key)).
		// never move the counter backwards when a stale read loses the race
		Where(goqu.C("clicks").Lt(clicks))

	res, err := query.Executor().ExecContext(ctx)
	if err != nil {
		log.Error().Err(err).Str("code", key.Code).Str("domain", key.Domain).Msg("failed to update clicks")
		return fmt.Errorf("update clicks: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}

	log.Debug().
		Str("code", key.Code).
		Str("domain", key.Domain).
		Int64("clicks", clicks).
		Int64("rows", n).
		Msg("clicks updated")
	return nil
}

// AtomicIncrement bumps the counter inside a single statement. It is the
// lost-update-free alternative to IncrementClicks.
func (r *LinksRepo) AtomicIncrement(ctx context.Context, key internal.LinkKey) error {
	query := r.builder().Update(linksTable).
		Set(goqu.Record{"clicks": goqu.L("clicks + 1")}).
		Where(keyFilter(key))

	res, err := query.Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("increment clicks: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if n == 0 {
		return internal.ErrLinkNotFound
	}
	return nil
}
