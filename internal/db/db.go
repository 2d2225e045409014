package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const (
	driverSQLite = "sqlite"
	driverLibSQL = "libsql"
)

type Options struct {
	// Path is either a local sqlite file path or a remote libsql:// (or
	// https://) database URL.
	Path      string
	AuthToken string
}

// Open connects to the link store and applies the schema.
func Open(ctx context.Context, opts Options) (*sql.DB, error) {
	driver, dsn := dataSource(opts)

	instance, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := instance.PingContext(ctx); err != nil {
		instance.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Debug().Str("driver", driver).Msg("database connection successful")

	if err := migrate(ctx, instance); err != nil {
		instance.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info().Str("driver", driver).Msg("migrations completed successfully")

	return instance, nil
}

func isRemote(path string) bool {
	return strings.HasPrefix(path, "libsql://") ||
		strings.HasPrefix(path, "https://") ||
		strings.HasPrefix(path, "wss://")
}

func dataSource(opts Options) (driver, dsn string) {
	if isRemote(opts.Path) {
		if opts.AuthToken == "" {
			return driverLibSQL, opts.Path
		}
		sep := "?"
		if strings.Contains(opts.Path, "?") {
			sep = "&"
		}
		return driverLibSQL, opts.Path + sep + "authToken=" + url.QueryEscape(opts.AuthToken)
	}
	return driverSQLite, formatDBPath(opts.Path)
}

func formatDBPath(path string) string {
	if path == "" {
		path = "shortlinks.db"
	}
	path = strings.TrimPrefix(path, "file:")

	// See: https://pkg.go.dev/modernc.org/sqlite#pkg-overview
	params := url.Values{}
	params.Set("mode", "rwc")
	params.Set("_time_format", "sqlite")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "synchronous(NORMAL)")
	params.Add("_pragma", "busy_timeout(5000)")

	return "file:" + path + "?" + params.Encode()
}

func migrate(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS shortened_urls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		short_code TEXT NOT NULL,
		original_url TEXT NOT NULL,
		short_url TEXT NOT NULL,
		domain TEXT NOT NULL,
		clicks INTEGER NOT NULL DEFAULT 0 CHECK (clicks >= 0),
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (short_code, domain)
	);

	CREATE INDEX IF NOT EXISTS idx_shortened_urls_short_code ON shortened_urls(short_code);
	`

	_, err := db.ExecContext(ctx, schema)
	return err
}
