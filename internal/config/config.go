package config

import (
	"cmp"
	"os"
	"strings"

	"github.com/abdusco/shortlinks/internal/redirect"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

type Config struct {
	Host         string
	Port         string
	DBPath       string
	DBAuthToken  string `json:"-"`
	RedisURL     string `json:"-"`
	ShortDomains []string
	AdminCreds   string `json:"-"`
	JWTSecret    string `json:"-"`
	LogLevel     string
	Debug        bool
}

// Load reads configuration from the environment after merging a .env file
// from the working directory, if one exists. Variables already set in the
// environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to read .env file")
	}
	return FromEnv(os.Getenv), nil
}

func FromEnv(getenv func(string) string) Config {
	cfg := Config{
		Host:         cmp.Or(getenv("HOST"), "localhost"),
		Port:         cmp.Or(getenv("PORT"), "8080"),
		DBPath:       cmp.Or(getenv("DB_PATH"), "shortlinks.db"),
		DBAuthToken:  getenv("DB_AUTH_TOKEN"),
		RedisURL:     getenv("REDIS_URL"),
		ShortDomains: parseDomains(getenv("SHORT_DOMAINS")),
		AdminCreds:   getenv("ADMIN_CREDENTIALS"),
		JWTSecret:    getenv("JWT_SECRET"),
		LogLevel:     cmp.Or(getenv("LOG_LEVEL"), "info"),
		Debug:        getenv("DEBUG") == "1",
	}

	if cfg.AdminCreds == "" {
		cfg.AdminCreds = "admin:admin"
		log.Warn().Msg("using default admin credentials - set ADMIN_CREDENTIALS for production")
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = cfg.AdminCreds
		log.Warn().Msg("using ADMIN_CREDENTIALS as JWT_SECRET - set JWT_SECRET for production")
	}

	return cfg
}

func parseDomains(s string) []string {
	domains := lo.Uniq(lo.FilterMap(strings.Split(s, ","), func(d string, _ int) (string, bool) {
		d = redirect.NormalizeHost(d)
		return d, d != ""
	}))
	if len(domains) == 0 {
		return redirect.DefaultDomains
	}
	return domains
}
