package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/abdusco/shortlinks/internal/auth"
	"github.com/abdusco/shortlinks/internal/cache"
	"github.com/abdusco/shortlinks/internal/config"
	"github.com/abdusco/shortlinks/internal/db"
	"github.com/abdusco/shortlinks/internal/handler"
	"github.com/abdusco/shortlinks/internal/logger"
	"github.com/abdusco/shortlinks/internal/redirect"
	"github.com/abdusco/shortlinks/internal/repo"
	"github.com/abdusco/shortlinks/internal/shortener"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse configuration from environment")
	}

	if err := logger.Setup(cfg.LogLevel, cfg.Debug); err != nil {
		log.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("failed to set up logging")
	}

	log.Info().
		Interface("config", cfg).
		Msg("current configuration")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("application error")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	log.Info().
		Str("version", version).
		Str("build_time", buildTime).
		Msg("starting application")

	dbInstance, err := db.Open(ctx, db.Options{Path: cfg.DBPath, AuthToken: cfg.DBAuthToken})
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbInstance.Close()

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()
		log.Info().Msg("link cache enabled")
	}

	e, err := newServer(cfg, dbInstance, rdb)
	if err != nil {
		return err
	}
	defer e.Close()

	log.Info().Str("address", cfg.Port).Strs("domains", cfg.ShortDomains).Msg("server starting")

	runServer(ctx, e, cfg.Port)
	return nil
}

// newServer wires the store, the redirect core and every route. rdb may be
// nil, which disables the link cache.
func newServer(cfg config.Config, dbInstance *sql.DB, rdb *redis.Client) (*echo.Echo, error) {
	credentials, err := auth.NewCredentials(cfg.AdminCreds)
	if err != nil {
		return nil, fmt.Errorf("failed to parse admin credentials: %w", err)
	}

	linksRepo := repo.NewLinksRepo(dbInstance)
	store := cache.NewCachedStore(linksRepo, cache.NewRedisLinkCache(rdb))

	resolver := redirect.NewResolver(cfg.ShortDomains)
	executor := redirect.NewExecutor(store)
	redirectHandler := handler.NewRedirectHandler(resolver, executor)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = customErrorHandler

	// Short domain traffic is answered before the router runs.
	e.Pre(redirectHandler.Intercept)

	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	authenticator := auth.NewAuthenticator(credentials, cfg.JWTSecret)
	authHandler := handler.NewAuthHandler(authenticator)
	homeHandler := handler.NewHomeHandler(resolver.Domains())

	e.GET("/", homeHandler.Serve)
	e.POST("/login", authHandler.Login)
	e.GET("/logout", authHandler.Logout)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	e.GET("/api/redirect/:code", redirectHandler.API)

	api := e.Group("/api")
	api.Use(auth.NewAuthMiddleware(authenticator))

	linkHandler := handler.NewLinkHandler(linksRepo, shortener.NewService(linksRepo))
	api.POST("/links", linkHandler.CreateLink)
	api.GET("/links", linkHandler.ListLinks)

	// Parameterized route (must be last)
	e.GET("/:code", redirectHandler.Page)

	return e, nil
}

func runServer(ctx context.Context, e *echo.Echo, port string) {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- e.Start(":" + port)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received, gracefully shutting down...")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during graceful shutdown")
	}

	if err := <-serverErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server error")
	}

	log.Info().Msg("server stopped")
}

func customErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	message := "internal server error"
	isAPICall := strings.HasPrefix(c.Path(), "/api/")

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		}
	}

	if !isAPICall && code == http.StatusUnauthorized {
		c.Redirect(http.StatusTemporaryRedirect, "/")
		return
	}

	log.Error().
		Int("code", code).
		Str("method", c.Request().Method).
		Str("path", c.Request().URL.Path).
		Err(err).
		Msg("http error")

	if c.Response().Committed {
		return
	}

	c.JSON(code, map[string]any{
		"error": message,
	})
}
