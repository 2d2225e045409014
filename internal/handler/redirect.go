package handler

import (
	"net/http"
	"net/url"

	"github.com/abdusco/shortlinks/internal"
	"github.com/abdusco/shortlinks/internal/redirect"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const (
	notFoundBody      = "Short URL not found"
	internalErrorBody = "Internal Server Error"
	homePath          = "/"
)

// RedirectHandler serves short links through three entry points that share
// one resolver and executor. Intercept and Page fall back to the home page,
// API reports 404 and 500 to the caller instead.
type RedirectHandler struct {
	resolver *redirect.Resolver
	executor *redirect.Executor
}

func NewRedirectHandler(resolver *redirect.Resolver, executor *redirect.Executor) *RedirectHandler {
	return &RedirectHandler{
		resolver: resolver,
		executor: executor,
	}
}

// Intercept runs before routing. Requests for a code on a short domain are
// answered here, everything else goes to next untouched.
func (h *RedirectHandler) Intercept(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		req := c.Request()
		key, ok := h.resolver.Resolve(req.Host, req.URL.Path)
		if !ok {
			return next(c)
		}

		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("code", key.Code).Str("domain", key.Domain).Msg("redirect error")
				err = c.Redirect(http.StatusTemporaryRedirect, homePath)
			}
		}()

		return h.redirectOrHome(c, key)
	}
}

// Page handles GET /:code. The lookup is scoped when the request arrived on
// a short domain.
func (h *RedirectHandler) Page(c echo.Context) error {
	code := pathParam(c, "code")
	key, ok := h.resolver.Resolve(c.Request().Host, "/"+code)
	if !ok {
		key = internal.Unscoped(code)
	}
	return h.redirectOrHome(c, key)
}

// API handles GET /api/redirect/:code. An optional domain query parameter
// scopes the lookup.
func (h *RedirectHandler) API(c echo.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("path", c.Request().URL.Path).Msg("redirect error")
			err = c.String(http.StatusInternalServerError, internalErrorBody)
		}
	}()

	code := pathParam(c, "code")
	key := internal.Unscoped(code)
	if domain := c.QueryParam("domain"); domain != "" {
		key = internal.Scoped(code, redirect.NormalizeHost(domain))
	}
	if code == "" {
		return c.String(http.StatusNotFound, notFoundBody)
	}

	outcome, err := h.executor.Execute(c.Request().Context(), key)
	if err != nil {
		log.Error().Err(err).Str("code", key.Code).Msg("redirect error")
		return c.String(http.StatusInternalServerError, internalErrorBody)
	}
	if !outcome.Found {
		return c.String(http.StatusNotFound, notFoundBody)
	}

	log.Info().Str("code", key.Code).Str("domain", key.Domain).Str("url", outcome.URL).Msg("redirecting link")
	return c.Redirect(http.StatusMovedPermanently, outcome.URL)
}

func (h *RedirectHandler) redirectOrHome(c echo.Context, key internal.LinkKey) error {
	outcome, err := h.executor.Execute(c.Request().Context(), key)
	if err != nil || !outcome.Found {
		return c.Redirect(http.StatusTemporaryRedirect, homePath)
	}

	log.Info().Str("code", key.Code).Str("domain", key.Domain).Str("url", outcome.URL).Msg("redirecting link")
	return c.Redirect(http.StatusTemporaryRedirect, outcome.URL)
}

func pathParam(c echo.Context, name string) string {
	raw := c.Param(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
