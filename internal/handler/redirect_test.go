package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abdusco/shortlinks/internal"
	"github.com/abdusco/shortlinks/internal/redirect"
	"github.com/abdusco/shortlinks/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedirectServer(t *testing.T, store redirect.Store) *echo.Echo {
	t.Helper()
	h := NewRedirectHandler(redirect.NewResolver(redirect.DefaultDomains), redirect.NewExecutor(store))

	e := echo.New()
	e.Pre(h.Intercept)
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, "home") })
	e.GET("/api/redirect/:code", h.API)
	e.GET("/:code", h.Page)
	return e
}

func serve(e *echo.Echo, host, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Host = host
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func seededStore() *testutil.MemoryStore {
	return testutil.NewMemoryStore(
		&internal.ShortLink{ShortCode: "abcd", Domain: "amz.in", OriginalURL: "example.com/x", ShortURL: "https://amz.in/abcd"},
		&internal.ShortLink{ShortCode: "yt01", Domain: "yt.co", OriginalURL: "http://youtube.com/watch", ShortURL: "https://yt.co/yt01"},
	)
}

type panicStore struct{}

func (panicStore) FindByCode(context.Context, internal.LinkKey) (*internal.ShortLink, error) {
	panic("store exploded")
}

func (panicStore) IncrementClicks(context.Context, internal.LinkKey, int64) error {
	return nil
}

func TestIntercept_RedirectsKnownCode(t *testing.T) {
	store := seededStore()
	e := setupRedirectServer(t, store)

	rec := serve(e, "amz.in", "/abcd")

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "https://example.com/x", rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, int64(1), store.Clicks("abcd", "amz.in"))
}

func TestIntercept_WWWHost(t *testing.T) {
	e := setupRedirectServer(t, seededStore())

	rec := serve(e, "www.amz.in:443", "/abcd")

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "https://example.com/x", rec.Header().Get(echo.HeaderLocation))
}

func TestIntercept_UnknownCodeGoesHome(t *testing.T) {
	e := setupRedirectServer(t, seededStore())

	rec := serve(e, "amz.in", "/nope")

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
}

func TestIntercept_IsScopedByDomain(t *testing.T) {
	store := seededStore()
	e := setupRedirectServer(t, store)

	rec := serve(e, "myn.co", "/abcd")

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, int64(0), store.Clicks("abcd", "amz.in"))
}

func TestIntercept_PassesThroughOtherHosts(t *testing.T) {
	store := seededStore()
	e := setupRedirectServer(t, store)
	e.GET("/about", func(c echo.Context) error { return c.String(http.StatusOK, "about") })

	rec := serve(e, "example.com", "/about")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "about", rec.Body.String())

	rec = serve(e, "amz.in", "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "home", rec.Body.String())

	assert.Zero(t, store.Lookups)
}

func TestIntercept_StoreFailureGoesHome(t *testing.T) {
	store := seededStore()
	store.LookupErr = errors.New("connection reset")
	e := setupRedirectServer(t, store)

	rec := serve(e, "amz.in", "/abcd")

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
}

func TestIntercept_PanicGoesHome(t *testing.T) {
	e := setupRedirectServer(t, panicStore{})

	rec := serve(e, "amz.in", "/abcd")

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
}

func TestIntercept_IncrementFailureStillRedirects(t *testing.T) {
	store := seededStore()
	store.IncrementErr = errors.New("read only")
	e := setupRedirectServer(t, store)

	rec := serve(e, "yt.co", "/yt01")

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "http://youtube.com/watch", rec.Header().Get(echo.HeaderLocation))
}

func TestPage_RedirectsByCode(t *testing.T) {
	store := seededStore()
	e := setupRedirectServer(t, store)

	rec := serve(e, "localhost:8080", "/abcd")

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "https://example.com/x", rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, int64(1), store.Clicks("abcd", "amz.in"))
}

func TestPage_UnknownCodeGoesHome(t *testing.T) {
	e := setupRedirectServer(t, seededStore())

	rec := serve(e, "localhost", "/zzzz")

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
}

func TestAPI_RedirectsPermanently(t *testing.T) {
	store := seededStore()
	e := setupRedirectServer(t, store)

	rec := serve(e, "localhost", "/api/redirect/abcd")

	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "https://example.com/x", rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, int64(1), store.Clicks("abcd", "amz.in"))
}

func TestAPI_NotFound(t *testing.T) {
	e := setupRedirectServer(t, seededStore())

	rec := serve(e, "localhost", "/api/redirect/nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Short URL not found", rec.Body.String())
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/plain")
}

func TestAPI_DomainQueryScopesLookup(t *testing.T) {
	e := setupRedirectServer(t, seededStore())

	rec := serve(e, "localhost", "/api/redirect/abcd?domain=myn.co")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(e, "localhost", "/api/redirect/abcd?domain=WWW.amz.in")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
}

func TestAPI_IncrementFailureStillRedirects(t *testing.T) {
	store := seededStore()
	store.IncrementErr = errors.New("read only")
	e := setupRedirectServer(t, store)

	rec := serve(e, "localhost", "/api/redirect/abcd")

	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "https://example.com/x", rec.Header().Get(echo.HeaderLocation))
}

func TestAPI_InvalidDestinationIsInternalError(t *testing.T) {
	store := testutil.NewMemoryStore(&internal.ShortLink{ShortCode: "bad", Domain: "amz.in", OriginalURL: " "})
	e := setupRedirectServer(t, store)

	rec := serve(e, "localhost", "/api/redirect/bad")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", rec.Body.String())
}

func TestAPI_PanicIsInternalError(t *testing.T) {
	e := setupRedirectServer(t, panicStore{})

	rec := serve(e, "localhost", "/api/redirect/abcd")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", rec.Body.String())
}

// Every entry point must send the client to the same place for the same
// link, differing only in status code and fallback shape.
func TestEntryPointsAgree(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{code: "abcd", want: "https://example.com/x"},
		{code: "yt01", want: "http://youtube.com/watch"},
		{code: "none", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			e := setupRedirectServer(t, seededStore())

			domain := "amz.in"
			if tt.code == "yt01" {
				domain = "yt.co"
			}

			edge := serve(e, domain, "/"+tt.code)
			page := serve(e, "localhost", "/"+tt.code)
			api := serve(e, "localhost", "/api/redirect/"+tt.code)

			if tt.want == "" {
				assert.Equal(t, "/", edge.Header().Get(echo.HeaderLocation))
				assert.Equal(t, "/", page.Header().Get(echo.HeaderLocation))
				assert.Equal(t, http.StatusNotFound, api.Code)
				return
			}

			require.Equal(t, http.StatusTemporaryRedirect, edge.Code)
			require.Equal(t, http.StatusTemporaryRedirect, page.Code)
			require.Equal(t, http.StatusMovedPermanently, api.Code)
			assert.Equal(t, tt.want, edge.Header().Get(echo.HeaderLocation))
			assert.Equal(t, tt.want, page.Header().Get(echo.HeaderLocation))
			assert.Equal(t, tt.want, api.Header().Get(echo.HeaderLocation))
		})
	}
}
