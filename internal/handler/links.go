package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/abdusco/shortlinks/internal"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

type LinkLister interface {
	ListAll(ctx context.Context) ([]*internal.ShortLink, error)
}

type LinkShortener interface {
	Shorten(ctx context.Context, longURL string) (*internal.ShortLink, error)
}

type LinkHandler struct {
	lister    LinkLister
	shortener LinkShortener
}

func NewLinkHandler(lister LinkLister, shortener LinkShortener) *LinkHandler {
	return &LinkHandler{
		lister:    lister,
		shortener: shortener,
	}
}

type CreateLinkRequest struct {
	URL string `json:"url"`
}

type LinkResponse struct {
	ID          int64     `json:"id"`
	ShortCode   string    `json:"short_code"`
	ShortURL    string    `json:"short_url"`
	OriginalURL string    `json:"original_url"`
	Domain      string    `json:"domain"`
	Clicks      int64     `json:"clicks"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateLinkResponse struct {
	Link LinkResponse `json:"link"`
}

type ListLinksResponse struct {
	Links []LinkResponse `json:"links"`
}

func (h *LinkHandler) CreateLink(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateLinkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}

	link, err := h.shortener.Shorten(ctx, req.URL)
	if err != nil {
		if errors.Is(err, internal.ErrInvalidURL) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		log.Error().Err(err).Str("url", req.URL).Msg("failed to create link")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save shortened url")
	}

	return c.JSON(http.StatusCreated, CreateLinkResponse{Link: toLinkResponse(link)})
}

func (h *LinkHandler) ListLinks(c echo.Context) error {
	links, err := h.lister.ListAll(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list links")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list links")
	}

	return c.JSON(http.StatusOK, ListLinksResponse{
		Links: lo.Map(links, func(link *internal.ShortLink, _ int) LinkResponse {
			return toLinkResponse(link)
		}),
	})
}

func toLinkResponse(link *internal.ShortLink) LinkResponse {
	return LinkResponse{
		ID:          link.ID,
		ShortCode:   link.ShortCode,
		ShortURL:    link.ShortURL,
		OriginalURL: link.OriginalURL,
		Domain:      link.Domain,
		Clicks:      link.Clicks,
		CreatedAt:   link.CreatedAt,
	}
}
