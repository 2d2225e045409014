package handler

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

// HomeHandler answers the site root, which is also where unresolvable
// short links are sent.
type HomeHandler struct {
	domains []string
}

func NewHomeHandler(domains []string) *HomeHandler {
	sorted := slices.Clone(domains)
	slices.Sort(sorted)
	return &HomeHandler{domains: sorted}
}

func (h *HomeHandler) Serve(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service": "shortlinks",
		"domains": h.domains,
	})
}
