package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/store-locator/internal/apperr"
	"github.com/iliyamo/store-locator/internal/service"
)

// SearchHandler serves the public proximity search.
type SearchHandler struct {
	Search *service.SearchService
}

func NewSearchHandler(s *service.SearchService) *SearchHandler {
	return &SearchHandler{Search: s}
}

// Post runs a search.  Validation and origin resolution live in the
// service; this handler only translates the transport.
func (h *SearchHandler) Post(c echo.Context) error {
	var req service.SearchRequest
	if err := c.Bind(&req); err != nil {
		return respondErr(c, apperr.New(apperr.Validation, "invalid body"))
	}

	resp, err := h.Search.Search(c.Request().Context(), req)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}
