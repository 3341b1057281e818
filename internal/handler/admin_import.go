package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/store-locator/internal/apperr"
	"github.com/iliyamo/store-locator/internal/cache"
	"github.com/iliyamo/store-locator/internal/middleware"
	"github.com/iliyamo/store-locator/internal/queue"
	"github.com/iliyamo/store-locator/internal/service"
)

// ImportHandler serves the CSV bulk import endpoint.
type ImportHandler struct {
	Importer *service.Importer
	Cache    *cache.Cache
}

func NewImportHandler(im *service.Importer, c *cache.Cache) *ImportHandler {
	return &ImportHandler{Importer: im, Cache: c}
}

// Post imports stores from the uploaded CSV file.  The multipart field is
// named "file" and must carry a .csv extension.
func (h *ImportHandler) Post(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return respondErr(c, apperr.New(apperr.Validation, "CSV file is required (multipart field 'file')"))
	}
	if !strings.HasSuffix(strings.ToLower(fh.Filename), ".csv") {
		return respondErr(c, apperr.New(apperr.Validation, "file must be a .csv"))
	}

	f, err := fh.Open()
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.System, "", err))
	}
	defer f.Close()

	report, err := h.Importer.Import(c.Request().Context(), f)
	if err != nil {
		return respondErr(c, err)
	}

	if report.Created > 0 || report.Updated > 0 {
		h.Cache.Clear()

		var actor uint64
		if u := middleware.CurrentUser(c); u != nil {
			actor = u.ID
		}
		ev := queue.StoreChangedEvent{
			Action:     queue.ActionImported,
			Name:       fmt.Sprintf("bulk import: %d created, %d updated", report.Created, report.Updated),
			ActorID:    actor,
			OccurredAt: time.Now().UTC().Format(time.RFC3339),
		}
		go func() { _ = queue.PublishStoreChanged(context.Background(), ev) }()
	}
	return c.JSON(http.StatusOK, report)
}
