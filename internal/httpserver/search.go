package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/flowmazon/storefront/internal/logging"
	searchsvc "github.com/flowmazon/storefront/internal/service/search"
	"github.com/flowmazon/storefront/internal/util"
)

type SearchHTTP struct {
	Svc *searchsvc.Service
}

func (h *SearchHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "search.fts")

	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query required")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, size := util.Calculate(page, size)

	total, products, err := h.Svc.Search(ctx, q, from, size)
	if err != nil {
		l.Error("search_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{"total": total, "products": products})
}
