package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/flowmazon/storefront/internal/logging"
	cartsvc "github.com/flowmazon/storefront/internal/service/cart"
	"github.com/flowmazon/storefront/internal/transport"
)

type CartHTTP struct {
	Svc       *cartsvc.Service
	JWTSecret []byte
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	id := identityFrom(c, h.JWTSecret)

	view, err := h.Svc.GetCart(ctx, id)
	if err != nil {
		l.Error("get_cart_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	// No cart yet (or a stale token) is a normal empty answer.
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	var req transport.AddToCartRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	id := identityFrom(c, h.JWTSecret)

	view, issuedToken, err := h.Svc.IncrementProduct(ctx, id, req.ProductID)
	if err != nil {
		switch {
		case errors.Is(err, cartsvc.ErrValidation):
			l.Warn("add_to_cart_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "product_id required")
		case errors.Is(err, cartsvc.ErrNotFound):
			l.Warn("add_to_cart_error", "status", 404, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		default:
			l.Error("add_to_cart_error", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	if issuedToken != "" {
		c.SetCookie(CreateCookie(localCartCookie, issuedToken, "/", time.Now().Add(localCartTTL)))
	}

	l.Info("item added to cart", "product_id", req.ProductID)
	return c.JSON(http.StatusOK, view)
}
