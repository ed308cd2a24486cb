package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/flowmazon/storefront/internal/logging"
	authsvc "github.com/flowmazon/storefront/internal/service/auth"
	cartsvc "github.com/flowmazon/storefront/internal/service/cart"
	"github.com/flowmazon/storefront/internal/transport"
)

type AuthHTTP struct {
	Svc  *authsvc.Service
	Cart *cartsvc.Service
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.Register(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrValidation):
			l.Warn("register_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, authsvc.ErrUserExists):
			l.Warn("register_error", "status", 409, "error", err)
			return echo.NewHTTPError(http.StatusConflict, "user already exists")
		default:
			l.Error("register_error", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	l.Info("user registered", "user_id", user.ID)
	return c.JSON(http.StatusCreated, user)
}

// Login authenticates, sets the access-token cookie and then runs the
// sign-in event: the anonymous cart, if any, is merged into the user's
// cart. A merge failure keeps the anonymous cart and its cookie intact so
// the next sign-in retries it; login itself still succeeds.
func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, token, exp, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrValidation):
			l.Warn("login_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, authsvc.ErrInvalidCredentials):
			l.Warn("login_error", "status", 401, "error", err)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		default:
			l.Error("login_error", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	c.SetCookie(CreateCookie(accessTokenCookie, token, "/", exp))

	if ck, err := c.Cookie(localCartCookie); err == nil && ck.Value != "" {
		merged, err := h.Cart.MergeAnonCartIntoUserCart(ctx, user.ID, ck.Value)
		if err != nil {
			l.Error("cart_merge_error", "user_id", user.ID, "error", err)
		} else if merged {
			c.SetCookie(clearCookie(localCartCookie))
			l.Info("anonymous cart merged", "user_id", user.ID)
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"access_token": token,
		"user":         user,
	})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	c.SetCookie(clearCookie(accessTokenCookie))
	return c.NoContent(http.StatusNoContent)
}
