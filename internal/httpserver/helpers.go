package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/flowmazon/storefront/internal/identity"
)

const (
	accessTokenCookie = "accessToken"
	localCartCookie   = "localCartId"

	localCartTTL = 30 * 24 * time.Hour
)

func CreateCookie(name, value, path string, expTime time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expTime,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func clearCookie(name string) *http.Cookie {
	return CreateCookie(name, "", "/", time.Unix(0, 0))
}

// identityFrom classifies the request: a valid access token wins, otherwise
// a held cart token makes the request anonymous, otherwise nobody.
func identityFrom(c echo.Context, jwtSecret []byte) identity.Identity {
	if userID, err := userIDFromCookie(c, jwtSecret); err == nil {
		return identity.User(userID)
	}
	if ck, err := c.Cookie(localCartCookie); err == nil {
		return identity.Anonymous(ck.Value)
	}
	return identity.None()
}

func userIDFromCookie(c echo.Context, jwtSecret []byte) (uint, error) {
	cookie, err := c.Cookie(accessTokenCookie)
	if err != nil {
		return 0, fmt.Errorf("missing auth cookie")
	}
	if cookie.Value == "" {
		return 0, fmt.Errorf("empty token")
	}

	claims, err := parseClaims(cookie.Value, jwtSecret)
	if err != nil {
		return 0, err
	}
	subRaw, ok := claims["sub"].(float64)
	if !ok {
		return 0, fmt.Errorf("invalid subject claim")
	}
	return uint(subRaw), nil
}

func parseClaims(tokenString string, jwtSecret []byte) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

func RequireAdmin(jwtSecret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(accessTokenCookie)
			if err != nil || cookie.Value == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing auth cookie")
			}
			claims, err := parseClaims(cookie.Value, jwtSecret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if role, _ := claims["role"].(string); role != "admin" {
				return echo.NewHTTPError(http.StatusForbidden, "admin only")
			}
			return next(c)
		}
	}
}
