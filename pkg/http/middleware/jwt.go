package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// ClaimsKey is the echo context key holding validated token claims.
const ClaimsKey = "claims"

// JWT accepts requests carrying "Authorization: Bearer <token>" signed with
// secret using HS256. An empty secret disables the check.
func JWT(secret string) echo.MiddlewareFunc {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if secret == "" {
			return next
		}
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return unauthorized("Authorization header is required")
			}
			raw := strings.TrimPrefix(header, "Bearer ")
			if raw == header || raw == "" {
				return unauthorized("Invalid authorization header format. Use: Bearer <token>")
			}

			claims := jwt.MapClaims{}
			_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
				return key, nil
			})
			if err != nil {
				msg := "Token is invalid"
				if errors.Is(err, jwt.ErrTokenExpired) {
					msg = "Token is expired"
				}
				return unauthorized(msg)
			}

			c.Set(ClaimsKey, claims)
			return next(c)
		}
	}
}

func unauthorized(msg string) error {
	return echo.NewHTTPError(http.StatusUnauthorized, msg)
}
