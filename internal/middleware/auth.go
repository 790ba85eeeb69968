package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"charity-market/internal/service"
)

const (
	actorKey        = "actor"
	sessionHeader   = "X-Session-Id"
	authorizationHd = "Authorization"
)

// Auth decodes a bearer token when present and stores the actor on the
// context. Requests without (or with invalid) tokens continue anonymously;
// role enforcement happens in RequireRole.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	secret := []byte(jwtSecret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(authorizationHd)
			if !strings.HasPrefix(header, "Bearer ") {
				return next(c)
			}

			claims := &service.AuthClaims{}
			token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims,
				func(t *jwt.Token) (interface{}, error) { return secret, nil },
				jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(actorKey, service.Actor{
				UserID:       claims.UserID,
				Role:         claims.Role,
				SupplierID:   claims.SupplierID,
				FoundationID: claims.FoundationID,
			})
			return next(c)
		}
	}
}

func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			for _, role := range roles {
				if actor.Role == role {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
		}
	}
}

func ActorFrom(c echo.Context) (service.Actor, bool) {
	actor, ok := c.Get(actorKey).(service.Actor)
	return actor, ok
}

// IdentityFrom resolves the cart identity: the authenticated user when
// present, otherwise the anonymous session header.
func IdentityFrom(c echo.Context) (service.Identity, bool) {
	if actor, ok := ActorFrom(c); ok && actor.UserID != "" {
		return service.UserIdentity(actor.UserID), true
	}
	if token := c.Request().Header.Get(sessionHeader); token != "" {
		return service.SessionIdentity(token), true
	}
	return service.Identity{}, false
}
