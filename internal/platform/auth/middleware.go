package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRolesKey contextKey = "user_roles"
)

// Claims carries the actor identity. Tokens issued by the on-boarding
// service use a single "role"; "roles" is accepted as well.
type Claims struct {
	jwt.RegisteredClaims
	// UserID is the on-boarding service's "_id" claim.
	UserID string   `json:"_id,omitempty"`
	Role   string   `json:"role,omitempty"`
	Roles  []string `json:"roles,omitempty"`
}

// ActorID returns the subject, falling back to the "_id" claim.
func (c *Claims) ActorID() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.UserID
}

// AllRoles merges the single role claim with the roles list.
func (c *Claims) AllRoles() []string {
	roles := make([]string, 0, len(c.Roles)+1)
	if c.Role != "" {
		roles = append(roles, c.Role)
	}
	for _, r := range c.Roles {
		if r != "" && r != c.Role {
			roles = append(roles, r)
		}
	}
	return roles
}

type JWTConfig struct {
	Issuer     string
	Audience   string
	SigningKey []byte
	// Skipper bypasses authentication for matching requests.
	Skipper func(c echo.Context) bool
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	parser := jwt.NewParser(opts...)
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		return cfg.SigningKey, nil
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := parser.ParseWithClaims(strings.TrimSpace(parts[1]), claims, keyFunc)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			actorID := claims.ActorID()
			if actorID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has no subject")
			}

			roles := claims.AllRoles()
			c.Set("user_id", actorID)

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, UserIDKey, actorID)
			ctx = context.WithValue(ctx, UserRolesKey, roles)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}
