package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	apperrors "github.com/hrygo/cogniflow/server/internal/errors"
	"github.com/hrygo/cogniflow/server/internal/observability"
)

// Issuer is the issuer written into and required from access tokens.
const Issuer = "cogniflow"

// Claims are the access token claims.
type Claims struct {
	UserID int32 `json:"user_id"`
	jwt.RegisteredClaims
}

type userIDKey struct{}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID int32) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the authenticated user id.
func UserIDFromContext(ctx context.Context) (int32, bool) {
	userID, ok := ctx.Value(userIDKey{}).(int32)
	return userID, ok && userID > 0
}

// GenerateToken signs an access token for userID valid for ttl.
func GenerateToken(secret string, userID int32, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

// ParseToken validates an HS256 access token and returns its user id.
func ParseToken(secret, tokenString string) (int32, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, errors.Wrap(err, "invalid token")
	}
	if claims.UserID <= 0 {
		return 0, errors.New("token has no user")
	}
	return claims.UserID, nil
}

// Auth requires a valid "Authorization: Bearer <token>" header and stores
// the user id in the request context.
func Auth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				return apperrors.Unauthorized("missing bearer token")
			}
			userID, err := ParseToken(secret, strings.TrimSpace(token))
			if err != nil {
				return apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "invalid token")
			}

			ctx := WithUserID(c.Request().Context(), userID)
			if reqCtx, ok := observability.FromContext(ctx); ok {
				reqCtx.UserID = userID
			}
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
