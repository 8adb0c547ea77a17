package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anonto42/inkpress/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	claimsKey = "user"
	// TokenTTL is how long an issued session token stays valid.
	TokenTTL = 7 * 24 * time.Hour
)

var errUnexpectedSigningMethod = errors.New("unexpected signing method")

// GenerateToken signs an HS256 session token for user.
func GenerateToken(secret string, user *models.User) (string, error) {
	now := time.Now()
	claims := &models.JwtCustomClaims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates tokenString and returns its claims.
func ParseToken(secret, tokenString string) (*models.JwtCustomClaims, error) {
	claims := &models.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedSigningMethod
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
	}
	return parts[1], nil
}

func authenticate(c echo.Context, secret, tokenString string) error {
	claims, err := ParseToken(secret, tokenString)
	if err != nil {
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token signature")
		}
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}
	c.Set(claimsKey, claims)
	return nil
}

// JWTAuthMiddleware checks for a valid JWT and extracts user claims.
func JWTAuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := bearerToken(c)
			if err != nil {
				return err
			}
			if err := authenticate(c, secret, tokenString); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// OptionalJWTAuth attaches claims when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalJWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if tokenString, err := bearerToken(c); err == nil {
				if claims, err := ParseToken(secret, tokenString); err == nil {
					c.Set(claimsKey, claims)
				}
			}
			return next(c)
		}
	}
}

// WebSocketAuth is JWTAuthMiddleware that also accepts the token in the
// "token" query parameter, since browsers cannot set headers on upgrades.
func WebSocketAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := c.QueryParam("token")
			if tokenString == "" {
				var err error
				if tokenString, err = bearerToken(c); err != nil {
					return err
				}
			}
			if err := authenticate(c, secret, tokenString); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// ClaimsFromContext returns the authenticated claims, or nil.
func ClaimsFromContext(c echo.Context) *models.JwtCustomClaims {
	claims, _ := c.Get(claimsKey).(*models.JwtCustomClaims)
	return claims
}

// UserIDFromContext returns the authenticated user id, or 0 when anonymous.
func UserIDFromContext(c echo.Context) uint {
	if claims := ClaimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return 0
}
