package middleware

import (
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/inkpress/backend/pkg/firebase"
	"github.com/labstack/echo/v4"
)

const firebaseTokenKey = "firebaseToken"

// FirebaseAuthMiddleware verifies a Firebase ID token from the Authorization
// header and stores it on the context.
func FirebaseAuthMiddleware(verifier firebase.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if verifier == nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "Firebase login is not configured")
			}
			idToken, err := bearerToken(c)
			if err != nil {
				return err
			}

			token, err := verifier.VerifyIDToken(c.Request().Context(), idToken)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired ID token")
			}

			c.Set(firebaseTokenKey, token)
			return next(c)
		}
	}
}

// FirebaseTokenFromContext returns the verified Firebase token, or nil.
func FirebaseTokenFromContext(c echo.Context) *auth.Token {
	token, _ := c.Get(firebaseTokenKey).(*auth.Token)
	return token
}
