package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/anonto42/inkpress/backend/internal/middleware"
	"github.com/anonto42/inkpress/backend/internal/models"
	"github.com/anonto42/inkpress/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository repositories.UserRepository
	jwtSecret      string
	logger         *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userRepo repositories.UserRepository, jwtSecret string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		jwtSecret:      jwtSecret,
		logger:         logger,
	}
}

// RegisterAuthRoutes registers authentication routes. limit guards the
// credential endpoints, auth protects the profile, firebaseAuth verifies
// Firebase ID tokens.
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group, limit, auth, firebaseAuth echo.MiddlewareFunc) {
	g.POST("/register", h.Register, limit)
	g.POST("/login", h.Login, limit)
	g.POST("/firebase-login", h.FirebaseLogin, limit, firebaseAuth)
	g.GET("/profile", h.GetProfile, auth)
}

func (h *AuthHandler) issue(c echo.Context, status int, user *models.User) error {
	token, err := middleware.GenerateToken(h.jwtSecret, user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token").SetInternal(err)
	}
	return success(c, status, echo.Map{"token": token, "user": user})
}

// Register creates a local account with a bcrypt-hashed password
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	req.Email = strings.ToLower(req.Email)

	if _, err := h.userRepository.GetUserByEmail(ctx, req.Email); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "User with this email already registered")
	}
	if _, err := h.userRepository.GetUserByUsername(ctx, req.Username); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "Username already taken")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password").SetInternal(err)
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
	}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		return storeError(err, "User")
	}

	h.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return h.issue(c, http.StatusCreated, user)
}

// Login authenticates with email and password
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByEmail(c.Request().Context(), strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
		}
		return storeError(err, "User")
	}
	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	return h.issue(c, http.StatusOK, user)
}

// GetProfile returns the authenticated user
func (h *AuthHandler) GetProfile(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	user, err := h.userRepository.GetUserByID(c.Request().Context(), userID)
	if err != nil {
		return storeError(err, "User")
	}
	return success(c, http.StatusOK, echo.Map{"user": user})
}

// FirebaseLogin exchanges a verified Firebase ID token for a local JWT,
// linking or creating the account by email.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	token := middleware.FirebaseTokenFromContext(c)
	if token == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Missing Firebase token")
	}
	email, _ := token.Claims["email"].(string)
	if email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Firebase account has no email")
	}
	email = strings.ToLower(email)
	ctx := c.Request().Context()

	user, err := h.userRepository.GetUserByFirebaseUID(ctx, token.UID)
	if err == nil {
		return h.issue(c, http.StatusOK, user)
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return storeError(err, "User")
	}

	uid := token.UID
	user, err = h.userRepository.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		user.FirebaseUID = &uid
		if err := h.userRepository.UpdateUser(ctx, user); err != nil {
			return storeError(err, "User")
		}
	case errors.Is(err, repositories.ErrNotFound):
		user = &models.User{
			Username:    h.freeUsername(c, email),
			Email:       email,
			FirebaseUID: &uid,
		}
		if err := h.userRepository.CreateUser(ctx, user); err != nil {
			return storeError(err, "User")
		}
		h.logger.Info("user registered via firebase", "user_id", user.ID)
	default:
		return storeError(err, "User")
	}

	return h.issue(c, http.StatusOK, user)
}

// freeUsername derives an unused username from the local part of email.
func (h *AuthHandler) freeUsername(c echo.Context, email string) string {
	base := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, strings.SplitN(email, "@", 2)[0])
	if len(base) < 3 {
		base = "user" + base
	}
	if len(base) > 24 {
		base = base[:24]
	}

	candidate := base
	for i := 1; i < 100; i++ {
		if _, err := h.userRepository.GetUserByUsername(c.Request().Context(), candidate); errors.Is(err, repositories.ErrNotFound) {
			return candidate
		}
		candidate = base + strconv.Itoa(i)
	}
	return candidate
}
