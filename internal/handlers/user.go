package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/anonto42/inkpress/backend/internal/middleware"
	"github.com/anonto42/inkpress/backend/internal/models"
	"github.com/anonto42/inkpress/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	userRepository   repositories.UserRepository
	followRepository repositories.FollowRepository
	postRepository   repositories.PostRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, followRepo repositories.FollowRepository, postRepo repositories.PostRepository) *UserHandler {
	return &UserHandler{
		userRepository:   userRepo,
		followRepository: followRepo,
		postRepository:   postRepo,
	}
}

// RegisterUserRoutes registers user profile routes
func (h *UserHandler) RegisterUserRoutes(g *echo.Group, auth, optionalAuth echo.MiddlewareFunc) {
	g.GET("/search", h.SearchUsers)
	g.PUT("/profile", h.UpdateProfile, auth)
	g.GET("/:username", h.GetUserProfile, optionalAuth)
}

// GetUserProfile returns a public profile with relationship counters
func (h *UserHandler) GetUserProfile(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := h.userRepository.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		return storeError(err, "User")
	}

	profile := models.UserProfile{User: *user}
	if profile.PostsCount, err = h.postRepository.CountPostsByAuthor(ctx, user.ID); err != nil {
		return storeError(err, "User")
	}
	if profile.FollowersCount, err = h.followRepository.GetFollowersCount(ctx, user.ID); err != nil {
		return storeError(err, "User")
	}
	if profile.FollowingCount, err = h.followRepository.GetFollowingCount(ctx, user.ID); err != nil {
		return storeError(err, "User")
	}
	if viewer := middleware.UserIDFromContext(c); viewer != 0 && viewer != user.ID {
		if profile.IsFollowing, err = h.followRepository.IsFollowing(ctx, viewer, user.ID); err != nil {
			return storeError(err, "User")
		}
	}

	return success(c, http.StatusOK, echo.Map{"user": profile})
}

// UpdateProfile updates the authenticated user's profile
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := h.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		return storeError(err, "User")
	}

	if req.Username != nil && *req.Username != user.Username {
		if _, err := h.userRepository.GetUserByUsername(ctx, *req.Username); err == nil {
			return echo.NewHTTPError(http.StatusConflict, "Username already taken")
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return storeError(err, "User")
		}
		user.Username = *req.Username
	}
	if req.Email != nil {
		email := strings.ToLower(*req.Email)
		if email != user.Email {
			if _, err := h.userRepository.GetUserByEmail(ctx, email); err == nil {
				return echo.NewHTTPError(http.StatusConflict, "Email already in use")
			} else if !errors.Is(err, repositories.ErrNotFound) {
				return storeError(err, "User")
			}
			user.Email = email
		}
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.ProfilePicture != nil {
		user.ProfilePicture = *req.ProfilePicture
	}
	if req.IsPrivate != nil {
		user.IsPrivate = *req.IsPrivate
	}

	if err := h.userRepository.UpdateUser(ctx, user); err != nil {
		return storeError(err, "User")
	}
	return success(c, http.StatusOK, echo.Map{"user": user})
}

// SearchUsers searches usernames and bios
func (h *UserHandler) SearchUsers(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Search query 'q' is required")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 20 {
		limit = 10
	}

	users, err := h.userRepository.SearchUsers(c.Request().Context(), query, limit)
	if err != nil {
		return storeError(err, "User")
	}

	results := make([]models.UserCompact, len(users))
	for i := range users {
		results[i] = users[i].ToCompact()
	}
	return success(c, http.StatusOK, echo.Map{"users": results})
}
