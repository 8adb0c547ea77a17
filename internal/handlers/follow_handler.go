package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/inkpress/backend/internal/models"
	"github.com/anonto42/inkpress/backend/internal/notifications"
	"github.com/anonto42/inkpress/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

const suggestionsLimit = 5

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	followRepository repositories.FollowRepository
	userRepository   repositories.UserRepository
	notifier         notifications.Notifier
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(followRepo repositories.FollowRepository, userRepo repositories.UserRepository, notifier notifications.Notifier) *FollowHandler {
	return &FollowHandler{
		followRepository: followRepo,
		userRepository:   userRepo,
		notifier:         notifier,
	}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.GET("/suggestions/users", h.GetSuggestions, auth)
	g.POST("/:userId", h.FollowUser, auth)
	g.DELETE("/:userId", h.UnfollowUser, auth)
	g.GET("/:userId/followers", h.GetFollowers)
	g.GET("/:userId/following", h.GetFollowing)
}

// FollowUser follows a user and notifies them
func (h *FollowHandler) FollowUser(c echo.Context) error {
	currentID, err := currentUserID(c)
	if err != nil {
		return err
	}
	targetID, err := parseIDParam(c, "userId", "user")
	if err != nil {
		return err
	}
	if currentID == targetID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot follow yourself")
	}

	ctx := c.Request().Context()
	if _, err := h.userRepository.GetUserByID(ctx, targetID); err != nil {
		return storeError(err, "User")
	}

	follow := &models.Follow{FollowerID: currentID, FollowingID: targetID}
	if err := h.followRepository.CreateFollow(ctx, follow); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return echo.NewHTTPError(http.StatusConflict, "Already following this user")
		}
		return storeError(err, "Follow")
	}

	h.notifier.Notify(ctx, notifications.Event{
		RecipientID: targetID,
		SenderID:    currentID,
		Kind:        models.KindFollow,
		Message:     actorName(c, h.userRepository, currentID) + " started following you",
	})

	return success(c, http.StatusCreated, echo.Map{"following": true})
}

// UnfollowUser unfollows a user
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	currentID, err := currentUserID(c)
	if err != nil {
		return err
	}
	targetID, err := parseIDParam(c, "userId", "user")
	if err != nil {
		return err
	}

	if err := h.followRepository.DeleteFollow(c.Request().Context(), currentID, targetID); err != nil {
		return storeError(err, "Follow")
	}
	return success(c, http.StatusOK, echo.Map{"following": false})
}

func compactUsers(users []models.User) []models.UserCompact {
	out := make([]models.UserCompact, len(users))
	for i := range users {
		out[i] = users[i].ToCompact()
	}
	return out
}

// GetFollowers lists who follows a user
func (h *FollowHandler) GetFollowers(c echo.Context) error {
	userID, err := parseIDParam(c, "userId", "user")
	if err != nil {
		return err
	}
	users, err := h.followRepository.GetFollowers(c.Request().Context(), userID)
	if err != nil {
		return storeError(err, "Follow")
	}
	return success(c, http.StatusOK, echo.Map{"users": compactUsers(users)})
}

// GetFollowing lists who a user follows
func (h *FollowHandler) GetFollowing(c echo.Context) error {
	userID, err := parseIDParam(c, "userId", "user")
	if err != nil {
		return err
	}
	users, err := h.followRepository.GetFollowing(c.Request().Context(), userID)
	if err != nil {
		return storeError(err, "Follow")
	}
	return success(c, http.StatusOK, echo.Map{"users": compactUsers(users)})
}

// GetSuggestions proposes popular users the caller does not follow yet
func (h *FollowHandler) GetSuggestions(c echo.Context) error {
	currentID, err := currentUserID(c)
	if err != nil {
		return err
	}
	users, err := h.followRepository.GetSuggestions(c.Request().Context(), currentID, suggestionsLimit)
	if err != nil {
		return storeError(err, "Follow")
	}
	return success(c, http.StatusOK, echo.Map{"users": users})
}
