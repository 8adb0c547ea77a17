package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/anonto42/inkpress/backend/internal/models"
	"github.com/anonto42/inkpress/backend/internal/notifications"
	"github.com/anonto42/inkpress/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// LikeHandler handles HTTP requests related to likes
type LikeHandler struct {
	likeRepository repositories.LikeRepository
	postRepository repositories.PostRepository
	userRepository repositories.UserRepository
	notifier       notifications.Notifier
	logger         *slog.Logger
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(
	likeRepo repositories.LikeRepository,
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
	notifier notifications.Notifier,
	logger *slog.Logger,
) *LikeHandler {
	return &LikeHandler{
		likeRepository: likeRepo,
		postRepository: postRepo,
		userRepository: userRepo,
		notifier:       notifier,
		logger:         logger,
	}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.POST("/posts/:postId", h.LikePost, auth)
	g.DELETE("/posts/:postId", h.UnlikePost, auth)
	g.GET("/posts/:postId", h.GetPostLikes)
	g.GET("/posts/:postId/check", h.CheckUserLike, auth)
}

// LikePost likes a post and notifies its author
func (h *LikeHandler) LikePost(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	postID := c.Param("postId")

	post, err := h.postRepository.GetPostByID(ctx, postID)
	if err != nil {
		return storeError(err, "Post")
	}

	like := &models.Like{PostID: postID, UserID: userID}
	if err := h.likeRepository.CreateLike(ctx, like); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return echo.NewHTTPError(http.StatusConflict, "Post already liked")
		}
		return storeError(err, "Like")
	}
	if err := h.postRepository.IncrementLikesCount(ctx, postID, 1); err != nil {
		h.logger.Warn("likes counter not updated", "post_id", postID, "error", err)
	}

	h.notifier.Notify(ctx, notifications.Event{
		RecipientID: post.AuthorID,
		SenderID:    userID,
		Kind:        models.KindLike,
		PostID:      &postID,
		Message:     actorName(c, h.userRepository, userID) + " liked your post",
	})

	return success(c, http.StatusCreated, echo.Map{"like": like})
}

// UnlikePost removes the caller's like
func (h *LikeHandler) UnlikePost(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	postID := c.Param("postId")

	if err := h.likeRepository.DeleteLike(ctx, postID, userID); err != nil {
		return storeError(err, "Like")
	}
	if err := h.postRepository.IncrementLikesCount(ctx, postID, -1); err != nil {
		h.logger.Warn("likes counter not updated", "post_id", postID, "error", err)
	}

	return c.NoContent(http.StatusNoContent)
}

// GetPostLikes lists the users who liked a post
func (h *LikeHandler) GetPostLikes(c echo.Context) error {
	users, err := h.likeRepository.GetLikersByPostID(c.Request().Context(), c.Param("postId"))
	if err != nil {
		return storeError(err, "Like")
	}
	likers := make([]models.UserCompact, len(users))
	for i := range users {
		likers[i] = users[i].ToCompact()
	}
	return success(c, http.StatusOK, echo.Map{"users": likers, "count": len(likers)})
}

// CheckUserLike reports whether the caller liked a post
func (h *LikeHandler) CheckUserLike(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	liked, err := h.likeRepository.HasUserLikedPost(c.Request().Context(), c.Param("postId"), userID)
	if err != nil {
		return storeError(err, "Like")
	}
	return success(c, http.StatusOK, echo.Map{"liked": liked})
}
