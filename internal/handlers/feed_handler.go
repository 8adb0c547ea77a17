package handlers

import (
	"net/http"

	"github.com/anonto42/inkpress/backend/internal/models"
	"github.com/anonto42/inkpress/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// FeedHandler serves the home timeline
type FeedHandler struct {
	postRepository   repositories.PostRepository
	userRepository   repositories.UserRepository
	followRepository repositories.FollowRepository
	likeRepository   repositories.LikeRepository
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
	followRepo repositories.FollowRepository,
	likeRepo repositories.LikeRepository,
) *FeedHandler {
	return &FeedHandler{
		postRepository:   postRepo,
		userRepository:   userRepo,
		followRepository: followRepo,
		likeRepository:   likeRepo,
	}
}

// RegisterFeedRoutes registers feed-related routes on the posts group
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.GET("/feed", h.GetFeed, auth)
}

// GetFeed returns published posts by the caller and the users they follow
func (h *FeedHandler) GetFeed(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	page, limit := pagination(c, defaultPageSize)
	ctx := c.Request().Context()

	authorIDs, err := h.followRepository.GetFollowingIDs(ctx, userID)
	if err != nil {
		return storeError(err, "Feed")
	}
	authorIDs = append(authorIDs, userID)

	posts, total, err := h.postRepository.ListPosts(ctx, models.PostFilter{AuthorIDs: authorIDs}, int64((page-1)*limit), int64(limit))
	if err != nil {
		return storeError(err, "Feed")
	}
	enriched, err := enrichPosts(ctx, h.userRepository, h.likeRepository, userID, posts)
	if err != nil {
		return storeError(err, "Feed")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"posts": enriched},
		"meta":    paginationMeta(page, limit, total),
	})
}
