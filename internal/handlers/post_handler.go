package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/anonto42/inkpress/backend/internal/middleware"
	"github.com/anonto42/inkpress/backend/internal/models"
	"github.com/anonto42/inkpress/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	postRepository     repositories.PostRepository
	postRefsRepository repositories.PostRefsRepository
	userRepository     repositories.UserRepository
	likeRepository     repositories.LikeRepository
	logger             *slog.Logger
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(
	postRepo repositories.PostRepository,
	refsRepo repositories.PostRefsRepository,
	userRepo repositories.UserRepository,
	likeRepo repositories.LikeRepository,
	logger *slog.Logger,
) *PostHandler {
	return &PostHandler{
		postRepository:     postRepo,
		postRefsRepository: refsRepo,
		userRepository:     userRepo,
		likeRepository:     likeRepo,
		logger:             logger,
	}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group, auth, optionalAuth echo.MiddlewareFunc) {
	g.POST("", h.CreatePost, auth)
	g.GET("", h.GetPosts, optionalAuth)
	g.GET("/drafts", h.GetDrafts, auth)
	g.GET("/:id", h.GetPost, optionalAuth)
	g.PUT("/:id", h.UpdatePost, auth)
	g.DELETE("/:id", h.DeletePost, auth)
}

// EnrichedPost is a post with its author card and the viewer's like flag
type EnrichedPost struct {
	models.Post
	Author  models.UserCompact `json:"author"`
	IsLiked bool               `json:"isLiked"`
}

func enrichPosts(ctx context.Context, users repositories.UserRepository, likes repositories.LikeRepository, viewerID uint, posts []models.Post) ([]EnrichedPost, error) {
	authorIDs := make([]uint, 0, len(posts))
	postIDs := make([]string, len(posts))
	for i, p := range posts {
		authorIDs = append(authorIDs, p.AuthorID)
		postIDs[i] = p.ID.Hex()
	}

	authors, err := users.GetUsersByIDs(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	liked := map[string]bool{}
	if viewerID != 0 && len(postIDs) > 0 {
		if liked, err = likes.GetLikedPostIDs(ctx, viewerID, postIDs); err != nil {
			return nil, err
		}
	}

	out := make([]EnrichedPost, len(posts))
	for i, p := range posts {
		out[i] = EnrichedPost{Post: p, IsLiked: liked[p.ID.Hex()]}
		if author, ok := authors[p.AuthorID]; ok {
			out[i].Author = author.ToCompact()
		}
	}
	return out, nil
}

// CreatePost creates a new post or draft
func (h *PostHandler) CreatePost(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	post := &models.Post{
		AuthorID: userID,
		Title:    strings.TrimSpace(req.Title),
		Body:     req.Body,
		Tags:     req.Tags,
		Image:    req.Image,
		IsDraft:  req.IsDraft,
	}
	if err := h.postRepository.CreatePost(c.Request().Context(), post); err != nil {
		return storeError(err, "Post")
	}

	return success(c, http.StatusCreated, echo.Map{"post": post})
}

// GetPosts lists published posts, optionally filtered by author, tag or text
func (h *PostHandler) GetPosts(c echo.Context) error {
	page, limit := pagination(c, defaultPageSize)
	filter := models.PostFilter{
		Tag:    c.QueryParam("tag"),
		Search: strings.TrimSpace(c.QueryParam("search")),
	}
	if author := c.QueryParam("author"); author != "" {
		id, err := strconv.ParseUint(author, 10, 32)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid author ID")
		}
		filter.AuthorID = uint(id)
	}

	return h.listPosts(c, filter, page, limit)
}

// GetDrafts lists the authenticated user's drafts
func (h *PostHandler) GetDrafts(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	page, limit := pagination(c, defaultPageSize)
	return h.listPosts(c, models.PostFilter{AuthorID: userID, DraftsOnly: true}, page, limit)
}

func (h *PostHandler) listPosts(c echo.Context, filter models.PostFilter, page, limit int) error {
	ctx := c.Request().Context()
	posts, total, err := h.postRepository.ListPosts(ctx, filter, int64((page-1)*limit), int64(limit))
	if err != nil {
		return storeError(err, "Post")
	}
	enriched, err := enrichPosts(ctx, h.userRepository, h.likeRepository, middleware.UserIDFromContext(c), posts)
	if err != nil {
		return storeError(err, "Post")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"posts": enriched},
		"meta":    paginationMeta(page, limit, total),
	})
}

// GetPost retrieves a post by ID. Drafts are only visible to their author.
func (h *PostHandler) GetPost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := h.postRepository.GetPostByID(ctx, c.Param("id"))
	if err != nil {
		return storeError(err, "Post")
	}
	viewerID := middleware.UserIDFromContext(c)
	if post.IsDraft && post.AuthorID != viewerID {
		return echo.NewHTTPError(http.StatusNotFound, "Post not found")
	}

	enriched, err := enrichPosts(ctx, h.userRepository, h.likeRepository, viewerID, []models.Post{*post})
	if err != nil {
		return storeError(err, "Post")
	}
	return success(c, http.StatusOK, echo.Map{"post": enriched[0]})
}

// ownPost loads a post and checks the caller wrote it.
func (h *PostHandler) ownPost(c echo.Context) (*models.Post, error) {
	userID, err := currentUserID(c)
	if err != nil {
		return nil, err
	}
	post, err := h.postRepository.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return nil, storeError(err, "Post")
	}
	if post.AuthorID != userID {
		return nil, echo.NewHTTPError(http.StatusForbidden, "You are not authorized to modify this post")
	}
	return post, nil
}

// UpdatePost updates an existing post
func (h *PostHandler) UpdatePost(c echo.Context) error {
	var req models.UpdatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	post, err := h.ownPost(c)
	if err != nil {
		return err
	}

	if req.Title != nil {
		post.Title = strings.TrimSpace(*req.Title)
	}
	if req.Body != nil {
		post.Body = *req.Body
	}
	if req.Tags != nil {
		post.Tags = req.Tags
	}
	if req.Image != nil {
		post.Image = *req.Image
	}
	if req.IsDraft != nil {
		post.IsDraft = *req.IsDraft
	}

	if err := h.postRepository.UpdatePost(c.Request().Context(), post.ID.Hex(), post); err != nil {
		return storeError(err, "Post")
	}
	return success(c, http.StatusOK, echo.Map{"post": post})
}

// DeletePost removes a post together with its likes, comments and the
// notifications that point at it.
func (h *PostHandler) DeletePost(c echo.Context) error {
	post, err := h.ownPost(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	postID := post.ID.Hex()

	if err := h.postRefsRepository.PurgePost(ctx, postID); err != nil {
		return storeError(err, "Post")
	}
	if err := h.postRepository.DeletePost(ctx, postID); err != nil {
		h.logger.Error("post references purged but document not deleted", "post_id", postID, "error", err)
		return storeError(err, "Post")
	}

	h.logger.Info("post deleted", "post_id", postID, "author_id", post.AuthorID)
	return c.NoContent(http.StatusNoContent)
}
