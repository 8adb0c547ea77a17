package handlers

import (
	"log/slog"
	"net/http"

	"github.com/anonto42/inkpress/backend/internal/models"
	"github.com/anonto42/inkpress/backend/internal/notifications"
	"github.com/anonto42/inkpress/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	commentRepository repositories.CommentRepository
	postRepository    repositories.PostRepository
	userRepository    repositories.UserRepository
	notifier          notifications.Notifier
	logger            *slog.Logger
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(
	commentRepo repositories.CommentRepository,
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
	notifier notifications.Notifier,
	logger *slog.Logger,
) *CommentHandler {
	return &CommentHandler{
		commentRepository: commentRepo,
		postRepository:    postRepo,
		userRepository:    userRepo,
		notifier:          notifier,
		logger:            logger,
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.POST("", h.CreateComment, auth)
	g.GET("/post/:postId", h.GetCommentsByPostID)
	g.PUT("/:id", h.UpdateComment, auth)
	g.DELETE("/:id", h.DeleteComment, auth)
}

// CreateComment comments on a post, or replies to a comment when parentId
// is set, and notifies the post author.
func (h *CommentHandler) CreateComment(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	post, err := h.postRepository.GetPostByID(ctx, req.PostID)
	if err != nil {
		return storeError(err, "Post")
	}
	if post.IsDraft && post.AuthorID != userID {
		return echo.NewHTTPError(http.StatusNotFound, "Post not found")
	}
	if req.ParentID != nil {
		parent, err := h.commentRepository.GetCommentByID(ctx, *req.ParentID)
		if err != nil {
			return storeError(err, "Parent comment")
		}
		if parent.PostID != req.PostID {
			return echo.NewHTTPError(http.StatusBadRequest, "Parent comment belongs to another post")
		}
	}

	comment := &models.Comment{
		PostID:   req.PostID,
		AuthorID: userID,
		ParentID: req.ParentID,
		Body:     req.Body,
	}
	if err := h.commentRepository.CreateComment(ctx, comment); err != nil {
		return storeError(err, "Comment")
	}

	if err := h.postRepository.IncrementCommentsCount(ctx, req.PostID, 1); err != nil {
		h.logger.Warn("comments counter not updated", "post_id", req.PostID, "error", err)
	}

	postID, commentID := req.PostID, comment.ID
	h.notifier.Notify(ctx, notifications.Event{
		RecipientID: post.AuthorID,
		SenderID:    userID,
		Kind:        models.KindComment,
		PostID:      &postID,
		CommentID:   &commentID,
		Message:     actorName(c, h.userRepository, userID) + " commented on your post",
	})

	return success(c, http.StatusCreated, echo.Map{"comment": comment})
}

// buildCommentTree nests comments under their parents, keeping the input
// (oldest first) order at every level.
func buildCommentTree(comments []models.Comment, authors map[uint]models.User) []*models.CommentNode {
	nodes := make(map[uint]*models.CommentNode, len(comments))
	for _, cm := range comments {
		node := &models.CommentNode{Comment: cm, Replies: []*models.CommentNode{}}
		if author, ok := authors[cm.AuthorID]; ok {
			node.Author = author.ToCompact()
		}
		nodes[cm.ID] = node
	}

	roots := []*models.CommentNode{}
	for _, cm := range comments {
		node := nodes[cm.ID]
		if cm.ParentID != nil {
			if parent, ok := nodes[*cm.ParentID]; ok {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

// GetCommentsByPostID returns the comment tree of a post
func (h *CommentHandler) GetCommentsByPostID(c echo.Context) error {
	ctx := c.Request().Context()
	postID := c.Param("postId")

	comments, err := h.commentRepository.GetCommentsByPostID(ctx, postID)
	if err != nil {
		return storeError(err, "Comment")
	}
	authorIDs := make([]uint, len(comments))
	for i, cm := range comments {
		authorIDs[i] = cm.AuthorID
	}
	authors, err := h.userRepository.GetUsersByIDs(ctx, authorIDs)
	if err != nil {
		return storeError(err, "Comment")
	}

	return success(c, http.StatusOK, echo.Map{
		"comments": buildCommentTree(comments, authors),
		"total":    len(comments),
	})
}

func (h *CommentHandler) ownComment(c echo.Context) (*models.Comment, error) {
	userID, err := currentUserID(c)
	if err != nil {
		return nil, err
	}
	commentID, err := parseIDParam(c, "id", "comment")
	if err != nil {
		return nil, err
	}
	comment, err := h.commentRepository.GetCommentByID(c.Request().Context(), commentID)
	if err != nil {
		return nil, storeError(err, "Comment")
	}
	if comment.AuthorID != userID {
		return nil, echo.NewHTTPError(http.StatusForbidden, "You are not authorized to modify this comment")
	}
	return comment, nil
}

// UpdateComment edits the body of the caller's comment
func (h *CommentHandler) UpdateComment(c echo.Context) error {
	var req models.UpdateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	comment, err := h.ownComment(c)
	if err != nil {
		return err
	}
	comment.Body = req.Body
	if err := h.commentRepository.UpdateComment(c.Request().Context(), comment); err != nil {
		return storeError(err, "Comment")
	}
	return success(c, http.StatusOK, echo.Map{"comment": comment})
}

// DeleteComment deletes the caller's comment with all its replies
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	comment, err := h.ownComment(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	removed := 1
	if siblings, err := h.commentRepository.GetCommentsByPostID(ctx, comment.PostID); err == nil {
		removed = subtreeSize(siblings, comment.ID)
	}

	if err := h.commentRepository.DeleteComment(ctx, comment.ID); err != nil {
		return storeError(err, "Comment")
	}
	if err := h.postRepository.IncrementCommentsCount(ctx, comment.PostID, -removed); err != nil {
		h.logger.Warn("comments counter not updated", "post_id", comment.PostID, "error", err)
	}

	return c.NoContent(http.StatusNoContent)
}

// subtreeSize counts rootID and every comment below it.
func subtreeSize(comments []models.Comment, rootID uint) int {
	children := make(map[uint][]uint)
	for _, cm := range comments {
		if cm.ParentID != nil {
			children[*cm.ParentID] = append(children[*cm.ParentID], cm.ID)
		}
	}
	size := 0
	stack := []uint{rootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		size++
		stack = append(stack, children[id]...)
	}
	return size
}
