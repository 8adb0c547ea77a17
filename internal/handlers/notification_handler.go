package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/inkpress/backend/internal/notifications"
	"github.com/labstack/echo/v4"
)

// NotificationHandler serves the notification inbox
type NotificationHandler struct {
	service *notifications.Service
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(service *notifications.Service) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// RegisterNotificationRoutes registers notification routes. Every route
// needs an authenticated user.
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("", h.GetNotifications)
	g.GET("/unread-count", h.GetUnreadCount)
	g.PUT("/mark-all-read", h.MarkAllAsRead)
	g.PUT("/:id/read", h.MarkAsRead)
}

// GetNotifications returns a page of the caller's notifications, newest first
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	page, limit := pagination(c, notifications.DefaultPageSize)

	result, err := h.service.List(c.Request().Context(), userID, page, limit)
	if err != nil {
		return storeError(err, "Notification")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"notifications": result.Items,
			"unreadCount":   result.Unread,
		},
		"meta": paginationMeta(result.Page, result.PageSize, result.Total),
	})
}

// GetUnreadCount returns the unread badge count
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	count, err := h.service.UnreadCount(c.Request().Context(), userID)
	if err != nil {
		return storeError(err, "Notification")
	}
	return success(c, http.StatusOK, echo.Map{"count": count})
}

// MarkAsRead marks one of the caller's notifications read
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id", "notification")
	if err != nil {
		return err
	}

	if err := h.service.MarkRead(c.Request().Context(), id, userID); err != nil {
		if errors.Is(err, notifications.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Notification not found")
		}
		return storeError(err, "Notification")
	}
	return success(c, http.StatusOK, echo.Map{"id": id, "isRead": true})
}

// MarkAllAsRead marks every unread notification of the caller read
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	updated, err := h.service.MarkAllRead(c.Request().Context(), userID)
	if err != nil {
		return storeError(err, "Notification")
	}
	return success(c, http.StatusOK, echo.Map{"updatedCount": updated})
}
