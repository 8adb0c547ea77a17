package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/anonto42/inkpress/backend/internal/middleware"
	"github.com/anonto42/inkpress/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// currentUserID returns the authenticated user id or a 401.
func currentUserID(c echo.Context) (uint, error) {
	id := middleware.UserIDFromContext(c)
	if id == 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return id, nil
}

func parseIDParam(c echo.Context, name, what string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+what+" ID")
	}
	return uint(id), nil
}

// pagination reads page and limit query parameters.
func pagination(c echo.Context, defaultLimit int) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func paginationMeta(page, limit int, total int64) echo.Map {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return echo.Map{
		"currentPage":     page,
		"totalPages":      totalPages,
		"totalItems":      total,
		"itemsPerPage":    limit,
		"hasNextPage":     page < totalPages,
		"hasPreviousPage": page > 1,
	}
}

func success(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}

// storeError maps repository errors onto HTTP errors.
func storeError(err error, what string) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, what+" not found")
	case errors.Is(err, repositories.ErrInvalidPostID):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	case errors.Is(err, repositories.ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, what+" already exists")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").SetInternal(err)
}

// HealthCheck reports liveness.
func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "inkpress-api",
	})
}

// actorName is the current username of id for rendering notification text.
func actorName(c echo.Context, users repositories.UserRepository, id uint) string {
	if u, err := users.GetUserByID(c.Request().Context(), id); err == nil {
		return u.Username
	}
	if claims := middleware.ClaimsFromContext(c); claims != nil && claims.Username != "" {
		return claims.Username
	}
	return "Someone"
}
