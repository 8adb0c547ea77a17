package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/inkpress/backend/internal/models"
	"github.com/anonto42/inkpress/backend/internal/repositories"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

// ErrNotFound covers both a missing notification and one owned by someone else.
var ErrNotFound = errors.New("notification not found")

// Page is one page of a user's inbox.
type Page struct {
	Items    []models.NotificationView `json:"notifications"`
	Page     int                       `json:"page"`
	PageSize int                       `json:"pageSize"`
	Total    int64                     `json:"total"`
	Unread   int64                     `json:"unreadCount"`
}

// TotalPages is the page count for Total at PageSize.
func (p *Page) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// Service is the read and acknowledge side of notifications.
type Service struct {
	repo repositories.NotificationRepository
}

func NewService(repo repositories.NotificationRepository) *Service {
	return &Service{repo: repo}
}

// NormalizePage applies defaults and the page size cap.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// List returns userID's notifications newest first.
func (s *Service) List(ctx context.Context, userID uint, page, pageSize int) (*Page, error) {
	page, pageSize = NormalizePage(page, pageSize)

	items, err := s.repo.ListByRecipient(ctx, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountByRecipient(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count unread notifications: %w", err)
	}

	return &Page{Items: items, Page: page, PageSize: pageSize, Total: total, Unread: unread}, nil
}

// MarkRead marks one of userID's notifications read. Marking an already
// read notification succeeds.
func (s *Service) MarkRead(ctx context.Context, id, userID uint) error {
	err := s.repo.MarkRead(ctx, id, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// MarkAllRead marks every unread notification of userID and returns how many
// changed.
func (s *Service) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *Service) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}
