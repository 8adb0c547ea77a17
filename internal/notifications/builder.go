// Package notifications turns user actions into persisted notifications,
// pushes them live, and serves the read side for the inbox.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anonto42/inkpress/backend/internal/models"
	"github.com/anonto42/inkpress/backend/internal/repositories"
	"github.com/anonto42/inkpress/backend/pkg/metrics"
	"github.com/go-playground/validator/v10"
)

// PushEvent names the live event carrying a new notification.
const PushEvent = "new-notification"

// ErrInvalidEvent is returned for events rejected before persistence.
var ErrInvalidEvent = errors.New("invalid notification event")

// Publisher delivers a payload to a user's live connections and reports how
// many received it.
type Publisher interface {
	Publish(userID uint, payload []byte) int
}

// Notifier is the producer-facing side of the Builder.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// Event is one user action that should notify another user.
type Event struct {
	RecipientID uint                    `json:"recipientId" validate:"required"`
	SenderID    uint                    `json:"senderId" validate:"required"`
	Kind        models.NotificationKind `json:"kind" validate:"required,oneof=like comment follow"`
	PostID      *string                 `json:"postId,omitempty" validate:"omitempty,len=24,hexadecimal"`
	CommentID   *uint                   `json:"commentId,omitempty" validate:"omitempty,gt=0"`
	Message     string                  `json:"message" validate:"required,max=500"`
}

// Push is the envelope written to live connections.
type Push struct {
	Event string               `json:"event"`
	Data  *models.Notification `json:"data"`
}

// Builder validates events, persists them and publishes the stored record.
type Builder struct {
	repo      repositories.NotificationRepository
	publisher Publisher
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewBuilder creates a Builder. A nil publisher disables live delivery.
func NewBuilder(repo repositories.NotificationRepository, publisher Publisher, logger *slog.Logger) *Builder {
	return &Builder{
		repo:      repo,
		publisher: publisher,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
}

func (b *Builder) check(ev Event) error {
	if err := b.validate.Struct(ev); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fe.Field() + ":" + fe.Tag()
			}
			return fmt.Errorf("%w: %s", ErrInvalidEvent, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if ev.RecipientID == ev.SenderID {
		return fmt.Errorf("%w: sender is the recipient", ErrInvalidEvent)
	}

	switch ev.Kind {
	case models.KindFollow:
		if ev.PostID != nil || ev.CommentID != nil {
			return fmt.Errorf("%w: follow carries no post or comment", ErrInvalidEvent)
		}
	case models.KindLike:
		if ev.PostID == nil || ev.CommentID != nil {
			return fmt.Errorf("%w: like needs a post and no comment", ErrInvalidEvent)
		}
	case models.KindComment:
		if ev.PostID == nil || ev.CommentID == nil {
			return fmt.Errorf("%w: comment needs a post and a comment", ErrInvalidEvent)
		}
	}
	return nil
}

// Create persists ev and, once the insert has committed, publishes the
// stored notification to the recipient. The publish outcome does not
// affect the result.
func (b *Builder) Create(ctx context.Context, ev Event) (*models.Notification, error) {
	if err := b.check(ev); err != nil {
		metrics.NotificationFailures.WithLabelValues("validate").Inc()
		return nil, err
	}

	n := &models.Notification{
		RecipientID: ev.RecipientID,
		SenderID:    ev.SenderID,
		Kind:        ev.Kind,
		PostID:      ev.PostID,
		CommentID:   ev.CommentID,
		Message:     ev.Message,
	}
	if err := b.repo.Create(ctx, n); err != nil {
		metrics.NotificationFailures.WithLabelValues("persist").Inc()
		return nil, fmt.Errorf("create %s notification: %w", ev.Kind, err)
	}
	metrics.NotificationsCreated.WithLabelValues(string(ev.Kind)).Inc()

	_ = b.publish(n)
	return n, nil
}

func (b *Builder) publish(n *models.Notification) int {
	if b.publisher == nil {
		return 0
	}
	payload, err := json.Marshal(Push{Event: PushEvent, Data: n})
	if err != nil {
		b.logger.Error("encode notification push", "notification_id", n.ID, "error", err)
		return 0
	}
	return b.publisher.Publish(n.RecipientID, payload)
}

// Notify is Create for producers: self-actions are skipped and failures are
// logged, never returned.
func (b *Builder) Notify(ctx context.Context, ev Event) {
	if ev.SenderID == ev.RecipientID {
		return
	}
	if _, err := b.Create(ctx, ev); err != nil {
		b.logger.Warn("notification not created",
			"kind", ev.Kind,
			"recipient_id", ev.RecipientID,
			"sender_id", ev.SenderID,
			"error", err,
		)
	}
}
