package models

import "time"

// NotificationKind is the closed set of actions that notify another user.
type NotificationKind string

const (
	KindLike    NotificationKind = "like"
	KindComment NotificationKind = "comment"
	KindFollow  NotificationKind = "follow"
)

// Valid reports whether k is a recognized kind.
func (k NotificationKind) Valid() bool {
	switch k {
	case KindLike, KindComment, KindFollow:
		return true
	}
	return false
}

// Notification is the persisted record of one user's action affecting
// another. Message is rendered once at creation and never regenerated.
// IsRead only ever flips from false to true.
type Notification struct {
	ID          uint             `json:"id" gorm:"primaryKey"`
	RecipientID uint             `json:"recipientId" gorm:"not null;index:idx_notifications_recipient_created,priority:1"`
	SenderID    uint             `json:"senderId" gorm:"not null;index"`
	Kind        NotificationKind `json:"kind" gorm:"column:type;size:20;not null"`
	PostID      *string          `json:"postId" gorm:"size:24;index"`
	CommentID   *uint            `json:"commentId" gorm:"index"`
	Message     string           `json:"message" gorm:"type:text;not null"`
	IsRead      bool             `json:"isRead" gorm:"not null;default:false;index"`
	CreatedAt   time.Time        `json:"createdAt" gorm:"index:idx_notifications_recipient_created,priority:2"`

	Recipient *User    `json:"-" gorm:"foreignKey:RecipientID;constraint:OnDelete:CASCADE"`
	Sender    *User    `json:"-" gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE"`
	Comment   *Comment `json:"-" gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE"`
}

// NotificationView is a notification with the sender's card joined in.
type NotificationView struct {
	Notification
	SenderUsername       string `json:"senderUsername"`
	SenderProfilePicture string `json:"senderProfilePicture"`
}
