package models

import "time"

// Comment represents a comment on a post. PostID is the hex ObjectID of the
// Mongo post document.
type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    string    `json:"postId" gorm:"size:24;index;not null"`
	AuthorID  uint      `json:"authorId" gorm:"index;not null"`
	ParentID  *uint     `json:"parentId" gorm:"index"`
	Body      string    `json:"body" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Author *User    `json:"-" gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Parent *Comment `json:"-" gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE"`
}

// CommentNode is a comment with its author card and nested replies.
type CommentNode struct {
	Comment
	Author  UserCompact    `json:"author"`
	Replies []*CommentNode `json:"replies"`
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	PostID   string `json:"postId" validate:"required,len=24,hexadecimal"`
	Body     string `json:"body" validate:"required,min=1,max=2000"`
	ParentID *uint  `json:"parentId,omitempty"`
}

// UpdateCommentRequest defines the request body for updating an existing comment
type UpdateCommentRequest struct {
	Body string `json:"body" validate:"required,min=1,max=2000"`
}
