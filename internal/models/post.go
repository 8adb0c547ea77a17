package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post represents a blog post stored in MongoDB
type Post struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	AuthorID      uint               `json:"authorId" bson:"author_id"`
	Title         string             `json:"title" bson:"title"`
	Body          string             `json:"body" bson:"body"`
	Tags          []string           `json:"tags" bson:"tags"`
	Image         string             `json:"image,omitempty" bson:"image,omitempty"`
	IsDraft       bool               `json:"isDraft" bson:"is_draft"`
	LikesCount    int                `json:"likesCount" bson:"likes_count"`
	CommentsCount int                `json:"commentsCount" bson:"comments_count"`
	CreatedAt     time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updated_at"`
}

// PostFilter narrows post listings. Zero values mean "no constraint".
type PostFilter struct {
	AuthorID      uint
	AuthorIDs     []uint
	Tag           string
	Search        string
	IncludeDrafts bool
	DraftsOnly    bool
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Title   string   `json:"title" validate:"required,min=1,max=200"`
	Body    string   `json:"body" validate:"required,min=1"`
	Tags    []string `json:"tags,omitempty" validate:"omitempty,max=10,dive,min=1,max=30"`
	Image   string   `json:"image,omitempty" validate:"omitempty,url"`
	IsDraft bool     `json:"isDraft"`
}

// UpdatePostRequest defines the request body for updating an existing post
type UpdatePostRequest struct {
	Title   *string  `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Body    *string  `json:"body,omitempty" validate:"omitempty,min=1"`
	Tags    []string `json:"tags,omitempty" validate:"omitempty,max=10,dive,min=1,max=30"`
	Image   *string  `json:"image,omitempty" validate:"omitempty,url"`
	IsDraft *bool    `json:"isDraft,omitempty"`
}
