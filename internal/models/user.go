package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type User struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Username       string    `json:"username" gorm:"size:30;uniqueIndex;not null"`
	Email          string    `json:"email" gorm:"uniqueIndex;not null"`
	Password       string    `json:"-"` // bcrypt hash
	Bio            string    `json:"bio" gorm:"default:''"`
	ProfilePicture string    `json:"profilePicture" gorm:"default:''"`
	IsPrivate      bool      `json:"isPrivate" gorm:"default:false"`
	IsAdmin        bool      `json:"isAdmin" gorm:"default:false"`
	FirebaseUID    *string   `json:"-" gorm:"uniqueIndex"` // Link to Firebase User UID
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// UserCompact is the author/actor card embedded in other payloads.
type UserCompact struct {
	ID             uint   `json:"id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture"`
	Bio            string `json:"bio,omitempty"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{
		ID:             u.ID,
		Username:       u.Username,
		ProfilePicture: u.ProfilePicture,
		Bio:            u.Bio,
	}
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Username       *string `json:"username,omitempty" validate:"omitempty,min=3,max=30,alphanum"`
	Email          *string `json:"email,omitempty" validate:"omitempty,email"`
	Bio            *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	ProfilePicture *string `json:"profilePicture,omitempty" validate:"omitempty,url"`
	IsPrivate      *bool   `json:"isPrivate,omitempty"`
}

// UserProfile is the public profile view with relationship counters.
type UserProfile struct {
	User
	PostsCount     int64 `json:"postsCount"`
	FollowersCount int64 `json:"followersCount"`
	FollowingCount int64 `json:"followingCount"`
	IsFollowing    bool  `json:"isFollowing"`
}

// SuggestedUser is a follow suggestion ranked by follower count.
type SuggestedUser struct {
	UserCompact
	FollowersCount int64 `json:"followersCount"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}
