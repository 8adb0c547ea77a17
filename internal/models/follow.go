package models

import "time"

// Follow is a directed follower -> following relationship
type Follow struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	FollowerID  uint      `json:"followerId" gorm:"index;uniqueIndex:idx_follower_following"`
	FollowingID uint      `json:"followingId" gorm:"index;uniqueIndex:idx_follower_following"`
	CreatedAt   time.Time `json:"createdAt"`

	Follower  *User `json:"-" gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE"`
	Following *User `json:"-" gorm:"foreignKey:FollowingID;constraint:OnDelete:CASCADE"`
}
