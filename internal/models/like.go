package models

import "time"

// Like records that a user liked a post. The (UserID, PostID) primary key
// makes a second like of the same pair a unique violation.
type Like struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	PostID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
}
