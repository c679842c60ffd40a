// Package models contains data structures for the forum's domain models.
package models

import "time"

// Role values for User.Role.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents a registered forum member.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:30;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;size:254;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Avatar    string    `json:"avatar"`
	Bio       string    `gorm:"type:text" json:"bio"`
	Role      string    `gorm:"size:16;not null;default:USER" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// PostsCount and CommentsCount are computed for public profiles.
	PostsCount    int64 `gorm:"-" json:"postsCount,omitempty"`
	CommentsCount int64 `gorm:"-" json:"commentsCount,omitempty"`
}

// IsAdmin reports whether the user has the ADMIN role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserSummary is the author/reply-to projection embedded in posts and comments.
type UserSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// TableName maps UserSummary onto the users table so it can be preloaded.
func (UserSummary) TableName() string { return "users" }
