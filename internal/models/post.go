package models

import "time"

// Post represents a forum post.
type Post struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Title   string `gorm:"size:200;not null" json:"title"`
	Content string `gorm:"type:text;not null" json:"content"`
	// Images holds storage references; they are resolved to signed URLs on the way out.
	Images   []string     `gorm:"serializer:json;type:text" json:"images"`
	Views    int64        `gorm:"not null;default:0" json:"views"`
	AuthorID uint         `gorm:"not null;index" json:"authorId"`
	Author   *UserSummary `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int64 `gorm:"->;-:migration" json:"commentsCount"`
	// LikesCount is not persisted; computed at query time
	LikesCount int64 `gorm:"->;-:migration" json:"likesCount"`
	// Liked indicates whether the requesting user liked this post (computed)
	Liked     bool      `gorm:"->;-:migration" json:"isLiked"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PostSummary is the post projection attached to a user's comment listing.
type PostSummary struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

// TableName maps PostSummary onto the posts table so it can be preloaded.
func (PostSummary) TableName() string { return "posts" }
