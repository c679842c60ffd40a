package models

import "time"

// Comment is a node in a post's two-level comment tree. Top-level comments
// have a nil ParentID; replies point at a top-level comment of the same post.
type Comment struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Content   string       `gorm:"type:text;not null" json:"content"`
	AuthorID  uint         `gorm:"not null;index" json:"authorId"`
	Author    *UserSummary `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	PostID    uint         `gorm:"not null;index" json:"postId"`
	Post      *PostSummary `gorm:"foreignKey:PostID" json:"post,omitempty"`
	ParentID  *uint        `gorm:"index" json:"parentId"`
	Replies   []Comment    `gorm:"foreignKey:ParentID" json:"replies,omitempty"`
	ReplyToID *uint        `json:"replyToId"`
	ReplyTo   *UserSummary `gorm:"foreignKey:ReplyToID" json:"replyTo,omitempty"`
	// RepliesCount is not persisted; computed for top-level listings
	RepliesCount int64     `gorm:"->;-:migration" json:"repliesCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsReply reports whether the comment is nested under another comment.
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}
