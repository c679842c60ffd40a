// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"forum/internal/middleware"
	"forum/internal/models"

	"gorm.io/gorm"
)

// DefaultPassword is the plain-text password of every generated user.
const DefaultPassword = "password123"

// Options configuration for the seeder
type Options struct {
	NumUsers int
	NumPosts int
	// CommentsPerPost is the maximum number of top-level comments per post.
	CommentsPerPost int
	// RepliesPerComment is the maximum number of replies per top-level comment.
	RepliesPerComment int
	// LikeChance is the probability in [0,1] that a given user likes a given post.
	LikeChance float64
	// MaxDays spreads createdAt over the last MaxDays days.
	MaxDays     int
	ShouldClean bool
	// DryRun builds entities without writing them.
	DryRun bool
}

// DefaultOptions is a small but complete demo dataset.
func DefaultOptions() Options {
	return Options{
		NumUsers:          20,
		NumPosts:          60,
		CommentsPerPost:   5,
		RepliesPerComment: 3,
		LikeChance:        0.2,
		MaxDays:           90,
	}
}

// Summary counts what a seeding run created.
type Summary struct {
	Users    int
	Posts    int
	Comments int
	Replies  int
	Likes    int
}

// Seed populates the database with generated users, posts, comment trees and likes.
func Seed(db *gorm.DB, opts Options) (Summary, error) {
	var sum Summary
	middleware.Logger.Info("seeding database",
		slog.Int("users", opts.NumUsers), slog.Int("posts", opts.NumPosts), slog.Bool("dry_run", opts.DryRun))

	if opts.ShouldClean && !opts.DryRun {
		if err := Clean(db); err != nil {
			middleware.Logger.Warn("could not clear existing data, continuing", slog.String("error", err.Error()))
		}
	}

	f := NewFactory(db, opts)
	// #nosec G404: acceptable for seeding
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return sum, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, u)
	}
	sum.Users = len(users)
	if len(users) == 0 {
		return sum, nil
	}

	for i := 0; i < opts.NumPosts; i++ {
		author := users[r.Intn(len(users))]
		post, err := f.CreatePost(author)
		if err != nil {
			return sum, fmt.Errorf("failed to create post: %w", err)
		}
		sum.Posts++

		c, rp, err := seedCommentTree(f, r, post, users, opts)
		if err != nil {
			return sum, err
		}
		sum.Comments += c
		sum.Replies += rp

		for _, u := range users {
			if r.Float64() >= opts.LikeChance {
				continue
			}
			if err := f.CreateLike(u, post); err != nil {
				return sum, fmt.Errorf("failed to create like: %w", err)
			}
			sum.Likes++
		}
	}

	middleware.Logger.Info("database seeding completed",
		slog.Int("users", sum.Users),
		slog.Int("posts", sum.Posts),
		slog.Int("comments", sum.Comments),
		slog.Int("replies", sum.Replies),
		slog.Int("likes", sum.Likes))
	return sum, nil
}

func seedCommentTree(f *Factory, r *rand.Rand, post *models.Post, users []*models.User, opts Options) (int, int, error) {
	comments, replies := 0, 0
	if opts.CommentsPerPost <= 0 {
		return 0, 0, nil
	}
	for i := r.Intn(opts.CommentsPerPost + 1); i > 0; i-- {
		top, err := f.CreateComment(users[r.Intn(len(users))], post)
		if err != nil {
			return comments, replies, fmt.Errorf("failed to create comment: %w", err)
		}
		comments++

		if opts.RepliesPerComment <= 0 {
			continue
		}
		for j := r.Intn(opts.RepliesPerComment + 1); j > 0; j-- {
			replyTo := top.AuthorID
			if _, err := f.CreateReply(users[r.Intn(len(users))], top, replyTo); err != nil {
				return comments, replies, fmt.Errorf("failed to create reply: %w", err)
			}
			replies++
		}
	}
	return comments, replies, nil
}

// Clean removes all forum rows, children first.
func Clean(db *gorm.DB) error {
	middleware.Logger.Info("clearing existing data")
	return db.Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&models.Like{}, &models.Comment{}, &models.Post{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
