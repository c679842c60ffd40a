package repository

import (
	"context"
	"time"

	"forum/internal/database"
	"forum/internal/models"
	"forum/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository persists the two-level comment tree. Every mutation runs
// in one transaction that restores the owning post's updated_at.
type CommentRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	Create(ctx context.Context, comment *models.Comment) error
	UpdateContent(ctx context.Context, id uint, content string) (*models.Comment, error)
	Delete(ctx context.Context, id uint) error
	CountReplies(ctx context.Context, id uint) (int64, error)
	ListTopLevel(ctx context.Context, postID uint, opts ListOptions) ([]models.Comment, int64, error)
	ListReplies(ctx context.Context, parentID uint, opts ListOptions) ([]models.Comment, int64, error)
	ListByAuthor(ctx context.Context, authorID uint, opts ListOptions) ([]models.Comment, int64, error)
}

var commentSortColumns = map[string]string{
	"createdAt": "comments.created_at",
	"updatedAt": "comments.updated_at",
}

type commentRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, metrics: observability.NewDatabaseMetrics("comments")}
}

// preservingPostUpdatedAt locks the post row, runs fn, then writes the saved
// updated_at back with UpdateColumn so neither hooks nor auto-timestamps fire.
func (r *commentRepository) preservingPostUpdatedAt(ctx context.Context, postID uint, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var saved struct{ UpdatedAt time.Time }
		err := tx.Model(&models.Post{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("updated_at").
			Where("id = ?", postID).
			Take(&saved).Error
		if err != nil {
			return notFoundOr(err, "Post", postID)
		}

		if err := fn(tx); err != nil {
			return err
		}

		return tx.Model(&models.Post{}).
			Where("id = ?", postID).
			UpdateColumn("updated_at", saved.UpdatedAt).Error
	})
}

func (r *commentRepository) withAuthors(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("ReplyTo")
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	defer r.metrics.TrackQuery("get")()

	var comment models.Comment
	if err := r.withAuthors(r.db.WithContext(ctx)).First(&comment, id).Error; err != nil {
		return nil, notFoundOr(err, "Comment", id)
	}
	return &comment, nil
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	defer r.metrics.TrackQuery("create")()
	ctx, span := observability.StartRepositorySpan(ctx, "CreateComment", "comments")

	err := r.preservingPostUpdatedAt(ctx, comment.PostID, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(comment).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	observability.EndSpan(span, err)
	if err != nil {
		return err
	}

	observability.CommentMutations.WithLabelValues("create").Inc()
	return r.withAuthors(database.Primary(ctx, r.db)).First(comment, comment.ID).Error
}

func (r *commentRepository) UpdateContent(ctx context.Context, id uint, content string) (*models.Comment, error) {
	defer r.metrics.TrackQuery("update")()

	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartRepositorySpan(ctx, "UpdateComment", "comments")
	err = r.preservingPostUpdatedAt(ctx, existing.PostID, func(tx *gorm.DB) error {
		res := tx.Model(&models.Comment{}).Where("id = ?", id).Updates(map[string]interface{}{"content": content})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Comment", id)
		}
		return nil
	})
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	observability.CommentMutations.WithLabelValues("update").Inc()
	var updated models.Comment
	if err := r.withAuthors(database.Primary(ctx, r.db)).First(&updated, id).Error; err != nil {
		return nil, notFoundOr(err, "Comment", id)
	}
	return &updated, nil
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	defer r.metrics.TrackQuery("delete")()

	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	ctx, span := observability.StartRepositorySpan(ctx, "DeleteComment", "comments")
	err = r.preservingPostUpdatedAt(ctx, existing.PostID, func(tx *gorm.DB) error {
		var replies int64
		if err := tx.Model(&models.Comment{}).Where("parent_id = ?", id).Count(&replies).Error; err != nil {
			return models.NewInternalError(err)
		}
		if replies > 0 {
			return models.NewHasRepliesError(id)
		}

		res := tx.Delete(&models.Comment{}, id)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Comment", id)
		}
		return nil
	})
	observability.EndSpan(span, err)
	if err != nil {
		return err
	}

	observability.CommentMutations.WithLabelValues("delete").Inc()
	return nil
}

func (r *commentRepository) CountReplies(ctx context.Context, id uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("parent_id = ?", id).Count(&n).Error
	return n, err
}

// ListTopLevel pages a post's parentless comments. Each carries all of its
// replies oldest first, whatever order the top level uses.
func (r *commentRepository) ListTopLevel(ctx context.Context, postID uint, opts ListOptions) ([]models.Comment, int64, error) {
	defer r.metrics.TrackQuery("list_top_level")()

	base := r.db.WithContext(ctx).Model(&models.Comment{}).Where("comments.post_id = ? AND comments.parent_id IS NULL", postID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	comments := make([]models.Comment, 0, opts.Limit)
	err := r.withAuthors(base.Session(&gorm.Session{})).
		Select("comments.*, (SELECT COUNT(*) FROM comments AS r WHERE r.parent_id = comments.id) AS replies_count").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at ASC, comments.id ASC")
		}).
		Preload("Replies.Author").
		Preload("Replies.ReplyTo").
		Order(opts.orderBy("comments", commentSortColumns)).
		Limit(opts.Limit).
		Offset(opts.Offset()).
		Find(&comments).Error
	if err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

func (r *commentRepository) ListReplies(ctx context.Context, parentID uint, opts ListOptions) ([]models.Comment, int64, error) {
	defer r.metrics.TrackQuery("list_replies")()

	base := r.db.WithContext(ctx).Model(&models.Comment{}).Where("comments.parent_id = ?", parentID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	replies := make([]models.Comment, 0, opts.Limit)
	err := r.withAuthors(base.Session(&gorm.Session{})).
		Order(opts.orderBy("comments", commentSortColumns)).
		Limit(opts.Limit).
		Offset(opts.Offset()).
		Find(&replies).Error
	if err != nil {
		return nil, 0, err
	}
	return replies, total, nil
}

func (r *commentRepository) ListByAuthor(ctx context.Context, authorID uint, opts ListOptions) ([]models.Comment, int64, error) {
	defer r.metrics.TrackQuery("list_by_author")()

	base := r.db.WithContext(ctx).Model(&models.Comment{}).Where("comments.author_id = ?", authorID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	comments := make([]models.Comment, 0, opts.Limit)
	err := r.withAuthors(base.Session(&gorm.Session{})).
		Preload("Post").
		Order(opts.orderBy("comments", commentSortColumns)).
		Limit(opts.Limit).
		Offset(opts.Offset()).
		Find(&comments).Error
	if err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}
