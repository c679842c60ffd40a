package repository

import (
	"context"

	"forum/internal/database"
	"forum/internal/models"
	"forum/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	List(ctx context.Context, opts ListOptions, viewerID uint) ([]models.Post, int64, error)
	ListByAuthor(ctx context.Context, authorID uint, opts ListOptions, viewerID uint) ([]models.Post, int64, error)
	ListLiked(ctx context.Context, userID uint, opts ListOptions) ([]models.Post, int64, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	IncrementViews(ctx context.Context, id uint) error
	Like(ctx context.Context, userID, postID uint) error
	Unlike(ctx context.Context, userID, postID uint) error
}

var postSortColumns = map[string]string{
	"createdAt":     "posts.created_at",
	"updatedAt":     "posts.updated_at",
	"views":         "posts.views",
	"title":         "posts.title",
	"likesCount":    "likes_count",
	"commentsCount": "comments_count",
}

const postDetailsSelect = `posts.*,
	(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count,
	(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS likes_count,
	EXISTS (SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) AS liked`

// postRepository implements PostRepository
type postRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, metrics: observability.NewDatabaseMetrics("posts")}
}

// withDetails adds the derived counters, the viewer's like flag and the author summary.
func (r *postRepository) withDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	return db.Select(postDetailsSelect, viewerID).Preload("Author")
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer r.metrics.TrackQuery("create")()

	if post.Images == nil {
		post.Images = []string{}
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return r.withDetails(database.Primary(ctx, r.db).Model(&models.Post{}), post.AuthorID).First(post, post.ID).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	defer r.metrics.TrackQuery("get")()

	var post models.Post
	if err := r.withDetails(r.db.WithContext(ctx).Model(&models.Post{}), viewerID).First(&post, id).Error; err != nil {
		return nil, notFoundOr(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) list(ctx context.Context, base *gorm.DB, opts ListOptions, viewerID uint) ([]models.Post, int64, error) {
	if opts.Query != "" {
		pattern := likePattern(opts.Query)
		base = base.Where(`(LOWER(posts.title) LIKE ? ESCAPE '\' OR LOWER(posts.content) LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	posts := make([]models.Post, 0, opts.Limit)
	err := r.withDetails(base.Session(&gorm.Session{}), viewerID).
		Order(opts.orderBy("posts", postSortColumns)).
		Limit(opts.Limit).
		Offset(opts.Offset()).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *postRepository) List(ctx context.Context, opts ListOptions, viewerID uint) ([]models.Post, int64, error) {
	defer r.metrics.TrackQuery("list")()
	return r.list(ctx, r.db.WithContext(ctx).Model(&models.Post{}), opts, viewerID)
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID uint, opts ListOptions, viewerID uint) ([]models.Post, int64, error) {
	defer r.metrics.TrackQuery("list_by_author")()
	base := r.db.WithContext(ctx).Model(&models.Post{}).Where("posts.author_id = ?", authorID)
	return r.list(ctx, base, opts, viewerID)
}

func (r *postRepository) ListLiked(ctx context.Context, userID uint, opts ListOptions) ([]models.Post, int64, error) {
	defer r.metrics.TrackQuery("list_liked")()
	base := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("posts.id IN (?)", r.db.Model(&models.Like{}).Select("post_id").Where("user_id = ?", userID))
	return r.list(ctx, base, opts, userID)
}

// Update writes title, content and images. It is the only post write that moves updated_at.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	defer r.metrics.TrackQuery("update")()

	if post.Images == nil {
		post.Images = []string{}
	}
	res := r.db.WithContext(ctx).Model(post).
		Select("title", "content", "images", "updated_at").
		Updates(post)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	return nil
}

// Delete removes the post together with its comments and likes.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	defer r.metrics.TrackQuery("delete")()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ? AND parent_id IS NOT NULL", id).Delete(&models.Comment{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
}

// IncrementViews bumps the view counter without touching updated_at.
func (r *postRepository) IncrementViews(ctx context.Context, id uint) error {
	defer r.metrics.TrackQuery("increment_views")()

	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

// Like records a like; a repeat like of the same pair is a Conflict.
func (r *postRepository) Like(ctx context.Context, userID, postID uint) error {
	defer r.metrics.TrackQuery("like")()

	err := r.db.WithContext(ctx).Create(&models.Like{UserID: userID, PostID: postID}).Error
	if isUniqueViolation(err) {
		return models.NewConflictError("Post already liked")
	}
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Unlike removes a like; removing one that does not exist is NotLiked.
func (r *postRepository) Unlike(ctx context.Context, userID, postID uint) error {
	defer r.metrics.TrackQuery("unlike")()

	res := r.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Like{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotLikedError(postID)
	}
	return nil
}
