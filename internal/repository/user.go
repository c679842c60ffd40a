package repository

import (
	"context"
	"errors"
	"strings"

	"forum/internal/cache"
	"forum/internal/database"
	"forum/internal/models"
	"forum/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id uint, changes ProfileChanges) (*models.User, error)
	UpdateRole(ctx context.Context, id uint, role string) (*models.User, error)
	List(ctx context.Context, opts ListOptions) ([]models.User, int64, error)
	CountActivity(ctx context.Context, id uint) (posts int64, comments int64, err error)
}

// ProfileChanges lists the profile columns to overwrite; nil fields are left as is.
type ProfileChanges struct {
	Username *string
	Bio      *string
	Avatar   *string
}

var userSortColumns = map[string]string{
	"createdAt": "users.created_at",
	"username":  "users.username",
}

type userRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, metrics: observability.NewDatabaseMetrics("users")}
}

// GetByID is cache-aside. The cached copy never carries the password hash.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	defer r.metrics.TrackQuery("get")()

	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
			return notFoundOr(err, "User", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return &user, nil
}

// GetByEmail returns nil, nil when no user has the email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	defer r.metrics.TrackQuery("get_by_email")()

	var user models.User
	if err := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByUsername returns nil, nil when no user has the username.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	defer r.metrics.TrackQuery("get_by_username")()

	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer r.metrics.TrackQuery("create")()

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("Username or email already registered")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id uint, changes ProfileChanges) (*models.User, error) {
	defer r.metrics.TrackQuery("update_profile")()

	updates := map[string]interface{}{}
	if changes.Username != nil {
		updates["username"] = *changes.Username
	}
	if changes.Bio != nil {
		updates["bio"] = *changes.Bio
	}
	if changes.Avatar != nil {
		updates["avatar"] = *changes.Avatar
	}

	if len(updates) > 0 {
		res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			if isUniqueViolation(res.Error) {
				return nil, models.NewConflictError("Username already taken").WithParam("username")
			}
			return nil, models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, models.NewNotFoundError("User", id)
		}
		cache.InvalidateUser(ctx, id)
	}

	return r.reload(ctx, id)
}

func (r *userRepository) UpdateRole(ctx context.Context, id uint, role string) (*models.User, error) {
	defer r.metrics.TrackQuery("update_role")()

	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return nil, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("User", id)
	}
	cache.InvalidateUser(ctx, id)
	return r.reload(ctx, id)
}

func (r *userRepository) reload(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := database.Primary(ctx, r.db).First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "User", id)
	}
	user.Password = ""
	return &user, nil
}

// List pages users, matching Query case-insensitively against username and email.
func (r *userRepository) List(ctx context.Context, opts ListOptions) ([]models.User, int64, error) {
	defer r.metrics.TrackQuery("list")()

	base := r.db.WithContext(ctx).Model(&models.User{})
	if opts.Query != "" {
		pattern := likePattern(opts.Query)
		base = base.Where(`(LOWER(users.username) LIKE ? ESCAPE '\' OR LOWER(users.email) LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	users := make([]models.User, 0, opts.Limit)
	err := base.Session(&gorm.Session{}).
		Order(opts.orderBy("users", userSortColumns)).
		Limit(opts.Limit).
		Offset(opts.Offset()).
		Find(&users).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return users, total, nil
}

func (r *userRepository) CountActivity(ctx context.Context, id uint) (int64, int64, error) {
	defer r.metrics.TrackQuery("count_activity")()

	var posts, comments int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("author_id = ?", id).Count(&posts).Error; err != nil {
		return 0, 0, models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("author_id = ?", id).Count(&comments).Error; err != nil {
		return 0, 0, models.NewInternalError(err)
	}
	return posts, comments, nil
}
