package seed

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/password"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	r    *rand.Rand
	// synthetic ID counter when running in DryRun mode
	nextID uint

	hashOnce sync.Once
	hash     string
	hashErr  error
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := time.Now().UnixNano()
	gofakeit.Seed(seed)
	return &Factory{
		db:     db,
		opts:   opts,
		r:      rand.New(rand.NewSource(seed)), // #nosec G404: acceptable for seeding
		nextID: 1000,
	}
}

// passwordHash hashes DefaultPassword once per factory.
func (f *Factory) passwordHash() (string, error) {
	f.hashOnce.Do(func() {
		f.hash, f.hashErr = password.Hash(DefaultPassword)
	})
	return f.hash, f.hashErr
}

// createdAt returns a time spread over the last MaxDays days.
func (f *Factory) createdAt() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.r.Intn(maxDays))*24*time.Hour +
		time.Duration(f.r.Intn(24))*time.Hour +
		time.Duration(f.r.Intn(60))*time.Minute
	return time.Now().UTC().Add(-back)
}

// after returns a time between t and now.
func (f *Factory) after(t time.Time) time.Time {
	span := time.Since(t)
	if span <= 0 {
		return t
	}
	return t.Add(time.Duration(f.r.Int63n(int64(span))))
}

func (f *Factory) persist(value any, id *uint) error {
	if f.opts.DryRun {
		f.nextID++
		*id = f.nextID
		return nil
	}
	return f.db.Create(value).Error
}

// BuildUser constructs a sample user without persisting it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) (*models.User, error) {
	hashed, err := f.passwordHash()
	if err != nil {
		return nil, err
	}
	name := strings.ToLower(gofakeit.Username())
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, name)
	if len(name) > 20 {
		name = name[:20]
	}
	username := fmt.Sprintf("%s%d", name, gofakeit.Number(1000, 9999))

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hashed,
		Bio:      gofakeit.Sentence(10),
		Role:     models.RoleUser,
	}
	for _, override := range overrides {
		override(user)
	}
	return user, nil
}

// CreateUser constructs and persists a sample `models.User`.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user, err := f.BuildUser(overrides...)
	if err != nil {
		return nil, err
	}
	if err := f.persist(user, &user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post for user without persisting it. updatedAt
// starts equal to createdAt, as for a post that was never edited.
func (f *Factory) BuildPost(user *models.User, overrides ...func(*models.Post)) *models.Post {
	created := f.createdAt()
	post := &models.Post{
		Title:     strings.TrimSuffix(gofakeit.Sentence(5), "."),
		Content:   gofakeit.Paragraph(1, 3, 8, "\n\n"),
		Images:    []string{},
		AuthorID:  user.ID,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost constructs and persists a sample `models.Post` for the given user.
func (f *Factory) CreatePost(user *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(user, overrides...)
	if err := f.persist(post, &post.ID); err != nil {
		return nil, err
	}
	if f.opts.DryRun {
		middleware.Logger.Debug("dry-run post", slog.Uint64("author_id", uint64(post.AuthorID)), slog.String("title", post.Title))
	}
	return post, nil
}

// CreateComment constructs and persists a top-level comment on post.
func (f *Factory) CreateComment(user *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	created := f.after(post.CreatedAt)
	comment := &models.Comment{
		Content:   gofakeit.Sentence(12),
		AuthorID:  user.ID,
		PostID:    post.ID,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, override := range overrides {
		override(comment)
	}
	if err := f.persist(comment, &comment.ID); err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateReply persists a reply under the top-level comment parent, addressed
// to replyTo when it is non-zero.
func (f *Factory) CreateReply(user *models.User, parent *models.Comment, replyTo uint, overrides ...func(*models.Comment)) (*models.Comment, error) {
	parentID := parent.ID
	link := func(c *models.Comment) {
		c.ParentID = &parentID
		if replyTo != 0 {
			c.ReplyToID = &replyTo
		}
	}
	return f.CreateComment(user, &models.Post{ID: parent.PostID, CreatedAt: parent.CreatedAt}, append([]func(*models.Comment){link}, overrides...)...)
}

// CreateLike persists a like from `user` on `post`.
func (f *Factory) CreateLike(user *models.User, post *models.Post) error {
	if f.opts.DryRun {
		return nil
	}
	return f.db.Create(&models.Like{UserID: user.ID, PostID: post.ID}).Error
}
