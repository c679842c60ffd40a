package seed

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/password"
	"forum/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Fixtures is a hand-written dataset, usually loaded from YAML.
type Fixtures struct {
	Users []UserFixture `yaml:"users"`
	Posts []PostFixture `yaml:"posts"`
}

type UserFixture struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	Bio      string `yaml:"bio"`
	Avatar   string `yaml:"avatar"`
}

type PostFixture struct {
	Author   string           `yaml:"author"`
	Title    string           `yaml:"title"`
	Content  string           `yaml:"content"`
	Images   []string         `yaml:"images"`
	LikedBy  []string         `yaml:"likedBy"`
	Comments []CommentFixture `yaml:"comments"`
}

type CommentFixture struct {
	Author  string           `yaml:"author"`
	Content string           `yaml:"content"`
	ReplyTo string           `yaml:"replyTo"`
	Replies []CommentFixture `yaml:"replies"`
}

// LoadFixtures reads and validates a YAML fixture file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes YAML fixtures and checks that every author, liker and
// reply target names a user declared in the same document.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}

	known := make(map[string]bool, len(fx.Users))
	for i, u := range fx.Users {
		if err := validation.ValidateUsername(u.Username); err != nil {
			return nil, fmt.Errorf("users[%d]: %w", i, err)
		}
		if err := validation.ValidateEmail(u.Email); err != nil {
			return nil, fmt.Errorf("users[%d]: %w", i, err)
		}
		if u.Role != "" {
			if err := validation.ValidateRole(u.Role); err != nil {
				return nil, fmt.Errorf("users[%d]: %w", i, err)
			}
		}
		known[u.Username] = true
	}

	check := func(where, username string) error {
		if !known[username] {
			return fmt.Errorf("%s: unknown user %q", where, username)
		}
		return nil
	}
	for i, p := range fx.Posts {
		where := fmt.Sprintf("posts[%d]", i)
		if err := check(where, p.Author); err != nil {
			return nil, err
		}
		for _, liker := range p.LikedBy {
			if err := check(where+".likedBy", liker); err != nil {
				return nil, err
			}
		}
		for j, c := range p.Comments {
			cw := fmt.Sprintf("%s.comments[%d]", where, j)
			if err := check(cw, c.Author); err != nil {
				return nil, err
			}
			for k, r := range c.Replies {
				rw := fmt.Sprintf("%s.replies[%d]", cw, k)
				if len(r.Replies) > 0 {
					return nil, fmt.Errorf("%s: replies cannot be nested more than one level", rw)
				}
				if err := check(rw, r.Author); err != nil {
					return nil, err
				}
				if r.ReplyTo != "" {
					if err := check(rw+".replyTo", r.ReplyTo); err != nil {
						return nil, err
					}
				}
			}
		}
	}
	return &fx, nil
}

// ApplyFixtures inserts fx in one transaction. Users that already exist by
// username are reused rather than recreated.
func ApplyFixtures(db *gorm.DB, fx *Fixtures) (Summary, error) {
	var sum Summary
	err := db.Transaction(func(tx *gorm.DB) error {
		sum = Summary{}
		f := NewFactory(tx, Options{})
		users := make(map[string]*models.User, len(fx.Users))

		for _, uf := range fx.Users {
			var existing models.User
			err := tx.Where("username = ?", uf.Username).First(&existing).Error
			if err == nil {
				users[uf.Username] = &existing
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			plain := uf.Password
			if plain == "" {
				plain = DefaultPassword
			}
			hashed, err := password.Hash(plain)
			if err != nil {
				return err
			}
			role := uf.Role
			if role == "" {
				role = models.RoleUser
			}
			u := &models.User{
				Username: uf.Username,
				Email:    uf.Email,
				Password: hashed,
				Role:     role,
				Bio:      uf.Bio,
				Avatar:   uf.Avatar,
			}
			if err := tx.Create(u).Error; err != nil {
				return fmt.Errorf("create user %s: %w", uf.Username, err)
			}
			users[uf.Username] = u
			sum.Users++
		}

		for _, pf := range fx.Posts {
			post, err := f.CreatePost(users[pf.Author], func(p *models.Post) {
				if pf.Title != "" {
					p.Title = pf.Title
				}
				if pf.Content != "" {
					p.Content = pf.Content
				}
				if pf.Images != nil {
					p.Images = pf.Images
				}
			})
			if err != nil {
				return err
			}
			sum.Posts++

			for _, liker := range pf.LikedBy {
				if err := f.CreateLike(users[liker], post); err != nil {
					return err
				}
				sum.Likes++
			}

			for _, cf := range pf.Comments {
				top, err := f.CreateComment(users[cf.Author], post, withContent(cf.Content))
				if err != nil {
					return err
				}
				sum.Comments++

				for _, rf := range cf.Replies {
					var replyTo uint
					if rf.ReplyTo != "" {
						replyTo = users[rf.ReplyTo].ID
					}
					if _, err := f.CreateReply(users[rf.Author], top, replyTo, withContent(rf.Content)); err != nil {
						return err
					}
					sum.Replies++
				}
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	middleware.Logger.Info("fixtures applied",
		slog.Int("users", sum.Users), slog.Int("posts", sum.Posts),
		slog.Int("comments", sum.Comments), slog.Int("replies", sum.Replies))
	return sum, nil
}

func withContent(content string) func(*models.Comment) {
	return func(c *models.Comment) {
		if content != "" {
			c.Content = content
		}
	}
}
