package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"forum/internal/models"
	"forum/internal/repository"
)

const (
	maxTitleLen   = 200
	maxContentLen = 50000
)

type PostService struct {
	postRepo repository.PostRepository
	files    FileStore
	isAdmin  func(ctx context.Context, userID uint) (bool, error)
}

type CreatePostInput struct {
	UserID  uint
	Title   string
	Content string
	Images  []string
}

// UpdatePostInput carries a partial edit; nil fields keep their current value.
type UpdatePostInput struct {
	UserID  uint
	PostID  uint
	Title   *string
	Content *string
	Images  *[]string
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

func NewPostService(
	postRepo repository.PostRepository,
	files FileStore,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *PostService {
	return &PostService{
		postRepo: postRepo,
		files:    files,
		isAdmin:  isAdmin,
	}
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return models.NewValidationError("Title is required").WithParam("title")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return models.NewValidationError("Title too long (max 200 characters)").WithParam("title")
	}
	return nil
}

func validatePostContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return models.NewValidationError("Content is required").WithParam("content")
	}
	if utf8.RuneCountInString(content) > maxContentLen {
		return models.NewValidationError("Content too long (max 50000 characters)").WithParam("content")
	}
	return nil
}

// cleanImages drops blank entries and turns signed URLs back into references.
func (s *PostService) cleanImages(images []string) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		if img = strings.TrimSpace(img); img != "" {
			out = append(out, img)
		}
	}
	if s.files != nil {
		out = s.files.NormalizeAll(out)
	}
	return out
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}
	if err := validatePostContent(in.Content); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:    in.Title,
		Content:  in.Content,
		Images:   s.cleanImages(in.Images),
		AuthorID: in.UserID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// GetPost returns a post and counts the read as a view. The returned post
// already includes that view.
func (s *PostService) GetPost(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id, viewerID)
	if err != nil {
		return nil, err
	}
	if err := s.postRepo.IncrementViews(ctx, id); err != nil {
		return nil, err
	}
	post.Views++
	return post, nil
}

func (s *PostService) ListPosts(ctx context.Context, in ListInput, viewerID uint) (*models.Page[models.Post], error) {
	opts, err := postListRules.options(in)
	if err != nil {
		return nil, err
	}
	posts, total, err := s.postRepo.List(ctx, opts, viewerID)
	if err != nil {
		return nil, err
	}
	return pageOf(posts, total, opts), nil
}

func (s *PostService) ListUserPosts(ctx context.Context, authorID uint, in ListInput, viewerID uint) (*models.Page[models.Post], error) {
	opts, err := postListRules.options(in)
	if err != nil {
		return nil, err
	}
	posts, total, err := s.postRepo.ListByAuthor(ctx, authorID, opts, viewerID)
	if err != nil {
		return nil, err
	}
	return pageOf(posts, total, opts), nil
}

func (s *PostService) ListLikedPosts(ctx context.Context, userID uint, in ListInput) (*models.Page[models.Post], error) {
	opts, err := postListRules.options(in)
	if err != nil {
		return nil, err
	}
	posts, total, err := s.postRepo.ListLiked(ctx, userID, opts)
	if err != nil {
		return nil, err
	}
	return pageOf(posts, total, opts), nil
}

// UpdatePost applies an edit by the post's author or an admin. This is the
// only post write that moves updatedAt.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, post, in.UserID, "You can only update your own posts"); err != nil {
		return nil, err
	}

	if in.Title != nil {
		if err := validateTitle(*in.Title); err != nil {
			return nil, err
		}
		post.Title = *in.Title
	}
	if in.Content != nil {
		if err := validatePostContent(*in.Content); err != nil {
			return nil, err
		}
		post.Content = *in.Content
	}
	if in.Images != nil {
		post.Images = s.cleanImages(*in.Images)
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, in.PostID, in.UserID)
}

// DeletePost removes the post with its comments and likes. Stored images are
// left in place: a reference carries no owner and may be shared by other posts
// or avatars.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, post, in.UserID, "You can only delete your own posts"); err != nil {
		return nil, err
	}

	if err := s.postRepo.Delete(ctx, in.PostID); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) authorize(ctx context.Context, post *models.Post, userID uint, denied string) error {
	if post.AuthorID == userID {
		return nil
	}
	if s.isAdmin != nil {
		admin, err := s.isAdmin(ctx, userID)
		if err != nil {
			return err
		}
		if admin {
			return nil
		}
	}
	return models.NewPermissionDeniedError(denied)
}

func (s *PostService) LikePost(ctx context.Context, userID, postID uint) error {
	if _, err := s.postRepo.GetByID(ctx, postID, userID); err != nil {
		return err
	}
	return s.postRepo.Like(ctx, userID, postID)
}

func (s *PostService) UnlikePost(ctx context.Context, userID, postID uint) error {
	if _, err := s.postRepo.GetByID(ctx, postID, userID); err != nil {
		return err
	}
	return s.postRepo.Unlike(ctx, userID, postID)
}
