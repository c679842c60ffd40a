package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"forum/internal/models"
	"forum/internal/repository"
)

const maxCommentLen = 10000

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
	isAdmin     func(ctx context.Context, userID uint) (bool, error)
}

type CreateCommentInput struct {
	UserID    uint
	PostID    uint
	Content   string
	ParentID  *uint
	ReplyToID *uint
}

type UpdateCommentInput struct {
	UserID    uint
	CommentID uint
	Content   string
}

type DeleteCommentInput struct {
	UserID    uint
	CommentID uint
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		userRepo:    userRepo,
		isAdmin:     isAdmin,
	}
}

func validateCommentContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return models.NewValidationError("Content is required").WithParam("content")
	}
	if utf8.RuneCountInString(content) > maxCommentLen {
		return models.NewValidationError("Comment too long (max 10000 characters)").WithParam("content")
	}
	return nil
}

// CreateComment adds a top-level comment or, with ParentID, a reply. Replies
// must target a top-level comment of the same post.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if err := validateCommentContent(in.Content); err != nil {
		return nil, err
	}

	if _, err := s.postRepo.GetByID(ctx, in.PostID, 0); err != nil {
		return nil, err
	}

	if in.ParentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != in.PostID {
			return nil, models.NewInvalidParentError("Parent comment belongs to a different post")
		}
		if parent.IsReply() {
			return nil, models.NewInvalidParentError("Replies cannot be nested more than one level")
		}
	}

	if in.ReplyToID != nil {
		if _, err := s.userRepo.GetByID(ctx, *in.ReplyToID); err != nil {
			return nil, err
		}
	}

	comment := &models.Comment{
		Content:   in.Content,
		AuthorID:  in.UserID,
		PostID:    in.PostID,
		ParentID:  in.ParentID,
		ReplyToID: in.ReplyToID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// UpdateComment rewrites a comment's content. Only its author or an admin may do so.
func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	if err := validateCommentContent(in.Content); err != nil {
		return nil, err
	}

	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}

	if comment.AuthorID != in.UserID {
		admin, err := s.callerIsAdmin(ctx, in.UserID)
		if err != nil {
			return nil, err
		}
		if !admin {
			return nil, models.NewPermissionDeniedError("You can only update your own comments")
		}
	}

	return s.commentRepo.UpdateContent(ctx, in.CommentID, in.Content)
}

// DeleteComment removes a leaf comment. The comment's author, the post's
// author and admins may delete; comments with replies cannot be deleted.
func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}

	if comment.AuthorID != in.UserID {
		allowed, err := s.ownsPostOrIsAdmin(ctx, comment.PostID, in.UserID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, models.NewPermissionDeniedError("You can only delete your own comments")
		}
	}

	if err := s.commentRepo.Delete(ctx, in.CommentID); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) ownsPostOrIsAdmin(ctx context.Context, postID, userID uint) (bool, error) {
	post, err := s.postRepo.GetByID(ctx, postID, 0)
	if err != nil {
		return false, err
	}
	if post.AuthorID == userID {
		return true, nil
	}
	return s.callerIsAdmin(ctx, userID)
}

func (s *CommentService) callerIsAdmin(ctx context.Context, userID uint) (bool, error) {
	if s.isAdmin == nil {
		return false, nil
	}
	return s.isAdmin(ctx, userID)
}

// ListComments pages a post's top-level comments, each with its replies oldest first.
func (s *CommentService) ListComments(ctx context.Context, postID uint, in ListInput) (*models.Page[models.Comment], error) {
	opts, err := commentListRules.options(in)
	if err != nil {
		return nil, err
	}
	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return nil, err
	}

	comments, total, err := s.commentRepo.ListTopLevel(ctx, postID, opts)
	if err != nil {
		return nil, err
	}
	return pageOf(comments, total, opts), nil
}

// ListReplies pages the replies of one comment, oldest first unless asked otherwise.
func (s *CommentService) ListReplies(ctx context.Context, commentID uint, in ListInput) (*models.Page[models.Comment], error) {
	opts, err := replyListRules.options(in)
	if err != nil {
		return nil, err
	}
	if _, err := s.commentRepo.GetByID(ctx, commentID); err != nil {
		return nil, err
	}

	replies, total, err := s.commentRepo.ListReplies(ctx, commentID, opts)
	if err != nil {
		return nil, err
	}
	return pageOf(replies, total, opts), nil
}

func (s *CommentService) ListUserComments(ctx context.Context, userID uint, in ListInput) (*models.Page[models.Comment], error) {
	opts, err := commentListRules.options(in)
	if err != nil {
		return nil, err
	}

	comments, total, err := s.commentRepo.ListByAuthor(ctx, userID, opts)
	if err != nil {
		return nil, err
	}
	return pageOf(comments, total, opts), nil
}
