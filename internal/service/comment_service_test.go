package service

import (
	"context"
	"strings"
	"testing"

	"forum/internal/models"
	"forum/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentService_CreateComment_Validation(t *testing.T) {
	t.Parallel()

	svc := NewCommentService(noopCommentRepo(), noopPostRepo(), noopUserRepo(), nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		content string
	}{
		{"empty content", ""},
		{"whitespace content", "   \n"},
		{"content too long", strings.Repeat("x", 10001)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.CreateComment(ctx, CreateCommentInput{UserID: 1, PostID: 1, Content: tt.content})
			assertValidationError(t, err)
		})
	}

	t.Run("multibyte content at the limit", func(t *testing.T) {
		t.Parallel()
		_, err := svc.CreateComment(ctx, CreateCommentInput{UserID: 1, PostID: 1, Content: strings.Repeat("评", 10000)})
		assert.NoError(t, err)
	})
}

func TestCommentService_CreateComment_References(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("missing post", func(t *testing.T) {
		t.Parallel()
		postRepo := noopPostRepo()
		postRepo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
			return nil, models.NewNotFoundError("Post", id)
		}
		svc := NewCommentService(noopCommentRepo(), postRepo, noopUserRepo(), nil)
		_, err := svc.CreateComment(ctx, CreateCommentInput{UserID: 1, PostID: 99, Content: "hi"})
		assertAppError(t, err, models.CodeNotFound)
	})

	t.Run("missing parent", func(t *testing.T) {
		t.Parallel()
		commentRepo := noopCommentRepo()
		commentRepo.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		svc := NewCommentService(commentRepo, noopPostRepo(), noopUserRepo(), nil)
		_, err := svc.CreateComment(ctx, CreateCommentInput{UserID: 1, PostID: 1, Content: "hi", ParentID: uintPtr(5)})
		assertAppError(t, err, models.CodeNotFound)
	})

	t.Run("parent on another post", func(t *testing.T) {
		t.Parallel()
		commentRepo := noopCommentRepo()
		commentRepo.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id, PostID: 2}, nil
		}
		svc := NewCommentService(commentRepo, noopPostRepo(), noopUserRepo(), nil)
		_, err := svc.CreateComment(ctx, CreateCommentInput{UserID: 1, PostID: 1, Content: "hi", ParentID: uintPtr(5)})
		assertAppError(t, err, models.CodeInvalidParent)
	})

	t.Run("parent is itself a reply", func(t *testing.T) {
		t.Parallel()
		commentRepo := noopCommentRepo()
		commentRepo.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id, PostID: 1, ParentID: uintPtr(3)}, nil
		}
		svc := NewCommentService(commentRepo, noopPostRepo(), noopUserRepo(), nil)
		_, err := svc.CreateComment(ctx, CreateCommentInput{UserID: 1, PostID: 1, Content: "hi", ParentID: uintPtr(5)})
		assertAppError(t, err, models.CodeInvalidParent)
	})

	t.Run("missing reply-to user", func(t *testing.T) {
		t.Parallel()
		userRepo := noopUserRepo()
		userRepo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return nil, models.NewNotFoundError("User", id)
		}
		svc := NewCommentService(noopCommentRepo(), noopPostRepo(), userRepo, nil)
		_, err := svc.CreateComment(ctx, CreateCommentInput{UserID: 1, PostID: 1, Content: "hi", ParentID: uintPtr(5), ReplyToID: uintPtr(77)})
		assertAppError(t, err, models.CodeNotFound)
	})
}

func TestCommentService_CreateComment_Success(t *testing.T) {
	t.Parallel()

	var created *models.Comment
	commentRepo := noopCommentRepo()
	commentRepo.createFn = func(_ context.Context, c *models.Comment) error {
		c.ID = 42
		created = c
		return nil
	}

	svc := NewCommentService(commentRepo, noopPostRepo(), noopUserRepo(), nil)
	comment, err := svc.CreateComment(context.Background(), CreateCommentInput{
		UserID:    3,
		PostID:    1,
		Content:   "hello",
		ParentID:  uintPtr(5),
		ReplyToID: uintPtr(8),
	})
	require.NoError(t, err)
	assert.Equal(t, uint(42), comment.ID)
	require.NotNil(t, created)
	assert.Equal(t, uint(3), created.AuthorID)
	assert.Equal(t, uint(5), *created.ParentID)
	assert.Equal(t, uint(8), *created.ReplyToID)
}

func TestCommentService_UpdateComment_Permissions(t *testing.T) {
	t.Parallel()

	commentRepo := noopCommentRepo()
	commentRepo.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
		return &models.Comment{ID: id, AuthorID: 10, PostID: 1}, nil
	}
	svc := NewCommentService(commentRepo, noopPostRepo(), noopUserRepo(), adminCheck(99))
	ctx := context.Background()

	t.Run("author", func(t *testing.T) {
		t.Parallel()
		updated, err := svc.UpdateComment(ctx, UpdateCommentInput{UserID: 10, CommentID: 1, Content: "new"})
		require.NoError(t, err)
		assert.Equal(t, "new", updated.Content)
	})

	t.Run("admin", func(t *testing.T) {
		t.Parallel()
		_, err := svc.UpdateComment(ctx, UpdateCommentInput{UserID: 99, CommentID: 1, Content: "new"})
		assert.NoError(t, err)
	})

	t.Run("stranger", func(t *testing.T) {
		t.Parallel()
		_, err := svc.UpdateComment(ctx, UpdateCommentInput{UserID: 2, CommentID: 1, Content: "new"})
		assertAppError(t, err, models.CodePermissionDenied)
	})

	t.Run("empty content", func(t *testing.T) {
		t.Parallel()
		_, err := svc.UpdateComment(ctx, UpdateCommentInput{UserID: 10, CommentID: 1})
		assertValidationError(t, err)
	})
}

func TestCommentService_DeleteComment_Permissions(t *testing.T) {
	t.Parallel()

	commentRepo := noopCommentRepo()
	commentRepo.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
		return &models.Comment{ID: id, AuthorID: 10, PostID: 1}, nil
	}
	postRepo := noopPostRepo()
	postRepo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		return &models.Post{ID: id, AuthorID: 20}, nil
	}
	svc := NewCommentService(commentRepo, postRepo, noopUserRepo(), adminCheck(99))
	ctx := context.Background()

	for _, userID := range []uint{10, 20, 99} {
		_, err := svc.DeleteComment(ctx, DeleteCommentInput{UserID: userID, CommentID: 1})
		assert.NoError(t, err, "user %d should be allowed", userID)
	}

	_, err := svc.DeleteComment(ctx, DeleteCommentInput{UserID: 2, CommentID: 1})
	assertAppError(t, err, models.CodePermissionDenied)
}

func TestCommentService_DeleteComment_PropagatesRepoErrors(t *testing.T) {
	t.Parallel()

	commentRepo := noopCommentRepo()
	commentRepo.deleteFn = func(_ context.Context, id uint) error {
		return models.NewHasRepliesError(id)
	}
	svc := NewCommentService(commentRepo, noopPostRepo(), noopUserRepo(), nil)

	_, err := svc.DeleteComment(context.Background(), DeleteCommentInput{UserID: 1, CommentID: 1})
	assertAppError(t, err, models.CodeHasReplies)
}

func TestCommentService_ListDefaults(t *testing.T) {
	t.Parallel()

	var topOpts, replyOpts repository.ListOptions
	commentRepo := noopCommentRepo()
	commentRepo.listTopLevelFn = func(_ context.Context, _ uint, opts repository.ListOptions) ([]models.Comment, int64, error) {
		topOpts = opts
		return []models.Comment{{ID: 1}}, 21, nil
	}
	commentRepo.listRepliesFn = func(_ context.Context, _ uint, opts repository.ListOptions) ([]models.Comment, int64, error) {
		replyOpts = opts
		return nil, 0, nil
	}
	svc := NewCommentService(commentRepo, noopPostRepo(), noopUserRepo(), nil)
	ctx := context.Background()

	page, err := svc.ListComments(ctx, 1, ListInput{})
	require.NoError(t, err)
	assert.Equal(t, repository.ListOptions{Page: 1, Limit: 10, Sort: "createdAt", Order: "desc"}, topOpts)
	assert.Equal(t, int64(21), page.Total)
	assert.Equal(t, 3, page.TotalPages)

	replies, err := svc.ListReplies(ctx, 1, ListInput{})
	require.NoError(t, err)
	assert.Equal(t, "asc", replyOpts.Order)
	assert.NotNil(t, replies.Items)
}

func TestCommentService_ListRepliesMissingComment(t *testing.T) {
	t.Parallel()

	commentRepo := noopCommentRepo()
	commentRepo.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
		return nil, models.NewNotFoundError("Comment", id)
	}
	svc := NewCommentService(commentRepo, noopPostRepo(), noopUserRepo(), nil)

	_, err := svc.ListReplies(context.Background(), 5, ListInput{})
	assertAppError(t, err, models.CodeNotFound)
}
