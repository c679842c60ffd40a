package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"forum/internal/models"
	"forum/internal/repository"
	"forum/internal/storage"
	"forum/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostService_CreatePost_Validation(t *testing.T) {
	t.Parallel()

	svc := NewPostService(noopPostRepo(), &fileStoreStub{}, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreatePostInput
	}{
		{"empty title", CreatePostInput{UserID: 1, Content: "body"}},
		{"title too long", CreatePostInput{UserID: 1, Title: strings.Repeat("t", 201), Content: "body"}},
		{"empty content", CreatePostInput{UserID: 1, Title: "title"}},
		{"content too long", CreatePostInput{UserID: 1, Title: "title", Content: strings.Repeat("c", 50001)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.CreatePost(ctx, tt.input)
			assertValidationError(t, err)
		})
	}
}

func TestPostService_CreatePost_NormalizesImages(t *testing.T) {
	t.Parallel()

	var saved *models.Post
	postRepo := noopPostRepo()
	postRepo.createFn = func(_ context.Context, p *models.Post) error {
		p.ID = 7
		saved = p
		return nil
	}
	svc := NewPostService(postRepo, &fileStoreStub{}, nil)

	post, err := svc.CreatePost(context.Background(), CreatePostInput{
		UserID:  1,
		Title:   "Photos",
		Content: "look",
		Images:  []string{"https://signed.example.com/oss:forum:a.png", " ", "oss:forum:b.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, uint(7), post.ID)
	assert.Equal(t, []string{"oss:forum:a.png", "oss:forum:b.png"}, saved.Images)
}

func TestPostService_GetPost_CountsView(t *testing.T) {
	t.Parallel()

	increments := 0
	postRepo := noopPostRepo()
	postRepo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		return &models.Post{ID: id, Views: 4}, nil
	}
	postRepo.incrementViewsFn = func(_ context.Context, _ uint) error {
		increments++
		return nil
	}
	svc := NewPostService(postRepo, nil, nil)

	post, err := svc.GetPost(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), post.Views)
	assert.Equal(t, 1, increments)
}

func TestPostService_UpdatePost(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	newRepo := func(updated **models.Post) *postRepoStub {
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
			return &models.Post{ID: id, AuthorID: 10, Title: "old", Content: "old body", Images: []string{"oss:forum:x.png"}}, nil
		}
		repo.updateFn = func(_ context.Context, p *models.Post) error {
			*updated = p
			return nil
		}
		return repo
	}

	t.Run("partial edit keeps other fields", func(t *testing.T) {
		t.Parallel()
		var updated *models.Post
		svc := NewPostService(newRepo(&updated), &fileStoreStub{}, nil)
		_, err := svc.UpdatePost(ctx, UpdatePostInput{UserID: 10, PostID: 1, Title: strPtr("new")})
		require.NoError(t, err)
		assert.Equal(t, "new", updated.Title)
		assert.Equal(t, "old body", updated.Content)
		assert.Equal(t, []string{"oss:forum:x.png"}, updated.Images)
	})

	t.Run("images cleared", func(t *testing.T) {
		t.Parallel()
		var updated *models.Post
		svc := NewPostService(newRepo(&updated), &fileStoreStub{}, nil)
		_, err := svc.UpdatePost(ctx, UpdatePostInput{UserID: 10, PostID: 1, Images: &[]string{}})
		require.NoError(t, err)
		assert.Empty(t, updated.Images)
	})

	t.Run("admin may edit", func(t *testing.T) {
		t.Parallel()
		var updated *models.Post
		svc := NewPostService(newRepo(&updated), nil, adminCheck(99))
		_, err := svc.UpdatePost(ctx, UpdatePostInput{UserID: 99, PostID: 1, Content: strPtr("moderated")})
		require.NoError(t, err)
		assert.Equal(t, "moderated", updated.Content)
	})

	t.Run("stranger denied", func(t *testing.T) {
		t.Parallel()
		var updated *models.Post
		svc := NewPostService(newRepo(&updated), nil, adminCheck(99))
		_, err := svc.UpdatePost(ctx, UpdatePostInput{UserID: 2, PostID: 1, Title: strPtr("x")})
		assertAppError(t, err, models.CodePermissionDenied)
		assert.Nil(t, updated)
	})

	t.Run("blank title rejected", func(t *testing.T) {
		t.Parallel()
		var updated *models.Post
		svc := NewPostService(newRepo(&updated), nil, nil)
		_, err := svc.UpdatePost(ctx, UpdatePostInput{UserID: 10, PostID: 1, Title: strPtr(" ")})
		assertValidationError(t, err)
	})
}

func TestPostService_DeletePost_KeepsSharedImages(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	backend := testutil.NewMemoryBackend(storage.SchemeOSS, "forum-oss")
	files := storage.NewService(storage.SchemeOSS, "1h", backend)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	uploaded, err := NewUploadService(files, 1, "1h").Upload(ctx, UploadInput{
		UserID:      alice.ID,
		Filename:    "a.txt",
		ContentType: "text/plain",
		Content:     []byte("alice's notes"),
	})
	require.NoError(t, err)
	ref, ok := storage.ParseReference(uploaded.ReferenceURL)
	require.True(t, ok)

	svc := NewPostService(repository.NewPostRepository(db), files, nil)
	_, err = svc.CreatePost(ctx, CreatePostInput{UserID: alice.ID, Title: "Mine", Content: "original", Images: []string{uploaded.ReferenceURL}})
	require.NoError(t, err)
	copied, err := svc.CreatePost(ctx, CreatePostInput{UserID: bob.ID, Title: "Copy", Content: "borrowed", Images: []string{uploaded.ReferenceURL}})
	require.NoError(t, err)

	_, err = svc.DeletePost(ctx, DeletePostInput{UserID: bob.ID, PostID: copied.ID})
	require.NoError(t, err)

	assert.True(t, backend.Has(ref.Key), "alice's object must survive bob deleting his post")
	assert.Empty(t, backend.Deleted())
}

func TestPostService_DeletePost_RepositoryFailure(t *testing.T) {
	t.Parallel()

	postRepo := noopPostRepo()
	postRepo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		return &models.Post{ID: id, AuthorID: 10, Images: []string{"oss:forum:a.png"}}, nil
	}
	postRepo.deleteFn = func(_ context.Context, _ uint) error {
		return models.NewInternalError(errors.New("db down"))
	}
	svc := NewPostService(postRepo, &fileStoreStub{}, nil)

	_, err := svc.DeletePost(context.Background(), DeletePostInput{UserID: 10, PostID: 1})
	assertAppError(t, err, models.CodeInternal)
}

func TestPostService_LikeRequiresPost(t *testing.T) {
	t.Parallel()

	liked := false
	postRepo := noopPostRepo()
	postRepo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		return nil, models.NewNotFoundError("Post", id)
	}
	postRepo.likeFn = func(_ context.Context, _, _ uint) error {
		liked = true
		return nil
	}
	svc := NewPostService(postRepo, nil, nil)

	err := svc.LikePost(context.Background(), 1, 404)
	assertAppError(t, err, models.CodeNotFound)
	assert.False(t, liked)

	err = svc.UnlikePost(context.Background(), 1, 404)
	assertAppError(t, err, models.CodeNotFound)
}

func TestPostService_LikeErrorsPropagate(t *testing.T) {
	t.Parallel()

	postRepo := noopPostRepo()
	postRepo.likeFn = func(_ context.Context, _, _ uint) error {
		return models.NewConflictError("Post already liked")
	}
	postRepo.unlikeFn = func(_ context.Context, _, postID uint) error {
		return models.NewNotLikedError(postID)
	}
	svc := NewPostService(postRepo, nil, nil)

	assertAppError(t, svc.LikePost(context.Background(), 1, 1), models.CodeConflict)
	assertAppError(t, svc.UnlikePost(context.Background(), 1, 1), models.CodeNotLiked)
}

func TestPostService_ListPosts_RejectsBadSort(t *testing.T) {
	t.Parallel()

	svc := NewPostService(noopPostRepo(), nil, nil)
	_, err := svc.ListPosts(context.Background(), ListInput{Sort: "password"}, 0)
	assertValidationError(t, err)
}
