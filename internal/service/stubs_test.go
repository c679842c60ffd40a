package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"forum/internal/models"
	"forum/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.Comment, error)
	createFn        func(context.Context, *models.Comment) error
	updateContentFn func(context.Context, uint, string) (*models.Comment, error)
	deleteFn        func(context.Context, uint) error
	countRepliesFn  func(context.Context, uint) (int64, error)
	listTopLevelFn  func(context.Context, uint, repository.ListOptions) ([]models.Comment, int64, error)
	listRepliesFn   func(context.Context, uint, repository.ListOptions) ([]models.Comment, int64, error)
	listByAuthorFn  func(context.Context, uint, repository.ListOptions) ([]models.Comment, int64, error)
}

func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) UpdateContent(ctx context.Context, id uint, content string) (*models.Comment, error) {
	return s.updateContentFn(ctx, id, content)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *commentRepoStub) CountReplies(ctx context.Context, id uint) (int64, error) {
	return s.countRepliesFn(ctx, id)
}
func (s *commentRepoStub) ListTopLevel(ctx context.Context, postID uint, opts repository.ListOptions) ([]models.Comment, int64, error) {
	return s.listTopLevelFn(ctx, postID, opts)
}
func (s *commentRepoStub) ListReplies(ctx context.Context, parentID uint, opts repository.ListOptions) ([]models.Comment, int64, error) {
	return s.listRepliesFn(ctx, parentID, opts)
}
func (s *commentRepoStub) ListByAuthor(ctx context.Context, authorID uint, opts repository.ListOptions) ([]models.Comment, int64, error) {
	return s.listByAuthorFn(ctx, authorID, opts)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id, PostID: 1, AuthorID: 1}, nil
		},
		createFn: func(_ context.Context, _ *models.Comment) error { return nil },
		updateContentFn: func(_ context.Context, id uint, content string) (*models.Comment, error) {
			return &models.Comment{ID: id, Content: content}, nil
		},
		deleteFn:       func(_ context.Context, _ uint) error { return nil },
		countRepliesFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		listTopLevelFn: func(_ context.Context, _ uint, _ repository.ListOptions) ([]models.Comment, int64, error) {
			return nil, 0, nil
		},
		listRepliesFn: func(_ context.Context, _ uint, _ repository.ListOptions) ([]models.Comment, int64, error) {
			return nil, 0, nil
		},
		listByAuthorFn: func(_ context.Context, _ uint, _ repository.ListOptions) ([]models.Comment, int64, error) {
			return nil, 0, nil
		},
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn         func(context.Context, *models.Post) error
	getByIDFn        func(context.Context, uint, uint) (*models.Post, error)
	listFn           func(context.Context, repository.ListOptions, uint) ([]models.Post, int64, error)
	listByAuthorFn   func(context.Context, uint, repository.ListOptions, uint) ([]models.Post, int64, error)
	listLikedFn      func(context.Context, uint, repository.ListOptions) ([]models.Post, int64, error)
	updateFn         func(context.Context, *models.Post) error
	deleteFn         func(context.Context, uint) error
	incrementViewsFn func(context.Context, uint) error
	likeFn           func(context.Context, uint, uint) error
	unlikeFn         func(context.Context, uint, uint) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id, viewerID)
}
func (s *postRepoStub) List(ctx context.Context, opts repository.ListOptions, viewerID uint) ([]models.Post, int64, error) {
	return s.listFn(ctx, opts, viewerID)
}
func (s *postRepoStub) ListByAuthor(ctx context.Context, authorID uint, opts repository.ListOptions, viewerID uint) ([]models.Post, int64, error) {
	return s.listByAuthorFn(ctx, authorID, opts, viewerID)
}
func (s *postRepoStub) ListLiked(ctx context.Context, userID uint, opts repository.ListOptions) ([]models.Post, int64, error) {
	return s.listLikedFn(ctx, userID, opts)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) IncrementViews(ctx context.Context, id uint) error {
	return s.incrementViewsFn(ctx, id)
}
func (s *postRepoStub) Like(ctx context.Context, userID, postID uint) error {
	return s.likeFn(ctx, userID, postID)
}
func (s *postRepoStub) Unlike(ctx context.Context, userID, postID uint) error {
	return s.unlikeFn(ctx, userID, postID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id, _ uint) (*models.Post, error) {
			return &models.Post{ID: id, AuthorID: 1}, nil
		},
		listFn: func(_ context.Context, _ repository.ListOptions, _ uint) ([]models.Post, int64, error) {
			return nil, 0, nil
		},
		listByAuthorFn: func(_ context.Context, _ uint, _ repository.ListOptions, _ uint) ([]models.Post, int64, error) {
			return nil, 0, nil
		},
		listLikedFn: func(_ context.Context, _ uint, _ repository.ListOptions) ([]models.Post, int64, error) {
			return nil, 0, nil
		},
		updateFn:         func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:         func(_ context.Context, _ uint) error { return nil },
		incrementViewsFn: func(_ context.Context, _ uint) error { return nil },
		likeFn:           func(_ context.Context, _, _ uint) error { return nil },
		unlikeFn:         func(_ context.Context, _, _ uint) error { return nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	createFn        func(context.Context, *models.User) error
	updateProfileFn func(context.Context, uint, repository.ProfileChanges) (*models.User, error)
	updateRoleFn    func(context.Context, uint, string) (*models.User, error)
	listFn          func(context.Context, repository.ListOptions) ([]models.User, int64, error)
	countActivityFn func(context.Context, uint) (int64, int64, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdateProfile(ctx context.Context, id uint, changes repository.ProfileChanges) (*models.User, error) {
	return s.updateProfileFn(ctx, id, changes)
}
func (s *userRepoStub) UpdateRole(ctx context.Context, id uint, role string) (*models.User, error) {
	return s.updateRoleFn(ctx, id, role)
}
func (s *userRepoStub) List(ctx context.Context, opts repository.ListOptions) ([]models.User, int64, error) {
	return s.listFn(ctx, opts)
}
func (s *userRepoStub) CountActivity(ctx context.Context, id uint) (int64, int64, error) {
	return s.countActivityFn(ctx, id)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Username: "user", Role: models.RoleUser}, nil
		},
		getByEmailFn:    func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		getByUsernameFn: func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		createFn:        func(_ context.Context, _ *models.User) error { return nil },
		updateProfileFn: func(_ context.Context, id uint, _ repository.ProfileChanges) (*models.User, error) {
			return &models.User{ID: id}, nil
		},
		updateRoleFn: func(_ context.Context, id uint, role string) (*models.User, error) {
			return &models.User{ID: id, Role: role}, nil
		},
		listFn: func(_ context.Context, _ repository.ListOptions) ([]models.User, int64, error) {
			return nil, 0, nil
		},
		countActivityFn: func(_ context.Context, _ uint) (int64, int64, error) { return 0, 0, nil },
	}
}

// fileStoreStub records the storage calls the services make.
type fileStoreStub struct {
	mu        sync.Mutex
	uploadErr error
	signErr   error
	uploaded  []string
}

func (f *fileStoreStub) Upload(_ context.Context, r io.Reader, _ int64, filename, _ string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	ref := "oss:forum:uuid-" + filename
	f.mu.Lock()
	f.uploaded = append(f.uploaded, ref)
	f.mu.Unlock()
	return ref, nil
}

func (f *fileStoreStub) Resolve(_ context.Context, value, _ string) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return "https://signed.example.com/" + value, nil
}

// Normalize maps the stub's signed URLs back to their reference.
func (f *fileStoreStub) Normalize(value string) string {
	const prefix = "https://signed.example.com/"
	if len(value) > len(prefix) && value[:len(prefix)] == prefix {
		return value[len(prefix):]
	}
	return value
}

func (f *fileStoreStub) NormalizeAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = f.Normalize(v)
	}
	return out
}

func adminCheck(adminID uint) func(context.Context, uint) (bool, error) {
	return func(_ context.Context, userID uint) (bool, error) {
		return userID == adminID, nil
	}
}

// assertAppError asserts that err is an AppError carrying code.
func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeValidation)
}

func uintPtr(v uint) *uint { return &v }

func strPtr(v string) *string { return &v }
