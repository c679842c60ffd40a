package repository

import (
	"context"
	"testing"

	"forum/internal/models"
	"forum/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_CreateAndGet(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "alice")

	post := &models.Post{Title: "Hello", Content: "World", AuthorID: author.ID, Images: []string{"oss:forum:a.png"}}
	require.NoError(t, repo.Create(ctx, post))
	require.NotZero(t, post.ID)
	require.NotNil(t, post.Author)
	assert.Equal(t, "alice", post.Author.Username)

	got, err := repo.GetByID(ctx, post.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"oss:forum:a.png"}, got.Images)
	assert.False(t, got.Liked)

	_, err = repo.GetByID(ctx, 999, 0)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestPostRepository_LikeLifecycle(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "alice")
	fan := testutil.CreateUser(t, db, "bob")
	post := testutil.CreatePost(t, db, author.ID, "likeable")
	before := testutil.PostUpdatedAt(t, db, post.ID)

	require.NoError(t, repo.Like(ctx, fan.ID, post.ID))

	err := repo.Like(ctx, fan.ID, post.ID)
	assert.True(t, models.HasCode(err, models.CodeConflict))

	got, err := repo.GetByID(ctx, post.ID, fan.ID)
	require.NoError(t, err)
	assert.True(t, got.Liked)
	assert.Equal(t, int64(1), got.LikesCount)

	asAuthor, err := repo.GetByID(ctx, post.ID, author.ID)
	require.NoError(t, err)
	assert.False(t, asAuthor.Liked)

	liked, total, err := repo.ListLiked(ctx, fan.ID, ListOptions{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, liked, 1)
	assert.True(t, liked[0].Liked)

	require.NoError(t, repo.Unlike(ctx, fan.ID, post.ID))
	err = repo.Unlike(ctx, fan.ID, post.ID)
	assert.True(t, models.HasCode(err, models.CodeNotLiked))

	assert.True(t, before.Equal(testutil.PostUpdatedAt(t, db, post.ID)))
}

func TestPostRepository_IncrementViewsKeepsUpdatedAt(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "alice")
	post := testutil.CreatePost(t, db, author.ID, "viewed")
	before := testutil.PostUpdatedAt(t, db, post.ID)

	require.NoError(t, repo.IncrementViews(ctx, post.ID))
	require.NoError(t, repo.IncrementViews(ctx, post.ID))

	got, err := repo.GetByID(ctx, post.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Views)
	assert.True(t, before.Equal(got.UpdatedAt))

	err = repo.IncrementViews(ctx, 999)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestPostRepository_UpdateMovesUpdatedAt(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "alice")
	post := testutil.CreatePost(t, db, author.ID, "draft")
	before := testutil.PostUpdatedAt(t, db, post.ID)

	post.Title = "final"
	post.Images = nil
	require.NoError(t, repo.Update(ctx, post))

	got, err := repo.GetByID(ctx, post.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Title)
	assert.Equal(t, []string{}, got.Images)
	assert.True(t, got.UpdatedAt.After(before))

	err = repo.Update(ctx, &models.Post{ID: 999, Title: "x", Content: "y"})
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestPostRepository_DeleteCascades(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "alice")
	post := testutil.CreatePost(t, db, author.ID, "doomed")

	top := &models.Comment{Content: "top", AuthorID: author.ID, PostID: post.ID}
	require.NoError(t, comments.Create(ctx, top))
	require.NoError(t, comments.Create(ctx, &models.Comment{Content: "reply", AuthorID: author.ID, PostID: post.ID, ParentID: &top.ID}))
	require.NoError(t, repo.Like(ctx, author.ID, post.ID))

	require.NoError(t, repo.Delete(ctx, post.ID))

	var n int64
	require.NoError(t, db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&n).Error)
	assert.Zero(t, n)

	err := repo.Delete(ctx, post.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestPostRepository_ListSearchAndSort(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	golang := testutil.CreatePost(t, db, alice.ID, "Learning Go")
	testutil.CreatePost(t, db, alice.ID, "Rust notes")
	percent := testutil.CreatePost(t, db, bob.ID, "100% coverage")
	require.NoError(t, repo.IncrementViews(ctx, golang.ID))

	all, total, err := repo.List(ctx, ListOptions{Page: 1, Limit: 10, Sort: "views", Order: "desc"}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, all, 3)
	assert.Equal(t, golang.ID, all[0].ID)

	found, total, err := repo.List(ctx, ListOptions{Page: 1, Limit: 10, Query: "GO"}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, found, 1)
	assert.Equal(t, golang.ID, found[0].ID)

	literal, total, err := repo.List(ctx, ListOptions{Page: 1, Limit: 10, Query: "%"}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, literal, 1)
	assert.Equal(t, percent.ID, literal[0].ID)

	mine, total, err := repo.ListByAuthor(ctx, alice.ID, ListOptions{Page: 1, Limit: 1}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, mine, 1)
}

func TestListOptions_OrderBy(t *testing.T) {
	tests := []struct {
		name string
		opts ListOptions
		want string
	}{
		{"default", ListOptions{}, "posts.created_at DESC, posts.id DESC"},
		{"known asc", ListOptions{Sort: "views", Order: "ASC"}, "posts.views ASC, posts.id ASC"},
		{"unknown field", ListOptions{Sort: "password", Order: "asc"}, "posts.created_at ASC, posts.id ASC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.orderBy("posts", postSortColumns))
		})
	}
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, `%go%`, likePattern("  Go "))
	assert.Equal(t, `%100\%\_x\\%`, likePattern(`100%_x\`))
	assert.Equal(t, 2, ListOptions{Page: 2, Limit: 2}.Offset())
	assert.Equal(t, 0, ListOptions{Page: 0, Limit: 5}.Offset())
}
