package server

import (
	"fmt"
	"net/http"
	"testing"

	"forum/internal/models"
	"forum/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentTreeLeavesPostUpdatedAtAlone(t *testing.T) {
	e := newTestEnv(t)
	author := testutil.CreateUser(t, e.db, "author")
	commenter := testutil.CreateUser(t, e.db, "commenter")
	post := testutil.CreatePost(t, e.db, author.ID, "P")
	before := testutil.PostUpdatedAt(t, e.db, post.ID)
	token := e.tokenFor(t, commenter)
	commentsPath := fmt.Sprintf("/api/comments/post/%d", post.ID)

	status, env := e.do(t, http.MethodPost, commentsPath, map[string]any{"content": "C1"}, token)
	require.Equal(t, http.StatusCreated, status, env.Message)
	c1 := decode[models.Comment](t, env)
	assert.Nil(t, c1.ParentID)

	status, env = e.do(t, http.MethodPost, commentsPath, map[string]any{
		"content":   "C2",
		"parentId":  c1.ID,
		"replyToId": commenter.ID,
	}, e.tokenFor(t, author))
	require.Equal(t, http.StatusCreated, status, env.Message)
	c2 := decode[models.Comment](t, env)
	require.NotNil(t, c2.ParentID)
	assert.Equal(t, c1.ID, *c2.ParentID)

	status, _ = e.do(t, http.MethodPut, fmt.Sprintf("/api/comments/%d", c1.ID), map[string]any{"content": "C1 edited"}, token)
	require.Equal(t, http.StatusOK, status)

	after := testutil.PostUpdatedAt(t, e.db, post.ID)
	assert.True(t, before.Equal(after), "post updatedAt moved from %s to %s", before, after)

	status, env = e.do(t, http.MethodGet, commentsPath, nil, "")
	require.Equal(t, http.StatusOK, status)
	page := decode[models.Page[models.Comment]](t, env)
	require.Len(t, page.Items, 1)
	top := page.Items[0]
	assert.Equal(t, "C1 edited", top.Content)
	assert.Equal(t, int64(1), top.RepliesCount)
	require.Len(t, top.Replies, 1)
	assert.Equal(t, "C2", top.Replies[0].Content)

	status, env = e.do(t, http.MethodGet, fmt.Sprintf("/api/comments/%d/replies", c1.ID), nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[models.Page[models.Comment]](t, env).Items, 1)

	status, env = e.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), nil, "")
	require.Equal(t, http.StatusOK, status)
	got := decode[models.Post](t, env)
	assert.Equal(t, int64(2), got.CommentsCount)
	assert.True(t, got.UpdatedAt.Equal(before))
}

func TestCreateComment_InvalidParent(t *testing.T) {
	e := newTestEnv(t)
	author := testutil.CreateUser(t, e.db, "author")
	token := e.tokenFor(t, author)
	p1 := testutil.CreatePost(t, e.db, author.ID, "P1")
	p2 := testutil.CreatePost(t, e.db, author.ID, "P2")

	status, env := e.do(t, http.MethodPost, fmt.Sprintf("/api/comments/post/%d", p1.ID), map[string]any{"content": "top"}, token)
	require.Equal(t, http.StatusCreated, status)
	top := decode[models.Comment](t, env)

	status, env = e.do(t, http.MethodPost, fmt.Sprintf("/api/comments/post/%d", p2.ID), map[string]any{
		"content": "wrong post", "parentId": top.ID,
	}, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assertErrorEnvelope(t, env, "invalid_parent", "parentId")

	status, env = e.do(t, http.MethodPost, fmt.Sprintf("/api/comments/post/%d", p1.ID), map[string]any{
		"content": "reply", "parentId": top.ID,
	}, token)
	require.Equal(t, http.StatusCreated, status)
	reply := decode[models.Comment](t, env)

	status, env = e.do(t, http.MethodPost, fmt.Sprintf("/api/comments/post/%d", p1.ID), map[string]any{
		"content": "too deep", "parentId": reply.ID,
	}, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assertErrorEnvelope(t, env, "invalid_parent", "parentId")

	status, env = e.do(t, http.MethodPost, "/api/comments/post/9999", map[string]any{"content": "orphan"}, token)
	assert.Equal(t, http.StatusNotFound, status)
	assertErrorEnvelope(t, env, "resource_not_found", "")
}

func TestDeleteComment(t *testing.T) {
	e := newTestEnv(t)
	author := testutil.CreateUser(t, e.db, "author")
	commenter := testutil.CreateUser(t, e.db, "commenter")
	stranger := testutil.CreateUser(t, e.db, "stranger")
	post := testutil.CreatePost(t, e.db, author.ID, "P")
	path := fmt.Sprintf("/api/comments/post/%d", post.ID)

	status, env := e.do(t, http.MethodPost, path, map[string]any{"content": "top"}, e.tokenFor(t, commenter))
	require.Equal(t, http.StatusCreated, status)
	top := decode[models.Comment](t, env)

	status, env = e.do(t, http.MethodPost, path, map[string]any{"content": "reply", "parentId": top.ID}, e.tokenFor(t, commenter))
	require.Equal(t, http.StatusCreated, status)
	reply := decode[models.Comment](t, env)

	status, env = e.do(t, http.MethodDelete, fmt.Sprintf("/api/comments/%d", top.ID), nil, e.tokenFor(t, commenter))
	assert.Equal(t, http.StatusConflict, status)
	assertErrorEnvelope(t, env, "resource_has_replies", "")

	status, env = e.do(t, http.MethodDelete, fmt.Sprintf("/api/comments/%d", reply.ID), nil, e.tokenFor(t, stranger))
	assert.Equal(t, http.StatusForbidden, status)
	assertErrorEnvelope(t, env, "insufficient_permissions", "")

	// The post's author may moderate comments under it.
	status, _ = e.do(t, http.MethodDelete, fmt.Sprintf("/api/comments/%d", reply.ID), nil, e.tokenFor(t, author))
	assert.Equal(t, http.StatusOK, status)

	status, _ = e.do(t, http.MethodDelete, fmt.Sprintf("/api/comments/%d", top.ID), nil, e.tokenFor(t, commenter))
	assert.Equal(t, http.StatusOK, status)

	assert.True(t, testutil.PostUpdatedAt(t, e.db, post.ID).Equal(post.UpdatedAt))
}

func TestListMyComments(t *testing.T) {
	e := newTestEnv(t)
	author := testutil.CreateUser(t, e.db, "author")
	post := testutil.CreatePost(t, e.db, author.ID, "P")
	token := e.tokenFor(t, author)

	status, _ := e.do(t, http.MethodPost, fmt.Sprintf("/api/comments/post/%d", post.ID), map[string]any{"content": "mine"}, token)
	require.Equal(t, http.StatusCreated, status)

	status, env := e.do(t, http.MethodGet, "/api/comments/me", nil, token)
	require.Equal(t, http.StatusOK, status)
	page := decode[models.Page[models.Comment]](t, env)
	require.Len(t, page.Items, 1)
	require.NotNil(t, page.Items[0].Post)
	assert.Equal(t, "P", page.Items[0].Post.Title)
}
