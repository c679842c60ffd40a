package server

import (
	"forum/internal/events"
	"forum/internal/models"
	"forum/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Images  []string `json:"images"`
}

type updatePostRequest struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Images  *[]string `json:"images"`
}

// ListPosts handles GET /api/posts
// @Summary List posts
// @Tags posts
// @Produce json
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size (1-100)"
// @Param sort query string false "createdAt, updatedAt, views, title, likesCount, commentsCount"
// @Param order query string false "asc or desc"
// @Param q query string false "Keyword matched against title and content"
// @Success 200 {object} models.Envelope{data=models.Page[models.Post]}
// @Router /posts [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	in, err := parseListInput(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	page, err := s.postService.ListPosts(c.UserContext(), in, s.optionalUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.RespondWithData(c, fiber.StatusOK, "Posts", page)
}

// ListUserPosts handles GET /api/posts/user/:userId
func (s *Server) ListUserPosts(c *fiber.Ctx) error {
	authorID, err := parseID(c, "userId")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	in, err := parseListInput(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	page, err := s.postService.ListUserPosts(c.UserContext(), authorID, in, s.optionalUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.RespondWithData(c, fiber.StatusOK, "Posts", page)
}

// ListLikedPosts handles GET /api/posts/liked
func (s *Server) ListLikedPosts(c *fiber.Ctx) error {
	in, err := parseListInput(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	page, err := s.postService.ListLikedPosts(c.UserContext(), currentUserID(c), in)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.RespondWithData(c, fiber.StatusOK, "Liked posts", page)
}

// GetPost handles GET /api/posts/:id
// @Summary Get a post
// @Description Returns the post and counts the read as a view
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Envelope{data=models.Post}
// @Failure 404 {object} models.Envelope{data=models.ErrorData}
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	post, err := s.postService.GetPost(c.UserContext(), id, s.optionalUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.RespondWithData(c, fiber.StatusOK, "Post", post)
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createPostRequest true "Post"
// @Success 201 {object} models.Envelope{data=models.Post}
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := parseBody(c, &req); err != nil {
		return models.RespondWithAppError(c, err)
	}
	userID := currentUserID(c)
	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:  userID,
		Title:   req.Title,
		Content: req.Content,
		Images:  req.Images,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishEvent(c.UserContext(), userID, events.New(events.PostCreated, postEventPayload(post)))
	return models.RespondWithData(c, fiber.StatusCreated, "Post created", post)
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	var req updatePostRequest
	if err := parseBody(c, &req); err != nil {
		return models.RespondWithAppError(c, err)
	}
	userID := currentUserID(c)
	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		UserID:  userID,
		PostID:  id,
		Title:   req.Title,
		Content: req.Content,
		Images:  req.Images,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishEvent(c.UserContext(), userID, events.New(events.PostUpdated, postEventPayload(post)))
	return models.RespondWithData(c, fiber.StatusOK, "Post updated", post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	return s.deletePost(c)
}

func (s *Server) deletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	userID := currentUserID(c)
	post, err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{UserID: userID, PostID: id})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishEvent(c.UserContext(), userID, events.New(events.PostDeleted, postEventPayload(post)))
	return models.RespondWithData(c, fiber.StatusOK, "Post deleted", fiber.Map{"id": post.ID})
}

// LikePost handles POST /api/posts/:id/like
func (s *Server) LikePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	userID := currentUserID(c)
	if err := s.postService.LikePost(c.UserContext(), userID, id); err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishEvent(c.UserContext(), userID, events.New(events.PostLiked, fiber.Map{"postId": id, "userId": userID}))
	return models.RespondWithData(c, fiber.StatusCreated, "Post liked", fiber.Map{"postId": id, "liked": true})
}

// UnlikePost handles DELETE /api/posts/:id/like
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	userID := currentUserID(c)
	if err := s.postService.UnlikePost(c.UserContext(), userID, id); err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishEvent(c.UserContext(), userID, events.New(events.PostUnliked, fiber.Map{"postId": id, "userId": userID}))
	return models.RespondWithData(c, fiber.StatusOK, "Post unliked", fiber.Map{"postId": id, "liked": false})
}
