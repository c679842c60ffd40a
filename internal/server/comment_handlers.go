package server

import (
	"forum/internal/events"
	"forum/internal/models"
	"forum/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createCommentRequest struct {
	Content   string `json:"content"`
	ParentID  *uint  `json:"parentId"`
	ReplyToID *uint  `json:"replyToId"`
}

type updateCommentRequest struct {
	Content string `json:"content"`
}

// ListComments handles GET /api/comments/post/:postId
// @Summary List a post's comments
// @Description Top-level comments, newest first by default, each with its replies oldest first
// @Tags comments
// @Produce json
// @Param postId path int true "Post ID"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size (1-100)"
// @Param sort query string false "createdAt or updatedAt"
// @Param order query string false "asc or desc"
// @Success 200 {object} models.Envelope{data=models.Page[models.Comment]}
// @Failure 404 {object} models.Envelope{data=models.ErrorData}
// @Router /comments/post/{postId} [get]
func (s *Server) ListComments(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	in, err := parseListInput(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	page, err := s.commentService.ListComments(c.UserContext(), postID, in)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.RespondWithData(c, fiber.StatusOK, "Comments", page)
}

// ListReplies handles GET /api/comments/:commentId/replies
func (s *Server) ListReplies(c *fiber.Ctx) error {
	commentID, err := parseID(c, "commentId")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	in, err := parseListInput(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	page, err := s.commentService.ListReplies(c.UserContext(), commentID, in)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.RespondWithData(c, fiber.StatusOK, "Replies", page)
}

// ListMyComments handles GET /api/comments/me
func (s *Server) ListMyComments(c *fiber.Ctx) error {
	in, err := parseListInput(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	page, err := s.commentService.ListUserComments(c.UserContext(), currentUserID(c), in)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.RespondWithData(c, fiber.StatusOK, "Comments", page)
}

// CreateComment handles POST /api/comments/post/:postId
// @Summary Comment on a post
// @Description Creates a top-level comment, or a reply when parentId is set. The post's updatedAt is left untouched.
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Param request body createCommentRequest true "Comment"
// @Success 201 {object} models.Envelope{data=models.Comment}
// @Failure 400 {object} models.Envelope{data=models.ErrorData}
// @Failure 404 {object} models.Envelope{data=models.ErrorData}
// @Router /comments/post/{postId} [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	var req createCommentRequest
	if err := parseBody(c, &req); err != nil {
		return models.RespondWithAppError(c, err)
	}

	userID := currentUserID(c)
	comment, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID:    userID,
		PostID:    postID,
		Content:   req.Content,
		ParentID:  req.ParentID,
		ReplyToID: req.ReplyToID,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishEvent(c.UserContext(), userID, events.New(events.CommentCreated, commentEventPayload(comment)))
	return models.RespondWithData(c, fiber.StatusCreated, "Comment created", comment)
}

// UpdateComment handles PUT /api/comments/:id
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	var req updateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return models.RespondWithAppError(c, err)
	}

	userID := currentUserID(c)
	comment, err := s.commentService.UpdateComment(c.UserContext(), service.UpdateCommentInput{
		UserID:    userID,
		CommentID: id,
		Content:   req.Content,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishEvent(c.UserContext(), userID, events.New(events.CommentUpdated, commentEventPayload(comment)))
	return models.RespondWithData(c, fiber.StatusOK, "Comment updated", comment)
}

// DeleteComment handles DELETE /api/comments/:id
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	userID := currentUserID(c)
	comment, err := s.commentService.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		UserID:    userID,
		CommentID: id,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishEvent(c.UserContext(), userID, events.New(events.CommentDeleted, commentEventPayload(comment)))
	return models.RespondWithData(c, fiber.StatusOK, "Comment deleted", fiber.Map{"id": comment.ID})
}
