package server

import (
	"log/slog"

	"forum/internal/events"
	"forum/internal/middleware"
	"forum/internal/models"

	"github.com/gofiber/fiber/v2"
)

type setRoleRequest struct {
	Role string `json:"role"`
}

// AdminListPosts handles GET /api/admin/posts
func (s *Server) AdminListPosts(c *fiber.Ctx) error {
	in, err := parseListInput(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	page, err := s.postService.ListPosts(c.UserContext(), in, currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.RespondWithData(c, fiber.StatusOK, "Posts", page)
}

// AdminDeletePost handles DELETE /api/admin/posts/:id. The post service
// lets admins delete any post.
func (s *Server) AdminDeletePost(c *fiber.Ctx) error {
	return s.deletePost(c)
}

// AdminListUsers handles GET /api/admin/users
func (s *Server) AdminListUsers(c *fiber.Ctx) error {
	in, err := parseListInput(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	page, err := s.userService.ListUsers(c.UserContext(), in)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.RespondWithData(c, fiber.StatusOK, "Users", page)
}

// AdminSetRole handles PUT /api/admin/users/:id/role
// @Summary Set a user's role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body setRoleRequest true "USER or ADMIN"
// @Success 200 {object} models.Envelope{data=models.User}
// @Failure 403 {object} models.Envelope{data=models.ErrorData}
// @Router /admin/users/{id}/role [put]
func (s *Server) AdminSetRole(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	var req setRoleRequest
	if err := parseBody(c, &req); err != nil {
		return models.RespondWithAppError(c, err)
	}

	actorID := currentUserID(c)
	user, err := s.userService.SetRole(c.UserContext(), id, req.Role)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	middleware.Logger.InfoContext(c.UserContext(), "user role changed",
		slog.Uint64("target_id", uint64(user.ID)), slog.String("role", user.Role))
	s.publishEvent(c.UserContext(), actorID,
		events.New(events.UserRoleChanged, fiber.Map{"userId": user.ID, "role": user.Role}), user.ID)
	return models.RespondWithData(c, fiber.StatusOK, "Role updated", user)
}

// GetFeatureFlags returns configured feature flags and evaluated state for current user.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return models.RespondWithData(c, fiber.StatusOK, "Feature flags", fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(currentUserID(c)),
	})
}
