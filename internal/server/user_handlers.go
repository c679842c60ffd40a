package server

import (
	"forum/internal/models"
	"forum/internal/service"

	"github.com/gofiber/fiber/v2"
)

type updateProfileRequest struct {
	Username *string `json:"username"`
	Bio      *string `json:"bio"`
	Avatar   *string `json:"avatar"`
}

// GetUserProfile handles GET /api/users/:id
// @Summary Public profile
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.Envelope{data=models.User}
// @Failure 404 {object} models.Envelope{data=models.ErrorData}
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	user, err := s.userService.GetProfile(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.RespondWithData(c, fiber.StatusOK, "User profile", user)
}

// UpdateProfile handles PUT /api/users/profile
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return models.RespondWithAppError(c, err)
	}
	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:   currentUserID(c),
		Username: req.Username,
		Bio:      req.Bio,
		Avatar:   req.Avatar,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.RespondWithData(c, fiber.StatusOK, "Profile updated", user)
}
