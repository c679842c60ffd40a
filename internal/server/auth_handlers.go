package server

import (
	"log/slog"
	"strings"
	"time"

	"forum/internal/cache"
	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/password"
	"forum/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register handles POST /api/auth/register
// @Summary Register
// @Description Create an account and return an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body registerRequest true "Registration"
// @Success 201 {object} models.Envelope{data=AuthResponse}
// @Failure 400 {object} models.Envelope{data=models.ErrorData}
// @Failure 409 {object} models.Envelope{data=models.ErrorData}
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return models.RespondWithAppError(c, err)
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := validation.ValidateUsername(req.Username); err != nil {
		return models.RespondWithAppError(c, models.NewValidationError(err.Error()).WithParam("username"))
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		return models.RespondWithAppError(c, models.NewValidationError(err.Error()).WithParam("email"))
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return models.RespondWithAppError(c, models.NewValidationError(err.Error()).WithParam("password"))
	}

	existing, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if existing != nil {
		return models.RespondWithAppError(c, models.NewConflictError("Email is already registered").WithParam("email"))
	}
	existing, err = s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if existing != nil {
		return models.RespondWithAppError(c, models.NewConflictError("Username is already taken").WithParam("username"))
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return models.RespondWithAppError(c, models.NewInternalError(err))
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hashed,
		Role:     models.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return models.RespondWithAppError(c, err)
	}

	token, _, err := middleware.IssueToken(s.config.JWTSecret, s.tokenTTL, user)
	if err != nil {
		return models.RespondWithAppError(c, models.NewInternalError(err))
	}

	middleware.Logger.InfoContext(ctx, "user registered", slog.Uint64("user_id", uint64(user.ID)))
	return models.RespondWithData(c, fiber.StatusCreated, "Registered", AuthResponse{Token: token, User: user})
}

// Login handles POST /api/auth/login
// @Summary Login
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Credentials"
// @Success 200 {object} models.Envelope{data=AuthResponse}
// @Failure 401 {object} models.Envelope{data=models.ErrorData}
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return models.RespondWithAppError(c, err)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return models.RespondWithAppError(c, models.NewValidationError("Email and password are required"))
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if user == nil {
		return models.RespondWithAppError(c, models.NewInvalidCredentialsError())
	}

	ok, err := password.Verify(req.Password, user.Password)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "stored password hash unreadable",
			slog.Uint64("user_id", uint64(user.ID)), slog.String("error", err.Error()))
		return models.RespondWithAppError(c, models.NewInvalidCredentialsError())
	}
	if !ok {
		return models.RespondWithAppError(c, models.NewInvalidCredentialsError())
	}

	token, _, err := middleware.IssueToken(s.config.JWTSecret, s.tokenTTL, user)
	if err != nil {
		return models.RespondWithAppError(c, models.NewInternalError(err))
	}
	user.Password = ""
	return models.RespondWithData(c, fiber.StatusOK, "Logged in", AuthResponse{Token: token, User: user})
}

// Me handles GET /api/auth/me
func (s *Server) Me(c *fiber.Ctx) error {
	user, err := s.userService.GetUserByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.RespondWithData(c, fiber.StatusOK, "Current user", user)
}

// Logout handles POST /api/auth/logout by revoking the token's jti until it
// would have expired anyway.
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*middleware.Claims)
	if ok && claims.JTI != "" && s.redis != nil {
		ttl := time.Until(claims.ExpiresAt)
		if ttl > 0 {
			if err := s.redis.Set(c.UserContext(), cache.BlacklistKey(claims.JTI), "1", ttl).Err(); err != nil {
				return models.RespondWithAppError(c, models.NewInternalError(err))
			}
		}
	}
	return models.RespondWithData(c, fiber.StatusOK, "Logged out", nil)
}
