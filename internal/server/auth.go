package server

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"forum/internal/cache"
	"forum/internal/middleware"
	"forum/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// AuthRequired authenticates the request with a bearer token, or with a
// single-use ticket on websocket upgrades.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isWSPath := strings.HasPrefix(c.Path(), "/api/ws") && c.Path() != "/api/ws/ticket"

		if ticket := c.Query("ticket"); ticket != "" && isWSPath {
			userID, err := s.consumeWSTicket(c.UserContext(), ticket)
			if err != nil {
				return models.RespondWithAppError(c,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
			s.setUser(c, userID)
			return c.Next()
		}

		tokenString := middleware.BearerToken(c)
		if tokenString == "" {
			return models.RespondWithAppError(c, models.NewMissingTokenError())
		}

		claims, err := middleware.ParseToken(s.config.JWTSecret, tokenString)
		if err != nil {
			return models.RespondWithAppError(c, models.NewUnauthorizedError("Invalid or expired token"))
		}

		if claims.JTI != "" && s.redis != nil {
			revoked, err := s.redis.Exists(c.UserContext(), cache.BlacklistKey(claims.JTI)).Result()
			if err == nil && revoked > 0 {
				return models.RespondWithAppError(c, models.NewUnauthorizedError("Token has been revoked"))
			}
		}

		c.Locals("claims", claims)
		s.setUser(c, claims.UserID)
		return c.Next()
	}
}

// AdminRequired rejects non-admin callers. It must run after AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := middleware.CurrentUserID(c)
		if !ok {
			return models.RespondWithAppError(c, models.NewMissingTokenError())
		}
		admin, err := s.userService.IsAdmin(c.UserContext(), userID)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		if !admin {
			return models.RespondWithAppError(c, models.NewPermissionDeniedError("Admin access required"))
		}
		return c.Next()
	}
}

// optionalUserID identifies the caller on public routes. A missing or bad
// token yields an anonymous request rather than an error.
func (s *Server) optionalUserID(c *fiber.Ctx) uint {
	tokenString := middleware.BearerToken(c)
	if tokenString == "" {
		return 0
	}
	claims, err := middleware.ParseToken(s.config.JWTSecret, tokenString)
	if err != nil {
		return 0
	}
	if claims.JTI != "" && s.redis != nil {
		if n, err := s.redis.Exists(c.UserContext(), cache.BlacklistKey(claims.JTI)).Result(); err == nil && n > 0 {
			return 0
		}
	}
	s.setUser(c, claims.UserID)
	return claims.UserID
}

func (s *Server) setUser(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	c.SetUserContext(context.WithValue(c.UserContext(), middleware.UserIDKey, userID))
}

// consumeWSTicket atomically reads and deletes a ticket.
func (s *Server) consumeWSTicket(ctx context.Context, ticket string) (uint, error) {
	if s.redis == nil {
		return 0, errors.New("redis unavailable")
	}
	raw, err := s.redis.GetDel(ctx, cache.WSTicketKey(ticket)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, errors.New("unknown ticket")
		}
		return 0, err
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("malformed ticket")
	}
	return uint(id), nil
}

// currentUserID returns the caller set by AuthRequired. Handlers behind
// AuthRequired can rely on it being non-zero.
func currentUserID(c *fiber.Ctx) uint {
	uid, _ := middleware.CurrentUserID(c)
	return uid
}
