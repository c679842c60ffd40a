package server

import (
	"log/slog"
	"strconv"

	"forum/internal/cache"
	"forum/internal/middleware"
	"forum/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// IssueWSTicket handles POST /api/ws/ticket. Browsers cannot set headers on
// websocket upgrades, so clients trade their bearer token for a short-lived
// single-use ticket passed as ?ticket=.
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return models.RespondWithAppError(c, models.NewBackendUnavailableError("redis"))
	}
	ticket := uuid.NewString()
	userID := currentUserID(c)
	if err := s.redis.Set(c.UserContext(), cache.WSTicketKey(ticket),
		strconv.FormatUint(uint64(userID), 10), cache.WSTicketTTL).Err(); err != nil {
		return models.RespondWithAppError(c, models.NewInternalError(err))
	}
	return models.RespondWithData(c, fiber.StatusCreated, "Ticket issued", fiber.Map{
		"ticket":    ticket,
		"expiresIn": int(cache.WSTicketTTL.Seconds()),
	})
}

// WebsocketHandler streams realtime events to an authenticated client.
func (s *Server) WebsocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		uid, ok := conn.Locals("userID").(uint)
		if !ok || uid == 0 {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			middleware.Logger.Warn("websocket register rejected",
				slog.Uint64("user_id", uint64(uid)), slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","payload":{"reason":"connection_limit"}}`))
			_ = conn.Close()
			return
		}

		// The conn is recycled once this handler returns, so wait for the
		// writer to finish before leaving.
		done := make(chan struct{})
		go func() {
			client.WritePump()
			close(done)
		}()
		client.ReadPump()
		<-done
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return models.RespondWithError(c, fiber.StatusUpgradeRequired,
				models.NewValidationError("WebSocket upgrade required"))
		}
		return upgrade(c)
	}
}
