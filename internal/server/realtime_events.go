package server

import (
	"context"
	"log/slog"
	"time"

	"forum/internal/events"
	"forum/internal/featureflags"
	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/notifications"
)

// brokerPublishTimeout caps how long a request waits on the event broker.
const brokerPublishTimeout = 2 * time.Second

// publishEvent fans an event out to websocket clients and the broker. With
// no recipients the event goes to every client. Failures are logged; the
// request that caused the event has already succeeded.
func (s *Server) publishEvent(ctx context.Context, actorID uint, evt events.Event, recipients ...uint) {
	if s.featureFlags != nil && !s.featureFlags.Enabled(featureflags.RealtimeEvents, actorID) {
		return
	}
	// Outlive the request so a client disconnect does not cancel delivery.
	ctx = context.WithoutCancel(ctx)

	frame, err := notifications.Encode(evt)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "encode realtime event failed",
			slog.String("type", evt.Type), slog.String("error", err.Error()))
		return
	}
	s.deliver(ctx, evt.Type, frame, recipients)

	if s.publisher != nil {
		pubCtx, cancel := context.WithTimeout(ctx, brokerPublishTimeout)
		defer cancel()
		if err := s.publisher.Publish(pubCtx, evt); err != nil {
			middleware.Logger.WarnContext(ctx, "publish event to broker failed",
				slog.String("type", evt.Type), slog.String("error", err.Error()))
		}
	}
}

// deliver sends a frame through Redis when it is available, so every
// instance's hub receives it once through its subscriber. Without Redis the
// local hub is used directly.
func (s *Server) deliver(ctx context.Context, eventType, frame string, recipients []uint) {
	if !s.notifier.Enabled() {
		if len(recipients) == 0 {
			s.hub.BroadcastAll(frame)
			return
		}
		for _, uid := range recipients {
			s.hub.Broadcast(uid, frame)
		}
		return
	}

	if len(recipients) == 0 {
		if err := s.notifier.PublishBroadcast(ctx, frame); err != nil {
			middleware.Logger.WarnContext(ctx, "publish broadcast event failed",
				slog.String("type", eventType), slog.String("error", err.Error()))
		}
		return
	}
	for _, uid := range recipients {
		if err := s.notifier.PublishUser(ctx, uid, frame); err != nil {
			middleware.Logger.WarnContext(ctx, "publish user event failed",
				slog.String("type", eventType), slog.Uint64("user_id", uint64(uid)), slog.String("error", err.Error()))
		}
	}
}

func postEventPayload(post *models.Post) map[string]any {
	return map[string]any{
		"postId":   post.ID,
		"authorId": post.AuthorID,
		"title":    post.Title,
	}
}

func commentEventPayload(comment *models.Comment) map[string]any {
	return map[string]any{
		"commentId": comment.ID,
		"postId":    comment.PostID,
		"authorId":  comment.AuthorID,
		"parentId":  comment.ParentID,
	}
}
