package ws

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"circle-service/internal/auth"
	"circle-service/internal/channel"
	"circle-service/internal/models"
	"circle-service/internal/observability"
	"circle-service/internal/repositories"
)

// ChannelWebSocketHandler serves the live change feed of one channel: the
// full history is replayed on attach, then appends and updates stream until
// the client detaches.
type ChannelWebSocketHandler struct {
	hub         *Hub
	tokens      *auth.TokenManager
	groupRepo   repositories.GroupRepository
	messageRepo repositories.MessageRepository
	userRepo    repositories.UserRepository
}

// NewChannelWebSocketHandler constructs a ChannelWebSocketHandler.
func NewChannelWebSocketHandler(hub *Hub, tokens *auth.TokenManager, groupRepo repositories.GroupRepository, messageRepo repositories.MessageRepository, userRepo repositories.UserRepository) *ChannelWebSocketHandler {
	return &ChannelWebSocketHandler{
		hub:         hub,
		tokens:      tokens,
		groupRepo:   groupRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, replays history and registers the client.
func (h *ChannelWebSocketHandler) Handle(c *gin.Context) {
	channelKey := c.Param("channel_key")

	ctx, span := otel.Tracer("circle-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	userID, err := h.validateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if !h.authorized(ctx, channelKey, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for channel"})
		return
	}

	history, err := h.messageRepo.ListChannelMessages(ctx, channelKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load channel history"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	// Snapshot first, deltas after: the client sees the same sequence a
	// fresh store subscription would deliver.
	if err := conn.WriteJSON(models.ChannelEvent{Type: "history", Messages: history}); err != nil {
		conn.Close()
		return
	}

	kind := ChannelKind(channelKey)
	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	if first := h.hub.AddClient(channelKey, conn, info); first {
		_ = h.userRepo.SetOnline(ctx, userID)
	}

	observability.IncWSActive(kind)
	observability.IncWSEvent(kind, "ws_connect")
	_ = observability.PublishEvent(ctx, wsRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   wsEventPayload(kind, channelKey, "ws_connect", info, 0, ""),
	}, observability.BuildHeaders(requestID, traceID))

	// Keep connection alive and clean on close.
	go func() {
		var closeReason string
		defer func() {
			if last := h.hub.RemoveClient(channelKey, conn); last {
				// Best effort: a killed process never reaches this point,
				// which leaves presence stale until the next session event.
				_ = h.userRepo.SetOffline(context.Background(), userID)
			}
			observability.DecWSActive(kind)
			observability.IncWSEvent(kind, "ws_disconnect")
			_ = observability.PublishEvent(ctx, wsRoutingKey(kind), observability.EventEnvelope{
				EventType: "ws_events",
				EventName: "ws_disconnect",
				Payload:   wsEventPayload(kind, channelKey, "ws_disconnect", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason),
			}, observability.BuildHeaders(requestID, traceID))
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent(kind, "ws_error")
					_ = observability.PublishEvent(ctx, wsRoutingKey(kind), observability.EventEnvelope{
						EventType: "ws_events",
						EventName: "ws_error",
						Payload:   wsEventPayload(kind, channelKey, "ws_error", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason),
					}, observability.BuildHeaders(requestID, traceID))
				}
				return
			}
		}
	}()
}

// authorized checks channel membership: group channels require group
// membership, direct channels require being one of the pair.
func (h *ChannelWebSocketHandler) authorized(ctx context.Context, channelKey string, userID int) bool {
	if channel.IsGroup(channelKey) {
		groupID, err := channel.ParseGroup(channelKey)
		if err != nil {
			return false
		}
		member, err := h.groupRepo.IsMember(ctx, groupID, userID)
		return err == nil && member
	}
	_, err := channel.DirectPeer(channelKey, userID)
	return err == nil
}

func (h *ChannelWebSocketHandler) validateToken(header string) (int, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return h.tokens.Validate(parts[1])
	}
	return 0, fmt.Errorf("invalid token")
}

func wsEventPayload(kind, channelKey, event string, info ConnInfo, durationMS int64, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        kind,
			"channel_key": channelKey,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": durationMS,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}
