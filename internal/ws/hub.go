package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"circle-service/internal/channel"
	"circle-service/internal/models"
	"circle-service/internal/observability"
)

// Hub maintains active websocket subscriptions, one room per channel key.
// It also counts connections per user so presence flips only on the first
// attach and the last detach.
type Hub struct {
	rooms     map[string]map[*websocket.Conn]bool
	connInfo  map[string]map[*websocket.Conn]ConnInfo
	userConns map[int]int
	mu        sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:     make(map[string]map[*websocket.Conn]bool),
		connInfo:  make(map[string]map[*websocket.Conn]ConnInfo),
		userConns: make(map[int]int),
	}
}

// AddClient registers a connection in a channel room. Returns true when this
// is the user's first live connection.
func (h *Hub) AddClient(channelKey string, conn *websocket.Conn, info ConnInfo) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[channelKey]; !ok {
		h.rooms[channelKey] = make(map[*websocket.Conn]bool)
	}
	h.rooms[channelKey][conn] = true
	if _, ok := h.connInfo[channelKey]; !ok {
		h.connInfo[channelKey] = make(map[*websocket.Conn]ConnInfo)
	}
	h.connInfo[channelKey][conn] = info

	h.userConns[info.UserID]++
	return h.userConns[info.UserID] == 1
}

// RemoveClient removes a connection from a channel room. Returns true when
// the user has no live connections left.
func (h *Hub) RemoveClient(channelKey string, conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	var userID int
	var known bool
	if infos, ok := h.connInfo[channelKey]; ok {
		if info, exists := infos[conn]; exists {
			userID = info.UserID
			known = true
		}
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.connInfo, channelKey)
		}
	}
	if conns, ok := h.rooms[channelKey]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, channelKey)
		}
	}

	if !known {
		return false
	}
	h.userConns[userID]--
	if h.userConns[userID] <= 0 {
		delete(h.userConns, userID)
		return true
	}
	return false
}

// ClientCount returns the number of connections in a channel room.
func (h *Hub) ClientCount(channelKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[channelKey])
}

// BroadcastMessage delivers a freshly appended message to the channel room.
func (h *Hub) BroadcastMessage(channelKey string, msg models.Message) {
	h.broadcast(channelKey, models.ChannelEvent{Type: "message", Message: &msg})
}

// BroadcastUpdate re-emits a message whose reactions or receipts changed.
func (h *Hub) BroadcastUpdate(channelKey string, msg models.Message) {
	h.broadcast(channelKey, models.ChannelEvent{Type: "update", Message: &msg})
}

func (h *Hub) broadcast(channelKey string, event models.ChannelEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[channelKey]))
	for conn := range h.rooms[channelKey] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.RemoveClient(channelKey, conn)
			h.publishWSError(channelKey, conn, err)
		}
	}
}

func (h *Hub) publishWSError(channelKey string, conn *websocket.Conn, err error) {
	info, ok := h.getConnInfo(channelKey, conn)
	if !ok {
		return
	}

	kind := ChannelKind(channelKey)
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        kind,
			"channel_key": channelKey,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), wsRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent(kind, "ws_error")
}

func (h *Hub) getConnInfo(channelKey string, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if infos, ok := h.connInfo[channelKey]; ok {
		info, exists := infos[conn]
		return info, exists
	}
	return ConnInfo{}, false
}

// ChannelKind labels a channel key for metrics and routing.
func ChannelKind(channelKey string) string {
	if channel.IsGroup(channelKey) {
		return "group"
	}
	return "direct"
}

func wsRoutingKey(kind string) string {
	if kind == "group" {
		return "ws_events.groups"
	}
	return "ws_events.directs"
}
