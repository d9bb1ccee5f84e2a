package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gorilla/websocket"
)

func TestHubAddRemoveClient(t *testing.T) {
	hub := NewHub()
	conn := &websocket.Conn{}

	first := hub.AddClient("1_2", conn, ConnInfo{ConnID: "c1", UserID: 1})
	assert.True(t, first)
	assert.Equal(t, 1, hub.ClientCount("1_2"))

	last := hub.RemoveClient("1_2", conn)
	assert.True(t, last)
	assert.Equal(t, 0, hub.ClientCount("1_2"))
}

func TestHubUserConnCounting(t *testing.T) {
	hub := NewHub()
	conn1 := &websocket.Conn{}
	conn2 := &websocket.Conn{}

	assert.True(t, hub.AddClient("1_2", conn1, ConnInfo{ConnID: "c1", UserID: 1}))
	assert.False(t, hub.AddClient("g7", conn2, ConnInfo{ConnID: "c2", UserID: 1}))

	assert.False(t, hub.RemoveClient("1_2", conn1))
	assert.True(t, hub.RemoveClient("g7", conn2))
}

func TestHubRemoveUnknownConn(t *testing.T) {
	hub := NewHub()
	assert.False(t, hub.RemoveClient("1_2", &websocket.Conn{}))
}

func TestChannelKind(t *testing.T) {
	assert.Equal(t, "direct", ChannelKind("1_2"))
	assert.Equal(t, "group", ChannelKind("g9"))
}
