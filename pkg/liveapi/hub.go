// Package liveapi mirrors the published messages over HTTP and websockets.
package liveapi

import (
	"sort"
	"sync"

	"github.com/NotCoffee418/teleinfo_bridge/pkg/types"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Hub is a Publisher broadcasting every message to the websocket clients.
// It also keeps the last retained message of each topic, as a broker would.
type Hub struct {
	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]bool
	// websocket connections support one concurrent writer
	writeMu sync.Mutex

	retainedMu sync.RWMutex
	retained   map[string]*types.LiveMessage
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[*websocket.Conn]bool),
		retained: make(map[string]*types.LiveMessage),
	}
}

// Publish never fails: a client that cannot be written to is dropped.
func (h *Hub) Publish(topic string, payload []byte, retained bool) error {
	msg := types.NewLiveMessage(topic, payload, retained)
	if retained {
		h.retainedMu.Lock()
		h.retained[topic] = msg
		h.retainedMu.Unlock()
	}
	h.broadcast(msg.ToJsonBytes())
	return nil
}

// Latest returns the retained messages sorted by topic.
func (h *Hub) Latest() []*types.LiveMessage {
	h.retainedMu.RLock()
	out := make([]*types.LiveMessage, 0, len(h.retained))
	for _, msg := range h.retained {
		out = append(out, msg)
	}
	h.retainedMu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out
}

func (h *Hub) broadcast(data []byte) {
	h.clientsMu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clientsMu.RUnlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, client := range clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debugf("Dropping live client %s: %v", client.RemoteAddr(), err)
			h.removeClient(client)
		}
	}
}

// addClient sends the retained messages to conn, then subscribes it to the
// broadcast.
func (h *Hub) addClient(conn *websocket.Conn) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, msg := range h.Latest() {
		if err := conn.WriteMessage(websocket.TextMessage, msg.ToJsonBytes()); err != nil {
			return err
		}
	}
	h.clientsMu.Lock()
	h.clients[conn] = true
	h.clientsMu.Unlock()
	return nil
}

func (h *Hub) removeClient(conn *websocket.Conn) {
	h.clientsMu.Lock()
	delete(h.clients, conn)
	h.clientsMu.Unlock()
	conn.Close()
}

// ClientCount is the number of connected websocket clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}
