package websocket

import (
	"encoding/json"
	"sync"

	"auction-house/pkg/logger"

	"github.com/gorilla/websocket"
)

// Hub tracks the watchers of each auction and fans bid updates out to them.
// Watchers are read-only; bids travel over HTTP, the feed only pushes.
type Hub struct {
	mu       sync.RWMutex
	watchers map[string]map[*websocket.Conn]struct{} // auctionID -> connections
	log      logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		watchers: make(map[string]map[*websocket.Conn]struct{}),
		log:      log,
	}
}

func (h *Hub) Register(auctionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.watchers[auctionID] == nil {
		h.watchers[auctionID] = make(map[*websocket.Conn]struct{})
	}
	h.watchers[auctionID][conn] = struct{}{}
	h.log.Info("watcher registered", "auction_id", auctionID)
}

func (h *Hub) Unregister(auctionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.watchers[auctionID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.watchers, auctionID)
		}
	}
	h.log.Info("watcher unregistered", "auction_id", auctionID)
}

// BroadcastToAuction sends message to every watcher of the auction. A failed
// send drops only that watcher's delivery, never the broadcast.
func (h *Hub) BroadcastToAuction(auctionID string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.watchers[auctionID]))
	for conn := range h.watchers[auctionID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.log.Error("failed to push to watcher", "auction_id", auctionID, "error", err)
		}
	}
	return nil
}

// CloseAuction disconnects every watcher once the auction reaches its terminal
// state.
func (h *Hub) CloseAuction(auctionID string) {
	h.mu.Lock()
	conns := h.watchers[auctionID]
	delete(h.watchers, auctionID)
	h.mu.Unlock()

	for conn := range conns {
		if err := conn.Close(); err != nil {
			h.log.Error("failed to close watcher connection", "auction_id", auctionID, "error", err)
		}
	}
	h.log.Info("watchers disconnected", "auction_id", auctionID)
}

// WatcherCount reports the live watchers of an auction.
func (h *Hub) WatcherCount(auctionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[auctionID])
}
