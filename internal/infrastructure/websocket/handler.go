package websocket

import (
	"net/http"

	"auction-house/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // feed is public, same as the list endpoint
	},
}

// Handler upgrades /ws/auctions/{auctionID} requests and parks the connection
// in the hub until the client goes away or the auction closes.
type Handler struct {
	hub *Hub
	log logger.Logger
}

func NewHandler(hub *Hub, log logger.Logger) *Handler {
	return &Handler{hub: hub, log: log}
}

func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["auctionID"]
	if auctionID == "" {
		http.Error(w, "auction id required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("failed to upgrade connection", "auction_id", auctionID, "error", err)
		return
	}

	h.hub.Register(auctionID, conn)

	// Drain the read side to notice disconnects; watchers never send data we
	// act on.
	go func() {
		defer func() {
			h.hub.Unregister(auctionID, conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
