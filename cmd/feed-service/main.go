package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apimiddleware "auction-house/internal/api/middleware"
	"auction-house/internal/config"
	"auction-house/internal/domain"
	redisinfra "auction-house/internal/infrastructure/redis"
	"auction-house/internal/infrastructure/websocket"
	"auction-house/pkg/logger"

	redisClient "github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
)

// feed-service fans admitted bids and closures out to websocket watchers. It
// holds no auction state of its own; everything arrives over the event bus.
func main() {
	log := logger.New()
	log.Info("starting feed service")

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to redis", "address", cfg.Redis.Address)

	hub := websocket.NewHub(log)
	wsHandler := websocket.NewHandler(hub, log)
	subscriber := redisinfra.NewEventSubscriber(rdb, log)

	subCtx, stopSub := context.WithCancel(context.Background())
	defer stopSub()

	go func() {
		err := subscriber.SubscribeToBidEvents(subCtx, func(event *domain.BidEvent) error {
			switch event.Type {
			case domain.BidAccepted:
				return hub.BroadcastToAuction(event.AuctionID, map[string]interface{}{
					"type":           "bid_update",
					"current_bid":    event.Amount,
					"current_winner": event.UserID,
					"timestamp":      event.Timestamp,
				})
			case domain.AuctionClosed:
				if err := hub.BroadcastToAuction(event.AuctionID, map[string]interface{}{
					"type":      "auction_closed",
					"timestamp": event.Timestamp,
				}); err != nil {
					return err
				}
				hub.CloseAuction(event.AuctionID)
				return nil
			default:
				// Rejections are private to the bidder; nothing to broadcast.
				return nil
			}
		})
		if err != nil && subCtx.Err() == nil {
			log.Error("event subscription ended", "error", err)
		}
	}()

	router := mux.NewRouter()
	router.Use(apimiddleware.CORS)
	router.HandleFunc("/ws/auctions/{auctionID}", wsHandler.HandleConnection)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info("starting feed server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down feed service")
	stopSub()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("feed service stopped")
}
