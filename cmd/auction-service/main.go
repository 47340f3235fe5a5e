package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-house/internal/api/handlers"
	apimiddleware "auction-house/internal/api/middleware"
	"auction-house/internal/config"
	"auction-house/internal/domain"
	"auction-house/internal/infrastructure/memory"
	"auction-house/internal/infrastructure/mysql"
	redisinfra "auction-house/internal/infrastructure/redis"
	"auction-house/internal/services"
	"auction-house/pkg/logger"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	log := logger.New()
	log.Info("starting auction service")

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Error("JWT_SECRET is required")
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

	var store domain.AuctionStore
	switch cfg.Store.Driver {
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			log.Error("failed to open mysql", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

		if err := db.PingContext(ctx); err != nil {
			log.Error("failed to ping mysql", "error", err)
			os.Exit(1)
		}
		log.Info("connected to mysql")
		store = mysql.NewAuctionStore(db)
	case "memory":
		store = memory.NewAuctionStore()
		log.Info("using in-memory auction store")
	default:
		log.Error("unknown store driver", "driver", cfg.Store.Driver)
		os.Exit(1)
	}

	clock := domain.SystemClock()
	events := redisinfra.NewEventPublisher(rdb)

	admission := services.NewBidAdmissionService(store, clock, events, log)
	auctions := services.NewAuctionService(store, clock, admission, log)
	sweeper := services.NewLifecycleSweeper(store, clock, admission, cfg.Sweeper.Interval, log)

	verifier := apimiddleware.NewJWTVerifier(cfg.Auth.JWTSecret)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.OPTIONS,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
		},
	}))

	auctionHandler := handlers.NewAuctionHandler(auctions, log)
	auctionHandler.Register(e.Group("/api/v1"), apimiddleware.RequireAuth(verifier))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "auction-service",
			"timestamp": clock.Now().Format(time.RFC3339),
		})
	})

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	if err := sweeper.Start(sweepCtx); err != nil {
		log.Error("failed to start lifecycle sweeper", "error", err)
		os.Exit(1)
	}

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Info("starting http server", "address", serverAddr)
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down auction service")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := sweeper.Stop(); err != nil {
		log.Error("failed to stop sweeper", "error", err)
	}
	stopSweep()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("auction service stopped")
}
