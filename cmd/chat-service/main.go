package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	recoverer "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/driftchat/chat-service/config"
	"github.com/driftchat/chat-service/internal/events"
	"github.com/driftchat/chat-service/internal/handlers"
	"github.com/driftchat/chat-service/internal/metrics"
	"github.com/driftchat/chat-service/internal/middleware"
	"github.com/driftchat/chat-service/internal/presence"
	"github.com/driftchat/chat-service/internal/repository"
	"github.com/driftchat/chat-service/internal/service"
	"github.com/driftchat/chat-service/internal/ws"
	"github.com/driftchat/chat-service/pkg/logger"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zlog, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	// Mongo
	mc, err := repository.NewMongoClient(cfg)
	if err != nil {
		zlog.Fatalw("mongo init", "err", err)
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()
	db := mc.Database(cfg.Mongo.Database)

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// Repositories
	userRepo := repository.NewUserRepository(db.Collection("users"))
	convRepo := repository.NewConversationRepository(db.Collection("conversations"))
	memberRepo := repository.NewMemberRepository(db.Collection("conversation_members"))
	msgRepo := repository.NewMessageRepository(db.Collection("messages"))
	typingRepo := repository.NewTypingRepository(db.Collection("typing_indicators"))

	// Event bus: in-process hub + Redis cross-instance + Kafka out
	bus := events.NewBus(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, rdb, "chat:events", zlog)
	defer bus.Close()

	// Services
	presenceStore := presence.NewStore(rdb, "chat", cfg.PresenceTTL)
	userSvc := service.NewUserService(userRepo, presenceStore, zlog)
	convSvc := service.NewConversationService(convRepo, memberRepo, msgRepo, userRepo, bus, zlog)
	msgSvc := service.NewMessageService(msgRepo, convRepo, memberRepo, userRepo, typingRepo, bus, zlog)
	typingSvc := service.NewTypingService(typingRepo, userRepo, bus, zlog)

	verifier, err := middleware.NewVerifier(cfg.JWT.PublicKeyPath)
	if err != nil {
		zlog.Fatalw("jwt verifier", "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := ws.NewHub(verifier, userRepo, memberRepo, zlog)
	bus.Subscribe(hub.HandleEvent)
	go hub.Run(ctx)
	go bus.Run(ctx)

	sweeper := service.NewSweeper(msgSvc, cfg.CleanupInterval, zlog)
	go sweeper.Run(ctx)

	// HTTP
	app := fiber.New(fiber.Config{ReadTimeout: cfg.RequestTimeout})
	app.Use(recoverer.New())
	app.Use(cors.New())
	handlers.Register(app, verifier, hub,
		handlers.NewUserHandler(userSvc, zlog),
		handlers.NewConversationHandler(convSvc, userSvc, zlog),
		handlers.NewMessageHandler(msgSvc, userSvc, zlog),
		handlers.NewTypingHandler(typingSvc, userSvc, zlog),
	)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		if err := app.Listen(addr); err != nil {
			zlog.Fatalw("server listen", "err", err)
		}
	}()
	zlog.Infow("chat-service started", "port", cfg.App.Port)

	// Metrics on a separate listener
	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.MetricsPort),
		Handler: metrics.Handler(),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Warnw("metrics listen", "err", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = app.ShutdownWithContext(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	zlog.Infow("chat-service stopped")
}
