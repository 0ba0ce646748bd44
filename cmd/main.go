package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"campuschat/internal/api/handler"
	"campuschat/internal/chathub"
	"campuschat/internal/config"
	"campuschat/internal/models"
	"campuschat/internal/storage"
)

func main() {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	hub := chathub.NewHub(log)

	if svc := setupStorage(cfg, log); svc != nil {
		hub.SetRecorder(svc)
	}

	r := gin.Default()
	h := handler.NewHandler(hub, log)
	h.STUNServer = cfg.STUNServer

	r.GET("/ws", h.ServeWebSocket)
	r.GET("/api/health", h.Health)
	r.GET("/api/status", h.Status)
	r.GET("/api/config", h.Config)

	server := &http.Server{
		Addr:           cfg.Addr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	hub.Broadcast("Server is shutting down.")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

// setupStorage builds the optional session recorder. Returns nil when
// neither backend is configured; the chat core runs fully in-memory.
func setupStorage(cfg *config.Config, log zerolog.Logger) *storage.Service {
	var db *gorm.DB
	var rdb *redis.Client

	if cfg.PostgresDSN != "" {
		var err error
		db, err = gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect PostgreSQL")
		}
		if err := db.AutoMigrate(&models.ChatRoom{}, &models.User{}); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		log.Info().Msg("PostgreSQL connected, migrations complete")
	}

	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		log.Info().Msg("redis connected")
	}

	if db == nil && rdb == nil {
		return nil
	}
	return storage.NewService(db, rdb)
}
