package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"kmz-server/config"
	"kmz-server/handlers"
	"kmz-server/logging"
	"kmz-server/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// One Mongo client for the whole process, injected below.
	mongoClient, err := services.ConnectMongo(ctx, cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("MongoDB connection failed")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logging.Warn().Err(err).Msg("MongoDB disconnect failed")
		}
	}()

	archiveService, err := services.NewArchiveService(cfg.DownloadDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to prepare download directory")
	}

	store := services.NewMongoRecordStore(mongoClient.Database(cfg.Store.Database))
	coordinateService := services.NewCoordinateService(store)
	kmzService := services.NewKMZService(coordinateService, archiveService)

	var kmzHandler *handlers.KMZHandler
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logging.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		registry := services.NewDownloadRegistry(redisClient)
		kmzHandler = handlers.NewKMZHandler(kmzService, registry, cfg.PublicBaseURL)
		logging.Info().Str("addr", cfg.RedisAddr).Msg("Download registry enabled")
	} else {
		kmzHandler = handlers.NewKMZHandler(kmzService, nil, cfg.PublicBaseURL)
		logging.Debug().Msg("REDIS_ADDR not set, download registry disabled")
	}

	r := handlers.NewRouter(kmzHandler, handlers.RouterConfig{
		DownloadDir:    archiveService.Dir(),
		AllowedOrigins: cfg.AllowedOrigins,
		HistoryEnabled: cfg.RedisAddr != "",
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	logging.Info().Str("addr", srv.Addr).Str("downloads", archiveService.Dir()).Msg("Server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Fatal().Err(err).Msg("Server failed")
	}
	logging.Info().Msg("Server stopped")
}
