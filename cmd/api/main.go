package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"cvforge/internal/api"
	"cvforge/internal/auth"
	"cvforge/internal/config"
	"cvforge/internal/database"
	"cvforge/internal/editor"
	"cvforge/internal/metrics"
	"cvforge/internal/pdfcache"
	"cvforge/internal/render"
	"cvforge/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := db.AutoMigrate(&database.User{}, &database.Resume{}, &database.Asset{}); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	logger.Info("database ready",
		slog.String("host", cfg.Database.Host),
		slog.String("name", cfg.Database.Name),
	)

	privateKey, err := os.ReadFile(cfg.Auth.PrivateKeyPath)
	if err != nil {
		log.Fatalf("read private key: %v", err)
	}
	publicKey, err := os.ReadFile(cfg.Auth.PublicKeyPath)
	if err != nil {
		log.Fatalf("read public key: %v", err)
	}
	authService, err := auth.NewService(privateKey, publicKey, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage ready", slog.String("bucket", cfg.MinIO.Bucket))

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
	}()

	pdfCache := pdfcache.New(cfg.PDF.CacheTTL, cfg.PDF.CacheMaxEntries)
	pdfCache.OnEvict(metrics.ObservePDFCacheEviction)

	deps := api.Dependencies{
		DB:          db,
		AsynqClient: asynqClient,
		AuthService: authService,
		RedisClient: redisClient,
		Logger:      logger,
		Storage:     storageClient,
		Sessions:    editor.NewManager(cfg.Editor.MaxHistory, cfg.Editor.IdleTTL),
		PDFCache:    pdfCache,
		Generator:   render.NewRodGenerator(logger),
	}

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, deps, cfg)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening", slog.String("address", address))
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
