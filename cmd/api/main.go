package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/server"
	"github.com/example/storefront/pkg/service"
)

func main() {
	// Load config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting storefront API",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port))

	// MySQL
	db, err := repository.OpenDatabase(&cfg.MySQL)
	if err != nil {
		logger.Fatal("Failed to connect to MySQL", zap.Error(err))
	}

	// Redis cache and token blacklist
	redisRepo := repository.NewRedisRepository(&cfg.Redis)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisRepo.Ping(ctx); err != nil {
			logger.Warn("Failed to connect to Redis, continuing without cache", zap.Error(err))
			redisRepo = nil
		}
		cancel()
	}

	// MongoDB audit log
	mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		logger.Warn("Failed to connect to MongoDB, continuing without audit log", zap.Error(err))
		mongoRepo = nil
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	var cache service.ReportCache
	var blacklist service.TokenBlacklist
	if redisRepo != nil {
		cache = redisRepo
		blacklist = redisRepo
	}
	var audit service.AuditLogger
	if mongoRepo != nil {
		audit = mongoRepo
	}

	users := service.NewUserService(userRepo, tokens, blacklist, audit, logger)
	products := service.NewProductService(productRepo, cache, audit, logger)
	orders := service.NewOrderService(orderRepo, productRepo, cache, audit, logger)

	srv := server.New(cfg, logger, users, products, orders, tokens, blacklist)
	srv.SetupRoutes()

	// Start server in goroutine
	srvErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			srvErr <- err
		}
	}()

	logger.Info("API server started successfully")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-srvErr:
		logger.Fatal("Server error", zap.Error(err))
	}

	if redisRepo != nil {
		redisRepo.Close()
	}
	if mongoRepo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		mongoRepo.Close(ctx)
		cancel()
	}

	logger.Info("Server stopped")
}
