package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/gardenfi/swapd/internal/config"
	"github.com/gardenfi/swapd/internal/relayer"
)

func main() {
	configPath := flag.String("config", "Relayer.toml", "path to the relayer configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadRelayer(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	r, err := relayer.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create relayer", zap.Error(err))
	}

	go func() {
		if err := r.Start(ctx); err != nil {
			logger.Error("relayer error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")
	r.Stop()
}
