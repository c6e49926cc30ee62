package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/gardenfi/swapd/internal/config"
	"github.com/gardenfi/swapd/internal/database"
	"github.com/gardenfi/swapd/internal/watcher"
)

func main() {
	configPath := flag.String("config", "Watcher.toml", "path to the watcher configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadWatcher(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	db, err := database.New(cfg.Core.DBURL)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	store := database.NewOrderStore(db, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	clients := make(map[uint64]watcher.EthClient)

	for _, chain := range cfg.Chains {
		if chain.ChainType != config.ChainEVM {
			logger.Warn("skipping unsupported watcher chain type",
				zap.String("chain", chain.Name),
				zap.String("chain_type", string(chain.ChainType)))
			continue
		}

		client, err := ethclient.Dial(chain.RPCURL)
		if err != nil {
			logger.Fatal("failed to connect to chain",
				zap.String("chain", chain.Name), zap.Error(err))
		}
		clients[chain.ChainID] = client

		w, err := watcher.New(client, chain.ContractAddress, chain.Name, chain.StartBlock, store, logger)
		if err != nil {
			logger.Fatal("failed to create watcher",
				zap.String("chain", chain.Name), zap.Error(err))
		}
		if cfg.Core.PollingInterval > 0 {
			w.SetPollInterval(time.Duration(cfg.Core.PollingInterval) * time.Millisecond)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}

	monitor, err := watcher.NewEscrowMonitor(clients, store, logger)
	if err != nil {
		logger.Fatal("failed to create escrow monitor", zap.Error(err))
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		monitor.Run(ctx)
	}()

	logger.Info("watcher service started", zap.Int("chains", len(clients)))

	<-ctx.Done()
	logger.Info("shutdown signal received")
	wg.Wait()
}
