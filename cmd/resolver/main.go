package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/gardenfi/swapd/internal/adapters"
	"github.com/gardenfi/swapd/internal/config"
	"github.com/gardenfi/swapd/internal/resolver"
)

func main() {
	configPath := flag.String("config", "Resolver.toml", "path to the resolver configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadResolver(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	r, err := resolver.New(resolver.Config{
		Orders:       resolver.NewOrdersClient(cfg.OrdersURL),
		PollInterval: cfg.PollIntervalDuration(),
		ActionTTL:    cfg.ActionTTLDuration(),
		SeedFile:     cfg.OrderSeedFile,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal("failed to create resolver", zap.Error(err))
	}

	for _, chain := range cfg.Chains {
		adapter, err := buildAdapter(&chain, cfg, logger)
		if err != nil {
			logger.Fatal("failed to create chain adapter",
				zap.String("chain", chain.Name), zap.Error(err))
		}
		r.AddChain(adapter, chain.Assets)
		logger.Info("chain adapter registered",
			zap.String("chain", chain.Name),
			zap.Uint64("chain_id", chain.ChainID),
			zap.Int("assets", len(chain.Assets)))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := r.Run(ctx); err != nil {
		logger.Fatal("resolver error", zap.Error(err))
	}
}

func buildAdapter(chain *config.Chain, cfg *config.Resolver, logger *zap.Logger) (adapters.ChainAdapter, error) {
	switch chain.ChainType {
	case config.ChainEVM:
		return adapters.NewEVMAdapter(
			chain.RPCURL, chain.ResolverContractAddress, chain.PrivateKey,
			chain.ChainID, logger)
	case config.ChainSolana:
		return adapters.NewSolanaAdapter(chain.RPCURL, chain.ChainID, logger), nil
	case config.ChainBitcoin:
		params := bitcoinParams(cfg.BitcoinNetwork)
		rpc := adapters.NewEsploraClient(chain.RPCURL)
		return adapters.NewBitcoinAdapter(rpc, chain.ChainID, params, chain.PrivateKey, logger), nil
	}
	return nil, fmt.Errorf("unsupported chain_type %q", chain.ChainType)
}

func bitcoinParams(network string) *chaincfg.Params {
	switch network {
	case "mainnet":
		return &chaincfg.MainNetParams
	case "regtest":
		return &chaincfg.RegressionNetParams
	default:
		return &chaincfg.TestNet3Params
	}
}
