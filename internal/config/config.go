package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ChainType names a chain family handled by one adapter implementation
type ChainType string

const (
	ChainEVM     ChainType = "evm"
	ChainSolana  ChainType = "solana"
	ChainBitcoin ChainType = "bitcoin"
)

// Relayer is the configuration consumed by the orderbook service
type Relayer struct {
	DBURL string `toml:"db_url"`
	Port  uint16 `toml:"port"`
}

// Chain describes one chain an operator wants watched or resolved
type Chain struct {
	Name                    string    `toml:"name"`
	ChainType               ChainType `toml:"chain_type"`
	ChainID                 uint64    `toml:"chain_id"`
	RPCURL                  string    `toml:"rpc_url"`
	ContractAddress         string    `toml:"contract_address"`
	StartBlock              uint64    `toml:"start_block"`
	Assets                  []string  `toml:"assets"`
	ResolverContractAddress string    `toml:"resolver_contract_address"`
	PrivateKey              string    `toml:"private_key"`
}

// Watcher is the configuration consumed by the watcher service
type Watcher struct {
	Core struct {
		DBURL           string `toml:"db_url"`
		PollingInterval uint64 `toml:"polling_interval"`
	} `toml:"core"`
	Chains []Chain `toml:"chains"`
}

// Resolver is the configuration consumed by the resolver service
type Resolver struct {
	OrdersURL      string  `toml:"orders_url"`
	PollInterval   uint64  `toml:"poll_interval"`
	ActionTTL      uint64  `toml:"action_ttl"`
	OrderSeedFile  string  `toml:"order_seed_file"`
	BitcoinNetwork string  `toml:"bitcoin_network"`
	Chains         []Chain `toml:"chains"`
}

// PollIntervalDuration returns the resolver poll interval, defaulting to 5s
func (r *Resolver) PollIntervalDuration() time.Duration {
	if r.PollInterval == 0 {
		return 5 * time.Second
	}
	return time.Duration(r.PollInterval) * time.Second
}

// ActionTTLDuration returns the dedup window, defaulting to 5 minutes
func (r *Resolver) ActionTTLDuration() time.Duration {
	if r.ActionTTL == 0 {
		return 5 * time.Minute
	}
	return time.Duration(r.ActionTTL) * time.Second
}

// LoadRelayer loads the orderbook configuration from a TOML document
func LoadRelayer(path string) (*Relayer, error) {
	var cfg Relayer
	if err := load(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.DBURL == "" {
		return nil, fmt.Errorf("config %s: db_url is required", path)
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	cfg.DBURL = resolveEnvRef(cfg.DBURL)
	return &cfg, nil
}

// LoadWatcher loads the watcher configuration from a TOML document
func LoadWatcher(path string) (*Watcher, error) {
	var cfg Watcher
	if err := load(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Core.DBURL == "" {
		return nil, fmt.Errorf("config %s: core.db_url is required", path)
	}
	cfg.Core.DBURL = resolveEnvRef(cfg.Core.DBURL)
	for i := range cfg.Chains {
		if err := resolveChain(&cfg.Chains[i]); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}
	return &cfg, nil
}

// LoadResolver loads the resolver configuration from a TOML document
func LoadResolver(path string) (*Resolver, error) {
	var cfg Resolver
	if err := load(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.OrdersURL == "" {
		return nil, fmt.Errorf("config %s: orders_url is required", path)
	}
	for i := range cfg.Chains {
		if err := resolveChain(&cfg.Chains[i]); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}
	return &cfg, nil
}

func load(path string, v interface{}) error {
	if _, err := toml.DecodeFile(path, v); err != nil {
		return fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}
	return nil
}

func resolveChain(c *Chain) error {
	switch c.ChainType {
	case ChainEVM, ChainSolana, ChainBitcoin:
	default:
		return fmt.Errorf("chain %s: unsupported chain_type %q", c.Name, c.ChainType)
	}
	if c.RPCURL == "" {
		return fmt.Errorf("chain %s: rpc_url is required", c.Name)
	}

	resolved, err := resolvePrivateKey(c.PrivateKey)
	if err != nil {
		return fmt.Errorf("chain %s: %w", c.Name, err)
	}
	c.PrivateKey = resolved
	return nil
}

// resolvePrivateKey resolves a #ENV:NAME reference from the environment.
// Literal keys pass through untouched.
func resolvePrivateKey(value string) (string, error) {
	if !strings.HasPrefix(value, "#ENV:") {
		return value, nil
	}
	name := strings.TrimPrefix(value, "#ENV:")
	resolved, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("environment variable %q not found", name)
	}
	return resolved, nil
}

func resolveEnvRef(value string) string {
	if resolved, err := resolvePrivateKey(value); err == nil {
		return resolved
	}
	return value
}
