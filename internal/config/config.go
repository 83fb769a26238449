// Package config resolves the indexer's settings from the process
// environment: the one supported source per spec.md §6. Grounded on the
// teacher's internal/config/config.go, which read overrides with
// os.Getenv and failed fast with a ConfigurationError on anything
// malformed; the teacher's layer also accepted a YAML file as the base,
// which has no place here since spec.md requires env-only configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/vicimikul/lifi-fee-scraper/internal/apperr"
	"github.com/vicimikul/lifi-fee-scraper/internal/chainregistry"
)

// Config is the fully resolved process configuration.
type Config struct {
	MongoURI        string
	ContractAddress string
	Chains          []chainregistry.ChainInput
	ChunkSize       int
	HTTPPort        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

const (
	defaultChunkSize       = 500
	defaultHTTPPort        = "8080"
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultShutdownTimeout = 15 * time.Second
	defaultRPCTimeout      = 30 * time.Second
)

// Load reads and validates every setting the indexer needs, failing fast
// with a ConfigurationError describing exactly what is missing or
// malformed. The only file it reads is an optional .env in the working
// directory, loaded into the environment by loadDotEnv before any variable
// is read; there is no other config file.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Config{
		ChunkSize:       defaultChunkSize,
		HTTPPort:        defaultHTTPPort,
		LogLevel:        defaultLogLevel,
		LogFormat:       defaultLogFormat,
		ShutdownTimeout: defaultShutdownTimeout,
	}

	cfg.MongoURI = strings.TrimSpace(os.Getenv("MONGO_URI"))
	if cfg.MongoURI == "" {
		return nil, apperr.NewConfiguration("config.Load", fmt.Errorf("MONGO_URI is required"))
	}

	cfg.ContractAddress = strings.ToLower(strings.TrimSpace(os.Getenv("CONTRACT_ADDRESS")))
	if cfg.ContractAddress == "" {
		return nil, apperr.NewConfiguration("config.Load", fmt.Errorf("CONTRACT_ADDRESS is required"))
	}

	if v := os.Getenv("CHUNK_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, apperr.NewConfiguration("config.Load", fmt.Errorf("CHUNK_SIZE must be a positive integer, got %q", v))
		}
		cfg.ChunkSize = n
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.HTTPPort = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, apperr.NewConfiguration("config.Load", fmt.Errorf("SHUTDOWN_TIMEOUT must be a duration, got %q: %w", v, err))
		}
		cfg.ShutdownTimeout = d
	}

	chains, err := loadChains()
	if err != nil {
		return nil, err
	}
	cfg.Chains = chains

	return cfg, nil
}

// loadChains resolves ENABLED_CHAINS (a comma-separated list of chain IDs,
// defaulting to chainregistry.DefaultEnabledChainID) plus each enabled
// chain's <NAME>_RPC_URL, <NAME>_START_BLOCK and <NAME>_RPC_TIMEOUT, where
// <NAME> is the upper-cased chain name from chainregistry.Name.
func loadChains() ([]chainregistry.ChainInput, error) {
	raw := strings.TrimSpace(os.Getenv("ENABLED_CHAINS"))
	var ids []uint64
	if raw == "" {
		ids = []uint64{chainregistry.DefaultEnabledChainID}
	} else {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseUint(part, 10, 64)
			if err != nil {
				return nil, apperr.NewConfiguration("config.loadChains", fmt.Errorf("ENABLED_CHAINS entry %q is not a chain id: %w", part, err))
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, apperr.NewConfiguration("config.loadChains", fmt.Errorf("ENABLED_CHAINS resolved to an empty set"))
	}

	inputs := make([]chainregistry.ChainInput, 0, len(ids))
	for _, id := range ids {
		name, ok := chainregistry.Name[id]
		if !ok {
			return nil, apperr.NewConfiguration("config.loadChains", fmt.Errorf("chain id %d in ENABLED_CHAINS is not supported", id))
		}
		prefix := strings.ToUpper(name)

		rpcURL := strings.TrimSpace(os.Getenv(prefix + "_RPC_URL"))
		if rpcURL == "" {
			return nil, apperr.NewConfiguration("config.loadChains", fmt.Errorf("%s_RPC_URL is required for enabled chain %s (%d)", prefix, name, id))
		}

		var startBlock uint64
		if v := os.Getenv(prefix + "_START_BLOCK"); v != "" {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return nil, apperr.NewConfiguration("config.loadChains", fmt.Errorf("%s_START_BLOCK must be a non-negative integer, got %q", prefix, v))
			}
			startBlock = n
		}

		timeout := defaultRPCTimeout
		if v := os.Getenv(prefix + "_RPC_TIMEOUT"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, apperr.NewConfiguration("config.loadChains", fmt.Errorf("%s_RPC_TIMEOUT must be a duration, got %q: %w", prefix, v, err))
			}
			timeout = d
		}

		inputs = append(inputs, chainregistry.ChainInput{
			ChainID:    id,
			RPCURL:     rpcURL,
			StartBlock: startBlock,
			RPCTimeout: timeout,
		})
	}

	return inputs, nil
}

// loadDotEnv loads a .env file from the working directory if one exists.
// Absent files are not an error; operators running under a process
// supervisor that sets the environment directly never need one.
func loadDotEnv() error {
	info, err := os.Stat(".env")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return apperr.NewConfiguration("config.loadDotEnv", fmt.Errorf("failed to stat .env: %w", err))
	}
	if info.IsDir() {
		return apperr.NewConfiguration("config.loadDotEnv", fmt.Errorf(".env exists but is a directory"))
	}
	if err := godotenv.Load(".env"); err != nil {
		return apperr.NewConfiguration("config.loadDotEnv", fmt.Errorf("failed to load .env: %w", err))
	}
	return nil
}
