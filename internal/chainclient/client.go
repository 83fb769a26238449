// Package chainclient is the chain-scoped façade over JSON-RPC and ABI
// decoding spec.md §4.2 calls the Chain Client. One Client exists per
// chain; its provider is dialed eagerly in NewClient (not on first use) and
// cached for the process lifetime by the caller (the Scanner holds one per
// chain).
//
// Grounded on the teacher's pkg/client/client.go (ethclient + rpc.Client
// pair, dial-then-Ping verification, *zap.Logger field, fmt.Errorf-wrapped
// methods) and pkg/events/parser_interfaces.go (ABI decoding of indexed and
// non-indexed event arguments).
package chainclient

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/vicimikul/lifi-fee-scraper/internal/apperr"
	"github.com/vicimikul/lifi-fee-scraper/internal/model"
)

// Config configures a single chain's Client.
type Config struct {
	ChainID         uint64
	RPCURL          string
	ContractAddress string
	Logger          *zap.Logger
}

// Client wraps a single chain's JSON-RPC endpoint and the FeesCollected
// ABI decoder.
type Client struct {
	chainID uint64
	address common.Address
	eth     *ethclient.Client
	rpc     *rpc.Client
	decoder *eventDecoder
	logger  *zap.Logger
}

// NewClient dials the RPC endpoint and verifies connectivity. Dialing is
// eager here (mirroring the teacher's NewClient) because a bad endpoint
// should fail chain registration, not the first scan window.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, apperr.NewConfiguration("chainclient.NewClient", fmt.Errorf("rpc url cannot be empty"))
	}
	if !model.IsValidAddress(cfg.ContractAddress) {
		return nil, apperr.NewConfiguration("chainclient.NewClient", fmt.Errorf("invalid contract address %q", cfg.ContractAddress))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rpcClient, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, apperr.NewBlockchain("chainclient.NewClient", "NetworkError", fmt.Errorf("failed to connect to RPC endpoint: %w", err))
	}
	ethClient := ethclient.NewClient(rpcClient)

	decoder, err := newEventDecoder()
	if err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("failed to build event decoder: %w", err)
	}

	c := &Client{
		chainID: cfg.ChainID,
		address: common.HexToAddress(cfg.ContractAddress),
		eth:     ethClient,
		rpc:     rpcClient,
		decoder: decoder,
		logger:  logger.With(zap.Uint64("chainId", cfg.ChainID)),
	}

	if _, err := c.eth.ChainID(ctx); err != nil {
		rpcClient.Close()
		return nil, classify("chainclient.NewClient", err)
	}

	c.logger.Info("connected to chain RPC", zap.String("endpoint", cfg.RPCURL))
	return c, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	if c.eth != nil {
		c.eth.Close()
	}
}

// LatestBlock returns the chain head.
func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, classify("LatestBlock", err)
	}
	return n, nil
}

// FetchEvents queries the closed interval [from, to] for FeesCollected logs
// emitted by the configured contract address and decodes each one. The
// returned events do not carry ChainID — the caller (the Scanner) attaches
// it before persisting, since the Chain Client is chain-scoped by
// construction and spec.md keeps the identity/decoration split explicit.
func (c *Client) FetchEvents(ctx context.Context, from, to uint64) ([]*model.FeeEvent, error) {
	if from > to {
		return nil, apperr.NewValidation("FetchEvents", fmt.Errorf("invalid window [%d,%d]: from > to", from, to))
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{c.address},
	}

	logs, err := c.eth.FilterLogs(ctx, query)
	if err != nil {
		return nil, classify("FetchEvents", err)
	}

	events := make([]*model.FeeEvent, 0, len(logs))
	for _, log := range logs {
		if log.Removed {
			continue
		}
		ev, err := c.decoder.decode(log)
		if err != nil {
			return nil, apperr.NewBlockchain("FetchEvents", "", fmt.Errorf("invalid event data: %w", err))
		}
		events = append(events, ev)
	}
	return events, nil
}

// classify maps a raw transport error onto the Timeout / RPCError /
// NetworkError / generic BlockchainError kinds spec.md §4.2 requires.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperr.NewBlockchain(op, "Timeout", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return apperr.NewBlockchain(op, "Timeout", err)
		}
		return apperr.NewBlockchain(op, "NetworkError", err)
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return apperr.NewBlockchain(op, "RPCError", err)
	}
	if strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return apperr.NewBlockchain(op, "Timeout", err)
	}
	return apperr.NewBlockchain(op, "", err)
}
