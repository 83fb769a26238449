package scanner

import (
	"context"

	"github.com/vicimikul/lifi-fee-scraper/internal/model"
)

// ChainClient is the subset of internal/chainclient.Client the Scanner
// consumes. Defined on the consumer side so unit tests can supply a fake
// without dialing a real RPC endpoint.
type ChainClient interface {
	LatestBlock(ctx context.Context) (uint64, error)
	FetchEvents(ctx context.Context, from, to uint64) ([]*model.FeeEvent, error)
}

// ProgressStore is the subset of internal/store.ProgressStore the Scanner
// consumes.
type ProgressStore interface {
	Get(ctx context.Context, chainID uint64, configuredStart uint64) (blockNumber uint64, existed bool, err error)
	Set(ctx context.Context, chainID uint64, blockNumber int64) error
}

// EventStore is the subset of internal/store.EventStore the Scanner
// consumes.
type EventStore interface {
	InsertMany(ctx context.Context, events []*model.FeeEvent, chainID uint64) error
}
