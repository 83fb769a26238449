// Package scanner is the orchestrator spec.md §4.5 calls the Scanner: for
// every enabled chain, it resumes from the last confirmed block, pages
// forward through fixed-size windows, fetches and persists decoded events,
// and advances progress — independently and concurrently across chains.
//
// Grounded on the teacher's pkg/multichain/instance.go (one background
// goroutine per chain, context-driven cancellation, atomic counters) and
// pkg/multichain/manager.go (Start launching one goroutine per enabled
// chain, sync.WaitGroup fan-in, "log a chain's terminal error, don't cancel
// siblings").
package scanner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/vicimikul/lifi-fee-scraper/internal/apperr"
	"github.com/vicimikul/lifi-fee-scraper/internal/chainregistry"
)

// Chain bundles one chain's descriptor and its dedicated Chain Client.
type Chain struct {
	Descriptor chainregistry.ChainDescriptor
	Client     ChainClient
}

// Scanner is the top-level entry point: one cooperative task per enabled
// chain, run in parallel, sharing the Progress Store and Event Store.
type Scanner struct {
	chains    []Chain
	progress  ProgressStore
	events    EventStore
	chunkSize uint64
	metrics   *Metrics
	logger    *zap.Logger
}

// Config configures a Scanner instance.
type Config struct {
	Chains    []Chain
	Progress  ProgressStore
	Events    EventStore
	ChunkSize int
	Metrics   *Metrics
	Logger    *zap.Logger
}

// New validates and builds a Scanner. ChunkSize must be >= 1; 0 is rejected
// at configuration time per spec.md §4.5.
func New(cfg Config) (*Scanner, error) {
	if cfg.ChunkSize < 1 {
		return nil, apperr.NewConfiguration("scanner.New", fmt.Errorf("chunkSize %d must be >= 1", cfg.ChunkSize))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		chains:    cfg.Chains,
		progress:  cfg.Progress,
		events:    cfg.Events,
		chunkSize: uint64(cfg.ChunkSize),
		metrics:   cfg.Metrics,
		logger:    logger.Named("scanner"),
	}, nil
}

// Run launches one goroutine per enabled chain and waits for all of them.
// A failure in one chain's task is logged but never cancels the others,
// per spec.md §4.5's multi-chain scheduling rule. Run returns once every
// chain task has finished — either by reaching "up to date" or by
// aborting on a BlockchainError/DatabaseError.
func (s *Scanner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, chain := range s.chains {
		chain := chain
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.scanChain(ctx, chain); err != nil {
				s.logger.Error("chain scan terminated with error",
					zap.Uint64("chainId", chain.Descriptor.ChainID),
					zap.Error(err),
				)
				if s.metrics != nil {
					s.metrics.ChainErrors.WithLabelValues(chainLabel(chain.Descriptor.ChainID)).Inc()
				}
			}
		}()
	}
	wg.Wait()
}

// scanChain runs the Idle -> Resolving -> Windowing -> (Fetching ->
// Persisting -> Advancing)* -> Idle state machine for a single chain.
func (s *Scanner) scanChain(ctx context.Context, chain Chain) error {
	chainID := chain.Descriptor.ChainID
	log := s.logger.With(zap.Uint64("chainId", chainID))

	head, err := chain.Client.LatestBlock(ctx)
	if err != nil {
		return err
	}

	cursor, existed, err := s.progress.Get(ctx, chainID, chain.Descriptor.StartBlock)
	if err != nil {
		return err
	}

	var from uint64
	if existed {
		from = cursor + 1
	} else {
		from = chain.Descriptor.StartBlock
	}

	if from >= head {
		log.Info("up to date", zap.Uint64("from", from), zap.Uint64("head", head))
		return nil
	}

	for current := from; current < head; current += s.chunkSize {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		windowEnd := current + s.chunkSize - 1
		if windowEnd > head {
			windowEnd = head
		}

		// A window, once started, runs to completion even if ctx is
		// cancelled mid-flight: spec.md §5 requires that shutdown stop new
		// windows from launching, not abort the persist/advance of one
		// already in progress. The next loop iteration's ctx.Done() check
		// above is what actually stops the chain.
		windowCtx := context.WithoutCancel(ctx)
		if err := s.scanWindow(windowCtx, chain, current, windowEnd); err != nil {
			if isAbortingError(err) {
				return err
			}
			// Unknown-error policy: skip this window and continue. Kept
			// as spec.md mandates (inherited from the source); this risks
			// silently dropping a window if the cause recurs, which is
			// why it is logged at warn level with the exact range.
			log.Warn("skipping window after unknown error",
				zap.Uint64("from", current), zap.Uint64("to", windowEnd),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (s *Scanner) scanWindow(ctx context.Context, chain Chain, from, to uint64) error {
	chainID := chain.Descriptor.ChainID

	events, err := chain.Client.FetchEvents(ctx, from, to)
	if err != nil {
		return err
	}

	if err := s.events.InsertMany(ctx, events, chainID); err != nil {
		return err
	}

	if err := s.progress.Set(ctx, chainID, int64(to)); err != nil {
		return err
	}

	if s.metrics != nil {
		label := chainLabel(chainID)
		s.metrics.WindowsProcessed.WithLabelValues(label).Inc()
		s.metrics.EventsPersisted.WithLabelValues(label).Add(float64(len(events)))
	}

	return nil
}

// isAbortingError reports whether err is a BlockchainError or
// DatabaseError — the two kinds spec.md §4.5/§7 require to abort the
// chain's run rather than be skipped.
func isAbortingError(err error) bool {
	var be *apperr.BlockchainError
	var de *apperr.DatabaseError
	return errors.As(err, &be) || errors.As(err, &de)
}

func chainLabel(chainID uint64) string {
	return strconv.FormatUint(chainID, 10)
}
