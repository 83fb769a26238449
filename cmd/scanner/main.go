// Command scanner wires configuration, storage, chain clients and the
// Scanner into a running process, then exposes the HTTP read path until
// it receives SIGINT/SIGTERM.
//
// Grounded on the teacher's cmd/indexer/main.go: env config loaded first,
// fatal on any ConfigurationError, construct shared resources once,
// launch the long-running work, then block on an OS signal channel for
// graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vicimikul/lifi-fee-scraper/internal/chainclient"
	"github.com/vicimikul/lifi-fee-scraper/internal/chainregistry"
	"github.com/vicimikul/lifi-fee-scraper/internal/config"
	"github.com/vicimikul/lifi-fee-scraper/internal/httpapi"
	"github.com/vicimikul/lifi-fee-scraper/internal/logger"
	"github.com/vicimikul/lifi-fee-scraper/internal/scanner"
	"github.com/vicimikul/lifi-fee-scraper/internal/store"
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Connect(ctx, cfg.MongoURI, "lifi_fee_scraper")
	if err != nil {
		log.Error("failed to connect to storage", zap.Error(err))
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := db.Disconnect(shutdownCtx); err != nil {
			log.Error("failed to disconnect storage cleanly", zap.Error(err))
		}
	}()

	registry, err := chainregistry.New(cfg.ContractAddress, cfg.Chains)
	if err != nil {
		log.Error("invalid chain configuration", zap.Error(err))
		return err
	}

	progressStore := store.NewProgressStore(db)
	eventStore := store.NewEventStore(db)

	chains := make([]scanner.Chain, 0, len(registry.List()))
	for _, desc := range registry.List() {
		client, err := chainclient.NewClient(ctx, chainclient.Config{
			ChainID:         desc.ChainID,
			RPCURL:          desc.RPCURL,
			ContractAddress: desc.ContractAddress,
			Logger:          log,
		})
		if err != nil {
			log.Error("failed to dial chain", zap.Uint64("chainId", desc.ChainID), zap.Error(err))
			return err
		}
		defer client.Close()
		chains = append(chains, scanner.Chain{Descriptor: desc, Client: client})
	}

	sc, err := scanner.New(scanner.Config{
		Chains:    chains,
		Progress:  progressStore,
		Events:    eventStore,
		ChunkSize: cfg.ChunkSize,
		Metrics:   scanner.NewMetrics(prometheus.DefaultRegisterer),
		Logger:    log,
	})
	if err != nil {
		log.Error("failed to construct scanner", zap.Error(err))
		return err
	}

	scanDone := make(chan struct{})
	go func() {
		sc.Run(ctx)
		close(scanDone)
	}()

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: httpapi.New(eventStore, log),
	}
	go func() {
		log.Info("http server listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server did not shut down cleanly", zap.Error(err))
	}

	// Wait for every chain's in-flight window to finish persisting before
	// the deferred db.Disconnect above runs; scanChain's ctx.Done() check
	// stops it from launching another one in the meantime.
	select {
	case <-scanDone:
		log.Info("scanner drained")
	case <-shutdownCtx.Done():
		log.Warn("timed out waiting for scanner to drain in-flight windows")
	}

	return nil
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.NewWithConfig(&logger.Config{
		Level:       cfg.LogLevel,
		Encoding:    cfg.LogFormat,
		Development: false,
	})
}

