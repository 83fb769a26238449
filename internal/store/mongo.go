// Package store is the durable persistence layer: the Progress Store
// (per-chain scanning cursor) and the Event Store (deduplicated
// FeesCollected events), both backed by MongoDB.
//
// No example repo in the pack models a document store; the interface
// split here (one Go interface per store, one concrete Mongo type per
// interface) is grounded on the teacher's storage.Storage /
// PebbleStorage split in pkg/storage/pebble.go. See DESIGN.md for why
// go.mongodb.org/mongo-driver is the dependency spec.md §6 calls for
// even though it has no pack precedent.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/vicimikul/lifi-fee-scraper/internal/apperr"
)

// CollectionEvents and CollectionProgress are the two collections spec.md
// §6 names.
const (
	CollectionEvents   = "feeCollectedEvents"
	CollectionProgress = "lastScannedBlocks"
)

// Database wraps a connected Mongo client and the indexes required for
// correctness, and reports once (at startup) whether the connected
// topology supports multi-document transactions.
type Database struct {
	client              *mongo.Client
	db                  *mongo.Database
	supportsTransactions bool
}

// Connect dials MongoDB, verifies connectivity, ensures the indexes
// spec.md §4.4/§6 require, and detects transaction support once.
//
// Mixed transaction/no-transaction write path: the teacher's DESIGN NOTES
// call for feature-detecting at startup and picking one path rather than
// silently falling back per-call — a no-op session transaction against the
// connected topology tells us once whether InsertMany can run inside a
// transaction (replica set / sharded cluster) or must run as a bare
// unordered bulk insert (standalone mongod).
func Connect(ctx context.Context, uri, dbName string) (*Database, error) {
	if uri == "" {
		return nil, apperr.NewConfiguration("store.Connect", fmt.Errorf("MONGO_URI cannot be empty"))
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, apperr.NewDatabase("store.Connect", fmt.Errorf("failed to connect to mongo: %w", err))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, apperr.NewDatabase("store.Connect", fmt.Errorf("failed to ping mongo: %w", err))
	}

	d := &Database{client: client, db: client.Database(dbName)}
	d.supportsTransactions = detectTransactionSupport(ctx, client)

	if err := d.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, apperr.NewDatabase("store.Connect", fmt.Errorf("failed to ensure indexes: %w", err))
	}

	return d, nil
}

// Disconnect closes the underlying Mongo client. Called once during
// graceful shutdown, after the Scanner and HTTP server have stopped.
func (d *Database) Disconnect(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// SupportsTransactions reports whether InsertMany should run inside a
// session transaction.
func (d *Database) SupportsTransactions() bool {
	return d.supportsTransactions
}

func detectTransactionSupport(ctx context.Context, client *mongo.Client) bool {
	sess, err := client.StartSession()
	if err != nil {
		return false
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, nil
	})
	return err == nil
}

func (d *Database) ensureIndexes(ctx context.Context) error {
	events := d.db.Collection(CollectionEvents)
	if _, err := events.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "chainId", Value: 1},
				{Key: "transactionHash", Value: 1},
				{Key: "logIndex", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_chain_tx_log"),
		},
		{
			Keys: bson.D{
				{Key: "integrator", Value: 1},
				{Key: "chainId", Value: 1},
			},
			Options: options.Index().SetName("by_integrator_chain"),
		},
	}); err != nil {
		return err
	}

	progress := d.db.Collection(CollectionProgress)
	_, err := progress.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "chainId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_chain"),
	})
	return err
}
