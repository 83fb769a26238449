package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vicimikul/lifi-fee-scraper/internal/apperr"
)

// ProgressStore is the durable chainId -> lastScannedBlock mapping
// spec.md §4.3 specifies.
type ProgressStore struct {
	coll *mongo.Collection
}

func NewProgressStore(db *Database) *ProgressStore {
	return &ProgressStore{coll: db.db.Collection(CollectionProgress)}
}

type progressDoc struct {
	ChainID     uint64    `bson:"chainId"`
	BlockNumber uint64    `bson:"blockNumber"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

// Get returns the stored cursor for chainID, or configuredStart if no
// record exists. The returned bool reports whether a record existed, so
// the Scanner can distinguish "resume at cursor+1" from "start fresh at
// configuredStart".
func (s *ProgressStore) Get(ctx context.Context, chainID uint64, configuredStart uint64) (uint64, bool, error) {
	var doc progressDoc
	err := s.coll.FindOne(ctx, bson.M{"chainId": chainID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return configuredStart, false, nil
	}
	if err != nil {
		return 0, false, apperr.NewDatabase("ProgressStore.Get", err)
	}
	return doc.BlockNumber, true, nil
}

// Set unconditionally upserts the cursor for chainID. Last-write-wins;
// multi-writer coordination is out of scope per spec.md §1. blockNumber is
// signed so a negative value (a malformed caller, never the Scanner's
// happy path) is rejected as a ValidationError with no write, per spec.md
// §4.3/§8, rather than silently wrapping to a huge uint64.
func (s *ProgressStore) Set(ctx context.Context, chainID uint64, blockNumber int64) error {
	if blockNumber < 0 {
		return apperr.NewValidation("ProgressStore.Set", fmt.Errorf("blockNumber %d cannot be negative", blockNumber))
	}
	doc := progressDoc{ChainID: chainID, BlockNumber: uint64(blockNumber), UpdatedAt: time.Now().UTC()}
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"chainId": chainID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return apperr.NewDatabase("ProgressStore.Set", err)
	}
	return nil
}
