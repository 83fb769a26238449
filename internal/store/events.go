package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vicimikul/lifi-fee-scraper/internal/apperr"
	"github.com/vicimikul/lifi-fee-scraper/internal/model"
)

// EventStore is the durable, deduplicated collection of decoded
// FeesCollected events spec.md §4.4 specifies.
type EventStore struct {
	coll   *mongo.Collection
	client *mongo.Client
	supportsTransactions bool
}

func NewEventStore(db *Database) *EventStore {
	return &EventStore{
		coll:                 db.db.Collection(CollectionEvents),
		client:               db.client,
		supportsTransactions: db.supportsTransactions,
	}
}

type eventDoc struct {
	ChainID         uint64    `bson:"chainId"`
	ContractAddress string    `bson:"contractAddress"`
	Token           string    `bson:"token"`
	Integrator      string    `bson:"integrator"`
	IntegratorFee   string    `bson:"integratorFee"`
	LifiFee         string    `bson:"lifiFee"`
	BlockNumber     uint64    `bson:"blockNumber"`
	TransactionHash string    `bson:"transactionHash"`
	LogIndex        uint64    `bson:"logIndex"`
	CreatedAt       time.Time `bson:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt"`
}

// InsertMany persists a batch of events, all tagged with chainID, following
// the five-step procedure spec.md §4.4 mandates: compute identities, read
// which already exist, filter, validate, then bulk-insert the remainder
// unordered so one duplicate-key conflict never aborts its siblings.
func (s *EventStore) InsertMany(ctx context.Context, events []*model.FeeEvent, chainID uint64) error {
	if len(events) == 0 {
		return nil
	}

	existing, err := s.existingIdentities(ctx, chainID, events)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(events))
	for _, ev := range events {
		id := model.Identity{ChainID: chainID, TransactionHash: ev.TransactionHash, LogIndex: ev.LogIndex}
		if existing[id] {
			continue
		}

		// Validate the raw event, then the chainId/contractAddress-decorated
		// storage record, per spec.md §4.4 step 4. A schema violation aborts
		// the whole batch and persists nothing from it.
		if err := ev.Validate(); err != nil {
			return apperr.NewValidation("EventStore.InsertMany", fmt.Errorf("event %s:%d: %w", ev.TransactionHash, ev.LogIndex, err))
		}
		if chainID == 0 {
			return apperr.NewValidation("EventStore.InsertMany", fmt.Errorf("chainId cannot be zero"))
		}
		if !model.IsValidAddress(ev.ContractAddress) {
			return apperr.NewValidation("EventStore.InsertMany", fmt.Errorf("invalid contractAddress %q", ev.ContractAddress))
		}

		docs = append(docs, eventDoc{
			ChainID:         chainID,
			ContractAddress: ev.ContractAddress,
			Token:           ev.Token,
			Integrator:      ev.Integrator,
			IntegratorFee:   ev.IntegratorFee,
			LifiFee:         ev.LifiFee,
			BlockNumber:     ev.BlockNumber,
			TransactionHash: ev.TransactionHash,
			LogIndex:        ev.LogIndex,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	if len(docs) == 0 {
		return nil
	}

	insertOpts := options.InsertMany().SetOrdered(false)

	if s.supportsTransactions {
		sess, err := s.client.StartSession()
		if err != nil {
			return apperr.NewDatabase("EventStore.InsertMany", err)
		}
		defer sess.EndSession(ctx)

		_, err = sess.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			_, insErr := s.coll.InsertMany(sessCtx, docs, insertOpts)
			if isOnlyDuplicateKeyErrors(insErr) {
				return nil, nil
			}
			return nil, insErr
		})
		if err != nil {
			return apperr.NewDatabase("EventStore.InsertMany", err)
		}
		return nil
	}

	if _, err := s.coll.InsertMany(ctx, docs, insertOpts); err != nil {
		if isOnlyDuplicateKeyErrors(err) {
			return nil
		}
		return apperr.NewDatabase("EventStore.InsertMany", err)
	}
	return nil
}

// existingIdentities reads which (chainId, transactionHash, logIndex)
// identities in the batch already exist, so the caller can filter them out
// before attempting the insert (step 1-3 of spec.md §4.4).
func (s *EventStore) existingIdentities(ctx context.Context, chainID uint64, events []*model.FeeEvent) (map[model.Identity]bool, error) {
	clauses := make(bson.A, 0, len(events))
	for _, ev := range events {
		clauses = append(clauses, bson.M{
			"chainId":         chainID,
			"transactionHash": ev.TransactionHash,
			"logIndex":        ev.LogIndex,
		})
	}

	cur, err := s.coll.Find(ctx, bson.M{"$or": clauses}, options.Find().SetProjection(bson.M{
		"chainId": 1, "transactionHash": 1, "logIndex": 1,
	}))
	if err != nil {
		return nil, apperr.NewDatabase("EventStore.InsertMany", err)
	}
	defer cur.Close(ctx)

	existing := make(map[model.Identity]bool)
	for cur.Next(ctx) {
		var doc eventDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, apperr.NewDatabase("EventStore.InsertMany", err)
		}
		existing[model.Identity{ChainID: doc.ChainID, TransactionHash: doc.TransactionHash, LogIndex: doc.LogIndex}] = true
	}
	if err := cur.Err(); err != nil {
		return nil, apperr.NewDatabase("EventStore.InsertMany", err)
	}
	return existing, nil
}

// FindByIntegrator is the read path's sole query: an equality filter on
// (chainId, integrator), unordered, used only by the external HTTP
// collaborator.
func (s *EventStore) FindByIntegrator(ctx context.Context, chainID uint64, integrator string) ([]*model.FeeEvent, error) {
	cur, err := s.coll.Find(ctx, bson.M{"chainId": chainID, "integrator": integrator})
	if err != nil {
		return nil, apperr.NewDatabase("EventStore.FindByIntegrator", err)
	}
	defer cur.Close(ctx)

	var out []*model.FeeEvent
	for cur.Next(ctx) {
		var doc eventDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, apperr.NewDatabase("EventStore.FindByIntegrator", err)
		}
		out = append(out, &model.FeeEvent{
			ChainID:         doc.ChainID,
			ContractAddress: doc.ContractAddress,
			Token:           doc.Token,
			Integrator:      doc.Integrator,
			IntegratorFee:   doc.IntegratorFee,
			LifiFee:         doc.LifiFee,
			BlockNumber:     doc.BlockNumber,
			TransactionHash: doc.TransactionHash,
			LogIndex:        doc.LogIndex,
			CreatedAt:       doc.CreatedAt,
			UpdatedAt:       doc.UpdatedAt,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, apperr.NewDatabase("EventStore.FindByIntegrator", err)
	}
	return out, nil
}

// isOnlyDuplicateKeyErrors reports whether err is nil or a bulk-write
// error whose every sub-error is a duplicate-key conflict — the race
// spec.md §4.4 step 5 guards against, since step 1-3 already deduplicated
// against what existed when the batch was read.
const duplicateKeyErrorCode = 11000

func isOnlyDuplicateKeyErrors(err error) bool {
	if err == nil {
		return true
	}
	if bwe, ok := err.(mongo.BulkWriteException); ok {
		if len(bwe.WriteErrors) == 0 {
			return false
		}
		for _, we := range bwe.WriteErrors {
			if we.Code != duplicateKeyErrorCode {
				return false
			}
		}
		return true
	}
	return mongo.IsDuplicateKeyError(err)
}
