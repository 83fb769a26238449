package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsOnlyDuplicateKeyErrors(t *testing.T) {
	t.Run("nil error is a no-op", func(t *testing.T) {
		assert.True(t, isOnlyDuplicateKeyErrors(nil))
	})

	t.Run("bulk write exception with only duplicate-key errors", func(t *testing.T) {
		err := mongo.BulkWriteException{
			WriteErrors: []mongo.BulkWriteError{
				{WriteError: mongo.WriteError{Code: duplicateKeyErrorCode}},
				{WriteError: mongo.WriteError{Code: duplicateKeyErrorCode}},
			},
		}
		assert.True(t, isOnlyDuplicateKeyErrors(err))
	})

	t.Run("bulk write exception with a non-duplicate error", func(t *testing.T) {
		err := mongo.BulkWriteException{
			WriteErrors: []mongo.BulkWriteError{
				{WriteError: mongo.WriteError{Code: duplicateKeyErrorCode}},
				{WriteError: mongo.WriteError{Code: 50}},
			},
		}
		assert.False(t, isOnlyDuplicateKeyErrors(err))
	})

	t.Run("bulk write exception with no sub-errors", func(t *testing.T) {
		err := mongo.BulkWriteException{}
		assert.False(t, isOnlyDuplicateKeyErrors(err))
	})

	t.Run("unrelated error", func(t *testing.T) {
		assert.False(t, isOnlyDuplicateKeyErrors(errors.New("connection reset")))
	})
}
