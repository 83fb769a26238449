package chainregistry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vicimikul/lifi-fee-scraper/internal/apperr"
)

const testContract = "0x1231deb6f5749ef6ce6943a275a1d3e7486f4eae"

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported(1))
	assert.True(t, IsSupported(8453))
	assert.False(t, IsSupported(999))
}

func TestNew(t *testing.T) {
	t.Run("rejects invalid contract address", func(t *testing.T) {
		_, err := New("not-an-address", []ChainInput{{ChainID: 1, RPCURL: "http://localhost"}})
		require.Error(t, err)
		var cfgErr *apperr.ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("rejects empty chain list", func(t *testing.T) {
		_, err := New(testContract, nil)
		require.Error(t, err)
	})

	t.Run("rejects unknown chain id", func(t *testing.T) {
		_, err := New(testContract, []ChainInput{{ChainID: 999, RPCURL: "http://localhost"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not in the supported set")
	})

	t.Run("rejects missing rpc url", func(t *testing.T) {
		_, err := New(testContract, []ChainInput{{ChainID: 1}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "without an RPC URL")
	})

	t.Run("rejects duplicate chain id", func(t *testing.T) {
		_, err := New(testContract, []ChainInput{
			{ChainID: 1, RPCURL: "http://a"},
			{ChainID: 1, RPCURL: "http://b"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "more than once")
	})

	t.Run("defaults rpc timeout", func(t *testing.T) {
		reg, err := New(testContract, []ChainInput{{ChainID: 1, RPCURL: "http://a"}})
		require.NoError(t, err)
		desc, ok := reg.Get(1)
		require.True(t, ok)
		assert.Equal(t, 30*time.Second, desc.RPCTimeout)
		assert.Equal(t, "ethereum", desc.Name)
		assert.Equal(t, testContract, desc.ContractAddress)
	})

	t.Run("preserves configured rpc timeout and start block", func(t *testing.T) {
		reg, err := New(testContract, []ChainInput{
			{ChainID: 137, RPCURL: "http://polygon", StartBlock: 1000, RPCTimeout: 5 * time.Second},
		})
		require.NoError(t, err)
		desc, ok := reg.Get(137)
		require.True(t, ok)
		assert.Equal(t, uint64(1000), desc.StartBlock)
		assert.Equal(t, 5*time.Second, desc.RPCTimeout)
	})

	t.Run("list preserves configuration order", func(t *testing.T) {
		reg, err := New(testContract, []ChainInput{
			{ChainID: 137, RPCURL: "http://a"},
			{ChainID: 1, RPCURL: "http://b"},
		})
		require.NoError(t, err)
		list := reg.List()
		require.Len(t, list, 2)
		assert.Equal(t, uint64(137), list[0].ChainID)
		assert.Equal(t, uint64(1), list[1].ChainID)
	})

	t.Run("get reports missing chain", func(t *testing.T) {
		reg, err := New(testContract, []ChainInput{{ChainID: 1, RPCURL: "http://a"}})
		require.NoError(t, err)
		_, ok := reg.Get(137)
		assert.False(t, ok)
	})
}
