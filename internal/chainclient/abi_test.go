package chainclient

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventDecoder(t *testing.T) {
	d, err := newEventDecoder()
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, d.eventSig)
}

func makeFeesCollectedLog(t *testing.T, token, integrator common.Address, integratorFee, lifiFee *big.Int) types.Log {
	t.Helper()
	d, err := newEventDecoder()
	require.NoError(t, err)

	event := d.abi.Events["FeesCollected"]
	data, err := event.Inputs.NonIndexed().Pack(integratorFee, lifiFee)
	require.NoError(t, err)

	return types.Log{
		Address: common.HexToAddress("0x1231deb6f5749ef6ce6943a275a1d3e7486f4eae"),
		Topics: []common.Hash{
			d.eventSig,
			common.BytesToHash(token.Bytes()),
			common.BytesToHash(integrator.Bytes()),
		},
		Data:        data,
		BlockNumber: 18000000,
		TxHash:      common.HexToHash("0x" + strings.Repeat("ab", 32)),
		Index:       3,
	}
}

func TestEventDecoder_Decode(t *testing.T) {
	d, err := newEventDecoder()
	require.NoError(t, err)

	token := common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
	integrator := common.HexToAddress("0x11111112542d85b3ef69ae05771c2dccff4faa2")

	t.Run("decodes a well-formed log", func(t *testing.T) {
		log := makeFeesCollectedLog(t, token, integrator, big.NewInt(1000), big.NewInt(1))
		ev, err := d.decode(log)
		require.NoError(t, err)
		assert.Equal(t, strings.ToLower(token.Hex()), ev.Token)
		assert.Equal(t, strings.ToLower(integrator.Hex()), ev.Integrator)
		assert.Equal(t, "1000", ev.IntegratorFee)
		assert.Equal(t, "1", ev.LifiFee)
		assert.Equal(t, uint64(18000000), ev.BlockNumber)
		assert.Equal(t, uint64(3), ev.LogIndex)
		assert.Equal(t, uint64(0), ev.ChainID, "decoder never assigns ChainID; the caller attaches it")
	})

	t.Run("rejects wrong topic count", func(t *testing.T) {
		log := makeFeesCollectedLog(t, token, integrator, big.NewInt(1), big.NewInt(1))
		log.Topics = log.Topics[:2]
		_, err := d.decode(log)
		assert.Error(t, err)
	})

	t.Run("rejects mismatched event signature", func(t *testing.T) {
		log := makeFeesCollectedLog(t, token, integrator, big.NewInt(1), big.NewInt(1))
		log.Topics[0] = common.HexToHash("0xdeadbeef")
		_, err := d.decode(log)
		assert.Error(t, err)
	})

	t.Run("rejects truncated data", func(t *testing.T) {
		log := makeFeesCollectedLog(t, token, integrator, big.NewInt(1), big.NewInt(1))
		log.Data = log.Data[:10]
		_, err := d.decode(log)
		assert.Error(t, err)
	})
}
