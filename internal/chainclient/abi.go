package chainclient

import (
	"fmt"
	"math/big"
	"strings"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vicimikul/lifi-fee-scraper/internal/model"
)

// feesCollectedABI is the minimal ABI fragment for the fee collector's
// FeesCollected event: FeesCollected(token, integrator, integratorFee, lifiFee).
// token and integrator are indexed, matching the deployed contract across
// every supported chain (the contract is deployed at the same address on
// all of them, per spec.md §1).
const feesCollectedABI = `[{
	"anonymous": false,
	"inputs": [
		{"indexed": true,  "name": "token",         "type": "address"},
		{"indexed": true,  "name": "integrator",    "type": "address"},
		{"indexed": false, "name": "integratorFee", "type": "uint256"},
		{"indexed": false, "name": "lifiFee",       "type": "uint256"}
	],
	"name": "FeesCollected",
	"type": "event"
}]`

type eventDecoder struct {
	abi      ethabi.ABI
	eventSig common.Hash
}

func newEventDecoder() (*eventDecoder, error) {
	parsed, err := ethabi.JSON(strings.NewReader(feesCollectedABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse FeesCollected ABI: %w", err)
	}
	event, ok := parsed.Events["FeesCollected"]
	if !ok {
		return nil, fmt.Errorf("FeesCollected event missing from ABI")
	}
	return &eventDecoder{abi: parsed, eventSig: event.ID}, nil
}

// decode turns one raw log into a FeeEvent (without ChainID, which the
// caller attaches once the batch is about to be persisted). It returns an
// error whenever the log cannot be decoded against the FeesCollected
// signature or the decoded record fails schema validation — either one
// invalidates the whole window per spec.md §4.2.
func (d *eventDecoder) decode(log types.Log) (*model.FeeEvent, error) {
	if len(log.Topics) != 3 {
		return nil, fmt.Errorf("log %s:%d has %d topics, want 3 (signature + 2 indexed args)", log.TxHash.Hex(), log.Index, len(log.Topics))
	}
	if log.Topics[0] != d.eventSig {
		return nil, fmt.Errorf("log %s:%d has unexpected topic0 %s", log.TxHash.Hex(), log.Index, log.Topics[0].Hex())
	}

	event := d.abi.Events["FeesCollected"]
	values, err := event.Inputs.NonIndexed().UnpackValues(log.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack FeesCollected data: %w", err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("expected 2 non-indexed values, got %d", len(values))
	}
	integratorFee, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("integratorFee decoded as %T, want *big.Int", values[0])
	}
	lifiFee, ok := values[1].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("lifiFee decoded as %T, want *big.Int", values[1])
	}

	token := common.BytesToAddress(log.Topics[1].Bytes())
	integrator := common.BytesToAddress(log.Topics[2].Bytes())

	ev := &model.FeeEvent{
		ContractAddress: strings.ToLower(log.Address.Hex()),
		Token:           strings.ToLower(token.Hex()),
		Integrator:      strings.ToLower(integrator.Hex()),
		IntegratorFee:   integratorFee.String(),
		LifiFee:         lifiFee.String(),
		BlockNumber:     log.BlockNumber,
		TransactionHash: strings.ToLower(log.TxHash.Hex()),
		LogIndex:        uint64(log.Index),
	}
	if err := ev.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event data: %w", err)
	}
	return ev, nil
}
