// Package chainregistry enumerates the chains the indexer is configured to
// scan: which ones are enabled, their RPC endpoint, the shared fee
// collector contract address, and each chain's initial start block.
//
// Grounded on the teacher's pkg/multichain/config.go (ChainConfig /
// ManagerConfig with a fail-fast Validate method) and pkg/multichain/registry.go
// (a concurrency-safe map keyed by chain identifier).
package chainregistry

import (
	"fmt"
	"time"

	"github.com/vicimikul/lifi-fee-scraper/internal/apperr"
	"github.com/vicimikul/lifi-fee-scraper/internal/model"
)

// Name is the closed set of supported chain identifiers from spec.md §6.
var Name = map[uint64]string{
	1:    "ethereum",
	10:   "optimism",
	56:   "bsc",
	100:  "gnosis",
	137:  "polygon",
	8453: "base",
}

// DefaultEnabledChainID is selected when ENABLED_CHAINS is missing or empty.
const DefaultEnabledChainID = uint64(1)

// IsSupported reports whether chainID belongs to the closed set of chains
// this indexer knows how to scan.
func IsSupported(chainID uint64) bool {
	_, ok := Name[chainID]
	return ok
}

// ChainDescriptor is one enabled chain's resolved configuration.
type ChainDescriptor struct {
	ChainID         uint64
	Name            string
	RPCURL          string
	ContractAddress string
	StartBlock      uint64
	RPCTimeout      time.Duration
}

// Registry is the ordered list of enabled chains plus a chainId lookup.
type Registry struct {
	ordered []ChainDescriptor
	byID    map[uint64]ChainDescriptor
}

// ChainInput is the raw per-chain configuration the caller (internal/config)
// resolved from environment variables, before validation.
type ChainInput struct {
	ChainID    uint64
	RPCURL     string
	StartBlock uint64
	RPCTimeout time.Duration
}

// New builds a Registry from the enabled chain inputs and the shared
// contract address. It rejects configuration that enables an unknown chain
// or a chain without an RPC URL — both are fatal ConfigurationErrors.
func New(contractAddress string, inputs []ChainInput) (*Registry, error) {
	if !model.IsValidAddress(contractAddress) {
		return nil, apperr.NewConfiguration("chainregistry.New", fmt.Errorf("invalid contract address %q", contractAddress))
	}
	if len(inputs) == 0 {
		return nil, apperr.NewConfiguration("chainregistry.New", fmt.Errorf("no chains enabled"))
	}

	r := &Registry{byID: make(map[uint64]ChainDescriptor, len(inputs))}
	for _, in := range inputs {
		name, ok := Name[in.ChainID]
		if !ok {
			return nil, apperr.NewConfiguration("chainregistry.New", fmt.Errorf("unknown chain id %d is not in the supported set", in.ChainID))
		}
		if in.RPCURL == "" {
			return nil, apperr.NewConfiguration("chainregistry.New", fmt.Errorf("chain %d (%s) enabled without an RPC URL", in.ChainID, name))
		}
		if _, dup := r.byID[in.ChainID]; dup {
			return nil, apperr.NewConfiguration("chainregistry.New", fmt.Errorf("chain %d enabled more than once", in.ChainID))
		}

		timeout := in.RPCTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}

		desc := ChainDescriptor{
			ChainID:         in.ChainID,
			Name:            name,
			RPCURL:          in.RPCURL,
			ContractAddress: contractAddress,
			StartBlock:      in.StartBlock,
			RPCTimeout:      timeout,
		}
		r.ordered = append(r.ordered, desc)
		r.byID[in.ChainID] = desc
	}

	return r, nil
}

// List returns the enabled chain descriptors in configuration order.
func (r *Registry) List() []ChainDescriptor {
	out := make([]ChainDescriptor, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Get looks up a single chain descriptor by chain ID.
func (r *Registry) Get(chainID uint64) (ChainDescriptor, bool) {
	d, ok := r.byID[chainID]
	return d, ok
}
