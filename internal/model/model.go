// Package model defines the persisted shapes the Scanner produces:
// FeeEvent (a decoded FeesCollected log occurrence) and Progress (the
// per-chain scanning cursor), plus the validation rules spec.md §3 ties to
// both.
package model

import (
	"fmt"
	"regexp"
	"time"
)

var (
	addressPattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)
	hashPattern    = regexp.MustCompile(`^0x[0-9a-f]{64}$`)
	decimalPattern = regexp.MustCompile(`^(0|[1-9][0-9]*)$`)
)

// FeeEvent is a decoded FeesCollected log occurrence, identified by the
// triple (ChainID, TransactionHash, LogIndex).
type FeeEvent struct {
	ChainID         uint64 `json:"chainId" bson:"chainId"`
	ContractAddress string `json:"contractAddress" bson:"contractAddress"`
	Token           string `json:"token" bson:"token"`
	Integrator      string `json:"integrator" bson:"integrator"`
	IntegratorFee   string `json:"integratorFee" bson:"integratorFee"`
	LifiFee         string `json:"lifiFee" bson:"lifiFee"`
	BlockNumber     uint64 `json:"blockNumber" bson:"blockNumber"`
	TransactionHash string `json:"transactionHash" bson:"transactionHash"`
	LogIndex        uint64 `json:"logIndex" bson:"logIndex"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Identity is the (chainId, transactionHash, logIndex) triple that
// uniquely identifies a stored event.
type Identity struct {
	ChainID         uint64
	TransactionHash string
	LogIndex        uint64
}

func (e *FeeEvent) Identity() Identity {
	return Identity{ChainID: e.ChainID, TransactionHash: e.TransactionHash, LogIndex: e.LogIndex}
}

// Validate checks every field-level invariant from spec.md §3. It does not
// check ChainID against the supported set — that is the Chain Registry's
// job, applied before storage records are decorated with it.
func (e *FeeEvent) Validate() error {
	if !addressPattern.MatchString(e.ContractAddress) {
		return fmt.Errorf("invalid contract address %q", e.ContractAddress)
	}
	if !addressPattern.MatchString(e.Token) {
		return fmt.Errorf("invalid token address %q", e.Token)
	}
	if !addressPattern.MatchString(e.Integrator) {
		return fmt.Errorf("invalid integrator address %q", e.Integrator)
	}
	if !hashPattern.MatchString(e.TransactionHash) {
		return fmt.Errorf("invalid transaction hash %q", e.TransactionHash)
	}
	if !decimalPattern.MatchString(e.IntegratorFee) {
		return fmt.Errorf("invalid integratorFee %q: must be a non-negative decimal string", e.IntegratorFee)
	}
	if !decimalPattern.MatchString(e.LifiFee) {
		return fmt.Errorf("invalid lifiFee %q: must be a non-negative decimal string", e.LifiFee)
	}
	return nil
}

// Progress is the durable per-chain scanning cursor.
type Progress struct {
	ChainID     uint64    `json:"chainId" bson:"chainId"`
	BlockNumber uint64    `json:"blockNumber" bson:"blockNumber"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// IsValidAddress reports whether s is a lowercase-hex 20-byte address.
func IsValidAddress(s string) bool { return addressPattern.MatchString(s) }

// IsValidHash reports whether s is a lowercase-hex 32-byte transaction hash.
func IsValidHash(s string) bool { return hashPattern.MatchString(s) }
