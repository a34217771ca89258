package rewards

import (
	"fmt"
	"math/big"
)

// Params controls the behaviour of the cycle reward engine.
//
// All monetary values are expressed in the smallest indivisible unit of the
// reward token (wei-style integers).
type Params struct {
	// MaxSubmissionsPerCycle caps how many submissions a single actor may
	// have accepted within one cycle.
	MaxSubmissionsPerCycle uint64

	// RewardPerSubmission is the amount debited from the cycle pool for
	// each accepted submission.
	RewardPerSubmission *big.Int

	// CycleLengthBlocks is the number of blocks between cycle boundaries.
	// Fixed at configuration load; not reconfigurable mid-run.
	CycleLengthBlocks uint64

	// GateRequired is reported through Stats but is advisory only: the
	// engine always enforces the access gate regardless of its value,
	// matching the behaviour of the deployed contract.
	GateRequired bool
}

// DefaultParams returns the parameters used when no configuration is supplied.
func DefaultParams() Params {
	return Params{
		MaxSubmissionsPerCycle: 2,
		RewardPerSubmission:    big.NewInt(1),
		CycleLengthBlocks:      8640,
		GateRequired:           true,
	}
}

// Clone produces a deep copy of the parameters.
func (p Params) Clone() Params {
	clone := p
	if p.RewardPerSubmission != nil {
		clone.RewardPerSubmission = new(big.Int).Set(p.RewardPerSubmission)
	}
	return clone
}

// Normalize ensures pointer fields are non-nil. Returns the receiver's copy
// for chaining.
func (p Params) Normalize() Params {
	if p.RewardPerSubmission == nil {
		p.RewardPerSubmission = big.NewInt(0)
	}
	return p
}

// Validate performs static validation of the parameters.
func (p Params) Validate() error {
	if p.MaxSubmissionsPerCycle == 0 {
		return fmt.Errorf("rewards: max submissions per cycle must be positive")
	}
	if p.RewardPerSubmission == nil || p.RewardPerSubmission.Sign() <= 0 {
		return fmt.Errorf("rewards: reward per submission must be positive")
	}
	if p.CycleLengthBlocks == 0 {
		return fmt.Errorf("rewards: cycle length must be greater than zero")
	}
	return nil
}
