package rewards

import (
	"math/big"
	"strings"
)

// Cycle captures the accounting state of a single reward epoch.
type Cycle struct {
	ID              uint64
	BudgetTotal     *big.Int
	BudgetRemaining *big.Int
	OpenedAtBlock   uint64
	NextBoundary    uint64
	Withdrawn       bool
}

// Clone produces a deep copy of the cycle record.
func (c *Cycle) Clone() *Cycle {
	if c == nil {
		return nil
	}
	clone := &Cycle{
		ID:            c.ID,
		OpenedAtBlock: c.OpenedAtBlock,
		NextBoundary:  c.NextBoundary,
		Withdrawn:     c.Withdrawn,
	}
	clone.BudgetTotal = copyBigInt(c.BudgetTotal)
	clone.BudgetRemaining = copyBigInt(c.BudgetRemaining)
	return clone
}

// Receipt summarises the outcome of an accepted submission.
type Receipt struct {
	Cycle  uint64
	Actor  string
	Count  uint64
	Reward *big.Int
}

// Stats provides a read-only composite view over the engine state.
type Stats struct {
	CurrentCycle     uint64
	NextCycleBlock   uint64
	MaxSubmissions   uint64
	TotalSubmissions uint64
	RewardsLeft      *big.Int
	GateRequired     bool
	AccessGrants     uint64
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// NormalizeActor canonicalises an actor identifier for map keys and
// operator comparison. Identifiers are treated case-insensitively.
func NormalizeActor(actor string) string {
	return strings.ToLower(strings.TrimSpace(actor))
}
