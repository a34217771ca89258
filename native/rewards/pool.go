package rewards

import (
	"fmt"
	"math/big"
)

// RewardPool tracks the per-cycle reward budgets. Budgets only ever decrease
// between the moment a cycle opens and the moment its leftover is withdrawn.
// The pool is not safe for concurrent use; the engine serialises access.
type RewardPool struct {
	cycles  map[uint64]*Cycle
	pending *big.Int
}

// NewRewardPool creates a pool holding the genesis cycle with a zero budget.
func NewRewardPool(genesis *Cycle) *RewardPool {
	pool := &RewardPool{cycles: make(map[uint64]*Cycle)}
	if genesis != nil {
		pool.cycles[genesis.ID] = genesis.Clone()
	}
	return pool
}

// Cycle returns a copy of the stored record for the given cycle id.
func (p *RewardPool) Cycle(id uint64) (*Cycle, bool) {
	cycle, ok := p.cycles[id]
	if !ok {
		return nil, false
	}
	return cycle.Clone(), true
}

// Remaining reports the undistributed budget for the given cycle.
func (p *RewardPool) Remaining(id uint64) *big.Int {
	cycle, ok := p.cycles[id]
	if !ok {
		return big.NewInt(0)
	}
	return copyBigInt(cycle.BudgetRemaining)
}

// Debit subtracts amount from the remaining budget of the given cycle. The
// cycle must be the current one; the engine guarantees that by construction.
func (p *RewardPool) Debit(id uint64, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	cycle, ok := p.cycles[id]
	if !ok {
		return fmt.Errorf("%w: cycle %d", ErrUnknownCycle, id)
	}
	if cycle.BudgetRemaining.Cmp(amount) < 0 {
		return fmt.Errorf("%w: cycle %d has %s, need %s",
			ErrInsufficientFunds, id, cycle.BudgetRemaining, amount)
	}
	cycle.BudgetRemaining = new(big.Int).Sub(cycle.BudgetRemaining, amount)
	return nil
}

// SetNextBudget schedules the budget installed for the upcoming cycle at the
// next transition. The current cycle's balance is untouched.
func (p *RewardPool) SetNextBudget(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	p.pending = new(big.Int).Set(amount)
	return nil
}

// PendingBudget returns the scheduled budget for the next cycle, zero when
// none has been set.
func (p *RewardPool) PendingBudget() *big.Int {
	return copyBigInt(p.pending)
}

// Open installs a new cycle record, consuming the pending budget. A missing
// pending budget opens the cycle with zero funds.
func (p *RewardPool) Open(id, openedAt, nextBoundary uint64) *Cycle {
	budget := copyBigInt(p.pending)
	p.pending = nil
	cycle := &Cycle{
		ID:              id,
		BudgetTotal:     budget,
		BudgetRemaining: new(big.Int).Set(budget),
		OpenedAtBlock:   openedAt,
		NextBoundary:    nextBoundary,
	}
	p.cycles[id] = cycle
	return cycle.Clone()
}

// Withdraw drains the leftover budget of a closed cycle. It fails with
// ErrStillOpen for the current cycle and ErrAlreadyWithdrawn once the
// remainder has been taken; a withdrawn cycle can never be debited or
// withdrawn again.
func (p *RewardPool) Withdraw(id, current uint64) (*big.Int, error) {
	if id == current {
		return nil, fmt.Errorf("%w: cycle %d", ErrStillOpen, id)
	}
	cycle, ok := p.cycles[id]
	if !ok {
		return nil, fmt.Errorf("%w: cycle %d", ErrUnknownCycle, id)
	}
	if cycle.Withdrawn {
		return nil, fmt.Errorf("%w: cycle %d", ErrAlreadyWithdrawn, id)
	}
	amount := copyBigInt(cycle.BudgetRemaining)
	cycle.BudgetRemaining = big.NewInt(0)
	cycle.Withdrawn = true
	return amount, nil
}

func (p *RewardPool) snapshot() []*Cycle {
	cycles := make([]*Cycle, 0, len(p.cycles))
	for _, cycle := range p.cycles {
		cycles = append(cycles, cycle.Clone())
	}
	return cycles
}

func (p *RewardPool) restore(cycles []*Cycle, pending *big.Int) {
	p.cycles = make(map[uint64]*Cycle, len(cycles))
	for _, cycle := range cycles {
		if cycle == nil {
			continue
		}
		p.cycles[cycle.ID] = cycle.Clone()
	}
	if pending != nil {
		p.pending = new(big.Int).Set(pending)
	} else {
		p.pending = nil
	}
}
