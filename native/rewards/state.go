package rewards

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"juscat/storage"
)

var stateKey = []byte("rewards/state")

type cycleRecord struct {
	ID              uint64 `json:"id"`
	BudgetTotal     string `json:"budgetTotal"`
	BudgetRemaining string `json:"budgetRemaining"`
	OpenedAtBlock   uint64 `json:"openedAtBlock"`
	NextBoundary    uint64 `json:"nextBoundary"`
	Withdrawn       bool   `json:"withdrawn"`
}

type stateRecord struct {
	CurrentCycle  uint64             `json:"currentCycle"`
	NextBoundary  uint64             `json:"nextBoundary"`
	Cap           uint64             `json:"cap"`
	GateRequired  bool               `json:"gateRequired"`
	PendingBudget string             `json:"pendingBudget,omitempty"`
	Cycles        []cycleRecord      `json:"cycles"`
	Submissions   []submissionRecord `json:"submissions"`
	Grants        []string           `json:"grants"`
}

// Save persists a consistent snapshot of the ledger state.
func (e *Engine) Save(db storage.Database) error {
	if db == nil {
		return fmt.Errorf("rewards: nil database")
	}
	e.mu.RLock()
	record := stateRecord{
		CurrentCycle: e.cycles.Current(),
		NextBoundary: e.cycles.NextBoundary(),
		Cap:          e.params.MaxSubmissionsPerCycle,
		GateRequired: e.params.GateRequired,
		Submissions:  e.ledger.snapshot(),
		Grants:       e.gate.snapshot(),
	}
	if pending := e.pool.PendingBudget(); pending.Sign() > 0 {
		record.PendingBudget = pending.String()
	}
	for _, cycle := range e.pool.snapshot() {
		record.Cycles = append(record.Cycles, cycleRecord{
			ID:              cycle.ID,
			BudgetTotal:     cycle.BudgetTotal.String(),
			BudgetRemaining: cycle.BudgetRemaining.String(),
			OpenedAtBlock:   cycle.OpenedAtBlock,
			NextBoundary:    cycle.NextBoundary,
			Withdrawn:       cycle.Withdrawn,
		})
	}
	e.mu.RUnlock()

	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("rewards: encode state: %w", err)
	}
	if err := db.Put(stateKey, encoded); err != nil {
		return fmt.Errorf("rewards: persist state: %w", err)
	}
	return nil
}

// Load restores a previously saved snapshot. A missing snapshot leaves the
// freshly initialised engine untouched and reports found=false; any other
// read failure is surfaced so a broken backend is not mistaken for a fresh
// start.
func (e *Engine) Load(db storage.Database) (bool, error) {
	if db == nil {
		return false, fmt.Errorf("rewards: nil database")
	}
	encoded, err := db.Get(stateKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("rewards: read state: %w", err)
	}
	var record stateRecord
	if err := json.Unmarshal(encoded, &record); err != nil {
		return false, fmt.Errorf("rewards: decode state: %w", err)
	}

	cycles := make([]*Cycle, 0, len(record.Cycles))
	for _, stored := range record.Cycles {
		total, ok := new(big.Int).SetString(stored.BudgetTotal, 10)
		if !ok {
			return false, fmt.Errorf("rewards: corrupt budget total for cycle %d", stored.ID)
		}
		remaining, ok := new(big.Int).SetString(stored.BudgetRemaining, 10)
		if !ok {
			return false, fmt.Errorf("rewards: corrupt budget remaining for cycle %d", stored.ID)
		}
		cycles = append(cycles, &Cycle{
			ID:              stored.ID,
			BudgetTotal:     total,
			BudgetRemaining: remaining,
			OpenedAtBlock:   stored.OpenedAtBlock,
			NextBoundary:    stored.NextBoundary,
			Withdrawn:       stored.Withdrawn,
		})
	}
	var pending *big.Int
	if record.PendingBudget != "" {
		value, ok := new(big.Int).SetString(record.PendingBudget, 10)
		if !ok {
			return false, fmt.Errorf("rewards: corrupt pending budget")
		}
		pending = value
	}

	e.mu.Lock()
	e.cycles.restore(record.CurrentCycle, record.NextBoundary)
	if record.Cap > 0 {
		e.params.MaxSubmissionsPerCycle = record.Cap
	}
	e.params.GateRequired = record.GateRequired
	e.pool.restore(cycles, pending)
	e.ledger.restore(record.Submissions)
	e.gate.restore(record.Grants)
	e.mu.Unlock()
	return true, nil
}
