package rewards

import (
	"context"
	"fmt"
	"math/big"
	"sync"
)

// PayoutSink abstracts the fund-transfer mechanism. The engine treats a
// payout failure as retryable: the debit that preceded it stands so the
// budget accounting remains authoritative.
type PayoutSink interface {
	Payout(ctx context.Context, to string, amount *big.Int) error
}

// BlockSource supplies the external chain-height signal used to decide when
// a cycle boundary has been reached.
type BlockSource interface {
	CurrentBlock(ctx context.Context) (uint64, error)
}

// Engine composes the access gate, submission ledger, reward pool and cycle
// manager behind a single mutation-serialising boundary. Every state-changing
// operation is applied as one indivisible unit; Stats runs concurrently
// against a consistent snapshot.
type Engine struct {
	mu sync.RWMutex

	params   Params
	operator string

	gate    *AccessGate
	ledger  *SubmissionLedger
	pool    *RewardPool
	cycles  *CycleManager
	payout  PayoutSink
	blocks  BlockSource
	events  EventSink
}

// Config captures the collaborators required to construct the engine.
type Config struct {
	Params       Params
	Operator     string
	Registry     Registry
	Payout       PayoutSink
	Blocks       BlockSource
	Events       EventSink
	GenesisBlock uint64
}

// NewEngine validates the configuration and builds an engine with the genesis
// cycle (id 0) open and unfunded.
func NewEngine(cfg Config) (*Engine, error) {
	params := cfg.Params.Normalize()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	operator := NormalizeActor(cfg.Operator)
	if operator == "" {
		return nil, fmt.Errorf("rewards: operator address required")
	}
	if cfg.Blocks == nil {
		return nil, fmt.Errorf("rewards: block source required")
	}
	cycles := NewCycleManager(params.CycleLengthBlocks, cfg.GenesisBlock)
	genesis := &Cycle{
		ID:              0,
		BudgetTotal:     big.NewInt(0),
		BudgetRemaining: big.NewInt(0),
		OpenedAtBlock:   cfg.GenesisBlock,
		NextBoundary:    cycles.NextBoundary(),
	}
	e := &Engine{
		params:   params.Clone(),
		operator: operator,
		gate:     NewAccessGate(cfg.Registry, operator),
		ledger:   NewSubmissionLedger(),
		pool:     NewRewardPool(genesis),
		cycles:   cycles,
		payout:   cfg.Payout,
		blocks:   cfg.Blocks,
		events:   cfg.Events,
	}
	e.gate.OnGrant(func(actor string) {
		e.emit(EventAccessGranted, map[string]string{"actor": actor})
	})
	return e, nil
}

// Gate exposes the access gate for read-side callers (passport status
// endpoints). Mutation paths go through Submit.
func (e *Engine) Gate() *AccessGate {
	return e.gate
}

// Operator returns the canonical operator identifier.
func (e *Engine) Operator() string {
	return e.operator
}

func (e *Engine) requireOperator(requestedBy string) error {
	if NormalizeActor(requestedBy) != e.operator {
		return fmt.Errorf("%w: %s is not the operator", ErrUnauthorized, requestedBy)
	}
	return nil
}

// HasAccess reports whether the actor holds the access credential.
func (e *Engine) HasAccess(ctx context.Context, actor string) (bool, error) {
	return e.gate.HasAccess(ctx, actor)
}

// Submit registers one submission for the actor against the current cycle.
//
// The gate check runs before the mutation lock is taken so a slow registry
// cannot stall unrelated mutations. Cap overruns reject with ErrCapExceeded
// and leave all state untouched. An exhausted pool does not reject: the
// submission is recorded with a zero reward, preserving the contract's
// accept-but-unrewarded behaviour. A non-zero reward is debited first and the
// transfer attempted afterwards; a transfer failure is returned alongside the
// receipt and never unwinds the debit.
func (e *Engine) Submit(ctx context.Context, actor string) (*Receipt, error) {
	held, err := e.gate.HasAccess(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	if !held {
		return nil, fmt.Errorf("%w: %s holds no passport", ErrAccessDenied, NormalizeActor(actor))
	}

	e.mu.Lock()
	cycle := e.cycles.Current()
	count, err := e.ledger.TryRegister(cycle, actor, e.params.MaxSubmissionsPerCycle)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	reward := copyBigInt(e.params.RewardPerSubmission)
	if debitErr := e.pool.Debit(cycle, reward); debitErr != nil {
		// Pool exhaustion zeroes the payout but the accepted count stands.
		reward = big.NewInt(0)
	}
	e.mu.Unlock()

	receipt := &Receipt{
		Cycle:  cycle,
		Actor:  NormalizeActor(actor),
		Count:  count,
		Reward: reward,
	}
	if reward.Sign() == 0 {
		e.emit(EventSubmissionUnrewarded, map[string]string{
			"cycle": cycleAttr(cycle),
			"actor": receipt.Actor,
			"count": fmt.Sprintf("%d", count),
		})
		return receipt, nil
	}
	e.emit(EventSubmissionAccepted, map[string]string{
		"cycle":  cycleAttr(cycle),
		"actor":  receipt.Actor,
		"count":  fmt.Sprintf("%d", count),
		"reward": reward.String(),
	})
	if e.payout != nil {
		if err := e.payout.Payout(ctx, receipt.Actor, reward); err != nil {
			return receipt, fmt.Errorf("rewards: payout to %s: %w", receipt.Actor, err)
		}
	}
	return receipt, nil
}

// TriggerCycle closes the current cycle and opens the next, installing the
// pending budget (zero when none was scheduled). Operator-only.
func (e *Engine) TriggerCycle(ctx context.Context, requestedBy string) (uint64, error) {
	if err := e.requireOperator(requestedBy); err != nil {
		return 0, err
	}
	now, err := e.blocks.CurrentBlock(ctx)
	if err != nil {
		return 0, fmt.Errorf("rewards: current block: %w", err)
	}

	e.mu.Lock()
	newCycle, err := e.cycles.Trigger(now)
	if err != nil {
		e.mu.Unlock()
		return 0, err
	}
	opened := e.pool.Open(newCycle, now, e.cycles.NextBoundary())
	e.mu.Unlock()

	e.emit(EventCycleTriggered, map[string]string{
		"cycle":        cycleAttr(newCycle),
		"budget":       opened.BudgetTotal.String(),
		"openedAt":     fmt.Sprintf("%d", now),
		"nextBoundary": fmt.Sprintf("%d", opened.NextBoundary),
	})
	return newCycle, nil
}

// SetNextBudget schedules the reward budget installed at the next cycle
// transition. Operator-only; the live cycle's balance is untouched.
func (e *Engine) SetNextBudget(requestedBy string, amount *big.Int) error {
	if err := e.requireOperator(requestedBy); err != nil {
		return err
	}
	e.mu.Lock()
	err := e.pool.SetNextBudget(amount)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.emit(EventBudgetScheduled, map[string]string{"amount": amount.String()})
	return nil
}

// SetCap updates the per-actor submission cap, effective immediately for
// subsequent registrations. Operator-only.
func (e *Engine) SetCap(requestedBy string, cap uint64) error {
	if err := e.requireOperator(requestedBy); err != nil {
		return err
	}
	if cap == 0 {
		return fmt.Errorf("rewards: cap must be positive")
	}
	e.mu.Lock()
	e.params.MaxSubmissionsPerCycle = cap
	e.mu.Unlock()
	return nil
}

// SetGateRequired updates the advisory gate flag. The flag is reported via
// Stats but enforcement always requires the credential, matching the
// deployed contract behaviour.
func (e *Engine) SetGateRequired(requestedBy string, required bool) error {
	if err := e.requireOperator(requestedBy); err != nil {
		return err
	}
	e.mu.Lock()
	e.params.GateRequired = required
	e.mu.Unlock()
	return nil
}

// Withdraw drains the leftover budget of a closed cycle and transfers it to
// the operator. Operator-only; succeeds at most once per cycle.
func (e *Engine) Withdraw(ctx context.Context, requestedBy string, cycle uint64) (*big.Int, error) {
	if err := e.requireOperator(requestedBy); err != nil {
		return nil, err
	}
	e.mu.Lock()
	amount, err := e.pool.Withdraw(cycle, e.cycles.Current())
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	e.emit(EventCycleWithdrawn, map[string]string{
		"cycle":  cycleAttr(cycle),
		"amount": amount.String(),
	})
	if e.payout != nil && amount.Sign() > 0 {
		if err := e.payout.Payout(ctx, e.operator, amount); err != nil {
			return amount, fmt.Errorf("rewards: withdrawal payout: %w", err)
		}
	}
	return amount, nil
}

// CycleInfo returns a copy of the stored record for the given cycle.
func (e *Engine) CycleInfo(cycle uint64) (*Cycle, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pool.Cycle(cycle)
}

// SubmissionCount reports the accepted submissions for (cycle, actor).
func (e *Engine) SubmissionCount(cycle uint64, actor string) uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.Count(cycle, actor)
}

// Stats assembles the read-only composite view over the current cycle.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	current := e.cycles.Current()
	return Stats{
		CurrentCycle:     current,
		NextCycleBlock:   e.cycles.NextBoundary(),
		MaxSubmissions:   e.params.MaxSubmissionsPerCycle,
		TotalSubmissions: e.ledger.Total(current),
		RewardsLeft:      e.pool.Remaining(current),
		GateRequired:     e.params.GateRequired,
		AccessGrants:     e.gate.Grants(),
	}
}
