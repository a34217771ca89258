package rewards

import "fmt"

// CycleManager owns the current cycle identifier and the block boundary at
// which the next cycle may begin. It is not safe for concurrent use; the
// engine serialises access.
type CycleManager struct {
	current      uint64
	nextBoundary uint64
	length       uint64
}

// NewCycleManager creates a manager with the genesis cycle (id 0) open and a
// boundary one cycle length ahead of the genesis block.
func NewCycleManager(length, genesisBlock uint64) *CycleManager {
	return &CycleManager{
		current:      0,
		nextBoundary: genesisBlock + length,
		length:       length,
	}
}

// Current returns the identifier of the open cycle.
func (m *CycleManager) Current() uint64 {
	return m.current
}

// NextBoundary returns the earliest block at which the open cycle may close.
func (m *CycleManager) NextBoundary() uint64 {
	return m.nextBoundary
}

// Trigger closes the current cycle and opens the next one. It fails with
// ErrTooEarly when the boundary has not been reached; the current cycle id is
// left unchanged in that case.
func (m *CycleManager) Trigger(now uint64) (uint64, error) {
	if now < m.nextBoundary {
		return 0, fmt.Errorf("%w: block %d before boundary %d", ErrTooEarly, now, m.nextBoundary)
	}
	m.current++
	m.nextBoundary = now + m.length
	return m.current, nil
}

func (m *CycleManager) restore(current, nextBoundary uint64) {
	m.current = current
	m.nextBoundary = nextBoundary
}
