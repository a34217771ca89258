package rewards

import "fmt"

type submissionKey struct {
	cycle uint64
	actor string
}

// SubmissionLedger tracks accepted submissions per (cycle, actor). Counts are
// incremented by exactly one per accepted submission and never decremented.
// History for past cycles is retained; a cycle transition only changes the id
// new registrations are recorded under. Not safe for concurrent use; the
// engine serialises access.
type SubmissionLedger struct {
	counts map[submissionKey]uint64
	totals map[uint64]uint64
}

// NewSubmissionLedger creates an empty ledger.
func NewSubmissionLedger() *SubmissionLedger {
	return &SubmissionLedger{
		counts: make(map[submissionKey]uint64),
		totals: make(map[uint64]uint64),
	}
}

// Count returns the accepted submission count for the given pair. Pairs with
// no accepted submissions report zero.
func (l *SubmissionLedger) Count(cycle uint64, actor string) uint64 {
	return l.counts[submissionKey{cycle: cycle, actor: NormalizeActor(actor)}]
}

// Total returns the accepted submissions across all actors for a cycle.
func (l *SubmissionLedger) Total(cycle uint64) uint64 {
	return l.totals[cycle]
}

// TryRegister increments the counter for (cycle, actor) unless the cap is
// already reached, in which case it fails with ErrCapExceeded and leaves the
// counter untouched. Returns the new count on success.
func (l *SubmissionLedger) TryRegister(cycle uint64, actor string, cap uint64) (uint64, error) {
	normalized := NormalizeActor(actor)
	if normalized == "" {
		return 0, ErrInvalidActor
	}
	key := submissionKey{cycle: cycle, actor: normalized}
	count := l.counts[key]
	if count >= cap {
		return 0, fmt.Errorf("%w: actor %s has %d of %d in cycle %d",
			ErrCapExceeded, normalized, count, cap, cycle)
	}
	count++
	l.counts[key] = count
	l.totals[cycle]++
	return count, nil
}

type submissionRecord struct {
	Cycle uint64 `json:"cycle"`
	Actor string `json:"actor"`
	Count uint64 `json:"count"`
}

func (l *SubmissionLedger) snapshot() []submissionRecord {
	records := make([]submissionRecord, 0, len(l.counts))
	for key, count := range l.counts {
		records = append(records, submissionRecord{Cycle: key.cycle, Actor: key.actor, Count: count})
	}
	return records
}

func (l *SubmissionLedger) restore(records []submissionRecord) {
	l.counts = make(map[submissionKey]uint64, len(records))
	l.totals = make(map[uint64]uint64)
	for _, record := range records {
		key := submissionKey{cycle: record.Cycle, actor: NormalizeActor(record.Actor)}
		l.counts[key] = record.Count
		l.totals[record.Cycle] += record.Count
	}
}
