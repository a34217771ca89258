package rewards

import "strconv"

const (
	EventSubmissionAccepted   = "rewards.submission.accepted"
	EventSubmissionUnrewarded = "rewards.submission.unrewarded"
	EventCycleTriggered       = "rewards.cycle.triggered"
	EventCycleWithdrawn       = "rewards.cycle.withdrawn"
	EventBudgetScheduled      = "rewards.budget.scheduled"
	EventAccessGranted        = "rewards.access.granted"
)

// Event mirrors the attribute-map event shape used across the node so the
// ledger can feed the same downstream indexers.
type Event struct {
	Type       string
	Attributes map[string]string
}

// EventSink receives ledger events as they are emitted. Implementations must
// not retain the attribute map beyond the call.
type EventSink interface {
	AppendEvent(evt *Event)
}

func (e *Engine) emit(eventType string, attrs map[string]string) {
	if e.events == nil {
		return
	}
	e.events.AppendEvent(&Event{Type: eventType, Attributes: attrs})
}

func cycleAttr(cycle uint64) string {
	return strconv.FormatUint(cycle, 10)
}
