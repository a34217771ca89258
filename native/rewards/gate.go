package rewards

import (
	"context"
	"fmt"
	"sync"
)

// Registry answers authoritative access-credential queries. Implementations
// are expected to bound their own timeouts; the gate never retries.
type Registry interface {
	QueryAccess(ctx context.Context, actor string) (bool, error)
}

// AccessGate answers whether an actor holds the access credential. Confirmed
// positives are cached locally so recently granted credentials resolve
// without a registry round-trip; negatives are never cached because the
// authoritative registry may grant a credential at any time. Safe for
// concurrent use.
type AccessGate struct {
	registry Registry
	operator string
	onGrant  func(actor string)

	mu     sync.RWMutex
	grants map[string]struct{}
}

// NewAccessGate creates a gate backed by the given registry. The operator
// identifier is always treated as holding the credential.
func NewAccessGate(registry Registry, operator string) *AccessGate {
	return &AccessGate{
		registry: registry,
		operator: NormalizeActor(operator),
		grants:   make(map[string]struct{}),
	}
}

// HasAccess reports whether the actor holds the access credential. Registry
// errors are returned alongside a false result; the caller decides whether
// absence of access is a rejection.
func (g *AccessGate) HasAccess(ctx context.Context, actor string) (bool, error) {
	normalized := NormalizeActor(actor)
	if normalized == "" {
		return false, ErrInvalidActor
	}
	// Deliberate operator bypass: the operator never needs a credential.
	if g.operator != "" && normalized == g.operator {
		return true, nil
	}
	g.mu.RLock()
	_, cached := g.grants[normalized]
	g.mu.RUnlock()
	if cached {
		return true, nil
	}
	if g.registry == nil {
		return false, fmt.Errorf("rewards: access registry not configured")
	}
	held, err := g.registry.QueryAccess(ctx, normalized)
	if err != nil {
		return false, fmt.Errorf("rewards: registry query for %s: %w", normalized, err)
	}
	if held {
		if g.grant(normalized) && g.onGrant != nil {
			g.onGrant(normalized)
		}
	}
	return held, nil
}

// OnGrant registers a callback fired the first time a credential is confirmed
// by the registry and cached. Grant (the warm-up path) never fires it.
func (g *AccessGate) OnGrant(fn func(actor string)) {
	g.onGrant = fn
}

// Grant records a registry-confirmed credential in the local cache. Granting
// twice is a no-op; no path un-grants.
func (g *AccessGate) Grant(actor string) {
	g.grant(NormalizeActor(actor))
}

func (g *AccessGate) grant(normalized string) bool {
	if normalized == "" {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.grants[normalized]; ok {
		return false
	}
	g.grants[normalized] = struct{}{}
	return true
}

// Grants returns the number of cached confirmed credentials.
func (g *AccessGate) Grants() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return uint64(len(g.grants))
}

func (g *AccessGate) snapshot() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	actors := make([]string, 0, len(g.grants))
	for actor := range g.grants {
		actors = append(actors, actor)
	}
	return actors
}

func (g *AccessGate) restore(actors []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.grants = make(map[string]struct{}, len(actors))
	for _, actor := range actors {
		normalized := NormalizeActor(actor)
		if normalized == "" {
			continue
		}
		g.grants[normalized] = struct{}{}
	}
}
