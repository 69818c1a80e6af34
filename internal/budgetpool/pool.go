// Package budgetpool implements the dynamic budget pool a parent agent
// shares with its direct children (spec.md 4.D): a fixed token/cost
// ceiling divided among an expected number of children as they spawn,
// shrinking the share available to later children as earlier ones reserve
// or overrun. The teacher has no equivalent (conductor allocates a single
// static budget per run), so the reservation arithmetic here is new,
// styled after internal/budget/tracker.go's UsageBlock accounting
// (running totals guarded by a mutex, a small value type per tracked
// unit) rather than copied from any one teacher function.
package budgetpool

import (
	"sync"
)

// defaultMinTokenFloor/defaultMinCostFloor are the minimum share a
// reservation must clear to be granted; below this a child is better
// served by a static preset than a sliver of the pool.
const (
	defaultMinTokenFloor = int64(5_000)
	defaultMinCostFloor  = 0.05
)

// Allocation is what Reserve hands back: the child's slice of the pool.
type Allocation struct {
	ID          string
	TokenBudget int64
	CostBudget  float64
}

type reservation struct {
	Allocation
	usedTokens int64
	usedCost   float64
	released   bool
}

// Pool is the shared budget a parent divides among its children. The zero
// value is not usable; construct with New.
type Pool struct {
	mu sync.Mutex

	totalTokenBudget int64
	totalCostBudget  float64

	reservedTokens int64
	reservedCost   float64
	usedTokens     int64
	usedCost       float64

	expectedChildrenRemaining int

	minTokenFloor int64
	minCostFloor  float64

	reservations map[string]*reservation
}

// New creates a pool sized totalTokenBudget/totalCostBudget, expecting
// roughly expectedChildren reservations over its lifetime.
func New(totalTokenBudget int64, totalCostBudget float64, expectedChildren int) *Pool {
	return &Pool{
		totalTokenBudget:          totalTokenBudget,
		totalCostBudget:           totalCostBudget,
		expectedChildrenRemaining: expectedChildren,
		minTokenFloor:             defaultMinTokenFloor,
		minCostFloor:              defaultMinCostFloor,
		reservations:              make(map[string]*reservation),
	}
}

// Reserve carves out a share of the remaining pool for allocationID, sized
// as floor(available / max(1, expectedChildrenRemaining)) on each
// dimension. Returns (nil, false) if the resulting share would be below
// the configured floor. Reserving the same allocationID twice returns the
// existing reservation's allocation (idempotent) rather than minting a
// second share.
func (p *Pool) Reserve(allocationID string) (*Allocation, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.reservations[allocationID]; ok && !existing.released {
		alloc := existing.Allocation
		return &alloc, true
	}

	denom := p.expectedChildrenRemaining
	if denom < 1 {
		denom = 1
	}

	availableTokens := p.totalTokenBudget - p.reservedTokens - p.usedTokens
	availableCost := p.totalCostBudget - p.reservedCost - p.usedCost

	tokenShare := availableTokens / int64(denom)
	costShare := availableCost / float64(denom)

	if tokenShare < p.minTokenFloor || costShare < p.minCostFloor {
		return nil, false
	}

	alloc := Allocation{ID: allocationID, TokenBudget: tokenShare, CostBudget: costShare}
	p.reservations[allocationID] = &reservation{Allocation: alloc}
	p.reservedTokens += tokenShare
	p.reservedCost += costShare
	if p.expectedChildrenRemaining > 0 {
		p.expectedChildrenRemaining--
	}

	return &alloc, true
}

// Insufficient reports whether the next Reserve call would fail: the
// remaining pool divided across expectedChildrenRemaining would land below
// the configured floor on either dimension. Read-only; does not reserve or
// consume expectedChildrenRemaining (spec.md 4.I "budget triage").
func (p *Pool) Insufficient() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	denom := p.expectedChildrenRemaining
	if denom < 1 {
		denom = 1
	}

	availableTokens := p.totalTokenBudget - p.reservedTokens - p.usedTokens
	availableCost := p.totalCostBudget - p.reservedCost - p.usedCost

	tokenShare := availableTokens / int64(denom)
	costShare := availableCost / float64(denom)

	return tokenShare < p.minTokenFloor || costShare < p.minCostFloor
}

// RecordUsage debits tokens/cost from the pool's running used totals and
// from the named reservation's own usage counter (so Release can compute
// the unused remainder). Usage against an allocation that was never
// reserved, or was already released, is still recorded against the pool
// totals — the pool has no way to refuse consumption after the fact, only
// to shrink what later reservations see.
func (p *Pool) RecordUsage(allocationID string, tokens int64, cost float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.usedTokens += tokens
	p.usedCost += cost

	if r, ok := p.reservations[allocationID]; ok {
		r.usedTokens += tokens
		r.usedCost += cost
	}
}

// Release returns the unused portion of allocationID's reservation to the
// pool. An allocation that overran its reservation (used > reserved)
// returns nothing — the overrun is already reflected in the pool's used
// totals, permanently reducing what later reservations see (spec.md 4.D:
// "subsequent children see reduced availability"). Releasing an unknown or
// already-released allocation is a no-op.
func (p *Pool) Release(allocationID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, ok := p.reservations[allocationID]
	if !ok || r.released {
		return
	}
	r.released = true

	p.reservedTokens -= r.TokenBudget
	p.reservedCost -= r.CostBudget
	// The portion actually consumed graduates from "reserved" into
	// "used" (already true for usedTokens/usedCost via RecordUsage), so
	// reducing reservedTokens by the full reservation and leaving
	// usedTokens untouched correctly frees exactly the unused remainder.
}

// Snapshot reports the pool's current totals, for display and checkpoint
// persistence.
type Snapshot struct {
	TotalTokenBudget          int64
	TotalCostBudget           float64
	ReservedTokens            int64
	ReservedCost              float64
	UsedTokens                int64
	UsedCost                  float64
	ExpectedChildrenRemaining int
}

// Snapshot returns a point-in-time copy of the pool's totals.
func (p *Pool) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		TotalTokenBudget:          p.totalTokenBudget,
		TotalCostBudget:           p.totalCostBudget,
		ReservedTokens:            p.reservedTokens,
		ReservedCost:              p.reservedCost,
		UsedTokens:                p.usedTokens,
		UsedCost:                  p.usedCost,
		ExpectedChildrenRemaining: p.expectedChildrenRemaining,
	}
}
