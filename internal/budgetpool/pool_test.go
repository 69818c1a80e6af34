package budgetpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveSplitsEvenlyAcrossExpectedChildren(t *testing.T) {
	p := New(100_000, 10.0, 2)

	a1, ok := p.Reserve("child-1")
	require.True(t, ok)
	assert.Equal(t, int64(50_000), a1.TokenBudget)
	assert.Equal(t, 5.0, a1.CostBudget)

	a2, ok := p.Reserve("child-2")
	require.True(t, ok)
	assert.Equal(t, int64(50_000), a2.TokenBudget)
}

func TestReserveShrinksShareAsChildrenAreAdded(t *testing.T) {
	p := New(90_000, 9.0, 3)

	a1, ok := p.Reserve("child-1")
	require.True(t, ok)
	assert.Equal(t, int64(30_000), a1.TokenBudget)

	a2, ok := p.Reserve("child-2")
	require.True(t, ok)
	assert.Equal(t, int64(30_000), a2.TokenBudget)
}

func TestReserveIsIdempotentForSameAllocationID(t *testing.T) {
	p := New(100_000, 10.0, 2)

	first, ok := p.Reserve("child-1")
	require.True(t, ok)
	second, ok := p.Reserve("child-1")
	require.True(t, ok)

	assert.Equal(t, first.TokenBudget, second.TokenBudget)

	// the idempotent replay should not have consumed a second share.
	third, ok := p.Reserve("child-2")
	require.True(t, ok)
	assert.Equal(t, int64(50_000), third.TokenBudget)
}

func TestReserveFailsBelowTokenFloor(t *testing.T) {
	p := New(1000, 10.0, 1)
	_, ok := p.Reserve("child-1")
	assert.False(t, ok)
}

func TestReserveFailsBelowCostFloor(t *testing.T) {
	p := New(100_000, 0.01, 1)
	_, ok := p.Reserve("child-1")
	assert.False(t, ok)
}

func TestInsufficientReportsWithoutConsuming(t *testing.T) {
	p := New(10_000, 0.06, 1)
	assert.False(t, p.Insufficient())

	snapshotBefore := p.Snapshot()
	assert.False(t, p.Insufficient())
	snapshotAfter := p.Snapshot()
	assert.Equal(t, snapshotBefore, snapshotAfter)
}

func TestInsufficientTrueWhenShareWouldBeBelowFloor(t *testing.T) {
	p := New(1000, 10.0, 1)
	assert.True(t, p.Insufficient())
}

func TestRecordUsageTracksPoolAndReservationTotals(t *testing.T) {
	p := New(100_000, 10.0, 1)
	_, ok := p.Reserve("child-1")
	require.True(t, ok)

	p.RecordUsage("child-1", 1_000, 0.5)

	snap := p.Snapshot()
	assert.Equal(t, int64(1_000), snap.UsedTokens)
	assert.Equal(t, 0.5, snap.UsedCost)
}

func TestRecordUsageAgainstUnknownAllocationStillHitsPoolTotals(t *testing.T) {
	p := New(100_000, 10.0, 1)
	p.RecordUsage("never-reserved", 500, 0.1)

	snap := p.Snapshot()
	assert.Equal(t, int64(500), snap.UsedTokens)
}

func TestReleaseFreesUnusedReservationBackToPool(t *testing.T) {
	p := New(100_000, 10.0, 2)
	a1, ok := p.Reserve("child-1")
	require.True(t, ok)
	p.RecordUsage("child-1", a1.TokenBudget/2, a1.CostBudget/2)

	p.Release("child-1")

	snap := p.Snapshot()
	assert.Equal(t, int64(0), snap.ReservedTokens)
	assert.Equal(t, 0.0, snap.ReservedCost)
}

func TestReleaseIsNoopForUnknownOrAlreadyReleasedAllocation(t *testing.T) {
	p := New(100_000, 10.0, 1)
	assert.NotPanics(t, func() { p.Release("ghost") })

	_, ok := p.Reserve("child-1")
	require.True(t, ok)
	p.Release("child-1")
	p.Release("child-1")
}

func TestOverrunReservationDoesNotReturnNegativeToPool(t *testing.T) {
	p := New(100_000, 10.0, 2)
	a1, ok := p.Reserve("child-1")
	require.True(t, ok)

	p.RecordUsage("child-1", a1.TokenBudget+1_000, a1.CostBudget+1.0)
	p.Release("child-1")

	a2, ok := p.Reserve("child-2")
	require.True(t, ok)
	assert.Less(t, a2.TokenBudget, a1.TokenBudget)
}
