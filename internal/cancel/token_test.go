package cancel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceCancelClosesTokenDoneAndSetsErr(t *testing.T) {
	src := NewSource(context.Background())
	tok := src.Token()

	assert.False(t, tok.IsCancellationRequested())
	assert.NoError(t, tok.ThrowIfCancellationRequested())

	reason := errors.New("shutdown requested")
	src.Cancel(reason)

	assert.True(t, tok.IsCancellationRequested())
	assert.ErrorIs(t, tok.Err(), reason)
	assert.ErrorIs(t, tok.ThrowIfCancellationRequested(), reason)

	select {
	case <-tok.Done():
	default:
		t.Fatal("Done() channel should be closed after Cancel")
	}
}

func TestSourceCancelDefaultsToErrCancelled(t *testing.T) {
	src := NewSource(context.Background())
	src.Cancel(nil)
	assert.ErrorIs(t, src.Token().Err(), ErrCancelled)
}

func TestSourceCancelIsNoopAfterFirstCall(t *testing.T) {
	src := NewSource(context.Background())
	first := errors.New("first")
	second := errors.New("second")

	src.Cancel(first)
	src.Cancel(second)

	assert.ErrorIs(t, src.Token().Err(), first)
}

func TestRegisterRunsImmediatelyIfAlreadyCancelled(t *testing.T) {
	src := NewSource(context.Background())
	src.Cancel(errors.New("done"))

	called := false
	src.Token().Register(func() { called = true })

	assert.True(t, called)
}

func TestRegisterRunsOnCancelAndUnregisterPreventsIt(t *testing.T) {
	src := NewSource(context.Background())

	calledA, calledB := false, false
	src.Token().Register(func() { calledA = true })
	unregisterB := src.Token().Register(func() { calledB = true })
	unregisterB()

	src.Cancel(errors.New("done"))

	assert.True(t, calledA)
	assert.False(t, calledB)
}

func TestCancelAfterFiresCancelWhenContextDone(t *testing.T) {
	src := NewSource(context.Background())
	ctx, cancel := context.WithCancel(context.Background())
	src.CancelAfter(ctx, errors.New("timed out"))

	cancel()

	require.Eventually(t, func() bool {
		return src.Token().IsCancellationRequested()
	}, time.Second, 5*time.Millisecond)
}

func TestLinkedCancelsWhenEitherParentCancels(t *testing.T) {
	a := NewSource(context.Background())
	b := NewSource(context.Background())

	linked, cleanup := Linked(context.Background(), a.Token(), b.Token())
	defer cleanup()

	assert.False(t, linked.IsCancellationRequested())

	reason := errors.New("a cancelled")
	a.Cancel(reason)

	assert.True(t, linked.IsCancellationRequested())
	assert.ErrorIs(t, linked.Err(), reason)
}

func TestDisposeDropsPendingListenersWithoutRunningThem(t *testing.T) {
	src := NewSource(context.Background())
	called := false
	src.Token().Register(func() { called = true })

	src.Dispose()
	src.Cancel(errors.New("done"))

	assert.False(t, called)
}
