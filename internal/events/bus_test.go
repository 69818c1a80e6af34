package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/swarmforge/swarmcore/internal/models"
)

func TestEmitFansOutToSubscribers(t *testing.T) {
	bus := NewBus(zap.NewNop(), "sess-1")
	var got []models.Event
	bus.On(func(ev models.Event) { got = append(got, ev) })

	bus.Emit(models.Event{Kind: models.EventCycleDetected})

	if assert.Len(t, got, 1) {
		assert.Equal(t, "sess-1", got[0].SessionID)
	}
}

func TestEmitDoesNotOverrideExplicitSessionID(t *testing.T) {
	bus := NewBus(zap.NewNop(), "sess-1")
	var got models.Event
	bus.On(func(ev models.Event) { got = ev })

	bus.Emit(models.Event{Kind: models.EventCycleDetected, SessionID: "sess-2"})

	assert.Equal(t, "sess-2", got.SessionID)
}

func TestOnReturnsWorkingUnsubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop(), "sess-1")
	count := 0
	unsubscribe := bus.On(func(models.Event) { count++ })

	bus.Emit(models.Event{Kind: models.EventCycleDetected})
	unsubscribe()
	bus.Emit(models.Event{Kind: models.EventCycleDetected})

	assert.Equal(t, 1, count)
}

func TestEmitSwallowsHandlerPanic(t *testing.T) {
	bus := NewBus(zap.NewNop(), "sess-1")
	bus.On(func(models.Event) { panic("boom") })

	called := false
	bus.On(func(models.Event) { called = true })

	assert.NotPanics(t, func() {
		bus.Emit(models.Event{Kind: models.EventCycleDetected})
	})
	assert.True(t, called)
}

func TestNewBusAcceptsNilLogger(t *testing.T) {
	bus := NewBus(nil, "sess-1")
	assert.NotPanics(t, func() {
		bus.Emit(models.Event{Kind: models.EventCycleDetected})
	})
}
