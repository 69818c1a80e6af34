// Package events is the subscription-based event stream spec.md 6 "Event
// stream" describes: every core component emits to a Bus instead of calling
// loggers directly, and the bus both journals every event as structured
// JSON (grounded on the zap usage in other_examples' diillson-chatcli
// agent loop, e.g. its step/trace logging in agent_loop.go) and fans it out
// to subscribers registered with On.
package events

import (
	"sync"

	"github.com/swarmforge/swarmcore/internal/models"
	"go.uber.org/zap"
)

// Handler receives every event published after it subscribes. Handlers run
// synchronously on the publisher's goroutine; a handler that blocks blocks
// Emit. Handler panics and errors are swallowed (spec.md 4.C "Listener
// errors are swallowed").
type Handler func(models.Event)

// Bus is a process-local pub/sub journal. The zero value is not usable;
// construct with NewBus.
type Bus struct {
	mu       sync.RWMutex
	handlers []subscription
	nextID   int
	journal  *zap.Logger
	session  string
}

type subscription struct {
	id      int
	handler Handler
}

// NewBus creates a bus that journals every event through journal (pass
// zap.NewNop() to disable journaling, e.g. in tests) tagged with
// sessionID.
func NewBus(journal *zap.Logger, sessionID string) *Bus {
	if journal == nil {
		journal = zap.NewNop()
	}
	return &Bus{journal: journal, session: sessionID}
}

// On registers handler and returns an unsubscribe function, matching
// spec.md 4.C's "unsubscribe functions returned from on() work".
func (b *Bus) On(handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers = append(b.handlers, subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, sub := range b.handlers {
			if sub.id == id {
				b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
				return
			}
		}
	}
}

// Emit journals ev and fans it out to every current subscriber. A panicking
// handler is recovered and swallowed so one bad subscriber cannot break the
// emitting component's control flow.
func (b *Bus) Emit(ev models.Event) {
	if ev.SessionID == "" {
		ev.SessionID = b.session
	}
	b.journal.Info(string(ev.Kind),
		zap.String("session_id", ev.SessionID),
		zap.Time("ts", ev.Timestamp),
		zap.Any("payload", ev.Payload),
	)

	b.mu.RLock()
	handlers := make([]subscription, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, sub := range handlers {
		b.safeInvoke(sub.handler, ev)
	}
}

func (b *Bus) safeInvoke(h Handler, ev models.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.journal.Warn("event handler panicked",
				zap.String("event", string(ev.Kind)),
				zap.Any("recover", r),
			)
		}
	}()
	h(ev)
}
