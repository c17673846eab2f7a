// Package events is the publish/subscribe capability the adapter emits its
// lifecycle notifications on.
package events

// file: internal/wallet/events/events.go

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/walletbridge/internal/logging"
)

// Name identifies an event.
type Name string

// Adapter events.
const (
	// Connect fires after a successful connect. Payload: session.Account.
	Connect Name = "connect"
	// Disconnect fires on every Disconnect call. Payload: nil.
	Disconnect Name = "disconnect"
	// Error fires before a fault is returned to the caller. Payload: error.
	Error Name = "error"
	// ReadyStateChange fires when the detector settles. Payload: readiness.ReadyState.
	ReadyStateChange Name = "readyStateChange"
)

// Handler receives an event payload.
type Handler func(payload any)

// Emitter is what the adapter needs from a pub/sub implementation.
type Emitter interface {
	Emit(name Name, payload any)
	On(name Name, handler Handler) (unsubscribe func())
}

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is a synchronous in-process Emitter. Handlers run on the emitting
// goroutine in subscription order. A panicking handler is recovered and
// logged; the remaining handlers still run.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Name][]subscription
	logger logging.Logger
}

// NewBus creates an empty bus.
func NewBus(logger logging.Logger) *Bus {
	return &Bus{
		subs:   make(map[Name][]subscription),
		logger: logging.OrNoop(logger).WithField("component", "event_bus"),
	}
}

// On subscribes handler to name. The returned function removes the
// subscription and is safe to call more than once.
func (b *Bus) On(name Name, handler Handler) func() {
	if handler == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(name, id) })
	}
}

func (b *Bus) remove(name Name, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[name]
	for i, s := range subs {
		if s.id == id {
			b.subs[name] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[name]) == 0 {
		delete(b.subs, name)
	}
}

// Emit delivers payload to every current subscriber of name.
func (b *Bus) Emit(name Name, payload any) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[name]))
	copy(subs, b.subs[name])
	b.mu.RUnlock()

	for _, s := range subs {
		b.dispatch(name, s.handler, payload)
	}
}

func (b *Bus) dispatch(name Name, handler Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.Newf("event handler panicked: %s", fmt.Sprint(r))
			b.logger.Error("Recovered from panic in event handler.", "event", string(name), "error", err)
		}
	}()
	handler(payload)
}

// Subscribers returns the number of handlers registered for name.
func (b *Bus) Subscribers(name Name) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}

// Discard is an Emitter that drops everything.
type Discard struct{}

// Emit does nothing.
func (Discard) Emit(Name, any) {}

// On does nothing and returns a no-op unsubscribe.
func (Discard) On(Name, Handler) func() { return func() {} }
