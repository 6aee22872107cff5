package infrastructure

import (
	"context"
	"log/slog"
	"reflect"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/ports"
	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
)

// DefaultEventBufferSize is the default buffer size of the event channel.
const DefaultEventBufferSize = 100

// ErrEventBusClosed is returned when publishing to or subscribing on a closed bus.
var ErrEventBusClosed = errors.New("event bus closed")

// Compile-time checks that ChannelEventBus implements ports interfaces.
var (
	_ ports.EventPublisher  = (*ChannelEventBus)(nil)
	_ ports.EventSubscriber = (*ChannelEventBus)(nil)
)

// ChannelEventBus provides a channel-based event bus for async event handling.
// It implements both EventPublisher and EventSubscriber interfaces.
//
// Events are dispatched by a single goroutine in publish order, so handlers for
// one guild never observe its events out of order.
type ChannelEventBus struct {
	events   chan domain.Event
	handlers map[reflect.Type][]func(context.Context, domain.Event)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
	mu     sync.RWMutex
}

// NewChannelEventBus creates a new ChannelEventBus with the given buffer size.
func NewChannelEventBus(bufferSize int) *ChannelEventBus {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	bus := &ChannelEventBus{
		events:   make(chan domain.Event, bufferSize),
		handlers: make(map[reflect.Type][]func(context.Context, domain.Event)),
		ctx:      ctx,
		cancel:   cancel,
	}

	bus.wg.Add(1)
	go bus.dispatch()

	return bus
}

// dispatch runs until Close closes the channel, delivering every event
// queued before that.
func (b *ChannelEventBus) dispatch() {
	defer b.wg.Done()
	for event := range b.events {
		b.deliver(event)
	}
}

func (b *ChannelEventBus) deliver(event domain.Event) {
	eventType := reflect.TypeOf(event)

	b.mu.RLock()
	handlers := b.handlers[eventType]
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.invoke(handler, event, eventType)
	}
}

// invoke runs one handler, keeping the dispatcher alive if it panics.
func (b *ChannelEventBus) invoke(
	handler func(context.Context, domain.Event),
	event domain.Event,
	eventType reflect.Type,
) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error(
				"event handler panicked",
				"type", eventType.Name(),
				"guild", event.EventGuildID(),
				"panic", r,
			)
		}
	}()
	handler(b.ctx, event)
}

// Publish enqueues an event for dispatch.
// Non-blocking: if the buffer is full, the event is dropped with a warning.
func (b *ChannelEventBus) Publish(event domain.Event) error {
	if event == nil {
		return errors.New("cannot publish nil event")
	}
	eventType := reflect.TypeOf(event).Name()

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", eventType)
		return ErrEventBusClosed
	}

	select {
	case b.events <- event:
		slog.Debug("published event", "type", eventType, "guild", event.EventGuildID())
		return nil
	default:
		slog.Warn("event buffer full, dropping event", "type", eventType, "guild", event.EventGuildID())
		return errors.Newf("event buffer full, dropped %s", eventType)
	}
}

// Subscribe registers a handler for events of the given concrete type.
func (b *ChannelEventBus) Subscribe(
	eventType reflect.Type,
	handler func(context.Context, domain.Event),
) error {
	if eventType == nil || !eventType.Implements(reflect.TypeFor[domain.Event]()) {
		return errors.Newf("%v is not an event type", eventType)
	}
	if handler == nil {
		return errors.New("handler must not be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// Close rejects further events, waits for the queued ones to be delivered
// and then stops the dispatcher.
func (b *ChannelEventBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.events)
	b.mu.Unlock()

	b.wg.Wait()
	b.cancel()

	slog.Debug("channel event bus closed")
}
