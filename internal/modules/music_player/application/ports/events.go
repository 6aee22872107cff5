package ports

import (
	"context"
	"reflect"

	"github.com/sglre6355/ascend/internal/modules/music_player/domain"
)

// EventPublisher hands domain events to the bus without waiting for handlers.
type EventPublisher interface {
	// Publish enqueues event. It fails only when the bus is closed or full.
	Publish(event domain.Event) error
}

// EventSubscriber registers handlers by the concrete event type.
// Handlers for one bus run one at a time, in publish order.
type EventSubscriber interface {
	Subscribe(eventType reflect.Type, handler func(context.Context, domain.Event)) error
}
