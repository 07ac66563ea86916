package product

import (
	"context"
	"log/slog"

	catalogevents "product-catalog/internal/domain/events"
	"product-catalog/pkg/logattr"

	"github.com/walletera/eventskit/events"
)

// EventStore is the append-only storage port for product event streams.
type EventStore interface {
	// ReadEvents returns every event of the stream in sequence order.
	// An unknown stream yields an empty slice, not an error.
	ReadEvents(ctx context.Context, streamId string) ([]events.Event[catalogevents.Handler], error)

	// AppendEvents appends newEvents iff the last persisted sequence
	// number equals expectedVersion (VersionNewStream for a new
	// stream). On a mismatch it fails with ErrConcurrencyConflict.
	AppendEvents(ctx context.Context, streamId string, expectedVersion int64, newEvents []events.Event[catalogevents.Handler]) error
}

// Repository bridges the aggregate to durable storage and to the
// event bus. Events are published only after they are committed.
type Repository struct {
	store        EventStore
	publisher    events.Publisher
	exchangeName string
	logger       *slog.Logger
}

func NewRepository(store EventStore, publisher events.Publisher, exchangeName string, logger *slog.Logger) *Repository {
	return &Repository{
		store:        store,
		publisher:    publisher,
		exchangeName: exchangeName,
		logger:       logger,
	}
}

func (r *Repository) Load(ctx context.Context, id string) (*Aggregate, error) {
	evts, err := r.store.ReadEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(evts) == 0 {
		return nil, ErrNotFound
	}
	return Replay(ctx, evts)
}

func (r *Repository) Save(ctx context.Context, id string, expectedVersion int64, newEvents []events.Event[catalogevents.Handler]) error {
	err := r.store.AppendEvents(ctx, id, expectedVersion, newEvents)
	if err != nil {
		return err
	}

	// The command outcome is already durable at this point. A publish
	// failure leaves the read model stale until the next replay, so it
	// is logged loudly instead of failing the command.
	for _, evt := range newEvents {
		routingKey, routingErr := catalogevents.RoutingKeyFor(evt.Type())
		if routingErr != nil {
			r.logger.Error(
				"failed resolving routing key for persisted event",
				logattr.Error(routingErr.Error()),
				logattr.EventType(evt.Type()),
				logattr.StreamName(id),
			)
			continue
		}
		publishErr := r.publisher.Publish(ctx, evt, events.RoutingInfo{
			Topic:      r.exchangeName,
			RoutingKey: routingKey,
		})
		if publishErr != nil {
			r.logger.Error(
				"failed publishing persisted event",
				logattr.Error(publishErr.Error()),
				logattr.EventType(evt.Type()),
				logattr.StreamName(id),
			)
		}
	}

	return nil
}
