package product

import (
	"context"
	"errors"

	catalogevents "product-catalog/internal/domain/events"

	"github.com/walletera/eventskit/events"
	"github.com/walletera/werrors"
)

// VersionNewStream is the expected version used when appending the
// first event of a brand new stream.
const VersionNewStream int64 = -1

// Aggregate is the in-memory product, derived purely by folding its
// ordered event stream. It is rebuilt per command and discarded after
// the command completes.
//
// Command methods return the new events instead of mutating listener
// state; the repository persists and publishes them.
type Aggregate struct {
	id       string
	name     string
	saleable bool
	version  int64
}

var _ catalogevents.Handler = (*Aggregate)(nil)

func NewAggregate() *Aggregate {
	return &Aggregate{version: VersionNewStream}
}

// Replay folds the given events, in order, into a fresh aggregate.
// Folding the same stream always yields the same state.
func Replay(ctx context.Context, evts []events.Event[catalogevents.Handler]) (*Aggregate, error) {
	aggregate := NewAggregate()
	for _, evt := range evts {
		werr := evt.Accept(ctx, aggregate)
		if werr != nil {
			return nil, errors.New(werr.Message())
		}
	}
	return aggregate, nil
}

func (a *Aggregate) Id() string {
	return a.id
}

func (a *Aggregate) Name() string {
	return a.name
}

func (a *Aggregate) IsSaleable() bool {
	return a.saleable
}

// Version is the sequence number of the last folded event, or
// VersionNewStream when no events have been folded yet.
func (a *Aggregate) Version() int64 {
	return a.version
}

func (a *Aggregate) HandleProductAdded(_ context.Context, evt catalogevents.ProductAdded) werrors.WError {
	a.id = evt.Data.Id
	a.name = evt.Data.Name
	a.version = int64(evt.AggregateVersion())
	return nil
}

func (a *Aggregate) HandleProductSaleable(_ context.Context, evt catalogevents.ProductSaleable) werrors.WError {
	a.saleable = true
	a.version = int64(evt.AggregateVersion())
	return nil
}

func (a *Aggregate) HandleProductUnsaleable(_ context.Context, evt catalogevents.ProductUnsaleable) werrors.WError {
	a.saleable = false
	a.version = int64(evt.AggregateVersion())
	return nil
}

// Create emits the ProductAdded event. Only permitted on an aggregate
// with no prior events; racing creations with the same id are resolved
// by the store's optimistic concurrency check, not here.
func (a *Aggregate) Create(id string, name string, correlationId string) ([]events.Event[catalogevents.Handler], error) {
	if a.version != VersionNewStream {
		return nil, ErrDuplicateIdentity
	}
	evt := catalogevents.NewProductAdded(0, correlationId, catalogevents.ProductAddedData{
		Id:   id,
		Name: name,
	})
	return []events.Event[catalogevents.Handler]{evt}, nil
}

func (a *Aggregate) MarkSaleable(correlationId string) ([]events.Event[catalogevents.Handler], error) {
	if a.saleable {
		return nil, InvalidStateTransitionError{Id: a.id, Reason: "already saleable"}
	}
	evt := catalogevents.NewProductSaleable(uint64(a.version+1), correlationId, catalogevents.ProductSaleableData{
		Id: a.id,
	})
	return []events.Event[catalogevents.Handler]{evt}, nil
}

func (a *Aggregate) MarkUnsaleable(correlationId string) ([]events.Event[catalogevents.Handler], error) {
	if !a.saleable {
		return nil, InvalidStateTransitionError{Id: a.id, Reason: "already unsaleable"}
	}
	evt := catalogevents.NewProductUnsaleable(uint64(a.version+1), correlationId, catalogevents.ProductUnsaleableData{
		Id: a.id,
	})
	return []events.Event[catalogevents.Handler]{evt}, nil
}
