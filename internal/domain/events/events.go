package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/walletera/eventskit/events"
	"github.com/walletera/werrors"
)

const (
	TypeProductAdded      = "ProductAdded"
	TypeProductSaleable   = "ProductSaleable"
	TypeProductUnsaleable = "ProductUnsaleable"

	RoutingKeyProductAdded      = "product.added"
	RoutingKeyProductSaleable   = "product.saleable"
	RoutingKeyProductUnsaleable = "product.unsaleable"
)

// Handler is the visitor every catalog event dispatches to.
// Both the write-side aggregate fold and the read-side projection
// implement it, so event dispatch is resolved statically.
type Handler interface {
	HandleProductAdded(ctx context.Context, productAdded ProductAdded) werrors.WError
	HandleProductSaleable(ctx context.Context, productSaleable ProductSaleable) werrors.WError
	HandleProductUnsaleable(ctx context.Context, productUnsaleable ProductUnsaleable) werrors.WError
}

// RoutingKeyFor maps an event type to its routing key on the
// product events exchange.
func RoutingKeyFor(eventType string) (string, error) {
	switch eventType {
	case TypeProductAdded:
		return RoutingKeyProductAdded, nil
	case TypeProductSaleable:
		return RoutingKeyProductSaleable, nil
	case TypeProductUnsaleable:
		return RoutingKeyProductUnsaleable, nil
	default:
		return "", fmt.Errorf("no routing key for event type %s", eventType)
	}
}

type eventMeta struct {
	id               uuid.UUID
	aggregateVersion uint64
	correlationId    string
	createdAt        time.Time
}

func newEventMeta(aggregateVersion uint64, correlationId string) eventMeta {
	return eventMeta{
		id:               uuid.New(),
		aggregateVersion: aggregateVersion,
		correlationId:    correlationId,
		createdAt:        time.Now().UTC(),
	}
}

func metaFromEnvelope(envelope events.EventEnvelope) eventMeta {
	return eventMeta{
		id:               envelope.Id,
		aggregateVersion: envelope.AggregateVersion,
		correlationId:    envelope.CorrelationId,
		createdAt:        envelope.CreatedAt,
	}
}

func (m eventMeta) ID() string {
	return m.id.String()
}

func (m eventMeta) AggregateVersion() uint64 {
	return m.aggregateVersion
}

func (m eventMeta) CorrelationID() string {
	return m.correlationId
}

func (m eventMeta) DataContentType() string {
	return "application/json"
}

func (m eventMeta) CreatedAt() time.Time {
	return m.createdAt
}

func serialize(meta eventMeta, eventType string, data any) ([]byte, error) {
	rawData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed serializing %s event data: %w", eventType, err)
	}
	return json.Marshal(events.EventEnvelope{
		Id:               meta.id,
		Type:             eventType,
		AggregateVersion: meta.aggregateVersion,
		CorrelationId:    meta.correlationId,
		CreatedAt:        meta.createdAt,
		Data:             rawData,
	})
}

type ProductAddedData struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

type ProductAdded struct {
	eventMeta

	Data ProductAddedData
}

var _ events.Event[Handler] = ProductAdded{}

func NewProductAdded(aggregateVersion uint64, correlationId string, data ProductAddedData) ProductAdded {
	return ProductAdded{
		eventMeta: newEventMeta(aggregateVersion, correlationId),
		Data:      data,
	}
}

func (p ProductAdded) Type() string {
	return TypeProductAdded
}

func (p ProductAdded) Serialize() ([]byte, error) {
	return serialize(p.eventMeta, TypeProductAdded, p.Data)
}

func (p ProductAdded) Accept(ctx context.Context, handler Handler) werrors.WError {
	return handler.HandleProductAdded(ctx, p)
}

type ProductSaleableData struct {
	Id string `json:"id"`
}

type ProductSaleable struct {
	eventMeta

	Data ProductSaleableData
}

var _ events.Event[Handler] = ProductSaleable{}

func NewProductSaleable(aggregateVersion uint64, correlationId string, data ProductSaleableData) ProductSaleable {
	return ProductSaleable{
		eventMeta: newEventMeta(aggregateVersion, correlationId),
		Data:      data,
	}
}

func (p ProductSaleable) Type() string {
	return TypeProductSaleable
}

func (p ProductSaleable) Serialize() ([]byte, error) {
	return serialize(p.eventMeta, TypeProductSaleable, p.Data)
}

func (p ProductSaleable) Accept(ctx context.Context, handler Handler) werrors.WError {
	return handler.HandleProductSaleable(ctx, p)
}

type ProductUnsaleableData struct {
	Id string `json:"id"`
}

type ProductUnsaleable struct {
	eventMeta

	Data ProductUnsaleableData
}

var _ events.Event[Handler] = ProductUnsaleable{}

func NewProductUnsaleable(aggregateVersion uint64, correlationId string, data ProductUnsaleableData) ProductUnsaleable {
	return ProductUnsaleable{
		eventMeta: newEventMeta(aggregateVersion, correlationId),
		Data:      data,
	}
}

func (p ProductUnsaleable) Type() string {
	return TypeProductUnsaleable
}

func (p ProductUnsaleable) Serialize() ([]byte, error) {
	return serialize(p.eventMeta, TypeProductUnsaleable, p.Data)
}

func (p ProductUnsaleable) Accept(ctx context.Context, handler Handler) werrors.WError {
	return handler.HandleProductUnsaleable(ctx, p)
}
