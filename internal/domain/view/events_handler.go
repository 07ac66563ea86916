package view

import (
	"context"
	"log/slog"

	"product-catalog/internal/domain/events"
	"product-catalog/pkg/logattr"

	"github.com/walletera/werrors"
)

// EventsHandler projects catalog events onto the read store. All
// handlers are idempotent so at-least-once delivery is safe.
type EventsHandler struct {
	repository Repository
	logger     *slog.Logger
}

var _ events.Handler = (*EventsHandler)(nil)

func NewEventsHandler(repository Repository, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		repository: repository,
		logger:     logger,
	}
}

func (e *EventsHandler) HandleProductAdded(ctx context.Context, productAdded events.ProductAdded) werrors.WError {
	product := Product{
		Id:               productAdded.Data.Id,
		Name:             productAdded.Data.Name,
		Saleable:         false,
		AggregateVersion: productAdded.AggregateVersion(),
	}
	inserted, werr := e.repository.InsertProduct(ctx, product)
	if werr != nil {
		e.logger.Error(
			"failed saving product",
			logattr.Error(werr.Message()),
			logattr.ProductId(product.Id),
			logattr.CorrelationId(productAdded.CorrelationID()),
		)
		return werr
	}
	if !inserted {
		e.logger.Info(
			"product already exists, redelivered event ignored",
			logattr.ProductId(product.Id),
			logattr.CorrelationId(productAdded.CorrelationID()),
		)
		return nil
	}
	e.logger.Info(
		"product saved",
		logattr.ProductId(product.Id),
		logattr.CorrelationId(productAdded.CorrelationID()),
	)
	return nil
}

func (e *EventsHandler) HandleProductSaleable(ctx context.Context, productSaleable events.ProductSaleable) werrors.WError {
	return e.setSaleable(ctx, productSaleable.Data.Id, true, productSaleable.AggregateVersion(), productSaleable.CorrelationID())
}

func (e *EventsHandler) HandleProductUnsaleable(ctx context.Context, productUnsaleable events.ProductUnsaleable) werrors.WError {
	return e.setSaleable(ctx, productUnsaleable.Data.Id, false, productUnsaleable.AggregateVersion(), productUnsaleable.CorrelationID())
}

func (e *EventsHandler) setSaleable(ctx context.Context, id string, saleable bool, aggregateVersion uint64, correlationId string) werrors.WError {
	applied, werr := e.repository.SetSaleable(ctx, id, saleable, aggregateVersion)
	if werr != nil {
		if werr.Code() == werrors.ResourceNotFoundErrorCode {
			// Ordering anomaly: a saleability event arrived for a
			// product the view has never seen. Logged, not fatal.
			e.logger.Warn(
				"saleability event for unknown product ignored",
				logattr.ProductId(id),
				logattr.CorrelationId(correlationId),
			)
			return nil
		}
		e.logger.Error(
			"failed updating product saleability",
			logattr.Error(werr.Message()),
			logattr.ProductId(id),
			logattr.CorrelationId(correlationId),
		)
		return werr
	}
	if !applied {
		e.logger.Info(
			"product saleability already up to date, redelivered event ignored",
			logattr.ProductId(id),
			logattr.CorrelationId(correlationId),
		)
		return nil
	}
	e.logger.Info(
		"product saleability updated",
		logattr.ProductId(id),
		logattr.CorrelationId(correlationId),
	)
	return nil
}
