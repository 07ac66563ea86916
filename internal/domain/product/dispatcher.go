package product

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"product-catalog/pkg/logattr"
)

// ValidationMode controls whether the dispatcher checks required
// command fields before touching storage. It is explicit dispatcher
// configuration, not a process-wide toggle.
type ValidationMode int

const (
	ValidationStrict ValidationMode = iota
	ValidationDisabled
)

type commandHandler func(ctx context.Context, cmd Command) error

// Dispatcher is the single entry point mapping one command to exactly
// one aggregate-affecting transaction. Handlers are registered in a
// static registry at construction time.
type Dispatcher struct {
	repository     *Repository
	validationMode ValidationMode
	handlers       map[string]commandHandler
	logger         *slog.Logger
}

type DispatcherOpt func(d *Dispatcher)

func WithValidationMode(mode ValidationMode) DispatcherOpt {
	return func(d *Dispatcher) {
		d.validationMode = mode
	}
}

func NewDispatcher(repository *Repository, logger *slog.Logger, opts ...DispatcherOpt) *Dispatcher {
	dispatcher := &Dispatcher{
		repository:     repository,
		validationMode: ValidationStrict,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(dispatcher)
	}
	dispatcher.handlers = map[string]commandHandler{
		CommandTypeAddProduct:              dispatcher.handleAddProduct,
		CommandTypeMarkProductAsSaleable:   dispatcher.handleMarkProductAsSaleable,
		CommandTypeMarkProductAsUnsaleable: dispatcher.handleMarkProductAsUnsaleable,
	}
	return dispatcher
}

func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) error {
	handler, found := d.handlers[cmd.CommandType()]
	if !found {
		return fmt.Errorf("no handler registered for command type %s", cmd.CommandType())
	}
	return handler(ctx, cmd)
}

func (d *Dispatcher) handleAddProduct(ctx context.Context, cmd Command) error {
	addProduct, ok := cmd.(AddProduct)
	if !ok {
		return fmt.Errorf("command type %s carries unexpected payload %T", cmd.CommandType(), cmd)
	}

	err := d.validate(field{"id", addProduct.Id}, field{"name", addProduct.Name})
	if err != nil {
		return err
	}

	aggregate := NewAggregate()
	newEvents, err := aggregate.Create(addProduct.Id, addProduct.Name, addProduct.CorrelationId)
	if err != nil {
		return err
	}

	err = d.repository.Save(ctx, addProduct.Id, VersionNewStream, newEvents)
	if err != nil {
		if errors.Is(err, ErrConcurrencyConflict) {
			return fmt.Errorf("product %s: %w", addProduct.Id, ErrDuplicateIdentity)
		}
		return err
	}

	d.logger.Info(
		"product added",
		logattr.ProductId(addProduct.Id),
		logattr.ProductName(addProduct.Name),
		logattr.CorrelationId(addProduct.CorrelationId),
	)
	return nil
}

func (d *Dispatcher) handleMarkProductAsSaleable(ctx context.Context, cmd Command) error {
	markSaleable, ok := cmd.(MarkProductAsSaleable)
	if !ok {
		return fmt.Errorf("command type %s carries unexpected payload %T", cmd.CommandType(), cmd)
	}

	err := d.validate(field{"id", markSaleable.Id})
	if err != nil {
		return err
	}

	aggregate, err := d.repository.Load(ctx, markSaleable.Id)
	if err != nil {
		return err
	}

	newEvents, err := aggregate.MarkSaleable(markSaleable.CorrelationId)
	if err != nil {
		return err
	}

	err = d.repository.Save(ctx, markSaleable.Id, aggregate.Version(), newEvents)
	if err != nil {
		return err
	}

	d.logger.Info(
		"product marked saleable",
		logattr.ProductId(markSaleable.Id),
		logattr.CorrelationId(markSaleable.CorrelationId),
	)
	return nil
}

func (d *Dispatcher) handleMarkProductAsUnsaleable(ctx context.Context, cmd Command) error {
	markUnsaleable, ok := cmd.(MarkProductAsUnsaleable)
	if !ok {
		return fmt.Errorf("command type %s carries unexpected payload %T", cmd.CommandType(), cmd)
	}

	err := d.validate(field{"id", markUnsaleable.Id})
	if err != nil {
		return err
	}

	aggregate, err := d.repository.Load(ctx, markUnsaleable.Id)
	if err != nil {
		return err
	}

	newEvents, err := aggregate.MarkUnsaleable(markUnsaleable.CorrelationId)
	if err != nil {
		return err
	}

	err = d.repository.Save(ctx, markUnsaleable.Id, aggregate.Version(), newEvents)
	if err != nil {
		return err
	}

	d.logger.Info(
		"product marked unsaleable",
		logattr.ProductId(markUnsaleable.Id),
		logattr.CorrelationId(markUnsaleable.CorrelationId),
	)
	return nil
}

type field struct {
	name  string
	value string
}

func (d *Dispatcher) validate(fields ...field) error {
	if d.validationMode == ValidationDisabled {
		return nil
	}
	for _, f := range fields {
		if f.value == "" {
			return ValidationError{Field: f.name}
		}
	}
	return nil
}
