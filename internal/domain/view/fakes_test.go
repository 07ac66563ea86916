package view

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"

	catalogevents "product-catalog/internal/domain/events"

	"github.com/walletera/eventskit/events"
	"github.com/walletera/werrors"
)

type memoryProductsRepository struct {
	mu       sync.Mutex
	products map[string]Product
}

func newMemoryProductsRepository() *memoryProductsRepository {
	return &memoryProductsRepository{products: make(map[string]Product)}
}

func (r *memoryProductsRepository) GetProduct(_ context.Context, id string) (Product, werrors.WError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	product, found := r.products[id]
	if !found {
		return Product{}, werrors.NewResourceNotFoundError("product %s not found", id)
	}
	return product, nil
}

func (r *memoryProductsRepository) InsertProduct(_ context.Context, product Product) (bool, werrors.WError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, found := r.products[product.Id]; found {
		return false, nil
	}
	r.products[product.Id] = product
	return true, nil
}

func (r *memoryProductsRepository) SetSaleable(_ context.Context, id string, saleable bool, aggregateVersion uint64) (bool, werrors.WError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	product, found := r.products[id]
	if !found {
		return false, werrors.NewResourceNotFoundError("product %s not found", id)
	}
	if product.AggregateVersion >= aggregateVersion {
		return false, nil
	}
	product.Saleable = saleable
	product.AggregateVersion = aggregateVersion
	r.products[id] = product
	return true, nil
}

func (r *memoryProductsRepository) SearchProducts(_ context.Context, filter ListFilter) (QueryResult, werrors.WError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matches []Product
	for _, product := range r.products {
		if filter.Saleable != nil && product.Saleable != *filter.Saleable {
			continue
		}
		matches = append(matches, product)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Id < matches[j].Id })
	return QueryResult{
		Iterator: &sliceIterator{products: matches},
		Total:    uint64(len(matches)),
	}, nil
}

func (r *memoryProductsRepository) snapshot() map[string]Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make(map[string]Product, len(r.products))
	for id, product := range r.products {
		snapshot[id] = product
	}
	return snapshot
}

type sliceIterator struct {
	products []Product
	pos      int
}

func (it *sliceIterator) Next() (bool, Product, error) {
	if it.pos >= len(it.products) {
		return false, Product{}, nil
	}
	product := it.products[it.pos]
	it.pos++
	return true, product, nil
}

// memoryReplayStore implements the shadow-store swap against two
// in-memory repositories.
type memoryReplayStore struct {
	mu     sync.Mutex
	live   *memoryProductsRepository
	shadow *memoryProductsRepository

	failStartWith werrors.WError
}

func newMemoryReplayStore(live *memoryProductsRepository) *memoryReplayStore {
	return &memoryReplayStore{live: live}
}

func (s *memoryReplayStore) StartReplay(_ context.Context) (Repository, werrors.WError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failStartWith != nil {
		return nil, s.failStartWith
	}
	s.shadow = newMemoryProductsRepository()
	return s.shadow, nil
}

func (s *memoryReplayStore) CommitReplay(_ context.Context) werrors.WError {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live.mu.Lock()
	defer s.live.mu.Unlock()
	s.live.products = s.shadow.snapshot()
	s.shadow = nil
	return nil
}

func (s *memoryReplayStore) AbortReplay(_ context.Context) werrors.WError {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shadow = nil
	return nil
}

type sliceEventSource struct {
	events  []events.Event[catalogevents.Handler]
	failAt  int
	failErr error

	gate chan struct{}
}

func (s *sliceEventSource) ReadAllEvents(_ context.Context) (EventIterator, error) {
	return &sliceEventIterator{source: s}, nil
}

type sliceEventIterator struct {
	source *sliceEventSource
	pos    int
}

func (it *sliceEventIterator) Next(_ context.Context) (bool, events.Event[catalogevents.Handler], error) {
	if it.source.gate != nil {
		<-it.source.gate
	}
	if it.source.failErr != nil && it.pos == it.source.failAt {
		return false, nil, it.source.failErr
	}
	if it.pos >= len(it.source.events) {
		return false, nil, nil
	}
	evt := it.source.events[it.pos]
	it.pos++
	return true, evt, nil
}

func (it *sliceEventIterator) Close(_ context.Context) error {
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
