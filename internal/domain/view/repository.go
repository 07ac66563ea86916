package view

import (
	"context"

	"github.com/walletera/werrors"
)

// Product is the queryable read-model record. It is owned exclusively
// by the projection and is never the source of truth.
type Product struct {
	Id               string
	Name             string
	Saleable         bool
	AggregateVersion uint64
}

type ListFilter struct {
	Saleable *bool
	Limit    int64
	Offset   int64
}

type Iterator interface {
	Next() (bool, Product, error)
}

type QueryResult struct {
	Iterator Iterator
	Total    uint64
}

type Repository interface {
	GetProduct(ctx context.Context, id string) (Product, werrors.WError)

	// InsertProduct inserts the record keyed by id. A record that
	// already exists is left untouched and reported with inserted ==
	// false, so redelivered ProductAdded events are no-ops.
	InsertProduct(ctx context.Context, product Product) (inserted bool, werr werrors.WError)

	// SetSaleable updates the saleability flag and version of the
	// record. A stale or duplicate delivery (record already at or past
	// aggregateVersion) is reported with applied == false. A missing
	// record yields a resource-not-found error.
	SetSaleable(ctx context.Context, id string, saleable bool, aggregateVersion uint64) (applied bool, werr werrors.WError)

	SearchProducts(ctx context.Context, filter ListFilter) (QueryResult, werrors.WError)
}
