package mongodb

import (
	"context"

	"product-catalog/internal/domain/view"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

type Iterator struct {
	cursor *mongo.Cursor
}

func (m *Iterator) Next() (bool, view.Product, error) {
	if !m.cursor.Next(context.Background()) {
		if err := m.cursor.Err(); err != nil {
			return false, view.Product{}, err
		}
		return false, view.Product{}, nil
	}

	var productBSON ProductBSON
	if err := m.cursor.Decode(&productBSON); err != nil {
		return false, view.Product{}, err
	}

	return true, productFromBSON(productBSON), nil
}
