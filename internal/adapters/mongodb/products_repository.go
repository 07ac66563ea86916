package mongodb

import (
	"context"

	"product-catalog/internal/domain/view"

	"github.com/walletera/werrors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	defaultSearchLimit     = 50
	shadowCollectionSuffix = "_replay"
)

type ProductBSON struct {
	Id               string `bson:"_id"`
	Name             string `bson:"name"`
	Saleable         bool   `bson:"saleable"`
	AggregateVersion uint64 `bson:"version"`
}

type ProductsRepository struct {
	client         *mongo.Client
	dbName         string
	collectionName string
}

var _ view.Repository = (*ProductsRepository)(nil)
var _ view.ReplayStore = (*ProductsRepository)(nil)

func NewProductsRepository(client *mongo.Client, dbName string, collectionName string) *ProductsRepository {
	return &ProductsRepository{client: client, dbName: dbName, collectionName: collectionName}
}

func (p *ProductsRepository) GetProduct(ctx context.Context, id string) (view.Product, werrors.WError) {
	result := p.collection().FindOne(ctx, bson.M{"_id": id})
	if err := result.Err(); err != nil {
		if err == mongo.ErrNoDocuments {
			return view.Product{}, werrors.NewResourceNotFoundError("product %s not found", id)
		}
		return view.Product{}, werrors.NewRetryableInternalError("failed finding product %s: %s", id, err.Error())
	}
	var productBSON ProductBSON
	if err := result.Decode(&productBSON); err != nil {
		return view.Product{}, werrors.NewNonRetryableInternalError("failed decoding mongodb result: %s", err.Error())
	}
	return productFromBSON(productBSON), nil
}

func (p *ProductsRepository) InsertProduct(ctx context.Context, product view.Product) (bool, werrors.WError) {
	productBSON := ProductBSON{
		Id:               product.Id,
		Name:             product.Name,
		Saleable:         product.Saleable,
		AggregateVersion: product.AggregateVersion,
	}
	_, err := p.collection().InsertOne(ctx, productBSON)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, werrors.NewRetryableInternalError("failed inserting product: %s", err.Error())
	}
	return true, nil
}

func (p *ProductsRepository) SetSaleable(ctx context.Context, id string, saleable bool, aggregateVersion uint64) (bool, werrors.WError) {
	updateResult, err := p.collection().UpdateOne(ctx,
		bson.M{
			"_id":     id,
			"version": bson.M{"$lt": aggregateVersion},
		},
		bson.M{
			"$set": bson.M{
				"saleable": saleable,
				"version":  aggregateVersion,
			},
		})
	if err != nil {
		return false, werrors.NewRetryableInternalError("failed updating product: %s", err.Error())
	}
	if updateResult.MatchedCount == 0 {
		// Either the record is missing or it already incorporates this
		// event. Distinguish the two so the projection can treat the
		// latter as a redelivery no-op.
		count, countErr := p.collection().CountDocuments(ctx, bson.M{"_id": id})
		if countErr != nil {
			return false, werrors.NewRetryableInternalError("failed finding product %s: %s", id, countErr.Error())
		}
		if count == 0 {
			return false, werrors.NewResourceNotFoundError("product %s not found", id)
		}
		return false, nil
	}
	return true, nil
}

func (p *ProductsRepository) SearchProducts(ctx context.Context, filter view.ListFilter) (view.QueryResult, werrors.WError) {
	mongoFilter := bson.M{}
	if filter.Saleable != nil {
		mongoFilter["saleable"] = *filter.Saleable
	}

	coll := p.collection()

	total, err := coll.CountDocuments(ctx, mongoFilter)
	if err != nil {
		return view.QueryResult{}, werrors.NewRetryableInternalError("failed to count products: %s", err.Error())
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	limit := int64(defaultSearchLimit)
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	findOpts.SetLimit(limit)

	if filter.Offset > 0 {
		findOpts.SetSkip(filter.Offset)
	}

	cursor, err := coll.Find(ctx, mongoFilter, findOpts)
	if err != nil {
		return view.QueryResult{}, werrors.NewRetryableInternalError("failed to find products: %s", err.Error())
	}

	return view.QueryResult{
		Iterator: &Iterator{cursor: cursor},
		Total:    uint64(total),
	}, nil
}

// StartReplay prepares an empty shadow collection and returns a
// repository writing to it. The live collection stays untouched and
// readable until CommitReplay swaps the shadow in.
func (p *ProductsRepository) StartReplay(ctx context.Context) (view.Repository, werrors.WError) {
	shadowName := p.collectionName + shadowCollectionSuffix
	db := p.client.Database(p.dbName)

	err := db.Collection(shadowName).Drop(ctx)
	if err != nil {
		return nil, werrors.NewRetryableInternalError("failed dropping stale shadow collection: %s", err.Error())
	}
	// Create eagerly so an empty-history replay still has a source
	// namespace to rename on commit.
	err = db.CreateCollection(ctx, shadowName)
	if err != nil {
		return nil, werrors.NewRetryableInternalError("failed creating shadow collection: %s", err.Error())
	}

	return NewProductsRepository(p.client, p.dbName, shadowName), nil
}

func (p *ProductsRepository) CommitReplay(ctx context.Context) werrors.WError {
	result := p.client.Database("admin").RunCommand(ctx, bson.D{
		{Key: "renameCollection", Value: p.dbName + "." + p.collectionName + shadowCollectionSuffix},
		{Key: "to", Value: p.dbName + "." + p.collectionName},
		{Key: "dropTarget", Value: true},
	})
	if err := result.Err(); err != nil {
		return werrors.NewRetryableInternalError("failed swapping shadow collection in: %s", err.Error())
	}
	return nil
}

func (p *ProductsRepository) AbortReplay(ctx context.Context) werrors.WError {
	err := p.client.Database(p.dbName).Collection(p.collectionName + shadowCollectionSuffix).Drop(ctx)
	if err != nil {
		return werrors.NewRetryableInternalError("failed dropping shadow collection: %s", err.Error())
	}
	return nil
}

func (p *ProductsRepository) collection() *mongo.Collection {
	return p.client.Database(p.dbName).Collection(p.collectionName)
}

func productFromBSON(productBSON ProductBSON) view.Product {
	return view.Product{
		Id:               productBSON.Id,
		Name:             productBSON.Name,
		Saleable:         productBSON.Saleable,
		AggregateVersion: productBSON.AggregateVersion,
	}
}
