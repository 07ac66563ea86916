package mongodb

import (
	"context"
	"fmt"
	"time"

	catalogevents "product-catalog/internal/domain/events"
	"product-catalog/internal/domain/product"
	"product-catalog/internal/domain/view"

	"github.com/walletera/eventskit/events"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type storedEventBSON struct {
	StreamId  string    `bson:"streamId"`
	Sequence  int64     `bson:"sequence"`
	EventType string    `bson:"eventType"`
	RawEvent  []byte    `bson:"rawEvent"`
	CreatedAt time.Time `bson:"createdAt"`
}

// EventStore is the append-only product event log. The unique index on
// (streamId, sequence) is the optimistic concurrency check: racing
// writers collide on the same sequence number and exactly one wins.
type EventStore struct {
	client         *mongo.Client
	dbName         string
	collectionName string
	deserializer   *catalogevents.Deserializer
}

var _ product.EventStore = (*EventStore)(nil)
var _ view.EventSource = (*EventStore)(nil)

func NewEventStore(client *mongo.Client, dbName string, collectionName string, deserializer *catalogevents.Deserializer) *EventStore {
	return &EventStore{
		client:         client,
		dbName:         dbName,
		collectionName: collectionName,
		deserializer:   deserializer,
	}
}

func (s *EventStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "streamId", Value: 1}, {Key: "sequence", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed creating event stream index: %w", err)
	}
	return nil
}

func (s *EventStore) ReadEvents(ctx context.Context, streamId string) ([]events.Event[catalogevents.Handler], error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "sequence", Value: 1}})
	cursor, err := s.collection().Find(ctx, bson.M{"streamId": streamId}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed reading stream %s: %w", streamId, err)
	}
	defer cursor.Close(ctx)

	var evts []events.Event[catalogevents.Handler]
	for cursor.Next(ctx) {
		evt, err := s.decodeCurrent(cursor)
		if err != nil {
			return nil, err
		}
		evts = append(evts, evt)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating stream %s: %w", streamId, err)
	}
	return evts, nil
}

func (s *EventStore) AppendEvents(ctx context.Context, streamId string, expectedVersion int64, newEvents []events.Event[catalogevents.Handler]) error {
	docs := make([]interface{}, 0, len(newEvents))
	for i, evt := range newEvents {
		rawEvent, err := evt.Serialize()
		if err != nil {
			return fmt.Errorf("failed serializing event %s: %w", evt.Type(), err)
		}
		docs = append(docs, storedEventBSON{
			StreamId:  streamId,
			Sequence:  expectedVersion + 1 + int64(i),
			EventType: evt.Type(),
			RawEvent:  rawEvent,
			CreatedAt: evt.CreatedAt(),
		})
	}

	_, err := s.collection().InsertMany(ctx, docs)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("stream %s at version %d: %w", streamId, expectedVersion, product.ErrConcurrencyConflict)
		}
		return fmt.Errorf("failed appending to stream %s: %w", streamId, err)
	}
	return nil
}

// ReadAllEvents returns the full history ordered by stream then
// sequence, preserving per-aggregate fold order for replays.
func (s *EventStore) ReadAllEvents(ctx context.Context) (view.EventIterator, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "streamId", Value: 1}, {Key: "sequence", Value: 1}})
	cursor, err := s.collection().Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed reading event history: %w", err)
	}
	return &EventIterator{cursor: cursor, store: s}, nil
}

func (s *EventStore) collection() *mongo.Collection {
	return s.client.Database(s.dbName).Collection(s.collectionName)
}

func (s *EventStore) decodeCurrent(cursor *mongo.Cursor) (events.Event[catalogevents.Handler], error) {
	var storedEvent storedEventBSON
	if err := cursor.Decode(&storedEvent); err != nil {
		return nil, fmt.Errorf("failed decoding stored event: %w", err)
	}
	evt, err := s.deserializer.Deserialize(storedEvent.RawEvent)
	if err != nil {
		return nil, fmt.Errorf("failed deserializing stored event (stream %s, sequence %d): %w", storedEvent.StreamId, storedEvent.Sequence, err)
	}
	return evt, nil
}

type EventIterator struct {
	cursor *mongo.Cursor
	store  *EventStore
}

func (it *EventIterator) Next(ctx context.Context) (bool, events.Event[catalogevents.Handler], error) {
	if !it.cursor.Next(ctx) {
		if err := it.cursor.Err(); err != nil {
			return false, nil, err
		}
		return false, nil, nil
	}
	evt, err := it.store.decodeCurrent(it.cursor)
	if err != nil {
		return false, nil, err
	}
	return true, evt, nil
}

func (it *EventIterator) Close(ctx context.Context) error {
	return it.cursor.Close(ctx)
}
