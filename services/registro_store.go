package services

import (
	"context"
	"fmt"

	"kmz-server/config"
	"kmz-server/logging"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	registroCollection = "Registro"
	campaignField      = "campanaID"
)

// RecordStore streams the raw records filed under a campaign.
type RecordStore interface {
	EachRecord(ctx context.Context, campaignID string, fn func(bson.Raw) error) error
}

// MongoRecordStore reads coordinate records from the Registro collection.
type MongoRecordStore struct {
	collection *mongo.Collection
}

// ConnectMongo opens and pings the client used for the lifetime of the process.
func ConnectMongo(ctx context.Context, creds config.StoreCredentials) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(creds.URI))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}
	logging.Info().Str("database", creds.Database).Msg("Connected to MongoDB")
	return client, nil
}

func NewMongoRecordStore(db *mongo.Database) *MongoRecordStore {
	return &MongoRecordStore{collection: db.Collection(registroCollection)}
}

// EachRecord calls fn for every record whose campanaID equals campaignID, in
// cursor order. Only the Coordinates field is fetched.
func (s *MongoRecordStore) EachRecord(ctx context.Context, campaignID string, fn func(bson.Raw) error) error {
	filter := bson.M{campaignField: bson.M{"$eq": campaignID}}
	opts := options.Find().SetProjection(bson.M{coordinatesField: 1})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("find %s: %w", registroCollection, err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		if err := fn(cursor.Current); err != nil {
			return err
		}
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("iterate %s: %w", registroCollection, err)
	}
	return nil
}
