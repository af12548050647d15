package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const cartsCollection = "carts"

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

// OpenCartRepository connects to MongoDB and makes sure the carts collection
// is indexed. The returned close func disconnects the client.
func OpenCartRepository(ctx context.Context, uri, database string) (CartRepository, func(context.Context) error, error) {
	db, err := ConnectMongoDB(ctx, uri, database)
	if err != nil {
		return nil, nil, err
	}

	repo := &mongoRepository{collection: db.Collection(cartsCollection)}
	if err := repo.CreateIndexes(ctx); err != nil {
		_ = db.Client().Disconnect(ctx)
		return nil, nil, err
	}

	return repo, db.Client().Disconnect, nil
}
