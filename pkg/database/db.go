// Package database owns the MongoDB connection, index creation and the
// transaction helper used by checkout.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/pkg/logger"
)

// Mongo bundles the client with the application database.
type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database

	transactions bool
}

// Connect opens the client, pings the primary and selects MONGO_DB.
// Returns an error instead of exiting so the caller can shut down cleanly.
func Connect(ctx context.Context) (*Mongo, error) {
	opts := options.Client().
		ApplyURI(config.MongoURI()).
		SetMaxPoolSize(50).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	return &Mongo{
		Client:       client,
		DB:           client.Database(config.MongoDB()),
		transactions: config.MongoTransactions(),
	}, nil
}

// Disconnect closes the client.
func (m *Mongo) Disconnect(ctx context.Context) error {
	if m == nil || m.Client == nil {
		return nil
	}
	return m.Client.Disconnect(ctx)
}

// Collection returns a handle on the named collection.
func (m *Mongo) Collection(name string) *mongo.Collection {
	return m.DB.Collection(name)
}

// Transactions reports whether multi-document transactions are enabled
// (they need a replica set or sharded cluster).
func (m *Mongo) Transactions() bool { return m.transactions }

// WithTransaction runs fn inside a Mongo transaction when transactions are
// enabled, otherwise it calls fn with ctx unchanged. fn must use the ctx it
// receives for every operation that belongs to the transaction.
func (m *Mongo) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !m.transactions {
		return fn(ctx)
	}

	sess, err := m.Client.StartSession()
	if err != nil {
		return fmt.Errorf("database: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return err
}

// IsDuplicateKey reports whether err is a unique index violation.
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// IsNotFound reports whether err is the driver's "no documents" error.
func IsNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// ─── Indexes ──────────────────────────────────────────────────────────────────

// Index is a named index declaration for one collection.
type Index struct {
	Collection string
	Model      mongo.IndexModel
}

// EnsureIndexes creates the given indexes. CreateOne is idempotent for an
// identical spec, so this runs on every start.
func (m *Mongo) EnsureIndexes(ctx context.Context, indexes []Index) error {
	for _, idx := range indexes {
		name, err := m.Collection(idx.Collection).Indexes().CreateOne(ctx, idx.Model)
		if err != nil {
			return fmt.Errorf("database: index on %s: %w", idx.Collection, err)
		}
		logger.WithCtx(ctx).Debug("index ready", "collection", idx.Collection, "index", name)
	}
	return nil
}
