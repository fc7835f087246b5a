// Package migrations declares the MongoDB indexes the repositories rely on.
// Each migration is a named set of indexes registered from init(); the
// unique ones are what make duplicate detection race-free.
//
// Run via CLI: storefront indexes
package migrations

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shashiranjanraj/storefront/pkg/database"
	"github.com/shashiranjanraj/storefront/pkg/logger"
)

// IndexCreator is the part of *database.Mongo a migration needs.
type IndexCreator interface {
	EnsureIndexes(ctx context.Context, indexes []database.Index) error
}

type migration struct {
	name    string
	indexes []database.Index
}

var (
	mu      sync.Mutex
	entries []migration
)

// Register adds a named index set. Call it from init().
func Register(name string, indexes ...database.Index) {
	mu.Lock()
	defer mu.Unlock()
	entries = append(entries, migration{name: name, indexes: indexes})
}

// Names lists the registered migrations in order.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.name
	}
	return out
}

// All returns every registered index.
func All() []database.Index {
	mu.Lock()
	defer mu.Unlock()
	var out []database.Index
	for _, e := range entries {
		out = append(out, e.indexes...)
	}
	return out
}

// Run creates every registered index in registration order and stops on the
// first failure. Creating an existing identical index is a no-op.
func Run(ctx context.Context, db IndexCreator) error {
	mu.Lock()
	current := append([]migration(nil), entries...)
	mu.Unlock()

	for _, e := range current {
		if err := db.EnsureIndexes(ctx, e.indexes); err != nil {
			return fmt.Errorf("migration %q: %w", e.name, err)
		}
		logger.WithCtx(ctx).Info("migration applied", "name", e.name, "indexes", len(e.indexes))
	}
	return nil
}

func unique(coll string, keys bson.D) database.Index {
	return database.Index{Collection: coll, Model: mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true)}}
}

func plain(coll string, keys bson.D) database.Index {
	return database.Index{Collection: coll, Model: mongo.IndexModel{Keys: keys}}
}
