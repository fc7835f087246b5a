// Package services holds the storefront business rules. Services return
// *apperr.Error for anything the client should see and plain wrapped errors
// for everything else.
package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/apperr"
	"github.com/shashiranjanraj/storefront/pkg/queue"
)

// Transactor runs fn atomically when the database supports it.
// *database.Mongo implements it.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoTx runs fn directly.
type NoTx struct{}

func (NoTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// JobDispatcher enqueues background jobs. *queue.Manager implements it.
type JobDispatcher interface {
	Dispatch(ctx context.Context, job queue.Job) error
}

// maxRetries bounds compare-and-swap loops.
const maxRetries = 5

// ParseID converts a hex id from a URL or body into an ObjectID.
func ParseID(hex, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.BadRequest("Invalid %s id", what)
	}
	return id, nil
}

// notFound maps repositories.ErrNotFound to a 404 with msg and wraps any
// other error with op.
func notFound(err error, msg, op string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound("%s", msg)
	}
	return fmt.Errorf("%s: %w", op, err)
}
