package migrations_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/database/migrations"
	"github.com/shashiranjanraj/storefront/pkg/database"
)

type recorder struct {
	calls [][]database.Index
	err   error
}

func (r *recorder) EnsureIndexes(_ context.Context, idx []database.Index) error {
	r.calls = append(r.calls, idx)
	return r.err
}

func TestRunAppliesEveryMigration(t *testing.T) {
	rec := &recorder{}
	require.NoError(t, migrations.Run(context.Background(), rec))

	assert.Len(t, rec.calls, len(migrations.Names()))
	var total int
	for _, c := range rec.calls {
		total += len(c)
	}
	assert.Equal(t, len(migrations.All()), total)
}

func TestUniqueIndexesBackDuplicateDetection(t *testing.T) {
	uniques := map[string][]bson.D{}
	for _, idx := range migrations.All() {
		if idx.Model.Options != nil && idx.Model.Options.Unique != nil && *idx.Model.Options.Unique {
			uniques[idx.Collection] = append(uniques[idx.Collection], idx.Model.Keys.(bson.D))
		}
	}

	assert.Len(t, uniques[repositories.UsersCollection], 2)
	assert.Len(t, uniques[repositories.CartsCollection], 1)
	assert.Len(t, uniques[repositories.DeliveryCollection], 1)
	require.Len(t, uniques[repositories.ReviewsCollection], 1)
	assert.Len(t, uniques[repositories.ReviewsCollection][0], 3)
}

func TestRunStopsOnFailure(t *testing.T) {
	rec := &recorder{err: errors.New("not primary")}
	err := migrations.Run(context.Background(), rec)

	require.Error(t, err)
	assert.Len(t, rec.calls, 1)
	assert.Contains(t, err.Error(), "not primary")
}
