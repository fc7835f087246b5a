package seeders_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/database/seeders"
	"github.com/shashiranjanraj/storefront/pkg/auth"
)

type users struct {
	repositories.UserRepository
	byEmail map[string]*models.User
}

func (u *users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if x, ok := u.byEmail[email]; ok {
		return x, nil
	}
	return nil, repositories.ErrNotFound
}

func (u *users) Create(_ context.Context, x *models.User) error {
	x.ID = primitive.NewObjectID()
	u.byEmail[x.Email] = x
	return nil
}

type products struct {
	repositories.ProductRepository
	items []models.Product
}

func (p *products) Find(context.Context, repositories.ProductFilter) ([]models.Product, int64, error) {
	return p.items, int64(len(p.items)), nil
}

func (p *products) Create(_ context.Context, x *models.Product) error {
	x.ID = primitive.NewObjectID()
	p.items = append(p.items, *x)
	return nil
}

func TestSeedersAreIdempotent(t *testing.T) {
	t.Setenv("SEED_ADMIN_EMAIL", "root@shop.test")
	t.Setenv("SEED_ADMIN_PASSWORD", "s3cret-pass")

	d := seeders.Deps{Users: &users{byEmail: map[string]*models.User{}}, Products: &products{}}
	var out bytes.Buffer

	require.NoError(t, seeders.RunAll(context.Background(), d, &out))
	require.NoError(t, seeders.RunAll(context.Background(), d, &out))

	admins := d.Users.(*users).byEmail
	require.Len(t, admins, 1)
	admin := admins["root@shop.test"]
	assert.True(t, admin.IsAdmin)
	assert.True(t, admin.EmailVerified)
	assert.True(t, auth.CheckPassword(admin.Password, "s3cret-pass"))

	catalog := d.Products.(*products).items
	require.Len(t, catalog, 3, "second run leaves the catalog alone")
	for _, p := range catalog {
		assert.True(t, p.IsActive)
		assert.NoError(t, p.CheckVariants(), p.Name)
	}
	assert.Contains(t, out.String(), "Running seeder: admin")
}
