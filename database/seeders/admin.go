package seeders

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/pkg/auth"
)

func init() {
	Register("admin", SeedAdmin)
}

// SeedAdmin creates the verified admin account named by SEED_ADMIN_EMAIL
// unless a user with that email exists.
func SeedAdmin(ctx context.Context, d Deps) error {
	email := config.Get("SEED_ADMIN_EMAIL", "admin@storefront.local")
	_, err := d.Users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, repositories.ErrNotFound):
		return err
	}

	hash, err := auth.HashPassword(config.Get("SEED_ADMIN_PASSWORD", "change-me-now"))
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return d.Users.Create(ctx, &models.User{
		Username:      config.Get("SEED_ADMIN_USERNAME", "admin"),
		Email:         email,
		Password:      hash,
		IsAdmin:       true,
		EmailVerified: true,
		Wishlist:      []primitive.ObjectID{},
	})
}
