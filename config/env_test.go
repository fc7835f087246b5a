package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/storefront/config"
)

func TestDefaults(t *testing.T) {
	assert.Equal(t, time.Hour, config.JWTTTL())
	assert.Equal(t, "storefront", config.MongoDB())
	assert.Equal(t, 5*time.Minute, config.ReconcileAfter())
}

func TestEnvironmentOverridesFiles(t *testing.T) {
	t.Setenv("MONGO_DB", "shop_test")
	t.Setenv("JWT_TTL", "30m")

	assert.Equal(t, "shop_test", config.MongoDB())
	assert.Equal(t, 30*time.Minute, config.JWTTTL())
}

func TestBadDurationFallsBack(t *testing.T) {
	t.Setenv("RECONCILE_AFTER", "soon")
	assert.Equal(t, 5*time.Minute, config.ReconcileAfter())
}

func TestCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://shop.example.com, https://admin.example.com,")
	assert.Equal(t,
		[]string{"https://shop.example.com", "https://admin.example.com"},
		config.CORSOrigins())
}

func TestSet(t *testing.T) {
	config.Set("storage_disk", "s3")
	defer config.Set("STORAGE_DISK", "local")

	assert.Equal(t, "s3", config.StorageDefault())
}

func TestValidateRejectsDefaultSecretInProduction(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	t.Setenv("APP_ENV", "local")
	assert.NoError(t, config.Validate())

	t.Setenv("APP_ENV", "production")
	assert.ErrorIs(t, config.Validate(), config.ErrDefaultJWTSecret)

	t.Setenv("APP_ENV", "prod")
	assert.ErrorIs(t, config.Validate(), config.ErrDefaultJWTSecret)

	t.Setenv("JWT_SECRET", "s3cr3t-from-vault")
	assert.NoError(t, config.Validate())
}
