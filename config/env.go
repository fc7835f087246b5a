package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultMongoURI  = "mongodb://localhost:27017"
	defaultMongoDB   = "storefront"
	defaultRedisAddr = "localhost:6379"
	defaultJWTSecret = "change-me-in-production"
	defaultAppPort   = "8080"
	defaultAppEnv    = "local"
)

var (
	loadOnce sync.Once
	loadErr  error

	mu     sync.RWMutex
	values = defaultValues()
)

// Load reads config/app.json and then .env on top of the defaults.
// Process environment variables win over both.
func Load() error {
	loadOnce.Do(func() {
		loadErr = loadFromFiles("config/app.json", ".env")
	})
	return loadErr
}

func defaultValues() map[string]string {
	return map[string]string{
		"APP_ENV":            defaultAppEnv,
		"APP_PORT":           defaultAppPort,
		"MONGO_URI":          defaultMongoURI,
		"MONGO_DB":           defaultMongoDB,
		"MONGO_TRANSACTIONS": "false",
		"REDIS_ADDR":         defaultRedisAddr,
		"REDIS_PASSWORD":     "",
		"JWT_SECRET":         defaultJWTSecret,
		"JWT_TTL":            "1h",
	}
}

// ── App ──────────────────────────────────────────────────────────────────────

func AppEnv() string  { _ = Load(); return get("APP_ENV", defaultAppEnv) }
func AppPort() string { _ = Load(); return get("APP_PORT", defaultAppPort) }

// IsProduction reports whether APP_ENV names a production deployment.
func IsProduction() bool {
	switch strings.ToLower(AppEnv()) {
	case "production", "prod":
		return true
	}
	return false
}

func LogLevel() string { _ = Load(); return get("LOG_LEVEL", "") }
func LogToMongo() bool { _ = Load(); return getBool("LOG_MONGO", false) }

// ── Database ─────────────────────────────────────────────────────────────────

func MongoURI() string { _ = Load(); return get("MONGO_URI", defaultMongoURI) }
func MongoDB() string  { _ = Load(); return get("MONGO_DB", defaultMongoDB) }

// MongoTransactions enables multi-document transactions. Requires a replica
// set or sharded cluster.
func MongoTransactions() bool { _ = Load(); return getBool("MONGO_TRANSACTIONS", false) }

func RedisAddr() string     { _ = Load(); return get("REDIS_ADDR", defaultRedisAddr) }
func RedisPassword() string { _ = Load(); return get("REDIS_PASSWORD", "") }

// ── Auth ─────────────────────────────────────────────────────────────────────

func JWTSecret() string { _ = Load(); return get("JWT_SECRET", defaultJWTSecret) }

// ErrDefaultJWTSecret is returned by Validate when a production deployment
// still signs tokens with the built-in secret.
var ErrDefaultJWTSecret = errors.New("config: JWT_SECRET must be set in production")

// Validate rejects settings the server must not start with.
func Validate() error {
	if IsProduction() && JWTSecret() == defaultJWTSecret {
		return ErrDefaultJWTSecret
	}
	return nil
}

// JWTTTL is the access token lifetime (default one hour).
func JWTTTL() time.Duration { _ = Load(); return getDuration("JWT_TTL", time.Hour) }

func CaptchaSecret() string { _ = Load(); return get("CAPTCHA_SECRET", "") }
func CaptchaVerifyURL() string {
	_ = Load()
	return get("CAPTCHA_VERIFY_URL", "https://www.google.com/recaptcha/api/siteverify")
}

// ── HTTP ─────────────────────────────────────────────────────────────────────

// CORSOrigins returns the comma separated CORS_ORIGINS list ("*" by default).
func CORSOrigins() []string {
	_ = Load()
	raw := get("CORS_ORIGINS", "*")
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// RateLimit is the number of requests a client may make per minute.
func RateLimit() int { _ = Load(); return getInt("RATE_LIMIT", 200) }

func MaxBodyBytes() int64 { _ = Load(); return int64(getInt("MAX_BODY_BYTES", 4<<20)) }

// MaxUploadBytes caps multipart bodies (images).
func MaxUploadBytes() int64 { _ = Load(); return int64(getInt("MAX_UPLOAD_BYTES", 10<<20)) }

// ── Orders ───────────────────────────────────────────────────────────────────

// ReconcileAfter is the age after which an unconfirmed checkout is reconciled.
func ReconcileAfter() time.Duration {
	_ = Load()
	return getDuration("RECONCILE_AFTER", 5*time.Minute)
}

// ── Storage ──────────────────────────────────────────────────────────────────

func StorageDefault() string   { _ = Load(); return get("STORAGE_DISK", "local") }
func StorageLocalRoot() string { _ = Load(); return get("STORAGE_LOCAL_ROOT", "storage") }
func StorageURL() string {
	_ = Load()
	return get("STORAGE_URL", "http://localhost:8080/storage")
}

func StorageS3Bucket() string   { _ = Load(); return get("S3_BUCKET", "") }
func StorageS3Region() string   { _ = Load(); return get("S3_REGION", "us-east-1") }
func StorageS3Key() string      { _ = Load(); return get("S3_KEY", "") }
func StorageS3Secret() string   { _ = Load(); return get("S3_SECRET", "") }
func StorageS3Endpoint() string { _ = Load(); return get("S3_ENDPOINT", "") }
func StorageS3URL() string      { _ = Load(); return get("S3_URL", "") }

// ── Mail ─────────────────────────────────────────────────────────────────────

func MailHost() string     { _ = Load(); return get("MAIL_HOST", "smtp.mailtrap.io") }
func MailPort() string     { _ = Load(); return get("MAIL_PORT", "587") }
func MailUsername() string { _ = Load(); return get("MAIL_USERNAME", "") }
func MailPassword() string { _ = Load(); return get("MAIL_PASSWORD", "") }
func MailFrom() string     { _ = Load(); return get("MAIL_FROM", "shop@storefront.local") }
func MailFromName() string { _ = Load(); return get("MAIL_FROM_NAME", "Storefront") }

// ── Loading ──────────────────────────────────────────────────────────────────

func loadFromFiles(configPath, envPath string) error {
	loaded := defaultValues()

	if err := mergeJSONConfig(configPath, loaded); err != nil && !os.IsNotExist(err) {
		return err
	}

	env, err := godotenv.Read(envPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read %s: %w", envPath, err)
	}
	for k, v := range env {
		if k = strings.ToUpper(strings.TrimSpace(k)); k != "" {
			loaded[k] = strings.TrimSpace(v)
		}
	}

	mu.Lock()
	values = loaded
	mu.Unlock()

	return nil
}

func mergeJSONConfig(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var raw map[string]any
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	for key, val := range raw {
		k := strings.ToUpper(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		switch v := val.(type) {
		case string:
			out[k] = strings.TrimSpace(v)
		case bool, float64:
			out[k] = fmt.Sprint(v)
		}
	}

	return nil
}

func get(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}

	mu.RLock()
	defer mu.RUnlock()

	if value := strings.TrimSpace(values[key]); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if n, err := strconv.Atoi(get(key, "")); err == nil && n > 0 {
		return n
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(get(key, "")); err == nil {
		return b
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(get(key, "")); err == nil && d > 0 {
		return d
	}
	return fallback
}

// Get reads any config key by name with an optional fallback.
func Get(key, fallback string) string {
	_ = Load()
	return get(key, fallback)
}

// Set overrides a key at runtime. Intended for tests and CLI flags.
func Set(key, value string) {
	_ = Load()
	mu.Lock()
	values[strings.ToUpper(key)] = value
	mu.Unlock()
}
