package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	portfolio "github.com/bitmark-inc/artist-portfolio"
	"github.com/bitmark-inc/artist-portfolio/auth"
	"github.com/bitmark-inc/artist-portfolio/mediahost"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("ADMIN_USER", testAdminUser)
	t.Setenv("ADMIN_PASS", testAdminPass)
	t.Setenv("JWT_SECRET", testJWTSecret)
	t.Setenv("MONGO_URI", "mongodb://localhost:27017/portfolio")
	t.Setenv("CLOUD_NAME", "demo")
	t.Setenv("API_KEY", "key")
	t.Setenv("API_SECRET", "secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg := LoadConfig(newViper())
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, auth.DefaultTokenTTL, cfg.JWTTTL)
	assert.Equal(t, portfolio.StoreDriverMongoDB, cfg.Store.Driver)
	assert.Equal(t, "mongodb://localhost:27017/portfolio", cfg.Store.MongoURI)
	assert.Equal(t, mediahost.ProviderCloudinary, cfg.Media.Provider)
	assert.Equal(t, portfolio.DefaultMediaFolder, cfg.Media.Folder)
	assert.Equal(t, portfolio.DefaultMediaFolder, cfg.Media.Cloudinary.Folder)
	assert.Equal(t, "demo", cfg.Media.Cloudinary.CloudName)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, int64(32<<20), cfg.UploadMaxMemory)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
	assert.Equal(t, portfolio.DevelopmentEnvironment, cfg.Environment)
	assert.Equal(t, auth.Credentials{Username: testAdminUser, Password: testAdminPass}, cfg.Admin)
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("JWT_TTL", "30m")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("DATABASE_DSN", "file:portfolio.db")
	t.Setenv("MEDIA_PROVIDER", "cloudflare")
	t.Setenv("MEDIA_FOLDER", "gallery")
	t.Setenv("CLOUDFLARE_ACCOUNT_ID", "account")
	t.Setenv("CLOUDFLARE_ACCOUNT_HASH", "hash")
	t.Setenv("CLOUDFLARE_API_TOKEN", "token")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("DEBUG", "true")

	cfg := LoadConfig(newViper())
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.JWTTTL)
	assert.Equal(t, portfolio.StoreDriverSQLite, cfg.Store.Driver)
	assert.Equal(t, mediahost.ProviderCloudflare, cfg.Media.Provider)
	assert.Equal(t, "gallery", cfg.Media.Cloudflare.Folder)
	assert.True(t, cfg.Media.Cloudflare.Debug)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowOrigins)
}

func TestLoadConfigFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")

	file := filepath.Join(t.TempDir(), "portfolio.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server:\n  port: \"7000\"\nmedia:\n  folder: showcase\n"), 0o600))

	v := newViper()
	v.SetConfigFile(file)
	require.NoError(t, v.ReadInConfig())

	cfg := LoadConfig(v)
	assert.Equal(t, "9000", cfg.Port, "environment wins over the config file")
	assert.Equal(t, "showcase", cfg.Media.Folder)
}

func TestValidateNamesMissingEnv(t *testing.T) {
	cfg := LoadConfig(newViper())

	err := cfg.Validate()
	require.Error(t, err)
	for _, env := range []string{"ADMIN_USER", "ADMIN_PASS", "JWT_SECRET", "MONGO_URI", "CLOUD_NAME", "API_KEY", "API_SECRET"} {
		assert.Contains(t, err.Error(), env)
	}

	cfg.Store.Driver = "oracle"
	cfg.Media.Provider = "imgur"
	err = cfg.Validate()
	assert.Contains(t, err.Error(), "unsupported STORE_DRIVER: oracle")
	assert.Contains(t, err.Error(), "unsupported MEDIA_PROVIDER: imgur")
}

type fakeResolver struct {
	values map[string]string
	calls  int
}

func (r *fakeResolver) Resolve(_ context.Context, value string) (string, error) {
	r.calls++
	resolved, ok := r.values[value]
	if !ok {
		return "", errors.New("parameter not found")
	}
	return resolved, nil
}

func TestResolveSecrets(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_SECRET", "ssm:/portfolio/jwt-secret")
	t.Setenv("API_SECRET", "ssm:/portfolio/cloudinary-secret")

	resolver := &fakeResolver{values: map[string]string{
		"ssm:/portfolio/jwt-secret":        "resolved-jwt",
		"ssm:/portfolio/cloudinary-secret": "resolved-cloudinary",
	}}
	created := 0
	newResolver := func(context.Context) (secretResolver, error) {
		created++
		return resolver, nil
	}

	cfg := LoadConfig(newViper())
	require.NoError(t, cfg.ResolveSecrets(context.Background(), newResolver))

	assert.Equal(t, "resolved-jwt", cfg.JWTSecret)
	assert.Equal(t, "resolved-cloudinary", cfg.Media.Cloudinary.APISecret)
	assert.Equal(t, testAdminPass, cfg.Admin.Password)
	assert.Equal(t, 1, created)
	assert.Equal(t, 2, resolver.calls)
}

func TestResolveSecretsWithoutReferences(t *testing.T) {
	setRequiredEnv(t)

	cfg := LoadConfig(newViper())
	err := cfg.ResolveSecrets(context.Background(), func(context.Context) (secretResolver, error) {
		return nil, errors.New("must not be created")
	})
	require.NoError(t, err)
	assert.Equal(t, testJWTSecret, cfg.JWTSecret)
}

func TestResolveSecretsFailure(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ADMIN_PASS", "ssm:/portfolio/missing")

	cfg := LoadConfig(newViper())
	err := cfg.ResolveSecrets(context.Background(), func(context.Context) (secretResolver, error) {
		return &fakeResolver{}, nil
	})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "ADMIN_PASS"))
}

func TestNewImageStoreSQLite(t *testing.T) {
	cfg := Config{Store: StoreConfig{
		Driver: portfolio.StoreDriverSQLite,
		DSN:    "file:" + t.Name() + "?mode=memory&cache=shared",
	}}

	store, err := newImageStore(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	images, err := store.ListImages(context.Background())
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestNewMediaHost(t *testing.T) {
	setRequiredEnv(t)
	cfg := LoadConfig(newViper())

	host, err := newMediaHost(cfg)
	require.NoError(t, err)
	assert.IsType(t, &mediahost.Cloudinary{}, host)

	cfg.Media.Provider = mediahost.ProviderCloudflare
	cfg.Media.Cloudflare.APIToken = "token"
	host, err = newMediaHost(cfg)
	require.NoError(t, err)
	assert.IsType(t, &mediahost.Cloudflare{}, host)
}
