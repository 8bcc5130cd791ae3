package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"

	portfolio "github.com/bitmark-inc/artist-portfolio"
	"github.com/bitmark-inc/artist-portfolio/auth"
	"github.com/bitmark-inc/artist-portfolio/externals/aws/ssm"
	"github.com/bitmark-inc/artist-portfolio/log"
	"github.com/bitmark-inc/artist-portfolio/mediahost"
)

// envBindings maps viper keys to the environment variables the service reads
var envBindings = map[string]string{
	"server.port":             "PORT",
	"admin.username":          "ADMIN_USER",
	"admin.password":          "ADMIN_PASS",
	"jwt.secret":              "JWT_SECRET",
	"jwt.ttl":                 "JWT_TTL",
	"store.driver":            "STORE_DRIVER",
	"store.db_uri":            "MONGO_URI",
	"store.db_name":           "MONGO_DB_NAME",
	"store.dsn":               "DATABASE_DSN",
	"media.provider":          "MEDIA_PROVIDER",
	"media.folder":            "MEDIA_FOLDER",
	"cloudinary.cloud_name":   "CLOUD_NAME",
	"cloudinary.api_key":      "API_KEY",
	"cloudinary.api_secret":   "API_SECRET",
	"cloudflare.account_id":   "CLOUDFLARE_ACCOUNT_ID",
	"cloudflare.account_hash": "CLOUDFLARE_ACCOUNT_HASH",
	"cloudflare.api_token":    "CLOUDFLARE_API_TOKEN",
	"upload.dir":              "UPLOAD_DIR",
	"upload.max_memory":       "UPLOAD_MAX_MEMORY",
	"cors.allow_origins":      "CORS_ALLOW_ORIGINS",
	"log.level":               "LOG_LEVEL",
	"debug":                   "DEBUG",
	"environment":             "ENVIRONMENT",
	"sentry.dsn":              "SENTRY_DSN",
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.port", "5000")
	v.SetDefault("jwt.ttl", auth.DefaultTokenTTL)
	v.SetDefault("store.driver", portfolio.StoreDriverMongoDB)
	v.SetDefault("media.provider", mediahost.ProviderCloudinary)
	v.SetDefault("media.folder", portfolio.DefaultMediaFolder)
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.max_memory", "32mb")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("debug", false)
	v.SetDefault("environment", portfolio.DevelopmentEnvironment)

	for key, env := range envBindings {
		// BindEnv only fails without a key
		_ = v.BindEnv(key, env)
	}

	return v
}

type StoreConfig struct {
	Driver   string
	MongoURI string
	MongoDB  string
	DSN      string
}

type MediaConfig struct {
	Provider   string
	Folder     string
	Cloudinary mediahost.CloudinaryConfig
	Cloudflare mediahost.CloudflareConfig
}

type Config struct {
	Port        string
	Environment string
	Debug       bool
	LogLevel    string
	SentryDSN   string

	Admin     auth.Credentials
	JWTSecret string
	JWTTTL    time.Duration

	Store StoreConfig
	Media MediaConfig

	UploadDir        string
	UploadMaxMemory  int64
	CORSAllowOrigins []string
}

// LoadConfig reads the configuration out of v. Values are not validated.
func LoadConfig(v *viper.Viper) Config {
	folder := v.GetString("media.folder")
	debug := v.GetBool("debug")

	return Config{
		Port:        v.GetString("server.port"),
		Environment: v.GetString("environment"),
		Debug:       debug,
		LogLevel:    v.GetString("log.level"),
		SentryDSN:   v.GetString("sentry.dsn"),

		Admin: auth.Credentials{
			Username: v.GetString("admin.username"),
			Password: v.GetString("admin.password"),
		},
		JWTSecret: v.GetString("jwt.secret"),
		JWTTTL:    v.GetDuration("jwt.ttl"),

		Store: StoreConfig{
			Driver:   strings.ToLower(v.GetString("store.driver")),
			MongoURI: v.GetString("store.db_uri"),
			MongoDB:  v.GetString("store.db_name"),
			DSN:      v.GetString("store.dsn"),
		},
		Media: MediaConfig{
			Provider: strings.ToLower(v.GetString("media.provider")),
			Folder:   folder,
			Cloudinary: mediahost.CloudinaryConfig{
				CloudName: v.GetString("cloudinary.cloud_name"),
				APIKey:    v.GetString("cloudinary.api_key"),
				APISecret: v.GetString("cloudinary.api_secret"),
				Folder:    folder,
			},
			Cloudflare: mediahost.CloudflareConfig{
				AccountID:   v.GetString("cloudflare.account_id"),
				AccountHash: v.GetString("cloudflare.account_hash"),
				APIToken:    v.GetString("cloudflare.api_token"),
				Folder:      folder,
				Debug:       debug,
			},
		},

		UploadDir:        v.GetString("upload.dir"),
		UploadMaxMemory:  int64(v.GetSizeInBytes("upload.max_memory")),
		CORSAllowOrigins: splitList(v.GetString("cors.allow_origins")),
	}
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func missing(env string) error {
	return fmt.Errorf("missing required configuration: %s", env)
}

// Validate reports every required value that is not set, named by its environment variable
func (c Config) Validate() error {
	var errs []error

	if c.Admin.Username == "" {
		errs = append(errs, missing("ADMIN_USER"))
	}
	if c.Admin.Password == "" {
		errs = append(errs, missing("ADMIN_PASS"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, missing("JWT_SECRET"))
	}

	switch c.Store.Driver {
	case portfolio.StoreDriverMongoDB:
		if c.Store.MongoURI == "" {
			errs = append(errs, missing("MONGO_URI"))
		}
	case portfolio.StoreDriverPostgres, portfolio.StoreDriverSQLite:
		if c.Store.DSN == "" {
			errs = append(errs, missing("DATABASE_DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported STORE_DRIVER: %s", c.Store.Driver))
	}

	switch c.Media.Provider {
	case mediahost.ProviderCloudinary:
		if c.Media.Cloudinary.CloudName == "" {
			errs = append(errs, missing("CLOUD_NAME"))
		}
		if c.Media.Cloudinary.APIKey == "" {
			errs = append(errs, missing("API_KEY"))
		}
		if c.Media.Cloudinary.APISecret == "" {
			errs = append(errs, missing("API_SECRET"))
		}
	case mediahost.ProviderCloudflare:
		if c.Media.Cloudflare.AccountID == "" {
			errs = append(errs, missing("CLOUDFLARE_ACCOUNT_ID"))
		}
		if c.Media.Cloudflare.AccountHash == "" {
			errs = append(errs, missing("CLOUDFLARE_ACCOUNT_HASH"))
		}
		if c.Media.Cloudflare.APIToken == "" {
			errs = append(errs, missing("CLOUDFLARE_API_TOKEN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported MEDIA_PROVIDER: %s", c.Media.Provider))
	}

	return errors.Join(errs...)
}

type secretResolver interface {
	Resolve(ctx context.Context, value string) (string, error)
}

func newSSMResolver(ctx context.Context) (secretResolver, error) {
	return ssm.New(ctx)
}

// ResolveSecrets replaces secret values referencing the parameter store.
// The resolver is only created when at least one reference is present.
func (c *Config) ResolveSecrets(ctx context.Context, newResolver func(context.Context) (secretResolver, error)) error {
	secrets := map[string]*string{
		"ADMIN_PASS":           &c.Admin.Password,
		"JWT_SECRET":           &c.JWTSecret,
		"API_SECRET":           &c.Media.Cloudinary.APISecret,
		"CLOUDFLARE_API_TOKEN": &c.Media.Cloudflare.APIToken,
	}

	var resolver secretResolver
	for env, value := range secrets {
		if !ssm.IsReference(*value) {
			continue
		}

		if resolver == nil {
			r, err := newResolver(ctx)
			if err != nil {
				return fmt.Errorf("fail to create secret resolver: %w", err)
			}
			resolver = r
		}

		resolved, err := resolver.Resolve(ctx, *value)
		if err != nil {
			return fmt.Errorf("fail to resolve %s: %w", env, err)
		}
		*value = resolved

		log.Debug("secret resolved", zap.String("env", env), log.SourceSSM)
	}

	return nil
}

func (c Config) gormLogLevel() logger.LogLevel {
	if c.Debug {
		return logger.Info
	}
	return logger.Warn
}

func newImageStore(ctx context.Context, c Config) (portfolio.ImageStore, error) {
	switch c.Store.Driver {
	case portfolio.StoreDriverMongoDB:
		return portfolio.NewMongodbImageStore(ctx, c.Store.MongoURI, c.Store.MongoDB)
	default:
		dialector, err := portfolio.SQLDialector(c.Store.Driver, c.Store.DSN)
		if err != nil {
			return nil, err
		}
		return portfolio.NewSQLImageStore(dialector, c.gormLogLevel())
	}
}

func newMediaHost(c Config) (mediahost.Host, error) {
	switch c.Media.Provider {
	case mediahost.ProviderCloudflare:
		return mediahost.NewCloudflare(c.Media.Cloudflare)
	default:
		return mediahost.NewCloudinary(c.Media.Cloudinary)
	}
}
