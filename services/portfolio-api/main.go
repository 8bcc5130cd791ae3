package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	portfolio "github.com/bitmark-inc/artist-portfolio"
	"github.com/bitmark-inc/artist-portfolio/auth"
	"github.com/bitmark-inc/artist-portfolio/log"
	"github.com/bitmark-inc/artist-portfolio/staging"
)

func main() {
	if err := newRootCommand(newSSMResolver).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(newResolver func(context.Context) (secretResolver, error)) *cobra.Command {
	v := newViper()
	var configFile string

	loadConfig := func(cmd *cobra.Command) (Config, error) {
		cfg := LoadConfig(v)
		if err := log.Initialize(cfg.LogLevel, cfg.Debug); err != nil {
			return cfg, fmt.Errorf("fail to initialize logger: %w", err)
		}
		if err := cfg.ResolveSecrets(cmd.Context(), newResolver); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	serveCmd := func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	}

	root := &cobra.Command{
		Use:          "portfolio-api",
		Short:        "Admin API of the artist portfolio",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if configFile == "" {
				return nil
			}
			v.SetConfigFile(configFile)
			return v.ReadInConfig()
		},
		RunE: serveCmd,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, json or toml)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the portfolio API",
		RunE:  serveCmd,
	})

	root.AddCommand(&cobra.Command{
		Use:   "issue-token",
		Short: "Print an admin session token signed with the configured secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return missing("JWT_SECRET")
			}

			token, err := auth.NewTokenIssuer(cfg.Admin, cfg.JWTSecret, cfg.JWTTTL).Issue(auth.RoleAdmin)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	})

	return root
}

func serve(ctx context.Context, cfg Config) error {
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.Environment,
	}); err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer sentry.Flush(2 * time.Second)

	if cfg.Environment == portfolio.ProductionEnvironment && !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	imageStore, err := newImageStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("fail to initiate image store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := imageStore.Close(closeCtx); err != nil {
			log.Warn("fail to close image store", zap.Error(err))
		}
	}()

	mediaHost, err := newMediaHost(cfg)
	if err != nil {
		return fmt.Errorf("fail to initiate media host: %w", err)
	}

	stager, err := staging.New(cfg.UploadDir)
	if err != nil {
		return err
	}

	s := NewServer(
		auth.NewTokenIssuer(cfg.Admin, cfg.JWTSecret, cfg.JWTTTL),
		auth.NewTokenVerifier(cfg.JWTSecret),
		imageStore,
		mediaHost,
		stager,
		cfg.CORSAllowOrigins,
		cfg.UploadMaxMemory,
	)
	s.SetupRoute()

	log.Info("portfolio api started",
		zap.String("environment", cfg.Environment),
		zap.String("store", cfg.Store.Driver),
		zap.String("media", cfg.Media.Provider))

	if err := s.Run(ctx, cfg.Port); err != nil {
		log.Error("server interrupted", zap.Error(err))
		return err
	}

	return nil
}
