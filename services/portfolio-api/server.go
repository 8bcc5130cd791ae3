package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	portfolio "github.com/bitmark-inc/artist-portfolio"
	"github.com/bitmark-inc/artist-portfolio/auth"
	"github.com/bitmark-inc/artist-portfolio/log"
	"github.com/bitmark-inc/artist-portfolio/mediahost"
	"github.com/bitmark-inc/artist-portfolio/staging"
)

const shutdownTimeout = 10 * time.Second

// Server is the application context shared by every handler
type Server struct {
	route *gin.Engine

	corsAllowOrigins []string

	tokenIssuer   *auth.TokenIssuer
	tokenVerifier *auth.TokenVerifier
	imageStore    portfolio.ImageStore
	mediaHost     mediahost.Host
	stager        *staging.Stager
}

func NewServer(tokenIssuer *auth.TokenIssuer,
	tokenVerifier *auth.TokenVerifier,
	imageStore portfolio.ImageStore,
	mediaHost mediahost.Host,
	stager *staging.Stager,
	corsAllowOrigins []string,
	maxMultipartMemory int64) *Server {
	r := gin.New()
	if maxMultipartMemory > 0 {
		r.MaxMultipartMemory = maxMultipartMemory
	}

	return &Server{
		route:            r,
		corsAllowOrigins: corsAllowOrigins,
		tokenIssuer:      tokenIssuer,
		tokenVerifier:    tokenVerifier,
		imageStore:       imageStore,
		mediaHost:        mediaHost,
		stager:           stager,
	}
}

// Run serves on the given port until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.route,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), log.SourceHTTP)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server", log.SourceHTTP)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
