package main

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bitmark-inc/artist-portfolio/auth"
	"github.com/bitmark-inc/artist-portfolio/log"
	"github.com/bitmark-inc/artist-portfolio/traceutils"
)

const (
	claimsContextKey    = "claims"
	requestIDContextKey = "request_id"
	requestIDHeader     = "X-Request-ID"
)

// bearerToken returns the token of an `Authorization: Bearer <token>` header
// or an empty string when the header has another form.
func bearerToken(header string) string {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// AdminAuthenticate only lets requests carrying a valid admin session token through.
// The verified claims are kept in the context under claimsContextKey.
func AdminAuthenticate(verifier *auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortWithError(c, http.StatusUnauthorized, "No token provided", nil)
			return
		}

		token := bearerToken(header)
		if token == "" {
			abortWithError(c, http.StatusForbidden, "Invalid or expired token", auth.ErrInvalidToken)
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			if errors.Is(err, auth.ErrAccessDenied) {
				abortWithError(c, http.StatusForbidden, "Access denied", err)
				return
			}
			abortWithError(c, http.StatusForbidden, "Invalid or expired token", err)
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

// RequestLogger tags each request with an id and logs it once it is served
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDContextKey, requestID)
		c.Header(requestIDHeader, requestID)
		traceutils.SetRequestIDTag(c, requestID)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("requestID", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("clientIP", c.ClientIP()),
			log.SourceHTTP,
		}

		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request served", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request served", fields...)
		default:
			log.Info("request served", fields...)
		}
	}
}
