package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bitmark-inc/artist-portfolio/log"
	"github.com/bitmark-inc/artist-portfolio/traceutils"
)

func abortWithError(c *gin.Context, code int, message string, traceErr error) {
	fields := []zap.Field{
		zap.Int("status", code),
		zap.String("path", c.FullPath()),
		zap.Error(traceErr),
		log.SourceHTTP,
	}

	if code >= http.StatusInternalServerError {
		log.Error(message, fields...)
		traceutils.CaptureException(c, traceErr)
	} else {
		log.Debug(message, fields...)
	}

	c.AbortWithStatusJSON(code, gin.H{
		"error": message,
	})
}
