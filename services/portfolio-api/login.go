package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bitmark-inc/artist-portfolio/auth"
	"github.com/bitmark-inc/artist-portfolio/log"
	"github.com/bitmark-inc/artist-portfolio/traceutils"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges the admin credentials for a session token
func (s *Server) Login(c *gin.Context) {
	traceutils.SetHandlerTag(c, "Login")

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug("login body ignored", zap.Error(err), log.SourceHTTP)
	}

	token, err := s.tokenIssuer.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			abortWithError(c, http.StatusUnauthorized, "Invalid admin credentials", err)
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Fail to issue token", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
	})
}
