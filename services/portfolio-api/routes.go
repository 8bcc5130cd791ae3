package main

import (
	"net/http"
	"slices"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (s *Server) corsConfig() cors.Config {
	conf := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		MaxAge:       24 * time.Hour,
	}

	if len(s.corsAllowOrigins) == 0 || slices.Contains(s.corsAllowOrigins, "*") {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = s.corsAllowOrigins
	}

	return conf
}

func (s *Server) SetupRoute() {
	s.route.Use(gin.Recovery())
	s.route.Use(sentrygin.New(sentrygin.Options{
		Repanic: true,
	}))
	s.route.Use(cors.New(s.corsConfig()))
	s.route.Use(RequestLogger())

	s.route.GET("/", s.Liveness)
	s.route.POST("/login", s.Login)
	s.route.GET("/uploads", s.ListImages)

	admin := s.route.Group("/", AdminAuthenticate(s.tokenVerifier))
	admin.POST("/upload", s.UploadImage)
	admin.PUT("/edit/:id", s.RenameImage)
	admin.DELETE("/delete/:id", s.DeleteImage)
}

func (s *Server) Liveness(c *gin.Context) {
	c.String(http.StatusOK, "Backend running!")
}
