package log

import "go.uber.org/zap"

var (
	SourceMongo      = zap.String("source", "mongodb")
	SourceSQL        = zap.String("source", "sql")
	SourceCloudinary = zap.String("source", "cloudinary")
	SourceCloudflare = zap.String("source", "cloudflare")
	SourceSSM        = zap.String("source", "ssm")
	SourceStaging    = zap.String("source", "staging")
	SourceHTTP       = zap.String("source", "http")
)
