package log

import "go.uber.org/zap"

// PrintfLogger adapts the default logger for clients logging with Printf
type PrintfLogger struct {
	source zap.Field
}

func (l PrintfLogger) Printf(format string, v ...interface{}) {
	mustDefaultLogger().With(l.source).Sugar().Debugf(format, v...)
}

// CloudflareLogger returns a Printf logger for the cloudflare api client
func CloudflareLogger() PrintfLogger {
	return PrintfLogger{source: SourceCloudflare}
}
