// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides request correlation, the access log and panic recovery:
//
//   - RequestID() reuses or generates X-Request-ID and stores it in the context.
//   - AccessLog() attaches a request-scoped zerolog.Logger (see LoggerFrom) and
//     writes one scrubbed line per request. Bodies are never logged; planning
//     requests carry employee names.
//   - Recovery() turns panics into the JSON 500 envelope.
//
// Install them in that order so panics and errors carry the correlation ID.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey      = "requestID"
	requestIDHeader   = "X-Request-ID"
	loggerKey         = "logger"
	maxQueryLogLength = 2048
)

// RequestID attaches (or propagates) a correlation identifier per request.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// AccessLogOptions configures AccessLog.
type AccessLogOptions struct {
	Redact RedactOptions
	// LogHeaders adds the scrubbed request headers to each line.
	LogHeaders bool
	// SlowThreshold raises successful requests slower than this to warn.
	// Zero disables the check.
	SlowThreshold time.Duration
}

// AccessLog writes a structured, scrubbed access log line per request.
//
// Level follows the outcome: error for 5xx or gin errors, warn for 4xx or
// slow requests, info otherwise. The path label is the route template, so
// employee IDs in paths never reach the log.
func AccessLog(opts AccessLogOptions) gin.HandlerFunc {
	rd := newRedactor(opts.Redact)

	return func(c *gin.Context) {
		start := time.Now()

		rid, _ := c.Get(requestIDKey)
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		l := log.With().
			Str("request_id", asString(rid)).
			Str("user_id", userIDFromCtx(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set(loggerKey, &l)

		ctx := l.With().
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", rd.text(c.Request.UserAgent())).
			Str("query", truncate(rd.query(c.Request.URL.RawQuery), maxQueryLogLength)).
			Int64("bytes_in", c.Request.ContentLength)
		if opts.LogHeaders {
			hdrs := zerolog.Dict()
			for k, vv := range c.Request.Header {
				hdrs.Str(k, rd.header(k, vv))
			}
			ctx = ctx.Dict("headers", hdrs)
		}
		reqLog := ctx.Logger()

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		var ev *zerolog.Event
		switch {
		case len(c.Errors) > 0:
			ev = reqLog.Error().Str("errors", c.Errors.String())
		case status >= 500:
			ev = reqLog.Error()
		case status >= 400:
			ev = reqLog.Warn()
		case opts.SlowThreshold > 0 && latency > opts.SlowThreshold:
			ev = reqLog.Warn().Bool("slow", true)
		default:
			ev = reqLog.Info()
		}
		ev.Int("status", status).
			Dur("latency", latency).
			Int("bytes_out", c.Writer.Size()).
			Msg("http_request")
	}
}

// Recovery logs a panic with its stack and answers with the JSON 500
// envelope when nothing has been written yet.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := asString(c.Value(requestIDKey))
			lg := LoggerFrom(c)
			lg.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", rid).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or the global logger when
// AccessLog is not installed. The result is never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// truncate caps s at max bytes. max <= 0 disables truncation.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
