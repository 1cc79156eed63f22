package logger

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// HeaderRequestID carries the request id between services
const HeaderRequestID = "X-Request-ID"

const echoLoggerKey = "logger"

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
)

// FromContext returns the request logger stored in ctx, or the global one
func FromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
			return l
		}
	}
	return GetLogger()
}

// WithContext stores l in ctx
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// RequestID returns the id of the request ctx belongs to, "" outside a request
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// FromEcho returns the logger of the request. Handlers reached without the
// logging middleware fall back to the request context, then the global logger.
func FromEcho(c echo.Context) *zap.Logger {
	if l, ok := c.Get(echoLoggerKey).(*zap.Logger); ok {
		return l
	}
	return FromContext(c.Request().Context())
}

// With adds fields to the logger of the request, so everything logged later
// in the chain, including service code reading the request context, carries them.
func With(c echo.Context, fields ...zap.Field) *zap.Logger {
	l := FromEcho(c).With(fields...)
	store(c, l)
	return l
}

// attach starts the request scope: the request id, read from the header set
// by RequestIDMiddleware or by the calling service, and a logger tagged with it.
func attach(c echo.Context) *zap.Logger {
	id := c.Request().Header.Get(HeaderRequestID)
	if id == "" {
		id = c.Response().Header().Get(HeaderRequestID)
	}
	ctx := context.WithValue(c.Request().Context(), requestIDKey, id)
	c.SetRequest(c.Request().WithContext(ctx))

	l := GetLogger().With(zap.String("request_id", id))
	store(c, l)
	return l
}

func store(c echo.Context, l *zap.Logger) {
	c.Set(echoLoggerKey, l)
	c.SetRequest(c.Request().WithContext(WithContext(c.Request().Context(), l)))
}
