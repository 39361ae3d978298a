// Package logger wraps log/slog with the attributes the render services attach
// to every line: service, component, request id and the order line item.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

type contextKey string

const (
	requestIDKey  contextKey = "request_id"
	orderIDKey    contextKey = "order_id"
	lineItemIDKey contextKey = "line_item_id"
)

// Logger wraps slog.Logger.
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// Format is the output format (json, text).
	Format string
	// Output defaults to os.Stdout.
	Output      io.Writer
	ServiceName string
}

// New creates a new Logger with the given configuration.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339Nano))
				}
			}
			return a
		},
	}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	if cfg.ServiceName != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", cfg.ServiceName)})
	}
	return &Logger{Logger: slog.New(handler)}
}

// Discard returns a logger that drops everything; used by tests and the CLI.
func Discard() *Logger {
	return New(Config{Output: io.Discard, Level: "error"})
}

// WithComponent returns a new logger with the component name attached.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("component", component))}
}

// WithRequestID returns a new logger with the request ID attached.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("request_id", requestID))}
}

// WithLineItem attaches the render job identity.
func (l *Logger) WithLineItem(orderID, lineItemID string) *Logger {
	return &Logger{Logger: l.Logger.With(
		slog.String("order_id", orderID),
		slog.String("line_item_id", lineItemID),
	)}
}

// WithError returns a new logger with the error attached.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{Logger: l.Logger.With(slog.String("error", err.Error()))}
}

// FromContext returns a logger enriched with the ids stored in ctx.
func (l *Logger) FromContext(ctx context.Context) *Logger {
	result := l
	if reqID, ok := ctx.Value(requestIDKey).(string); ok && reqID != "" {
		result = result.WithRequestID(reqID)
	}
	orderID, _ := ctx.Value(orderIDKey).(string)
	lineItemID, _ := ctx.Value(lineItemIDKey).(string)
	if orderID != "" || lineItemID != "" {
		result = result.WithLineItem(orderID, lineItemID)
	}
	return result
}

// ContextWithRequestID adds a request ID to the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ContextWithLineItem adds the order line item identity to the context.
func ContextWithLineItem(ctx context.Context, orderID, lineItemID string) context.Context {
	ctx = context.WithValue(ctx, orderIDKey, orderID)
	return context.WithValue(ctx, lineItemIDKey, lineItemID)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
