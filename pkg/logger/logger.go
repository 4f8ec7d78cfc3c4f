package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
func New() *Logger {
	level := getLogLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Text handler for development, JSON for production.
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID adds request ID to logger context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("request_id", requestID)),
	}
}

// WithUserID adds user ID to logger context
func (l *Logger) WithUserID(userID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("user_id", userID)),
	}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("error", err.Error())),
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("user_agent", c.Request.UserAgent()),
		slog.Int("size", c.Writer.Size()),
	)
}

// Business logic logging methods

// LogReservationCreated logs a new hold against inventory
func (l *Logger) LogReservationCreated(ctx context.Context, reservationID, eventID, tierID, userID string, quantity int) {
	l.Logger.InfoContext(ctx,
		"Reservation Created",
		slog.String("reservation_id", reservationID),
		slog.String("event_id", eventID),
		slog.String("tier_id", tierID),
		slog.String("user_id", userID),
		slog.Int("quantity", quantity),
	)
}

// LogReservationTransition logs a reservation state change
func (l *Logger) LogReservationTransition(ctx context.Context, reservationID, from, to string) {
	l.Logger.InfoContext(ctx,
		"Reservation Transition",
		slog.String("reservation_id", reservationID),
		slog.String("from", from),
		slog.String("to", to),
	)
}

// LogSweepSummary logs the outcome of a reaper pass
func (l *Logger) LogSweepSummary(ctx context.Context, reaped int, freedByTarget map[string]int) {
	attrs := []any{slog.Int("reaped", reaped)}
	for target, qty := range freedByTarget {
		attrs = append(attrs, slog.Int("freed:"+target, qty))
	}
	l.Logger.InfoContext(ctx, "Expiry Sweep Completed", attrs...)
}

// LogWaitlistJoined logs a new waitlist entry
func (l *Logger) LogWaitlistJoined(ctx context.Context, entryID, eventID, userID string, position int) {
	l.Logger.InfoContext(ctx,
		"Waitlist Joined",
		slog.String("entry_id", entryID),
		slog.String("event_id", eventID),
		slog.String("user_id", userID),
		slog.Int("position", position),
	)
}

// LogWaitlistNotified logs an availability offer to a waitlist entry
func (l *Logger) LogWaitlistNotified(ctx context.Context, entryID, eventID, userID string, quantity int) {
	l.Logger.InfoContext(ctx,
		"Waitlist Notified",
		slog.String("entry_id", entryID),
		slog.String("event_id", eventID),
		slog.String("user_id", userID),
		slog.Int("quantity", quantity),
	)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
