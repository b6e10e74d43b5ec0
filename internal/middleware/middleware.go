package middleware

import (
	"context"
	"errors"
	"net/url"
	"playoff-migration/internal/domain"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const RequestIDKey contextKey = "request_id"

// Game is the handle shape the middleware wraps.
type Game interface {
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
	Post(ctx context.Context, path string, query url.Values, body any) ([]byte, error)
	Delete(ctx context.Context, path string, query url.Values) ([]byte, error)
}

// RequestID tags every call on a game with a request id, carried in the
// context down to the X-Request-ID header, and logs its duration.
func RequestID(logger zerolog.Logger) func(Game) Game {
	return func(next Game) Game {
		return &requestIDGame{next: next, logger: logger}
	}
}

type requestIDGame struct {
	next   Game
	logger zerolog.Logger
}

func (g *requestIDGame) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return g.call(ctx, "GET", path, func(ctx context.Context) ([]byte, error) {
		return g.next.Get(ctx, path, query)
	})
}

func (g *requestIDGame) Post(ctx context.Context, path string, query url.Values, body any) ([]byte, error) {
	return g.call(ctx, "POST", path, func(ctx context.Context) ([]byte, error) {
		return g.next.Post(ctx, path, query, body)
	})
}

func (g *requestIDGame) Delete(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return g.call(ctx, "DELETE", path, func(ctx context.Context) ([]byte, error) {
		return g.next.Delete(ctx, path, query)
	})
}

func (g *requestIDGame) call(ctx context.Context, method, path string, fn func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	start := time.Now()

	requestID := GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	ctx = WithRequestID(ctx, requestID)

	loggerWithID := g.logger.With().Str("request_id", requestID).Logger()

	body, err := fn(ctx)

	duration := time.Since(start)
	event := loggerWithID.Debug()
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// wipes tolerate missing entities
		event = event.Err(err)
	case err != nil:
		event = loggerWithID.Warn().Err(err)
	}
	event.
		Str("method", method).
		Str("path", path).
		Int64("duration_ms", duration.Milliseconds()).
		Dur("duration", duration).
		Msg("request completed")

	return body, err
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
