package response

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	startTimeKey
)

// WithRequestInfo stores the request id and start time assigned by the
// request pipeline.
func WithRequestInfo(ctx context.Context, requestID string, start time.Time) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	return context.WithValue(ctx, startTimeKey, start)
}

// RequestID returns the request id assigned by the pipeline, or a fresh one
// if the request never passed through it.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// DurationMS returns the elapsed milliseconds since the pipeline accepted
// the request, rounded to 2 decimal places. Returns 0 outside a request.
func DurationMS(ctx context.Context) float64 {
	start, ok := ctx.Value(startTimeKey).(time.Time)
	if !ok {
		return 0
	}
	return RoundMS(time.Since(start))
}

// RoundMS converts a duration to milliseconds rounded to 2 decimal places.
func RoundMS(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000*100) / 100
}
