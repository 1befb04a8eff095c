package gcp

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Label is one detected entity with its confidence in [0,1].
type Label struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Analysis is the outcome of one media analysis call. Text is the
// human-readable summary stored as the media description.
type Analysis struct {
	Provider string  `json:"provider"`
	Text     string  `json:"text"`
	Labels   []Label `json:"labels,omitempty"`
}

const maxLabels = 8

func retryableCode(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}

// withRetry runs fn up to attempts+1 times while the gRPC status is
// transient, doubling the wait from 750ms up to 10s.
func withRetry[T any](ctx context.Context, attempts int, fn func() (T, error)) (T, error) {
	var zero T
	wait := 750 * time.Millisecond
	var last error
	for attempt := 0; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		out, err := fn()
		if err == nil {
			return out, nil
		}
		last = err
		if !retryableCode(err) || attempt == attempts {
			break
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, ctx.Err()
		case <-t.C:
		}
		wait = min(wait*2, 10*time.Second)
	}
	return zero, last
}
