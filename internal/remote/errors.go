package remote

import (
	"context"
	"fmt"
)

type ignoreBackoffKey struct{}

// WithIgnoreBackoff returns a context causing the next HTTPFacade call
// made with it to bypass any recorded backoff window, for that call only.
func WithIgnoreBackoff(ctx context.Context) context.Context {
	return context.WithValue(ctx, ignoreBackoffKey{}, true)
}

func ignoreBackoff(ctx context.Context) bool {
	v, _ := ctx.Value(ignoreBackoffKey{}).(bool)
	return v
}

// BackoffSignal is returned by Facade calls when the server's last
// response carried a Backoff header and that window has not elapsed.
type BackoffSignal struct {
	RemainingSeconds int
}

func (e *BackoffSignal) Error() string {
	return fmt.Sprintf("remote: backoff in effect, %d seconds remaining", e.RemainingSeconds)
}

// RetryAfterSignal is returned when the server replied 503 with a
// Retry-After header and that window has not elapsed.
type RetryAfterSignal struct {
	RemainingSeconds int
}

func (e *RetryAfterSignal) Error() string {
	return fmt.Sprintf("remote: retry-after in effect, %d seconds remaining", e.RemainingSeconds)
}

// FlushedSignal is returned when the server replied 410 Gone, meaning it
// has lost all history for the collection.
type FlushedSignal struct{}

func (e *FlushedSignal) Error() string {
	return "remote: server flushed its history (410 Gone)"
}
