package linear

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// RetryConfig holds retry configuration for tracker calls.
type RetryConfig struct {
	MaxRetries     int           // maximum number of retries after the first attempt
	InitialBackoff time.Duration // first backoff duration
	MaxBackoff     time.Duration // backoff ceiling
	Multiplier     float64       // backoff growth factor
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
	}
}

// retryableStatus reports whether an HTTP status is worth retrying.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// statusError carries an HTTP status through the retry loop.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	if e.body != "" {
		return http.StatusText(e.status) + ": " + e.body
	}
	return http.StatusText(e.status)
}

// retryable classifies an error as transient.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return retryableStatus(se.status)
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	// Connection resets and similar transport errors come through as
	// url.Error wrapping syscall errors; treat unknown transport failures
	// as transient, context cancellation as not.
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// withRetry runs fn with exponential backoff until it succeeds, the error
// is permanent, or attempts are exhausted. The rate budget is consumed
// before every attempt so retries cannot stampede the tracker.
func (c *Client) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	backoff := c.retry.InitialBackoff
	attempts := 0
	var lastErr error

	for attempts <= c.retry.MaxRetries {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		attempts++

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
		if attempts > c.retry.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = time.Duration(float64(backoff) * c.retry.Multiplier)
		if backoff > c.retry.MaxBackoff {
			backoff = c.retry.MaxBackoff
		}
	}

	return &ExternalServiceError{Op: op, Attempts: attempts, Err: lastErr}
}
