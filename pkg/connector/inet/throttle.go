package inet

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/goconnect-io/goconnect/pkg/protocol"
)

// WaitFunc blocks for d or until ctx is done, whichever happens first.
type WaitFunc func(ctx context.Context, d time.Duration) error

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryDelay returns how long to wait before retrying a throttled request. A numeric Retry-After
// header (in seconds, fractions allowed) takes precedence over fallback. HTTP-date, negative and
// non-finite values are ignored. Values above MaxRetryAfter are clamped.
func RetryDelay(header http.Header, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(header.Get("Retry-After"))
	if value == "" {
		return fallback
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return fallback
	}
	if seconds > MaxRetryAfter.Seconds() {
		return MaxRetryAfter
	}
	return time.Duration(seconds * float64(time.Second))
}

// Retryable returns true for status codes that ask the client to slow down.
func Retryable(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}

// retryPolicy yields base, 2*base, 4*base, ... and stops after maxRetries delays.
func retryPolicy(base time.Duration, maxRetries int) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = base
	exp.RandomizationFactor = 0
	exp.Multiplier = 2
	exp.MaxInterval = time.Duration(math.MaxInt64)
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithMaxRetries(exp, uint64(maxRetries))
}

// throttle reserves the next request slot on the shared limiter and waits until it opens.
func (t *Transport) throttle(ctx context.Context) error {
	now := t.clock.Now()
	reservation := t.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return protocol.NewError(protocol.KindGeneral, "rate limiter rejected request")
	}
	delay := reservation.DelayFrom(now)
	if delay <= 0 {
		return nil
	}
	if err := t.wait(ctx, delay); err != nil {
		reservation.CancelAt(t.clock.Now())
		return err
	}
	return nil
}
