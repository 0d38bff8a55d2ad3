// Package inet sends JSON requests to the GoConnect backend over HTTPS.
//
// A single Transport is shared by every request made on behalf of one account. It spaces requests
// out, retries throttled responses and classifies failures using [protocol.Error].
package inet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
	"k8s.io/utils/clock"

	"github.com/goconnect-io/goconnect/internal/log"
	"github.com/goconnect-io/goconnect/internal/metrics"
	"github.com/goconnect-io/goconnect/pkg/connector"
	"github.com/goconnect-io/goconnect/pkg/protocol"
	"github.com/goconnect-io/goconnect/pkg/sanitize"
)

const (
	// MinRequestInterval is the minimum time between two requests leaving the same Transport.
	MinRequestInterval = 200 * time.Millisecond
	// DefaultTimeout bounds each individual HTTP attempt.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxRetries is the number of retries allowed after a 429 or 503 response.
	DefaultMaxRetries = 3
	// DefaultBaseDelay is the first backoff delay when the server does not send Retry-After.
	DefaultBaseDelay = time.Second
	// MaxRetryAfter caps the delay requested by a Retry-After header.
	MaxRetryAfter = time.Hour

	// EnvHTTPDebug enables logging of full (sanitized) request and response bodies.
	EnvHTTPDebug = "VWGC_HTTP_DEBUG"

	rawBodyLogLimit = 200
)

// HTTPDebug is the default Verbose setting of new transports. It is initialized from
// $VWGC_HTTP_DEBUG.
var HTTPDebug = DebugEnabled(os.Getenv(EnvHTTPDebug))

// DebugEnabled interprets the value of $VWGC_HTTP_DEBUG.
func DebugEnabled(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

type HttpError struct {
	Code    int
	Message string
}

func (e *HttpError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Code)
	}
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// Temporary returns true if the server asked the client to slow down.
func (e *HttpError) Temporary() bool {
	return Retryable(e.Code)
}

// Transport implements [connector.Requester].
type Transport struct {
	// Timeout bounds each HTTP attempt. Backoff delays are not included.
	Timeout time.Duration
	// Verbose enables logging of sanitized request and response bodies. Only key names of request
	// bodies are logged otherwise.
	Verbose    bool
	MaxRetries int
	BaseDelay  time.Duration

	client  *http.Client
	limiter *rate.Limiter
	clock   clock.PassiveClock
	wait    WaitFunc
}

type Option func(*Transport)

// WithClock replaces the clock used for request spacing.
func WithClock(c clock.PassiveClock) Option {
	return func(t *Transport) {
		t.clock = c
	}
}

// WithWait replaces the function used to sleep between requests and retries.
func WithWait(wait WaitFunc) Option {
	return func(t *Transport) {
		t.wait = wait
	}
}

// NewTransport returns a Transport that sends requests using client. The Transport does not take
// ownership of client; callers remain responsible for closing idle connections.
func NewTransport(client *http.Client, options ...Option) *Transport {
	t := &Transport{
		Timeout:    DefaultTimeout,
		Verbose:    HTTPDebug,
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		client:     client,
		limiter:    rate.NewLimiter(rate.Every(MinRequestInterval), 1),
		clock:      clock.RealClock{},
		wait:       sleep,
	}
	for _, option := range options {
		option(t)
	}
	return t
}

var _ connector.Requester = (*Transport)(nil)

// Do implements [connector.Requester].
//
// Responses with status 429 or 503 are retried up to MaxRetries times. The delay before each retry
// is taken from the Retry-After header when present and is BaseDelay*2^n otherwise.
func (t *Transport) Do(ctx context.Context, method, endpoint string, body interface{}, header http.Header, out interface{}) error {
	if t.client == nil {
		return protocol.NewError(protocol.KindCommunication, "session not initialized")
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return protocol.NewError(protocol.KindGeneral, "unable to encode request body: %w", err)
		}
	}

	policy := retryPolicy(t.BaseDelay, t.MaxRetries)
	for attempt := 1; ; attempt++ {
		if err := t.throttle(ctx); err != nil {
			return err
		}
		delay, retry, err := t.send(ctx, method, endpoint, payload, header, out, policy, attempt)
		if !retry {
			return err
		}
		if err := t.wait(ctx, delay); err != nil {
			return err
		}
	}
}

func (t *Transport) send(ctx context.Context, method, endpoint string, payload []byte, header http.Header,
	out interface{}, policy backoff.BackOff, attempt int) (time.Duration, bool, error) {
	t.logRequest(method, endpoint, header, payload)

	attemptCtx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	request, err := http.NewRequestWithContext(attemptCtx, method, endpoint, reader)
	if err != nil {
		return 0, false, protocol.NewError(protocol.KindGeneral, "unable to build request for %s: %w", sanitize.URL(endpoint), err)
	}
	if header != nil {
		request.Header = header.Clone()
	}
	if payload != nil && request.Header.Get("Content-Type") == "" {
		request.Header.Set("Content-Type", "application/json")
	}

	result, err := t.client.Do(request)
	if err != nil {
		metrics.HTTPRequests.WithLabelValues("error").Inc()
		return 0, false, classify(ctx, err)
	}
	defer result.Body.Close()
	metrics.HTTPRequests.WithLabelValues(metrics.StatusClass(result.StatusCode)).Inc()

	if Retryable(result.StatusCode) {
		// Release the connection before sleeping.
		_, _ = io.Copy(io.Discard, io.LimitReader(result.Body, connector.MaxResponseLength))
		metrics.ThrottledResponses.WithLabelValues(fmt.Sprint(result.StatusCode)).Inc()
		fallback := policy.NextBackOff()
		if fallback == backoff.Stop {
			log.Warning("Received %d, giving up after %d attempts", result.StatusCode, attempt)
			return 0, false, protocol.NewError(protocol.KindCommunication, "retry limit exceeded: %w",
				&HttpError{Code: result.StatusCode})
		}
		delay := RetryDelay(result.Header, fallback)
		log.Warning("Received %d, backing off for %.2fs (attempt %d)", result.StatusCode, delay.Seconds(), attempt)
		return delay, true, nil
	}

	body, err := io.ReadAll(io.LimitReader(result.Body, connector.MaxResponseLength+1))
	if err != nil {
		return 0, false, classify(ctx, err)
	}
	if len(body) == connector.MaxResponseLength+1 {
		return 0, false, protocol.NewError(protocol.KindGeneral, "response exceeds maximum length")
	}

	log.Debug("Response Status: %d", result.StatusCode)
	t.logResponse(body)

	switch {
	case result.StatusCode == http.StatusUnauthorized || result.StatusCode == http.StatusForbidden:
		return 0, false, protocol.NewError(protocol.KindAuthentication, "invalid credentials: %w",
			&HttpError{Code: result.StatusCode, Message: truncate(body)})
	case result.StatusCode >= 400:
		return 0, false, protocol.NewError(protocol.KindCommunication, "error fetching information: %w",
			&HttpError{Code: result.StatusCode, Message: truncate(body)})
	}

	if out == nil {
		var discard interface{}
		out = &discard
	}
	if err := json.Unmarshal(body, out); err != nil {
		log.Error("Failed to decode json: %s", err)
		return 0, false, protocol.NewError(protocol.KindGeneral, "unable to decode response: %w", err)
	}
	return 0, false, nil
}

// classify maps a failed round trip to a protocol error. Cancellation of the caller's own context
// is passed through unchanged.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return protocol.NewError(protocol.KindCommunication, "timeout error fetching information: %w", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return protocol.NewError(protocol.KindCommunication, "timeout error fetching information: %w", err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return protocol.NewError(protocol.KindCommunication, "error fetching information: %w", err)
	}
	return protocol.NewError(protocol.KindGeneral, "something really wrong happened: %w", err)
}

func truncate(body []byte) string {
	if len(body) > rawBodyLogLimit {
		return string(body[:rawBodyLogLimit])
	}
	return string(body)
}

func (t *Transport) logRequest(method, endpoint string, header http.Header, payload []byte) {
	if !log.Enabled(log.LevelDebug) {
		return
	}
	log.Debug("Method: %s", method)
	log.Debug("URL: %s", sanitize.URL(endpoint))
	log.Debug("Headers: %v", sanitize.Headers(header))
	if payload == nil {
		return
	}
	var decoded interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return
	}
	fields, ok := decoded.(map[string]interface{})
	if !ok {
		log.Debug("Request has non-dict JSON body")
		return
	}
	if t.Verbose {
		log.Debug("Data: %v", sanitize.Value(fields))
	} else {
		log.Debug("Request JSON keys: %v", sanitize.Keys(fields))
	}
}

func (t *Transport) logResponse(body []byte) {
	if !log.Enabled(log.LevelDebug) {
		return
	}
	if !t.Verbose {
		log.Debug("Response body omitted (set %s=1 to log)", EnvHTTPDebug)
		return
	}
	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		log.Debug("Response Body (raw): %s", truncate(body))
		return
	}
	log.Debug("Response Body: %v", sanitize.Value(decoded))
}
