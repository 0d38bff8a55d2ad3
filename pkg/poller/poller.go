// Package poller periodically refreshes a vehicle snapshot and tells subscribers about the result.
//
// Authentication failures stop scheduled polling until [Poller.Reset] is called. Any other failure
// is retried on the next tick, and the previous snapshot remains available.
package poller

//go:generate mockgen -source=poller.go -destination=../../mocks/poller.go -package=mocks -mock_names=Source=PollerSource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	"k8s.io/utils/clock"

	"github.com/goconnect-io/goconnect/internal/log"
	"github.com/goconnect-io/goconnect/internal/metrics"
	"github.com/goconnect-io/goconnect/pkg/protocol"
	"github.com/goconnect-io/goconnect/pkg/vehicle"
)

const (
	MinInterval     = 10 * time.Second
	MaxInterval     = time.Hour
	DefaultInterval = time.Minute
)

var (
	// ErrReauthRequired wraps authentication failures. Polling is suspended until Reset is called.
	ErrReauthRequired = errors.New("re-authentication required")
	// ErrUpdateFailed wraps all other refresh failures.
	ErrUpdateFailed = errors.New("update failed")
	// ErrInvalidInterval is returned by New for intervals outside [MinInterval, MaxInterval].
	ErrInvalidInterval = fmt.Errorf("polling interval must be between %s and %s", MinInterval, MaxInterval)
)

// Source produces a complete snapshot. [account.Account] implements Source.
type Source interface {
	Snapshot(ctx context.Context) (*vehicle.Aggregate, error)
}

// Listener is called after every refresh with the latest snapshot and the refresh error, if any.
// The snapshot is the previous one when err is not nil.
type Listener func(data *vehicle.Aggregate, err error)

type subscription struct {
	id       int
	listener Listener
}

// Poller refreshes a snapshot from a Source on a fixed interval.
type Poller struct {
	// Timeout bounds a single refresh when positive. Zero leaves each request bounded only by the
	// transport's per-attempt timeout, so one slow vehicle falls back without failing the refresh.
	Timeout time.Duration

	source   Source
	interval time.Duration
	clock    clock.PassiveClock
	cron     *cron.Cron

	mu            sync.Mutex
	data          *vehicle.Aggregate
	err           error
	lastSuccess   time.Time
	reauth        bool
	subscriptions []subscription
	nextID        int
	ctx           context.Context
	cancel        context.CancelFunc
}

type Option func(*Poller)

// WithClock replaces the clock used to timestamp refreshes.
func WithClock(c clock.PassiveClock) Option {
	return func(p *Poller) {
		p.clock = c
	}
}

// ValidateInterval returns ErrInvalidInterval if interval is out of range.
func ValidateInterval(interval time.Duration) error {
	if interval < MinInterval || interval > MaxInterval {
		return fmt.Errorf("%w: got %s", ErrInvalidInterval, interval)
	}
	return nil
}

// New returns a Poller that refreshes from source every interval. Polling does not begin until
// Start is called.
func New(source Source, interval time.Duration, options ...Option) (*Poller, error) {
	if err := ValidateInterval(interval); err != nil {
		return nil, err
	}
	p := &Poller{
		source:   source,
		interval: interval,
		clock:    clock.RealClock{},
	}
	for _, option := range options {
		option(p)
	}
	p.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{})))
	p.cron.Schedule(cron.Every(interval), cron.FuncJob(p.tick))
	return p, nil
}

// Interval returns the polling interval.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start performs an initial refresh and then schedules further refreshes in the background. The
// error of the initial refresh is returned, but scheduling proceeds regardless. Scheduled
// refreshes use ctx and stop when it is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.ctx, p.cancel = ctx, cancel
	p.mu.Unlock()

	_, err := p.Refresh(ctx)
	p.cron.Start()
	go func() {
		<-ctx.Done()
		p.cron.Stop()
	}()
	return err
}

// Stop cancels scheduled polling and waits for a running refresh to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	<-p.cron.Stop().Done()
}

func (p *Poller) tick() {
	p.mu.Lock()
	ctx, reauth := p.ctx, p.reauth
	p.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	if reauth {
		log.Debug("Skipping refresh until credentials are updated")
		return
	}
	_, _ = p.Refresh(ctx)
}

// Refresh fetches a new snapshot immediately, regardless of the schedule. On failure the returned
// error wraps ErrReauthRequired or ErrUpdateFailed and the previous snapshot is returned.
func (p *Poller) Refresh(ctx context.Context) (*vehicle.Aggregate, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	start := p.clock.Now()
	data, err := p.source.Snapshot(ctx)
	result := "success"
	if err != nil {
		err = classify(err)
		result = "failed"
		if errors.Is(err, ErrReauthRequired) {
			result = "reauth"
		}
	}
	metrics.PollDuration.WithLabelValues(result).Observe(p.clock.Since(start).Seconds())

	p.mu.Lock()
	p.err = err
	if err == nil {
		p.data = data
		p.lastSuccess = p.clock.Now()
		p.reauth = false
	} else if errors.Is(err, ErrReauthRequired) {
		p.reauth = true
	}
	data = p.data
	listeners := lo.Map(p.subscriptions, func(s subscription, _ int) Listener {
		return s.listener
	})
	p.mu.Unlock()

	switch {
	case err == nil:
		log.Debug("Refreshed %d vehicles", len(data.Vehicles()))
	case errors.Is(err, ErrReauthRequired):
		log.Error("Polling suspended: %s", err)
	default:
		log.Warning("Refresh failed: %s", err)
	}
	for _, listener := range listeners {
		listener(data, err)
	}
	return data, err
}

// classify wraps err in ErrReauthRequired or ErrUpdateFailed. Errors that carry no
// [protocol.Kind] are reported as general errors.
func classify(err error) error {
	err = protocol.Wrap(protocol.KindGeneral, err)
	if !protocol.Temporary(err) {
		return fmt.Errorf("%w: %w", ErrReauthRequired, err)
	}
	return fmt.Errorf("%w: %w", ErrUpdateFailed, err)
}

// Data returns the latest successful snapshot, or nil if no refresh succeeded yet.
func (p *Poller) Data() *vehicle.Aggregate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data
}

// Err returns the error of the most recent refresh.
func (p *Poller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// LastSuccess returns the time of the most recent successful refresh.
func (p *Poller) LastSuccess() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSuccess
}

// NeedsReauth returns true if polling is suspended after an authentication failure.
func (p *Poller) NeedsReauth() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reauth
}

// Reset resumes scheduled polling after an authentication failure. Callers are expected to have
// replaced the Source's credentials.
func (p *Poller) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reauth = false
}

// Subscribe registers listener and returns a function that removes it.
func (p *Poller) Subscribe(listener Listener) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.subscriptions = append(p.subscriptions, subscription{id: id, listener: listener})
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.subscriptions = lo.Reject(p.subscriptions, func(s subscription, _ int) bool {
			return s.id == id
		})
	}
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug("cron: %s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error("cron: %s: %s %v", msg, err, keysAndValues)
}
