package app

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/nowplaying/internal/adapter/metrics"
	"github.com/pscheid92/nowplaying/internal/domain"
	"github.com/pscheid92/nowplaying/internal/platform/correlation"
)

const (
	DefaultPollInterval = 3 * time.Second
	MinPollInterval     = 250 * time.Millisecond
	DefaultFetchTimeout = 5 * time.Second
)

// ClampPollInterval applies the default to unset intervals and never polls faster than
// MinPollInterval.
func ClampPollInterval(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultPollInterval
	}
	return max(d, MinPollInterval)
}

// PollerConfig holds the tunables of the session poll loop.
type PollerConfig struct {
	Interval        time.Duration
	FetchTimeout    time.Duration
	Filters         Filters
	PreferSeriesArt bool
}

// Poller drives MatchSession and the Reconciler on a fixed cadence. All ticks run on the
// goroutine that called Run, so the reconciliation state never has concurrent writers.
type Poller struct {
	source     domain.SessionSource
	publisher  domain.EventPublisher
	snapshot   *Snapshot
	reconciler Reconciler
	filters    Filters
	interval   time.Duration
	timeout    time.Duration
	clock      clockwork.Clock
	metrics    *metrics.PollMetrics

	state ReconciliationState
	// lastSuccess is read by health handlers, so it is the only field shared off the Run goroutine.
	lastSuccess atomic.Int64
}

func NewPoller(
	source domain.SessionSource,
	publisher domain.EventPublisher,
	snapshot *Snapshot,
	cfg PollerConfig,
	clock clockwork.Clock,
	m *metrics.PollMetrics,
) *Poller {
	interval := ClampPollInterval(cfg.Interval)
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	return &Poller{
		source:     source,
		publisher:  publisher,
		snapshot:   snapshot,
		reconciler: Reconciler{PreferSeriesArt: cfg.PreferSeriesArt},
		filters:    cfg.Filters,
		interval:   interval,
		timeout:    min(timeout, interval),
		clock:      clock,
		metrics:    m,
	}
}

// Interval returns the effective poll interval after clamping.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// LastSuccess returns when a poll last completed without a fetch error, or the zero time if
// none has.
func (p *Poller) LastSuccess() time.Time {
	nanos := p.lastSuccess.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

// Run polls immediately and then once per interval. It blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Poller started", "interval", p.interval, "fetch_timeout", p.timeout)
	p.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Poller stopped")
			return
		case <-ticker.Chan():
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	ctx = correlation.WithID(ctx, correlation.NewID())
	start := p.clock.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Poller: tick panic recovered", "panic", r)
			p.metrics.Ticks.WithLabelValues("panic").Inc()
		}
		p.metrics.TickDuration.Observe(p.clock.Since(start).Seconds())
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	sessions, err := p.source.ListSessions(fetchCtx)
	cancel()
	if err != nil {
		slog.WarnContext(ctx, "Poller: fetch sessions failed", "error", err)
		p.metrics.Ticks.WithLabelValues("error").Inc()
		return
	}

	selected := MatchSession(sessions, p.filters)
	now := p.clock.Now()
	p.lastSuccess.Store(now.UnixNano())

	next, event := p.reconciler.Step(p.state, selected, now)
	p.state = next

	if selected != nil {
		np := p.reconciler.Resolve(selected, now)
		p.snapshot.Store(&np)
		p.metrics.Active.Set(1)
	} else {
		p.snapshot.Store(nil)
		p.metrics.Active.Set(0)
	}

	p.metrics.Ticks.WithLabelValues("ok").Inc()
	if event == nil {
		return
	}

	slog.DebugContext(ctx, "Poller: publishing event", "type", event.Type(), "sessions", len(sessions))
	p.metrics.Events.WithLabelValues(event.Type()).Inc()
	p.publisher.Broadcast(event)
}
