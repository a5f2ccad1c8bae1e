package counter

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	instrumentationName   = "finitefield.org/libreria-web/internal/counter"
	defaultInterval       = 10 * time.Minute
	defaultRequestTimeout = 8 * time.Second
)

// TickerFunc starts a repeating timer and returns its channel and stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

// Observer is called from the poller's event loop after every applied transition.
type Observer func(State)

// Option customises a Poller.
type Option func(*Poller)

// WithInterval sets the time between scheduled polls.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithRequestTimeout bounds a single fetch.
func WithRequestTimeout(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger used for poll outcomes.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTicker replaces the wall-clock ticker.
func WithTicker(fn TickerFunc) Option {
	return func(p *Poller) {
		if fn != nil {
			p.ticker = fn
		}
	}
}

// WithObserver registers a transition callback.
func WithObserver(fn Observer) Option {
	return func(p *Poller) {
		p.observer = fn
	}
}

// Poller keeps a live count fresh. Between Mount and Unmount it owns one
// event loop goroutine, which is the only writer of the published state.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	ticker   TickerFunc
	observer Observer
	tracer   trace.Tracer
	polls    metric.Int64Counter

	state atomic.Pointer[State]
	seq   atomic.Uint64

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	refresh chan struct{}
}

type pollResult struct {
	seq    uint64
	pollID string
	count  int
	err    error
}

// NewPoller builds an unmounted poller around fetcher.
func NewPoller(fetcher Fetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher:  fetcher,
		interval: defaultInterval,
		timeout:  defaultRequestTimeout,
		logger:   zap.NewNop(),
		ticker:   wallTicker,
		tracer:   otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(p)
	}
	polls, err := otel.Meter(instrumentationName).Int64Counter(
		"libreria_web.counter.polls",
		metric.WithDescription("Book counter polls by outcome"),
	)
	if err != nil {
		polls = noop.Int64Counter{}
	}
	p.polls = polls
	initial := Initial()
	p.state.Store(&initial)
	return p
}

func wallTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Interval returns the configured poll interval.
func (p *Poller) Interval() time.Duration { return p.interval }

// State returns the latest reconciled snapshot.
func (p *Poller) State() State {
	if s := p.state.Load(); s != nil {
		return *s
	}
	return Initial()
}

// Mounted reports whether the event loop is running.
func (p *Poller) Mounted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Mount resets the state to Loading, polls immediately and then every
// interval until Unmount or ctx is cancelled.
func (p *Poller) Mount(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return ErrAlreadyMounted
	}

	loopCtx, cancel := context.WithCancel(ctx)
	initial := Initial()
	p.state.Store(&initial)

	ticks, stop := p.ticker(p.interval)
	done := make(chan struct{})
	refresh := make(chan struct{}, 1)
	p.cancel, p.done, p.refresh = cancel, done, refresh

	go p.run(loopCtx, ticks, stop, refresh, done)
	p.logger.Info("counter mounted", zap.Duration("interval", p.interval))
	return nil
}

// Unmount stops the timer and the event loop and waits for the loop to exit.
// Results of polls still in flight are discarded. Safe to call repeatedly.
func (p *Poller) Unmount() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done, p.refresh = nil, nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.logger.Info("counter unmounted")
}

// Refresh asks the event loop for an extra poll. Requests made while one is
// already queued, or while a poll is in flight, are coalesced into it. It
// reports false when the poller is not mounted.
func (p *Poller) Refresh() bool {
	p.mu.Lock()
	ch := p.refresh
	p.mu.Unlock()
	if ch == nil {
		return false
	}
	select {
	case ch <- struct{}{}:
	default:
	}
	return true
}

func (p *Poller) run(ctx context.Context, ticks <-chan time.Time, stop func(), refresh <-chan struct{}, done chan struct{}) {
	defer close(done)
	defer p.detach(done)
	defer stop()

	results := make(chan pollResult)
	var latest uint64
	inflight := 0

	issue := func() {
		seq := p.seq.Inc()
		latest = seq
		inflight++
		pollID := uuid.NewString()
		go func() {
			count, err := p.fetch(ctx, seq, pollID)
			select {
			case results <- pollResult{seq: seq, pollID: pollID, count: count, err: err}:
			case <-ctx.Done():
			}
		}()
	}

	issue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			issue()
		case <-refresh:
			if inflight > 0 {
				p.logger.Debug("counter refresh coalesced", zap.Int("inflight", inflight))
				continue
			}
			issue()
		case res := <-results:
			inflight--
			if ctx.Err() != nil {
				return
			}
			p.reconcile(ctx, res, latest)
		}
	}
}

// detach clears the mount bookkeeping when the loop ends on its own because
// the parent context was cancelled. An Unmount that already cleared it wins.
func (p *Poller) detach(done chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != done {
		return
	}
	p.cancel()
	p.cancel, p.done, p.refresh = nil, nil, nil
	p.logger.Info("counter stopped", zap.String("reason", "context done"))
}

func (p *Poller) reconcile(ctx context.Context, res pollResult, latest uint64) {
	log := p.logger.With(zap.Uint64("seq", res.seq), zap.String("poll_id", res.pollID))
	if res.seq != latest {
		p.polls.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "stale")))
		log.Debug("counter poll discarded", zap.Uint64("latest", latest))
		return
	}

	var ev Event
	if res.err != nil {
		ev = PollFailed{Err: res.err}
	} else {
		ev = PollSucceeded{Count: res.count}
	}
	next := p.State().Apply(ev)
	p.state.Store(&next)

	if next.Phase == Failed {
		kind := ErrorKind(next.Err)
		p.polls.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", kind)))
		log.Warn("counter poll failed", zap.String("kind", kind), zap.Error(next.Err))
	} else {
		p.polls.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
		log.Debug("counter poll succeeded", zap.Int("count", next.Count))
	}
	if p.observer != nil {
		p.observer(next)
	}
}

func (p *Poller) fetch(ctx context.Context, seq uint64, pollID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	ctx = WithRequestID(ctx, pollID)
	ctx, span := p.tracer.Start(ctx, "counter.poll", trace.WithAttributes(
		attribute.Int64("counter.seq", int64(seq)),
		attribute.String("counter.poll_id", pollID),
	))
	defer span.End()

	count, err := p.fetcher.FetchCount(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorKind(err))
		return 0, err
	}
	span.SetAttributes(attribute.Int("counter.count", count))
	return count, nil
}
