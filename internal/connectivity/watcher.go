package connectivity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/domain"
)

// Watcher tracks backend reachability with a periodic probe and fires
// callbacks on transitions only. There is no debouncing beyond the probe
// interval: a flapping link produces a callback per flip.
type Watcher struct {
	prober   domain.Prober
	interval time.Duration
	timeout  time.Duration
	logger   *zerolog.Logger
	// limiter caps manual Recheck calls so a retry-happy UI cannot turn
	// the probe into a request storm.
	limiter *rate.Limiter

	online atomic.Bool

	mu        sync.Mutex
	callbacks []func(online bool)
}

func NewWatcher(prober domain.Prober, interval time.Duration, logger *zerolog.Logger) *Watcher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Watcher{
		prober:   prober,
		interval: interval,
		timeout:  5 * time.Second,
		logger:   logger,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 3),
	}
}

// Online reports the last observed state.
func (w *Watcher) Online() bool { return w.online.Load() }

// OnChange registers a transition callback. Callbacks run synchronously
// on the probe goroutine, in registration order.
func (w *Watcher) OnChange(fn func(online bool)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Start runs the probe loop until ctx is done. The first probe happens
// immediately so dependents do not start with a stale offline flag.
func (w *Watcher) Start(ctx context.Context) {
	w.probe(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.probe(ctx)
		}
	}
}

// Recheck forces an immediate probe, rate-limited. Returns the state
// after the probe (or the cached one when throttled).
func (w *Watcher) Recheck(ctx context.Context) bool {
	if w.limiter.Allow() {
		w.probe(ctx)
	}
	return w.online.Load()
}

// SetOnline overrides the observed state; used by tests and by an app
// shell that knows better (airplane mode toggles).
func (w *Watcher) SetOnline(online bool) {
	w.transition(online)
}

func (w *Watcher) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	err := w.prober.Ping(probeCtx)
	w.transition(err == nil)
}

func (w *Watcher) transition(online bool) {
	prev := w.online.Swap(online)
	if prev == online {
		return
	}

	w.logger.Info().Bool("online", online).Msg("network state changed")

	w.mu.Lock()
	callbacks := append([]func(bool){}, w.callbacks...)
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn(online)
	}
}
