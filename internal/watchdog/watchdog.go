package watchdog

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ProbeFunc issues one liveness probe against the running session.
type ProbeFunc func(ctx context.Context) error

// ReportFunc receives every probe outcome.
type ReportFunc func(timestamp time.Time, ok bool, detail string)

// Watchdog probes session liveness on a fixed interval and reports the
// result. It never restarts anything itself; that decision belongs to
// whoever reads the reports.
type Watchdog struct {
	clock    clock.Clock
	interval time.Duration
	timeout  time.Duration
	probe    ProbeFunc
	report   ReportFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Watchdog. The probe is bounded by timeout on every tick.
func New(clk clock.Clock, interval, timeout time.Duration, probe ProbeFunc, report ReportFunc) *Watchdog {
	if clk == nil {
		clk = clock.New()
	}
	return &Watchdog{
		clock:    clk,
		interval: interval,
		timeout:  timeout,
		probe:    probe,
		report:   report,
	}
}

// Start begins periodic probing. Starting an already-started watchdog
// is a no-op.
func (w *Watchdog) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(ctx, w.done)
}

// Stop halts probing and waits for the loop to exit. Safe to call when
// never started.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	done := w.done
	w.cancel = nil
	w.done = nil
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Watchdog) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := w.clock.Ticker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Watchdog) tick(ctx context.Context) {
	pctx := ctx
	var cancel context.CancelFunc
	if w.timeout > 0 {
		pctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	err := w.probe(pctx)
	if err != nil {
		w.report(w.clock.Now(), false, err.Error())
		return
	}
	w.report(w.clock.Now(), true, "")
}
