package trigger

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ansup-io/ansup/internal/domain"
)

// RestartFunc forwards a collapsed restart to the session manager.
type RestartFunc func(ctx context.Context, reason domain.RestartReason)

// Aggregator collects heterogeneous restart signals and forwards them
// to the session manager one at a time. Notifications arriving while a
// restart is in flight collapse into at most one trailing restart; the
// dropped reasons are logged, never queued.
type Aggregator struct {
	restart RestartFunc
	logger  *zap.SugaredLogger

	mu            sync.Mutex
	inFlight      bool
	pending       bool
	pendingReason domain.RestartReason
	wg            sync.WaitGroup
}

// New creates an Aggregator forwarding to restart.
func New(restart RestartFunc, logger *zap.SugaredLogger) *Aggregator {
	return &Aggregator{restart: restart, logger: logger}
}

// Notify requests a restart. Fire-and-forget: the call never blocks on
// the restart itself.
func (a *Aggregator) Notify(ctx context.Context, reason domain.RestartReason) {
	a.mu.Lock()
	if a.inFlight {
		if a.pending {
			// Already one trailing restart scheduled; this signal adds
			// nothing.
			a.logger.Debugw("restart request dropped", "reason", reason)
			a.mu.Unlock()
			return
		}
		a.pending = true
		a.pendingReason = reason
		a.logger.Debugw("restart request collapsed", "reason", reason)
		a.mu.Unlock()
		return
	}
	a.inFlight = true
	a.mu.Unlock()

	a.wg.Add(1)
	go a.drain(ctx, reason)
}

func (a *Aggregator) drain(ctx context.Context, reason domain.RestartReason) {
	defer a.wg.Done()
	for {
		if ctx.Err() != nil {
			// Shutdown has begun; a restart now would only launch into
			// a cancelled context and fail spuriously.
			a.logger.Debugw("restart request abandoned", "reason", reason)
			a.mu.Lock()
			a.pending = false
			a.inFlight = false
			a.mu.Unlock()
			return
		}
		a.logger.Debugw("forwarding restart", "reason", reason)
		a.restart(ctx, reason)

		a.mu.Lock()
		if !a.pending {
			a.inFlight = false
			a.mu.Unlock()
			return
		}
		reason = a.pendingReason
		a.pending = false
		a.mu.Unlock()
	}
}

// Wait blocks until no restart is in flight. Used on shutdown so a
// collapsed restart is not abandoned mid-transition.
func (a *Aggregator) Wait() {
	a.wg.Wait()
}
