package watchdog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type heartbeatLog struct {
	mu      sync.Mutex
	results []bool
	details []string
}

func (l *heartbeatLog) report(_ time.Time, ok bool, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, ok)
	l.details = append(l.details, detail)
}

func (l *heartbeatLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.results)
}

func TestWatchdogReportsSuccess(t *testing.T) {
	mock := clock.NewMock()
	log := &heartbeatLog{}
	w := New(mock, 30*time.Second, 0, func(ctx context.Context) error { return nil }, log.report)

	w.Start(context.Background())
	defer w.Stop()
	time.Sleep(10 * time.Millisecond) // let the loop reach the ticker

	mock.Add(30 * time.Second)
	require.Eventually(t, func() bool { return log.count() == 1 },
		time.Second, time.Millisecond)

	log.mu.Lock()
	defer log.mu.Unlock()
	assert.True(t, log.results[0])
	assert.Empty(t, log.details[0])
}

func TestWatchdogReportsFailureWithoutActing(t *testing.T) {
	mock := clock.NewMock()
	log := &heartbeatLog{}
	probeErr := errors.New("session went away")
	w := New(mock, 10*time.Second, 0, func(ctx context.Context) error { return probeErr }, log.report)

	w.Start(context.Background())
	defer w.Stop()
	time.Sleep(10 * time.Millisecond)

	mock.Add(10 * time.Second)
	require.Eventually(t, func() bool { return log.count() == 1 },
		time.Second, time.Millisecond)

	log.mu.Lock()
	defer log.mu.Unlock()
	assert.False(t, log.results[0])
	assert.Equal(t, "session went away", log.details[0])
}

func TestWatchdogStopHaltsProbing(t *testing.T) {
	mock := clock.NewMock()
	log := &heartbeatLog{}
	w := New(mock, 5*time.Second, 0, func(ctx context.Context) error { return nil }, log.report)

	w.Start(context.Background())
	time.Sleep(10 * time.Millisecond)
	mock.Add(5 * time.Second)
	require.Eventually(t, func() bool { return log.count() == 1 },
		time.Second, time.Millisecond)

	w.Stop()
	mock.Add(time.Minute)
	assert.Equal(t, 1, log.count())
}

func TestWatchdogStartIsIdempotent(t *testing.T) {
	mock := clock.NewMock()
	log := &heartbeatLog{}
	w := New(mock, 5*time.Second, 0, func(ctx context.Context) error { return nil }, log.report)

	w.Start(context.Background())
	w.Start(context.Background())
	defer w.Stop()
	time.Sleep(10 * time.Millisecond)

	mock.Add(5 * time.Second)
	require.Eventually(t, func() bool { return log.count() >= 1 },
		time.Second, time.Millisecond)
	// A second loop would double the reports per tick
	assert.Equal(t, 1, log.count())
}

func TestWatchdogStopWithoutStart(t *testing.T) {
	w := New(nil, time.Second, 0, func(ctx context.Context) error { return nil }, func(time.Time, bool, string) {})
	w.Stop() // must not panic or hang
}
