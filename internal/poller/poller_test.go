// v0
// internal/poller/poller_test.go
package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amlio/rover/internal/distance"
	"amlio/rover/internal/logging"
)

type scriptedFetcher struct {
	mu      sync.Mutex
	results []fetchResult
	calls   []time.Time
}

type fetchResult struct {
	r   distance.Reading
	err error
}

func (f *scriptedFetcher) Distances(context.Context) (distance.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, time.Now())
	if len(f.results) == 0 {
		return distance.Reading{Left: 1, Right: 1}, nil
	}
	res := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return res.r, res.err
}

func (f *scriptedFetcher) callTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.calls...)
}

func TestPollOnceSuccessThenFailureResetsToZero(t *testing.T) {
	f := &scriptedFetcher{results: []fetchResult{
		{r: distance.Reading{Left: 25, Right: 18}},
		{err: errors.New("connection refused")},
	}}
	p := NewPoller(logging.Discard(), f, time.Second, nil)

	var updates []distance.Reading
	var errs []error
	p.OnUpdate = func(r distance.Reading, err error) {
		updates = append(updates, r)
		errs = append(errs, err)
	}

	p.PollOnce(context.Background())
	assert.Equal(t, distance.Reading{Left: 25, Right: 18}, p.Display().Get())

	p.PollOnce(context.Background())
	assert.Equal(t, distance.Zero(), p.Display().Get())

	require.Len(t, updates, 2)
	assert.NoError(t, errs[0])
	assert.Error(t, errs[1])
	assert.Equal(t, distance.Zero(), updates[1])
}

func TestRunPollsAtCadenceAndStopsOnCancel(t *testing.T) {
	f := &scriptedFetcher{}
	interval := 40 * time.Millisecond
	p := NewPoller(logging.Discard(), f, interval, nil)

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(f.callTimes()) >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}

	calls := f.callTimes()
	assert.GreaterOrEqual(t, calls[0].Sub(start), interval-5*time.Millisecond, "first poll waits one interval")
	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i].Sub(calls[i-1]), interval/2)
	}

	stopped := len(f.callTimes())
	time.Sleep(3 * interval)
	assert.Equal(t, stopped, len(f.callTimes()), "no polls after teardown")
}

func TestFetchOnStart(t *testing.T) {
	f := &scriptedFetcher{}
	p := NewPoller(logging.Discard(), f, time.Hour, nil)
	p.FetchOnStart = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return len(f.callTimes()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, distance.Reading{Left: 1, Right: 1}, p.Display().Get())
}

type slowFetcher struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	calls    atomic.Int32
}

func (s *slowFetcher) Distances(ctx context.Context) (distance.Reading, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	if n > s.maxSeen.Load() {
		s.maxSeen.Store(n)
	}
	s.calls.Add(1)
	select {
	case <-time.After(30 * time.Millisecond):
	case <-ctx.Done():
	}
	return distance.Zero(), nil
}

func TestRunNeverOverlapsRequests(t *testing.T) {
	f := &slowFetcher{}
	p := NewPoller(logging.Discard(), f, 5*time.Millisecond, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	p.Run(ctx)
	assert.GreaterOrEqual(t, f.calls.Load(), int32(2))
	assert.Equal(t, int32(1), f.maxSeen.Load())
}

func TestNewPollerDefaults(t *testing.T) {
	p := NewPoller(logging.Discard(), &scriptedFetcher{}, 0, nil)
	assert.Equal(t, DefaultInterval, p.interval)
	assert.NotNil(t, p.Display())
}

type flakyPinger struct {
	mu  sync.Mutex
	err error
}

func (f *flakyPinger) set(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *flakyPinger) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func TestConnectionMonitor(t *testing.T) {
	pinger := &flakyPinger{}
	m := NewConnectionMonitor(logging.Discard(), pinger, time.Second)
	var changes []string
	m.OnChange = func(s string) { changes = append(changes, s) }

	assert.Equal(t, Disconnected, m.Status())
	assert.Equal(t, Connected, m.Check(context.Background()))
	assert.True(t, m.Connected())
	m.Check(context.Background())

	pinger.set(errors.New("no route to host"))
	assert.Equal(t, Disconnected, m.Check(context.Background()))
	assert.Equal(t, []string{Connected, Disconnected}, changes)
}

func TestConnectionMonitorChecksImmediately(t *testing.T) {
	m := NewConnectionMonitor(logging.Discard(), &flakyPinger{}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	require.Eventually(t, m.Connected, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

type statusFunc func(context.Context) (string, error)

func (f statusFunc) Status(ctx context.Context) (string, error) { return f(ctx) }

func TestStatusWatcher(t *testing.T) {
	var fail atomic.Bool
	w := NewStatusWatcher(logging.Discard(), statusFunc(func(context.Context) (string, error) {
		if fail.Load() {
			return "", errors.New("timeout")
		}
		return "Obstacle détecté : tourne à gauche", nil
	}), 0)
	assert.Equal(t, StatusInterval, w.interval)
	assert.Equal(t, StatusLoading, w.Line())

	assert.Equal(t, "Obstacle détecté : tourne à gauche", w.PollOnce(context.Background()))
	fail.Store(true)
	assert.Equal(t, StatusError, w.PollOnce(context.Background()))
	assert.Equal(t, StatusError, w.Line())
}

type blockingFetcher struct {
	started chan struct{}
}

func (b *blockingFetcher) Distances(ctx context.Context) (distance.Reading, error) {
	close(b.started)
	<-ctx.Done()
	return distance.Reading{}, ctx.Err()
}

func TestCancelDuringFetchKeepsDisplay(t *testing.T) {
	f := &blockingFetcher{started: make(chan struct{})}
	display := &Display{}
	display.Set(distance.Reading{Left: 25, Right: 18})
	p := NewPoller(logging.Discard(), f, time.Hour, display)
	p.FetchOnStart = true
	var renders atomic.Int32
	p.OnUpdate = func(distance.Reading, error) { renders.Add(1) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	<-f.started
	cancel()
	<-done

	assert.Equal(t, distance.Reading{Left: 25, Right: 18}, display.Get())
	assert.Equal(t, int32(0), renders.Load())
}

func TestStatusWatcherCancelKeepsLine(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := NewStatusWatcher(logging.Discard(), statusFunc(func(ctx context.Context) (string, error) {
		cancel()
		return "", ctx.Err()
	}), 0)
	var calls atomic.Int32
	w.OnUpdate = func(string) { calls.Add(1) }

	assert.Equal(t, StatusLoading, w.PollOnce(ctx))
	assert.Equal(t, StatusLoading, w.Line())
	assert.Equal(t, int32(0), calls.Load())
}

type cancellingPinger struct{ cancel context.CancelFunc }

func (c cancellingPinger) Ping(ctx context.Context) error {
	c.cancel()
	return ctx.Err()
}

func TestConnectionMonitorCancelKeepsStatus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewConnectionMonitor(logging.Discard(), cancellingPinger{cancel: cancel}, time.Hour)
	m.status = Connected
	var changes atomic.Int32
	m.OnChange = func(string) { changes.Add(1) }

	assert.Equal(t, Connected, m.Check(ctx))
	assert.Equal(t, int32(0), changes.Load())
}
