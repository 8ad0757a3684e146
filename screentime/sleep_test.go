package screentime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualTicker struct {
	c       chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (m *manualTicker) C() <-chan time.Time { return m.c }

func (m *manualTicker) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

func (m *manualTicker) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

type tickers struct {
	mu  sync.Mutex
	all []*manualTicker
}

func (ts *tickers) new(time.Duration) Ticker {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	tk := &manualTicker{c: make(chan time.Time)}
	ts.all = append(ts.all, tk)
	return tk
}

func (ts *tickers) last() *manualTicker {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.all[len(ts.all)-1]
}

func tick(t *testing.T, tk *manualTicker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case tk.c <- time.Now():
		case <-time.After(2 * time.Second):
			t.Fatalf("tick %d not consumed", i+1)
		}
	}
}

func TestSleepTimerCountsDownToExpired(t *testing.T) {
	ts := &tickers{}
	timer := NewSleepTimer(WithTicker(ts.new))

	require.NoError(t, timer.Start("p1", 1))
	st := timer.State()
	assert.Equal(t, Running, st.Status)
	assert.Equal(t, "p1", st.ProfileID)
	assert.Equal(t, 1, st.TotalDurationMinutes)
	assert.Equal(t, int64(60), st.RemainingSeconds)

	tk := ts.last()
	tick(t, tk, 59)
	assert.Eventually(t, func() bool { return timer.State().RemainingSeconds == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, Running, timer.State().Status)

	tick(t, tk, 1)
	assert.Eventually(t, func() bool { return timer.State().Status == Expired }, time.Second, time.Millisecond)
	assert.Equal(t, int64(0), timer.State().RemainingSeconds)
	assert.Eventually(t, tk.isStopped, time.Second, time.Millisecond)
}

func TestSleepTimerStopResets(t *testing.T) {
	ts := &tickers{}
	timer := NewSleepTimer(WithTicker(ts.new))

	require.NoError(t, timer.Start("p1", 5))
	tick(t, ts.last(), 3)

	timer.Stop()
	assert.Equal(t, SleepTimerState{}, timer.State())
	assert.True(t, ts.last().isStopped())

	timer.Stop()
	assert.Equal(t, Idle, timer.State().Status)
}

func TestSleepTimerRestartCancelsPrevious(t *testing.T) {
	ts := &tickers{}
	timer := NewSleepTimer(WithTicker(ts.new))

	require.NoError(t, timer.Start("p1", 5))
	first := ts.last()
	require.NoError(t, timer.Start("p2", 2))

	assert.True(t, first.isStopped())
	st := timer.State()
	assert.Equal(t, "p2", st.ProfileID)
	assert.Equal(t, int64(120), st.RemainingSeconds)

	tick(t, ts.last(), 1)
	assert.Eventually(t, func() bool { return timer.State().RemainingSeconds == 119 }, time.Second, time.Millisecond)
}

func TestSleepTimerInvalidDuration(t *testing.T) {
	timer := NewSleepTimer()
	assert.ErrorIs(t, timer.Start("p1", 0), ErrInvalidDuration)
	assert.Equal(t, Idle, timer.State().Status)
}

func TestSleepTimerSubscribe(t *testing.T) {
	ts := &tickers{}
	timer := NewSleepTimer(WithTicker(ts.new))

	updates, unsubscribe := timer.Subscribe()
	defer unsubscribe()
	assert.Equal(t, Idle, (<-updates).Status)

	require.NoError(t, timer.Start("p1", 1))
	assert.Equal(t, Running, (<-updates).Status)

	tick(t, ts.last(), 1)
	assert.Eventually(t, func() bool {
		select {
		case st := <-updates:
			return st.RemainingSeconds == 59
		default:
			return false
		}
	}, time.Second, time.Millisecond)

	timer.Stop()
	assert.Equal(t, SleepTimerState{}, <-updates)
}

func TestSleepTimerStatusString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "expired", Expired.String())
}
