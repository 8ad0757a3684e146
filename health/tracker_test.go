package health

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func next(t *testing.T, tr *Tracker) string {
	t.Helper()
	u, ok := tr.HealthyInstance()
	require.True(t, ok, "expected a healthy instance")
	return u
}

func TestHealthyInstanceRoundRobin(t *testing.T) {
	tr := NewTracker([]string{"h1.example", "h2.example", "h3.example"})

	got := []string{next(t, tr), next(t, tr), next(t, tr), next(t, tr)}
	assert.Equal(t, []string{
		"https://h1.example",
		"https://h2.example",
		"https://h3.example",
		"https://h1.example",
	}, got)
}

func TestQuarantineUntilSuccess(t *testing.T) {
	clock := newClock()
	tr := NewTracker([]string{"h1.example", "h2.example", "h3.example"}, WithClock(clock.Now))

	tr.ReportFailure("https://h1.example")
	tr.ReportFailure("https://h1.example")

	for i := 0; i < 6; i++ {
		assert.NotEqual(t, "https://h1.example", next(t, tr))
	}

	tr.ReportSuccess("https://h1.example")

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		seen[next(t, tr)] = true
	}
	assert.True(t, seen["https://h1.example"], "h1 should be selectable after a success report")
}

func TestQuarantineExpiresAfterResetWindow(t *testing.T) {
	clock := newClock()
	tr := NewTracker([]string{"h1.example", "h2.example"}, WithClock(clock.Now))

	tr.ReportFailure("h1.example")
	tr.ReportFailure("h1.example")

	assert.Equal(t, "https://h2.example", next(t, tr))
	assert.Equal(t, "https://h2.example", next(t, tr))

	clock.Advance(DefaultResetWindow - time.Second)
	assert.Equal(t, "https://h2.example", next(t, tr))

	clock.Advance(time.Second)
	assert.Equal(t, "https://h1.example", next(t, tr))

	stats := tr.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, 0, stats[0].ConsecutiveFailures)
}

func TestSingleFailureStaysInRotation(t *testing.T) {
	tr := NewTracker([]string{"h1.example", "h2.example"})

	tr.ReportFailure("https://h1.example/api/v1/videos/abc")

	assert.Equal(t, "https://h1.example", next(t, tr))
	assert.Equal(t, "https://h2.example", next(t, tr))
}

func TestPoolExhausted(t *testing.T) {
	tr := NewTracker([]string{"h1.example", "h2.example"}, WithMaxFailures(1))

	tr.ReportFailure("h1.example")
	tr.ReportFailure("h2.example")

	u, ok := tr.HealthyInstance()
	assert.False(t, ok)
	assert.Empty(t, u)
}

func TestEmptyPool(t *testing.T) {
	tr := NewTracker(nil)

	_, ok := tr.HealthyInstance()
	assert.False(t, ok)
	assert.Equal(t, 0, tr.Len())
}

func TestReportUnknownHost(t *testing.T) {
	tr := NewTracker([]string{"h1.example"})

	tr.ReportSuccess("https://other.example")
	tr.ReportFailure("https://other.example")

	// Unknown hosts are tracked but never enter the pool.
	assert.Equal(t, "https://h1.example", next(t, tr))
	assert.Len(t, tr.Stats(), 1)

	tr.mu.Lock()
	st := tr.instances["other.example"]
	tr.mu.Unlock()
	require.NotNil(t, st)
	assert.Equal(t, 1, st.consecutiveFailures)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://yewtu.be", "yewtu.be"},
		{"http://Inv.Example/", "inv.example"},
		{"inv.example", "inv.example"},
		{"https://inv.example/api/v1/channels/UC1?x=1", "inv.example"},
		{"  inv.example  ", "inv.example"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalize(tt.in), tt.in)
	}
}

func TestConfiguredHostsNormalized(t *testing.T) {
	tr := NewTracker([]string{"https://h1.example/", "", "H2.example"})

	stats := tr.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "h1.example", stats[0].Host)
	assert.Equal(t, "h2.example", stats[1].Host)
	assert.True(t, stats[0].Healthy)
}

func TestConcurrentUse(t *testing.T) {
	tr := NewTracker([]string{"h1.example", "h2.example", "h3.example"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, ok := tr.HealthyInstance()
			if !ok {
				return
			}
			if i%2 == 0 {
				tr.ReportFailure(u)
			} else {
				tr.ReportSuccess(u)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, tr.Stats(), 3)
}
