// Package health tracks the health of a pool of mirror instances and hands
// out a round-robin "next viable instance" on each request.
package health

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultMaxFailures is the number of consecutive failures that take an
	// instance out of rotation.
	DefaultMaxFailures = 2
	// DefaultResetWindow is how long after its last failure a quarantined
	// instance becomes selectable again.
	DefaultResetWindow = 5 * time.Minute
)

// instanceState holds the failure accounting for a single host.
type instanceState struct {
	consecutiveFailures int
	lastFailure         time.Time
}

// Tracker routes requests across a fixed, ordered pool of mirror hosts.
// All operations hold a single mutex for their whole read-evaluate-write
// sequence, so a Tracker can be shared by concurrent resolutions.
type Tracker struct {
	mu          sync.Mutex
	hosts       []string
	instances   map[string]*instanceState
	cursor      int
	maxFailures int
	resetWindow time.Duration
	scheme      string
	now         func() time.Time
	log         zerolog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithMaxFailures sets the consecutive failure threshold.
func WithMaxFailures(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxFailures = n
		}
	}
}

// WithResetWindow sets the quarantine duration.
func WithResetWindow(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.resetWindow = d
		}
	}
}

// WithScheme sets the scheme of URLs returned by HealthyInstance.
// Defaults to https.
func WithScheme(scheme string) Option {
	return func(t *Tracker) {
		if scheme != "" {
			t.scheme = scheme
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLogger sets the logger used for quarantine and recovery events.
func WithLogger(log zerolog.Logger) Option {
	return func(t *Tracker) {
		t.log = log.With().Str("component", "health").Logger()
	}
}

// NewTracker creates a tracker over hosts. Hosts may be given with or
// without a scheme; they are stored as bare host names in pool order.
func NewTracker(hosts []string, opts ...Option) *Tracker {
	t := &Tracker{
		instances:   make(map[string]*instanceState),
		maxFailures: DefaultMaxFailures,
		resetWindow: DefaultResetWindow,
		scheme:      "https",
		now:         time.Now,
		log:         zerolog.Nop(),
	}
	for _, h := range hosts {
		if n := normalize(h); n != "" {
			t.hosts = append(t.hosts, n)
		}
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// HealthyInstance returns the next healthy instance as a base URL, or
// false when every instance in the pool is quarantined.
func (t *Tracker) HealthyInstance() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for host, st := range t.instances {
		if st.consecutiveFailures >= t.maxFailures && now.Sub(st.lastFailure) >= t.resetWindow {
			st.consecutiveFailures = 0
			t.log.Info().Str("host", host).Msg("instance back in rotation")
		}
	}

	n := len(t.hosts)
	for i := 0; i < n; i++ {
		idx := (t.cursor + i) % n
		host := t.hosts[idx]
		if st, ok := t.instances[host]; ok && st.consecutiveFailures >= t.maxFailures {
			continue
		}
		t.cursor = (idx + 1) % n
		return t.scheme + "://" + host, true
	}

	t.log.Warn().Int("pool", n).Msg("no healthy instance")
	return "", false
}

// ReportFailure records a failed request against the host of url.
// Unknown hosts start being tracked with a count of one.
func (t *Tracker) ReportFailure(url string) {
	host := normalize(url)

	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.instances[host]
	if !ok {
		st = &instanceState{}
		t.instances[host] = st
	}
	st.consecutiveFailures++
	st.lastFailure = t.now()

	if st.consecutiveFailures == t.maxFailures {
		t.log.Warn().Str("host", host).Dur("window", t.resetWindow).Msg("instance quarantined")
	}
}

// ReportSuccess clears the failure count of the host of url. It is a no-op
// for hosts that have never failed.
func (t *Tracker) ReportSuccess(url string) {
	host := normalize(url)

	t.mu.Lock()
	defer t.mu.Unlock()

	if st, ok := t.instances[host]; ok {
		st.consecutiveFailures = 0
	}
}

// InstanceStats is a point-in-time view of one pool member.
type InstanceStats struct {
	Host                string
	ConsecutiveFailures int
	LastFailure         time.Time
	Healthy             bool
}

// Stats returns a snapshot of every host in pool order.
func (t *Tracker) Stats() []InstanceStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	stats := make([]InstanceStats, 0, len(t.hosts))
	for _, host := range t.hosts {
		s := InstanceStats{Host: host, Healthy: true}
		if st, ok := t.instances[host]; ok {
			s.ConsecutiveFailures = st.consecutiveFailures
			s.LastFailure = st.lastFailure
			s.Healthy = st.consecutiveFailures < t.maxFailures || now.Sub(st.lastFailure) >= t.resetWindow
		}
		stats = append(stats, s)
	}
	return stats
}

// Len returns the pool size.
func (t *Tracker) Len() int {
	return len(t.hosts)
}

// normalize strips a leading scheme, any path and trailing slashes.
func normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(s)
}
