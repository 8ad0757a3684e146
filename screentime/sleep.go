package screentime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrInvalidDuration is returned by Start for a non-positive duration.
var ErrInvalidDuration = errors.New("screentime: sleep duration must be positive")

// SleepTimerStatus is the phase of the sleep timer.
type SleepTimerStatus int

// Timer phases. Expired keeps the profile and total duration until Stop.
const (
	Idle SleepTimerStatus = iota
	Running
	Expired
)

func (s SleepTimerStatus) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// SleepTimerState is a snapshot of the timer. The zero value is Idle.
type SleepTimerState struct {
	Status               SleepTimerStatus
	ProfileID            string
	TotalDurationMinutes int
	RemainingSeconds     int64
}

// Ticker is the tick source of a countdown.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.Ticker.C }

func newTimeTicker(d time.Duration) Ticker { return timeTicker{time.NewTicker(d)} }

// SleepOption configures a SleepTimer.
type SleepOption func(*SleepTimer)

// WithTicker replaces the one-second wall clock ticker.
func WithTicker(newTicker func(time.Duration) Ticker) SleepOption {
	return func(t *SleepTimer) {
		if newTicker != nil {
			t.newTicker = newTicker
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) SleepOption {
	return func(t *SleepTimer) {
		t.log = log.With().Str("component", "sleeptimer").Logger()
	}
}

// SleepTimer counts down a "stop watching" deadline. At most one countdown
// runs at a time.
type SleepTimer struct {
	// run serializes Start and Stop and guards cancel and done.
	run    sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	state SleepTimerState
	subs  map[chan SleepTimerState]struct{}

	newTicker func(time.Duration) Ticker
	log       zerolog.Logger
}

// NewSleepTimer creates an idle timer.
func NewSleepTimer(opts ...SleepOption) *SleepTimer {
	t := &SleepTimer{
		subs:      make(map[chan SleepTimerState]struct{}),
		newTicker: newTimeTicker,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start cancels any running countdown and starts a new one of minutes for
// profileID.
func (t *SleepTimer) Start(profileID string, minutes int) error {
	if minutes <= 0 {
		return ErrInvalidDuration
	}

	t.run.Lock()
	defer t.run.Unlock()
	t.stopCountdown()

	t.mu.Lock()
	t.state = SleepTimerState{
		Status:               Running,
		ProfileID:            profileID,
		TotalDurationMinutes: minutes,
		RemainingSeconds:     int64(minutes) * 60,
	}
	t.publish()
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	ticker := t.newTicker(time.Second)
	t.cancel, t.done = cancel, done

	t.log.Info().Str("profile", profileID).Int("minutes", minutes).Msg("sleep timer started")
	go t.countdown(ctx, ticker, done)
	return nil
}

// Stop cancels any countdown and resets to Idle.
func (t *SleepTimer) Stop() {
	t.run.Lock()
	defer t.run.Unlock()
	t.stopCountdown()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == (SleepTimerState{}) {
		return
	}
	t.state = SleepTimerState{}
	t.publish()
	t.log.Info().Msg("sleep timer stopped")
}

// State returns the current snapshot.
func (t *SleepTimer) State() SleepTimerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Subscribe returns a channel carrying the current state followed by every
// change. Slow readers only see the latest state. The returned func
// unsubscribes and closes the channel.
func (t *SleepTimer) Subscribe() (<-chan SleepTimerState, func()) {
	ch := make(chan SleepTimerState, 1)

	t.mu.Lock()
	ch <- t.state
	t.subs[ch] = struct{}{}
	t.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subs, ch)
			close(ch)
		})
	}
}

// stopCountdown cancels the running countdown and waits for it to exit.
// Callers hold t.run.
func (t *SleepTimer) stopCountdown() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done
	t.cancel, t.done = nil, nil
}

func (t *SleepTimer) countdown(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}

		t.mu.Lock()
		if ctx.Err() != nil {
			t.mu.Unlock()
			return
		}
		t.state.RemainingSeconds--
		if t.state.RemainingSeconds <= 0 {
			t.state.RemainingSeconds = 0
			t.state.Status = Expired
			t.publish()
			profileID := t.state.ProfileID
			t.mu.Unlock()
			t.log.Info().Str("profile", profileID).Msg("sleep timer expired")
			return
		}
		t.publish()
		t.mu.Unlock()
	}
}

// publish delivers the current state to every subscriber, replacing any
// value still unread. Callers hold t.mu.
func (t *SleepTimer) publish() {
	for ch := range t.subs {
		select {
		case <-ch:
		default:
		}
		ch <- t.state
	}
}
