// Package screentime derives daily time-limit status from live profile and
// watch-history streams, and runs the per-profile sleep timer.
package screentime

import (
	"context"

	"kidtube/storage"
)

// ProfileSource streams a profile; nil means the profile does not exist.
type ProfileSource interface {
	StreamProfile(ctx context.Context, id string) <-chan *storage.Profile
}

// WatchSource streams the seconds a profile has watched today.
type WatchSource interface {
	StreamWatchedSecondsToday(ctx context.Context, profileID string) <-chan int
}

// TimeLimitStatus is the derived daily allowance of a profile.
type TimeLimitStatus struct {
	// DailyLimitMinutes is nil when the profile is unrestricted.
	DailyLimitMinutes   *int `json:"daily_limit_minutes"`
	WatchedTodaySeconds int  `json:"watched_today_seconds"`
	// RemainingSeconds is nil when the profile is unrestricted.
	RemainingSeconds *int `json:"remaining_seconds"`
	IsLimitReached   bool `json:"is_limit_reached"`
}

// Compute derives the status from a profile and today's watched seconds.
// A nil profile or a nil limit is unrestricted.
func Compute(profile *storage.Profile, watched int) TimeLimitStatus {
	st := TimeLimitStatus{WatchedTodaySeconds: watched}
	if profile == nil || profile.DailyLimitMinutes == nil {
		return st
	}

	minutes := *profile.DailyLimitMinutes
	limit := minutes * 60
	remaining := max(0, limit-watched)

	st.DailyLimitMinutes = &minutes
	st.RemainingSeconds = &remaining
	st.IsLimitReached = watched >= limit
	return st
}

// Evaluator combines the two sources into a TimeLimitStatus stream.
type Evaluator struct {
	profiles ProfileSource
	history  WatchSource
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(profiles ProfileSource, history WatchSource) *Evaluator {
	return &Evaluator{profiles: profiles, history: history}
}

// Status emits once both sources have produced a value, then again on every
// later emission of either. The channel is closed when ctx is done or both
// sources are closed.
func (e *Evaluator) Status(ctx context.Context, profileID string) <-chan TimeLimitStatus {
	profiles := e.profiles.StreamProfile(ctx, profileID)
	watched := e.history.StreamWatchedSecondsToday(ctx, profileID)
	out := make(chan TimeLimitStatus)

	go func() {
		defer close(out)

		var (
			profile     *storage.Profile
			seconds     int
			haveProfile bool
			haveSeconds bool
		)
		for profiles != nil || watched != nil {
			select {
			case p, ok := <-profiles:
				if !ok {
					profiles = nil
					continue
				}
				profile, haveProfile = p, true
			case s, ok := <-watched:
				if !ok {
					watched = nil
					continue
				}
				seconds, haveSeconds = s, true
			case <-ctx.Done():
				return
			}

			if !haveProfile || !haveSeconds {
				continue
			}
			select {
			case out <- Compute(profile, seconds):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
