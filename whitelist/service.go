// Package whitelist adds parent-approved content to a child profile and
// serves the video listings of approved channels.
package whitelist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"kidtube/cache"
	"kidtube/storage"
	"kidtube/youtube"
)

var (
	// ErrUnrecognizedURL is returned when a URL is not a supported platform link.
	ErrUnrecognizedURL = errors.New("whitelist: unrecognized url")
	// ErrNoLister is returned by ChannelVideos when no lister is configured.
	ErrNoLister = errors.New("whitelist: no video lister configured")
)

// Resolver turns a content reference into metadata. *youtube.Resolver
// implements it.
type Resolver interface {
	Resolve(ctx context.Context, ref youtube.ContentReference) (youtube.Metadata, error)
}

// Service is the entry point used by the CLI.
type Service struct {
	resolver Resolver
	store    storage.WhitelistStore
	listers  []youtube.VideoLister
	cache    cache.Cache
	cacheTTL time.Duration
	log      zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithListers sets the channel video listers in fallback order.
func WithListers(listers ...youtube.VideoLister) Option {
	return func(s *Service) {
		for _, l := range listers {
			if l != nil {
				s.listers = append(s.listers, l)
			}
		}
	}
}

// WithCache routes ChannelVideos through c.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) {
		s.log = log.With().Str("component", "whitelist").Logger()
	}
}

// NewService creates a Service.
func NewService(resolver Resolver, store storage.WhitelistStore, opts ...Option) *Service {
	s := &Service{
		resolver: resolver,
		store:    store,
		cacheTTL: cache.DefaultTTL,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddFromURL parses rawURL, resolves it and saves the result for profileID.
func (s *Service) AddFromURL(ctx context.Context, profileID, rawURL string) (*storage.WhitelistItem, error) {
	ref, ok := youtube.ParseURL(rawURL)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedURL, rawURL)
	}

	m, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		s.log.Info().Str("ref", ref.String()).Err(err).Msg("resolve failed")
		return nil, err
	}

	item, err := s.store.CreateItem(ctx, profileID, m)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("profile", profileID).
		Str("id", item.YouTubeID).
		Str("kind", item.Kind.String()).
		Str("title", item.Title).
		Msg("content approved")
	return item, nil
}

// List returns the approved content of a profile.
func (s *Service) List(ctx context.Context, profileID string) ([]*storage.WhitelistItem, error) {
	return s.store.ListItems(ctx, profileID)
}

// Remove deletes an approved entry by its internal ID.
func (s *Service) Remove(ctx context.Context, itemID string) error {
	return s.store.DeleteItem(ctx, itemID)
}

// ChannelVideos lists the recent videos of an approved channel. Listers are
// tried in order; a fresh cached listing skips them entirely.
func (s *Service) ChannelVideos(ctx context.Context, channelID string, opts *youtube.ListOptions) ([]youtube.VideoMetadata, error) {
	if len(s.listers) == 0 {
		return nil, ErrNoLister
	}

	cacheKey := channelID
	if opts != nil && opts.MaxResults > 0 {
		cacheKey = fmt.Sprintf("%s:%d", channelID, opts.MaxResults)
	}

	if s.cache != nil {
		videos, ok, err := s.cache.Get(ctx, cacheKey)
		switch {
		case err != nil:
			s.log.Warn().Str("channel", channelID).Err(err).Msg("cache read failed")
		case ok:
			s.log.Debug().Str("channel", channelID).Int("videos", len(videos)).Msg("cache hit")
			return videos, nil
		}
	}

	var lastErr error
	for i, l := range s.listers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		videos, err := l.ListVideos(ctx, channelID, opts)
		if err != nil {
			s.log.Debug().Int("lister", i).Str("channel", channelID).Err(err).Msg("listing failed")
			lastErr = err
			continue
		}

		if s.cache != nil {
			if err := s.cache.Set(ctx, cacheKey, videos, s.cacheTTL); err != nil {
				s.log.Warn().Str("channel", channelID).Err(err).Msg("cache write failed")
			}
		}
		return videos, nil
	}
	return nil, fmt.Errorf("whitelist: list videos of %s: %w", channelID, lastErr)
}
