// Package dataapi is the primary metadata provider, backed by the YouTube
// Data API v3.
package dataapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"kidtube/internal/retry"
	"kidtube/youtube"
)

const (
	name = "dataapi"

	// DefaultRPS paces calls to stay well inside the daily quota.
	DefaultRPS = 5.0
	// maxPageSize is the largest page the API returns.
	maxPageSize = 50
	// defaultListSize is used when ListOptions.MaxResults is 0.
	defaultListSize = 50
)

var (
	channelParts  = []string{"snippet", "statistics", "contentDetails"}
	videoParts    = []string{"snippet", "contentDetails"}
	playlistParts = []string{"snippet"}
)

// Provider implements youtube.Provider and youtube.VideoLister on the Data API.
type Provider struct {
	service *yt.Service
	limiter *rate.Limiter
	retry   retry.Config
	log     zerolog.Logger
}

type settings struct {
	httpClient *http.Client
	endpoint   string
	rps        float64
	retry      retry.Config
	log        zerolog.Logger
}

// Option configures a Provider.
type Option func(*settings)

// WithHTTPClient sets the client whose transport is wrapped with the key
// transport. Defaults to a client with a 15s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) { s.httpClient = hc }
}

// WithEndpoint overrides the API base URL (tests).
func WithEndpoint(endpoint string) Option {
	return func(s *settings) { s.endpoint = endpoint }
}

// WithRPS sets the request pacing. 0 disables pacing.
func WithRPS(rps float64) Option {
	return func(s *settings) { s.rps = rps }
}

// WithRetry sets the retry policy for transient API errors.
func WithRetry(cfg retry.Config) Option {
	return func(s *settings) { s.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *settings) { s.log = log }
}

// New creates a Data API provider. The key is attached by a KeyTransport.
func New(ctx context.Context, apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("dataapi: api key required")
	}

	s := settings{
		rps:   DefaultRPS,
		retry: retry.DefaultConfig(),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	hc := &http.Client{Timeout: 15 * time.Second}
	if s.httpClient != nil {
		cp := *s.httpClient
		hc = &cp
	}
	hc.Transport = &KeyTransport{Key: apiKey, Base: hc.Transport}

	clientOpts := []option.ClientOption{option.WithHTTPClient(hc)}
	if s.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(s.endpoint))
	}
	service, err := yt.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if s.rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.rps), 1)
	}

	return &Provider{
		service: service,
		limiter: limiter,
		retry:   s.retry,
		log:     s.log.With().Str("component", "dataapi").Logger(),
	}, nil
}

// Name implements youtube.Provider.
func (p *Provider) Name() string { return name }

// Channel looks a channel up by its UC... ID.
func (p *Provider) Channel(ctx context.Context, id string) (*youtube.ChannelMetadata, error) {
	return p.channel(ctx, "channel", id, func(c *yt.ChannelsListCall) *yt.ChannelsListCall { return c.Id(id) })
}

// ChannelByHandle looks a channel up by its @handle.
func (p *Provider) ChannelByHandle(ctx context.Context, handle string) (*youtube.ChannelMetadata, error) {
	return p.channel(ctx, "handle", handle, func(c *yt.ChannelsListCall) *yt.ChannelsListCall { return c.ForHandle("@" + handle) })
}

// ChannelByCustomName looks up a legacy username / custom name.
func (p *Provider) ChannelByCustomName(ctx context.Context, username string) (*youtube.ChannelMetadata, error) {
	return p.channel(ctx, "custom", username, func(c *yt.ChannelsListCall) *yt.ChannelsListCall { return c.ForUsername(username) })
}

func (p *Provider) channel(ctx context.Context, op, key string, filter func(*yt.ChannelsListCall) *yt.ChannelsListCall) (*youtube.ChannelMetadata, error) {
	var resp *yt.ChannelListResponse
	err := p.call(ctx, func(ctx context.Context) error {
		var err error
		resp, err = filter(p.service.Channels.List(channelParts)).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, youtube.NewProviderError(name, op, key, err)
	}
	if len(resp.Items) == 0 || resp.Items[0] == nil {
		return nil, youtube.NewProviderError(name, op, key, youtube.ErrNotFound)
	}
	return mapChannel(resp.Items[0]), nil
}

// Video looks a video up by ID.
func (p *Provider) Video(ctx context.Context, id string) (*youtube.VideoMetadata, error) {
	var resp *yt.VideoListResponse
	err := p.call(ctx, func(ctx context.Context) error {
		var err error
		resp, err = p.service.Videos.List(videoParts).Id(id).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, youtube.NewProviderError(name, "video", id, err)
	}
	if len(resp.Items) == 0 || resp.Items[0] == nil {
		return nil, youtube.NewProviderError(name, "video", id, youtube.ErrNotFound)
	}
	return p.mapVideo(resp.Items[0]), nil
}

// Playlist looks a playlist up by ID.
func (p *Provider) Playlist(ctx context.Context, id string) (*youtube.PlaylistMetadata, error) {
	var resp *yt.PlaylistListResponse
	err := p.call(ctx, func(ctx context.Context) error {
		var err error
		resp, err = p.service.Playlists.List(playlistParts).Id(id).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, youtube.NewProviderError(name, "playlist", id, err)
	}
	if len(resp.Items) == 0 || resp.Items[0] == nil {
		return nil, youtube.NewProviderError(name, "playlist", id, youtube.ErrNotFound)
	}
	return mapPlaylist(resp.Items[0]), nil
}

// ListVideos lists a channel's uploads, newest first.
func (p *Provider) ListVideos(ctx context.Context, channelID string, opts *youtube.ListOptions) ([]youtube.VideoMetadata, error) {
	ch, err := p.Channel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ch.UploadsPlaylistID == "" {
		return nil, youtube.NewProviderError(name, "list", channelID, youtube.ErrNotFound)
	}
	return p.PlaylistVideos(ctx, ch.UploadsPlaylistID, opts)
}

// PlaylistVideos pages through a playlist's items.
func (p *Provider) PlaylistVideos(ctx context.Context, playlistID string, opts *youtube.ListOptions) ([]youtube.VideoMetadata, error) {
	limit := defaultListSize
	if opts != nil && opts.MaxResults > 0 {
		limit = opts.MaxResults
	}

	var videos []youtube.VideoMetadata
	pageToken := ""
	for len(videos) < limit {
		var resp *yt.PlaylistItemListResponse
		err := p.call(ctx, func(ctx context.Context) error {
			call := p.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
				PlaylistId(playlistID).
				MaxResults(int64(min(maxPageSize, limit-len(videos))))
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var err error
			resp, err = call.Context(ctx).Do()
			return err
		})
		if err != nil {
			return nil, youtube.NewProviderError(name, "list", playlistID, err)
		}

		for _, item := range resp.Items {
			if v, ok := mapPlaylistItem(item); ok {
				videos = append(videos, v)
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	if len(videos) > limit {
		videos = videos[:limit]
	}
	p.log.Debug().Str("playlist", playlistID).Int("videos", len(videos)).Msg("listed playlist")
	return videos, nil
}

// SearchChannels returns up to limit channels matching query, with strict
// safe search.
func (p *Provider) SearchChannels(ctx context.Context, query string, limit int) ([]youtube.ChannelMetadata, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	var resp *yt.SearchListResponse
	err := p.call(ctx, func(ctx context.Context) error {
		var err error
		resp, err = p.service.Search.List([]string{"snippet"}).
			Q(query).
			Type("channel").
			SafeSearch("strict").
			MaxResults(int64(limit)).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, youtube.NewProviderError(name, "search", query, err)
	}

	channels := make([]youtube.ChannelMetadata, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || item.Id == nil || item.Id.ChannelId == "" {
			continue
		}
		c := youtube.ChannelMetadata{YouTubeID: item.Id.ChannelId}
		if sn := item.Snippet; sn != nil {
			c.Title = sn.Title
			c.Description = sn.Description
			c.ThumbnailURL = youtube.BestThumbnail(thumbnails(sn.Thumbnails), c.YouTubeID)
		} else {
			c.ThumbnailURL = youtube.FallbackThumbnail(c.YouTubeID)
		}
		channels = append(channels, c)
	}
	return channels, nil
}

// call paces, retries and classifies a single API request.
func (p *Provider) call(ctx context.Context, fn func(context.Context) error) error {
	err := retry.Do(ctx, p.retry, isRetryable, func(ctx context.Context) error {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
		return fn(ctx)
	})
	return classify(err)
}

// isRetryable retries server errors only. Quota errors persist until the
// daily reset and 4xx answers do not change on retry.
func isRetryable(err error) bool {
	if !retry.IsRetryable(err) {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code >= 500
	}
	return true
}

// classify maps API errors onto the youtube sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	switch {
	case gerr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", youtube.ErrRateLimited, err)
	case gerr.Code == http.StatusForbidden && hasReason(gerr, "quotaExceeded", "rateLimitExceeded", "userRateLimitExceeded", "dailyLimitExceeded"):
		return fmt.Errorf("%w: %w", youtube.ErrRateLimited, err)
	case gerr.Code == http.StatusNotFound:
		return fmt.Errorf("%w: %w", youtube.ErrNotFound, err)
	}
	return err
}

func hasReason(gerr *googleapi.Error, reasons ...string) bool {
	for _, item := range gerr.Errors {
		for _, r := range reasons {
			if item.Reason == r {
				return true
			}
		}
	}
	return false
}
