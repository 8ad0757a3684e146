// Package invidious is the mirror-network provider. Each call goes to the
// instance handed out by a health.Tracker, and the outcome is reported back
// so failing instances leave the rotation.
package invidious

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"kidtube/health"
	kthttp "kidtube/http"
	"kidtube/youtube"
)

const name = "invidious"

// DefaultInstances is the pool used when none is configured.
var DefaultInstances = []string{
	"yewtu.be",
	"inv.nadeko.net",
	"invidious.nerdvpn.de",
	"invidious.privacyredirect.com",
}

// Provider implements youtube.Provider against a pool of Invidious instances.
type Provider struct {
	client      *kthttp.Client
	tracker     *health.Tracker
	maxAttempts int
	log         zerolog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithMaxAttempts sets how many instances a single call may try before
// giving up. Defaults to 1; the resolver treats the provider as one attempt.
func WithMaxAttempts(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Provider) {
		p.log = log.With().Str("component", "invidious").Logger()
	}
}

// New creates the provider. The client should be configured without
// retries; moving to the next instance is the retry strategy.
func New(client *kthttp.Client, tracker *health.Tracker, opts ...Option) *Provider {
	p := &Provider{
		client:      client,
		tracker:     tracker,
		maxAttempts: 1,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements youtube.Provider.
func (p *Provider) Name() string { return name }

// Channel implements youtube.Provider.
func (p *Provider) Channel(ctx context.Context, id string) (*youtube.ChannelMetadata, error) {
	c, instance, err := get(ctx, p, "/api/v1/channels/"+url.PathEscape(id), func(c *channelResponse) error {
		if c.AuthorID == "" {
			return fmt.Errorf("%w: channel without authorId", youtube.ErrMalformed)
		}
		return nil
	})
	if err != nil {
		return nil, youtube.NewProviderError(name, "channel", id, err)
	}
	return c.toMetadata(instance), nil
}

// ChannelByHandle implements youtube.Provider by resolving the handle URL
// to a channel ID first.
func (p *Provider) ChannelByHandle(ctx context.Context, handle string) (*youtube.ChannelMetadata, error) {
	return p.channelByURL(ctx, "handle", handle, youtube.ContentReference{Kind: youtube.KindChannelHandle, ID: handle})
}

// ChannelByCustomName resolves a legacy /c/ name.
func (p *Provider) ChannelByCustomName(ctx context.Context, customName string) (*youtube.ChannelMetadata, error) {
	return p.channelByURL(ctx, "custom", customName, youtube.ContentReference{Kind: youtube.KindChannelCustomName, ID: customName})
}

func (p *Provider) channelByURL(ctx context.Context, op, key string, ref youtube.ContentReference) (*youtube.ChannelMetadata, error) {
	r, _, err := get(ctx, p, "/api/v1/resolveurl?url="+url.QueryEscape(ref.URL()), func(r *resolveResponse) error {
		if r.UCID == "" {
			return fmt.Errorf("%w: resolveurl without ucid", youtube.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, youtube.NewProviderError(name, op, key, err)
	}
	return p.Channel(ctx, r.UCID)
}

// Video implements youtube.Provider.
func (p *Provider) Video(ctx context.Context, id string) (*youtube.VideoMetadata, error) {
	v, instance, err := get(ctx, p, "/api/v1/videos/"+url.PathEscape(id), func(v *videoResponse) error {
		if v.Title == "" {
			return fmt.Errorf("%w: video without title", youtube.ErrMalformed)
		}
		return nil
	})
	if err != nil {
		return nil, youtube.NewProviderError(name, "video", id, err)
	}
	return v.toMetadata(id, instance), nil
}

// Playlist implements youtube.Provider.
func (p *Provider) Playlist(ctx context.Context, id string) (*youtube.PlaylistMetadata, error) {
	pl, instance, err := get(ctx, p, "/api/v1/playlists/"+url.PathEscape(id), func(pl *playlistResponse) error {
		if pl.Title == "" {
			return fmt.Errorf("%w: playlist without title", youtube.ErrMalformed)
		}
		return nil
	})
	if err != nil {
		return nil, youtube.NewProviderError(name, "playlist", id, err)
	}
	return pl.toMetadata(id, instance), nil
}

// get fetches path from a healthy instance and reports the outcome to the
// tracker. Each attempt decodes into a fresh T, so a failed instance never
// leaks fields into the next answer. validate runs after a successful
// decode; its failure counts against the instance too. It returns the
// instance that answered.
func get[T any](ctx context.Context, p *Provider, path string, validate func(*T) error) (*T, string, error) {
	var lastErr error
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		instance, ok := p.tracker.HealthyInstance()
		if !ok {
			if lastErr != nil {
				return nil, "", fmt.Errorf("%w (last error: %w)", youtube.ErrPoolExhausted, lastErr)
			}
			return nil, "", youtube.ErrPoolExhausted
		}

		v := new(T)
		err := p.client.GetJSON(ctx, instance+path, v)
		if err == nil && validate != nil {
			err = validate(v)
		}
		if err == nil {
			p.tracker.ReportSuccess(instance)
			return v, instance, nil
		}

		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		p.tracker.ReportFailure(instance)
		p.log.Debug().Str("host", instance).Str("path", path).Err(err).Msg("instance failed")
		lastErr = classify(err)
	}
	return nil, "", lastErr
}

func classify(err error) error {
	var decodeErr *kthttp.DecodeError
	switch {
	case errors.As(err, &decodeErr):
		return fmt.Errorf("%w: %w", youtube.ErrMalformed, err)
	case kthttp.IsRateLimited(err):
		return fmt.Errorf("%w: %w", youtube.ErrRateLimited, err)
	case kthttp.StatusCode(err) == http.StatusNotFound:
		return fmt.Errorf("%w: %w", youtube.ErrNotFound, err)
	}
	return err
}

// absoluteURL makes instance-relative and protocol-relative URLs absolute.
func absoluteURL(instance, u string) string {
	switch {
	case u == "":
		return ""
	case strings.HasPrefix(u, "//"):
		return "https:" + u
	case strings.HasPrefix(u, "/"):
		return strings.TrimRight(instance, "/") + u
	}
	return u
}
