// Package oembed is the embed-metadata provider. Videos and playlists are
// looked up through the platform's unauthenticated oEmbed endpoint; channels
// are read from the Open Graph tags of the public channel page.
package oembed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	kthttp "kidtube/http"
	"kidtube/youtube"
)

const (
	name = "oembed"

	// DefaultBaseURL serves both /oembed and the channel pages.
	DefaultBaseURL = "https://www.youtube.com"
)

// Provider implements youtube.Provider over oEmbed and channel pages.
type Provider struct {
	client      *kthttp.Client
	baseURL     string
	pageBaseURL string
	log         zerolog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithBaseURL sets the host serving /oembed.
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		if u != "" {
			p.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithPageBaseURL sets the host serving channel pages.
func WithPageBaseURL(u string) Option {
	return func(p *Provider) {
		if u != "" {
			p.pageBaseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Provider) {
		p.log = log.With().Str("component", "oembed").Logger()
	}
}

// New creates the provider on top of a shared HTTP client.
func New(client *kthttp.Client, opts ...Option) *Provider {
	p := &Provider{
		client:      client,
		baseURL:     DefaultBaseURL,
		pageBaseURL: DefaultBaseURL,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements youtube.Provider.
func (p *Provider) Name() string { return name }

// response is the oEmbed JSON body. Every field is optional.
type response struct {
	Title          string `json:"title"`
	AuthorName     string `json:"author_name"`
	AuthorURL      string `json:"author_url"`
	ThumbnailURL   string `json:"thumbnail_url"`
	ThumbnailWidth int    `json:"thumbnail_width"`
}

// Video implements youtube.Provider.
func (p *Provider) Video(ctx context.Context, id string) (*youtube.VideoMetadata, error) {
	ref := youtube.ContentReference{Kind: youtube.KindVideo, ID: id}
	r, err := p.fetch(ctx, ref)
	if err != nil {
		return nil, youtube.NewProviderError(name, "video", id, err)
	}
	return &youtube.VideoMetadata{
		YouTubeID:    id,
		Title:        r.Title,
		ThumbnailURL: thumbnail(r, id),
		ChannelID:    ChannelIDFromAuthorURL(r.AuthorURL),
		ChannelTitle: r.AuthorName,
	}, nil
}

// Playlist implements youtube.Provider.
func (p *Provider) Playlist(ctx context.Context, id string) (*youtube.PlaylistMetadata, error) {
	ref := youtube.ContentReference{Kind: youtube.KindPlaylist, ID: id}
	r, err := p.fetch(ctx, ref)
	if err != nil {
		return nil, youtube.NewProviderError(name, "playlist", id, err)
	}
	return &youtube.PlaylistMetadata{
		YouTubeID:    id,
		Title:        r.Title,
		ThumbnailURL: thumbnail(r, id),
		ChannelID:    ChannelIDFromAuthorURL(r.AuthorURL),
		ChannelTitle: r.AuthorName,
	}, nil
}

func (p *Provider) fetch(ctx context.Context, ref youtube.ContentReference) (*response, error) {
	q := url.Values{}
	q.Set("url", ref.URL())
	q.Set("format", "json")
	endpoint := p.baseURL + "/oembed?" + q.Encode()

	var r response
	if err := p.client.GetJSON(ctx, endpoint, &r); err != nil {
		return nil, classify(err)
	}
	if strings.TrimSpace(r.Title) == "" {
		return nil, fmt.Errorf("%w: empty title", youtube.ErrMalformed)
	}
	return &r, nil
}

func thumbnail(r *response, id string) string {
	return youtube.BestThumbnail([]youtube.ThumbnailCandidate{{URL: r.ThumbnailURL, Width: r.ThumbnailWidth}}, id)
}

// ChannelIDFromAuthorURL returns the path segment following /channel/ in
// an author URL, or "" when there is none.
func ChannelIDFromAuthorURL(authorURL string) string {
	u, err := url.Parse(authorURL)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "channel" {
			return parts[i+1]
		}
	}
	return ""
}

// classify maps transport errors onto the youtube sentinels.
func classify(err error) error {
	var decodeErr *kthttp.DecodeError
	switch {
	case errors.As(err, &decodeErr):
		return fmt.Errorf("%w: %w", youtube.ErrMalformed, err)
	case kthttp.IsRateLimited(err):
		return fmt.Errorf("%w: %w", youtube.ErrRateLimited, err)
	}
	switch kthttp.StatusCode(err) {
	case http.StatusNotFound, http.StatusUnauthorized, http.StatusForbidden, http.StatusBadRequest:
		// oEmbed answers 401/403 for private or non-embeddable content.
		return fmt.Errorf("%w: %w", youtube.ErrNotFound, err)
	}
	return err
}
