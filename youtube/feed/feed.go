// Package feed lists a channel's recent uploads from its public Atom feed.
// The feed carries at most the 15 newest videos and needs no API key, so it
// backs channel browsing when the Data API is unavailable.
package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	kthttp "kidtube/http"
	"kidtube/youtube"
)

// DefaultBaseURL is the platform host serving channel feeds.
const DefaultBaseURL = "https://www.youtube.com"

// Lister implements youtube.VideoLister using channel Atom feeds.
type Lister struct {
	client  *kthttp.Client
	baseURL string
}

// New creates a feed lister. An empty baseURL selects DefaultBaseURL.
func New(client *kthttp.Client, baseURL string) *Lister {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Lister{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// Name identifies the lister in errors.
func (l *Lister) Name() string { return "feed" }

// ListVideos fetches the channel feed. channelID must be a UC... ID;
// handles need resolving first.
func (l *Lister) ListVideos(ctx context.Context, channelID string, opts *youtube.ListOptions) ([]youtube.VideoMetadata, error) {
	if !strings.HasPrefix(channelID, "UC") {
		return nil, youtube.NewProviderError(l.Name(), "list", channelID,
			fmt.Errorf("%w: feed needs a channel ID", youtube.ErrInvalidURL))
	}

	feedURL := l.baseURL + "/feeds/videos.xml?channel_id=" + url.QueryEscape(channelID)
	resp, err := l.client.Get(ctx, feedURL)
	if err != nil {
		return nil, youtube.NewProviderError(l.Name(), "list", channelID, classify(err))
	}

	feed, err := parseAtomFeed(resp.Body)
	if err != nil {
		return nil, youtube.NewProviderError(l.Name(), "list", channelID, err)
	}

	videos := feedToVideos(feed, channelID)
	if opts != nil && opts.MaxResults > 0 && len(videos) > opts.MaxResults {
		videos = videos[:opts.MaxResults]
	}
	return videos, nil
}

func classify(err error) error {
	switch {
	case kthttp.StatusCode(err) == http.StatusNotFound:
		return fmt.Errorf("%w: %w", youtube.ErrNotFound, err)
	case kthttp.IsRateLimited(err):
		return fmt.Errorf("%w: %w", youtube.ErrRateLimited, err)
	default:
		return err
	}
}

// atomFeed is the subset of the channel feed we read.
type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Author  atomAuthor  `xml:"author"`
	Entries []atomEntry `xml:"entry"`
}

type atomAuthor struct {
	Name string `xml:"name"`
	URI  string `xml:"uri"`
}

type atomEntry struct {
	VideoID     string        `xml:"http://www.youtube.com/xml/schemas/2015 videoId"`
	ChannelID   string        `xml:"http://www.youtube.com/xml/schemas/2015 channelId"`
	Title       string        `xml:"title"`
	Published   time.Time     `xml:"published"`
	Description string        `xml:"group>description"`
	Thumbnail   atomThumbnail `xml:"group>thumbnail"`
}

type atomThumbnail struct {
	URL   string `xml:"url,attr"`
	Width int    `xml:"width,attr"`
}

func parseAtomFeed(data []byte) (*atomFeed, error) {
	var feed atomFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("%w: parse atom feed: %w", youtube.ErrMalformed, err)
	}
	return &feed, nil
}

func feedToVideos(feed *atomFeed, channelID string) []youtube.VideoMetadata {
	videos := make([]youtube.VideoMetadata, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		if entry.VideoID == "" {
			continue
		}
		thumb := youtube.BestThumbnail([]youtube.ThumbnailCandidate{
			{URL: entry.Thumbnail.URL, Width: entry.Thumbnail.Width},
		}, entry.VideoID)
		videos = append(videos, youtube.VideoMetadata{
			YouTubeID:    entry.VideoID,
			Title:        entry.Title,
			ThumbnailURL: thumb,
			ChannelID:    channelID,
			ChannelTitle: feed.Author.Name,
			Description:  entry.Description,
		})
	}
	return videos
}
