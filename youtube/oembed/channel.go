package oembed

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"kidtube/youtube"
)

// Channel reads the channel page of a UC... ID.
func (p *Provider) Channel(ctx context.Context, id string) (*youtube.ChannelMetadata, error) {
	return p.channelPage(ctx, "channel", id, "/channel/"+url.PathEscape(id))
}

// ChannelByHandle reads the channel page of an @handle.
func (p *Provider) ChannelByHandle(ctx context.Context, handle string) (*youtube.ChannelMetadata, error) {
	return p.channelPage(ctx, "handle", handle, "/@"+url.PathEscape(handle))
}

// ChannelByCustomName reads the channel page of a legacy /c/ name.
func (p *Provider) ChannelByCustomName(ctx context.Context, customName string) (*youtube.ChannelMetadata, error) {
	return p.channelPage(ctx, "custom", customName, "/c/"+url.PathEscape(customName))
}

func (p *Provider) channelPage(ctx context.Context, op, key, path string) (*youtube.ChannelMetadata, error) {
	resp, err := p.client.Do(ctx, http.MethodGet, p.pageBaseURL+path, map[string]string{
		"Accept":          "text/html",
		"Accept-Language": "en",
	})
	if err != nil {
		return nil, youtube.NewProviderError(name, op, key, classify(err))
	}

	m, err := parseChannelPage(resp.Body)
	if err != nil {
		return nil, youtube.NewProviderError(name, op, key, err)
	}
	p.log.Debug().Str("op", op).Str("id", key).Str("channel", m.YouTubeID).Msg("channel page parsed")
	return m, nil
}

// parseChannelPage extracts channel metadata from Open Graph and microdata
// tags. The channel ID is required; everything else is best effort.
func parseChannelPage(html []byte) (*youtube.ChannelMetadata, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parse channel page: %w", youtube.ErrMalformed, err)
	}

	id := metaContent(doc, `meta[itemprop="identifier"]`)
	if id == "" {
		id = metaContent(doc, `meta[itemprop="channelId"]`)
	}
	if id == "" {
		if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
			id = ChannelIDFromAuthorURL(href)
		}
	}
	if id == "" {
		if content := metaContent(doc, `meta[property="og:url"]`); content != "" {
			id = ChannelIDFromAuthorURL(content)
		}
	}
	if id == "" {
		return nil, fmt.Errorf("%w: no channel id on page", youtube.ErrNotFound)
	}

	title := metaContent(doc, `meta[property="og:title"]`)
	if title == "" {
		title = metaContent(doc, `meta[itemprop="name"]`)
	}
	if title == "" {
		title = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(doc.Find("title").First().Text()), "- YouTube"))
	}

	var thumbs []youtube.ThumbnailCandidate
	if img := metaContent(doc, `meta[property="og:image"]`); img != "" {
		thumbs = append(thumbs, youtube.ThumbnailCandidate{URL: img})
	}

	return &youtube.ChannelMetadata{
		YouTubeID:    id,
		Title:        title,
		ThumbnailURL: youtube.BestThumbnail(thumbs, id),
		Description:  metaContent(doc, `meta[property="og:description"]`),
	}, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(v)
}
