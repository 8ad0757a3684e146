package invidious

import (
	"time"

	"kidtube/youtube"
)

type thumbnail struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

type channelResponse struct {
	Author           string      `json:"author"`
	AuthorID         string      `json:"authorId"`
	AuthorThumbnails []thumbnail `json:"authorThumbnails"`
	Description      string      `json:"description"`
	SubCount         int64       `json:"subCount"`
}

type videoResponse struct {
	VideoID         string      `json:"videoId"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Author          string      `json:"author"`
	AuthorID        string      `json:"authorId"`
	LengthSeconds   int64       `json:"lengthSeconds"`
	VideoThumbnails []thumbnail `json:"videoThumbnails"`
}

type playlistResponse struct {
	PlaylistID        string `json:"playlistId"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	Author            string `json:"author"`
	AuthorID          string `json:"authorId"`
	PlaylistThumbnail string `json:"playlistThumbnail"`
	VideoCount        int64  `json:"videoCount"`
	Videos            []struct {
		VideoThumbnails []thumbnail `json:"videoThumbnails"`
	} `json:"videos"`
}

type resolveResponse struct {
	UCID     string `json:"ucid"`
	PageType string `json:"pageType"`
}

func candidates(instance string, thumbs []thumbnail) []youtube.ThumbnailCandidate {
	out := make([]youtube.ThumbnailCandidate, 0, len(thumbs))
	for _, t := range thumbs {
		out = append(out, youtube.ThumbnailCandidate{URL: absoluteURL(instance, t.URL), Width: t.Width})
	}
	return out
}

func (c *channelResponse) toMetadata(instance string) *youtube.ChannelMetadata {
	return &youtube.ChannelMetadata{
		YouTubeID:       c.AuthorID,
		Title:           c.Author,
		ThumbnailURL:    youtube.BestThumbnail(candidates(instance, c.AuthorThumbnails), c.AuthorID),
		Description:     c.Description,
		SubscriberCount: c.SubCount,
	}
}

func (v *videoResponse) toMetadata(id, instance string) *youtube.VideoMetadata {
	if v.VideoID != "" {
		id = v.VideoID
	}
	return &youtube.VideoMetadata{
		YouTubeID:    id,
		Title:        v.Title,
		ThumbnailURL: youtube.BestThumbnail(candidates(instance, v.VideoThumbnails), id),
		ChannelID:    v.AuthorID,
		ChannelTitle: v.Author,
		Description:  v.Description,
		Duration:     time.Duration(v.LengthSeconds) * time.Second,
	}
}

func (pl *playlistResponse) toMetadata(id, instance string) *youtube.PlaylistMetadata {
	if pl.PlaylistID != "" {
		id = pl.PlaylistID
	}
	var thumbs []youtube.ThumbnailCandidate
	if pl.PlaylistThumbnail != "" {
		thumbs = append(thumbs, youtube.ThumbnailCandidate{URL: absoluteURL(instance, pl.PlaylistThumbnail)})
	}
	if len(pl.Videos) > 0 {
		thumbs = append(thumbs, candidates(instance, pl.Videos[0].VideoThumbnails)...)
	}
	return &youtube.PlaylistMetadata{
		YouTubeID:    id,
		Title:        pl.Title,
		ThumbnailURL: youtube.BestThumbnail(thumbs, id),
		ChannelID:    pl.AuthorID,
		ChannelTitle: pl.Author,
		Description:  pl.Description,
	}
}
