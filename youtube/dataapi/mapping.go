package dataapi

import (
	yt "google.golang.org/api/youtube/v3"

	"kidtube/youtube"
)

// thumbnails lists the candidates smallest first, matching the API's
// default < medium < high < standard < maxres ladder.
func thumbnails(td *yt.ThumbnailDetails) []youtube.ThumbnailCandidate {
	if td == nil {
		return nil
	}
	var out []youtube.ThumbnailCandidate
	for _, t := range []*yt.Thumbnail{td.Default, td.Medium, td.High, td.Standard, td.Maxres} {
		if t != nil {
			out = append(out, youtube.ThumbnailCandidate{URL: t.Url, Width: int(t.Width)})
		}
	}
	return out
}

func mapChannel(c *yt.Channel) *youtube.ChannelMetadata {
	m := &youtube.ChannelMetadata{YouTubeID: c.Id}
	var thumbs []youtube.ThumbnailCandidate
	if sn := c.Snippet; sn != nil {
		m.Title = sn.Title
		m.Description = sn.Description
		thumbs = thumbnails(sn.Thumbnails)
	}
	if st := c.Statistics; st != nil {
		if !st.HiddenSubscriberCount {
			m.SubscriberCount = int64(st.SubscriberCount)
		}
		m.VideoCount = int64(st.VideoCount)
	}
	if cd := c.ContentDetails; cd != nil && cd.RelatedPlaylists != nil {
		m.UploadsPlaylistID = cd.RelatedPlaylists.Uploads
	}
	m.ThumbnailURL = youtube.BestThumbnail(thumbs, c.Id)
	return m
}

func (p *Provider) mapVideo(v *yt.Video) *youtube.VideoMetadata {
	m := &youtube.VideoMetadata{YouTubeID: v.Id}
	var thumbs []youtube.ThumbnailCandidate
	if sn := v.Snippet; sn != nil {
		m.Title = sn.Title
		m.Description = sn.Description
		m.ChannelID = sn.ChannelId
		m.ChannelTitle = sn.ChannelTitle
		thumbs = thumbnails(sn.Thumbnails)
	}
	if cd := v.ContentDetails; cd != nil && cd.Duration != "" {
		d, err := parseDuration(cd.Duration)
		if err != nil {
			p.log.Debug().Str("id", v.Id).Str("duration", cd.Duration).Err(err).Msg("unparseable duration")
		}
		m.Duration = d
	}
	m.ThumbnailURL = youtube.BestThumbnail(thumbs, v.Id)
	return m
}

func mapPlaylist(pl *yt.Playlist) *youtube.PlaylistMetadata {
	m := &youtube.PlaylistMetadata{YouTubeID: pl.Id}
	var thumbs []youtube.ThumbnailCandidate
	if sn := pl.Snippet; sn != nil {
		m.Title = sn.Title
		m.Description = sn.Description
		m.ChannelID = sn.ChannelId
		m.ChannelTitle = sn.ChannelTitle
		thumbs = thumbnails(sn.Thumbnails)
	}
	m.ThumbnailURL = youtube.BestThumbnail(thumbs, pl.Id)
	return m
}

// mapPlaylistItem maps one playlist entry. Entries without a video ID
// (deleted or private videos) are skipped.
func mapPlaylistItem(item *yt.PlaylistItem) (youtube.VideoMetadata, bool) {
	if item == nil {
		return youtube.VideoMetadata{}, false
	}
	var id string
	if item.ContentDetails != nil {
		id = item.ContentDetails.VideoId
	}
	if id == "" && item.Snippet != nil && item.Snippet.ResourceId != nil {
		id = item.Snippet.ResourceId.VideoId
	}
	if id == "" {
		return youtube.VideoMetadata{}, false
	}

	v := youtube.VideoMetadata{YouTubeID: id}
	var thumbs []youtube.ThumbnailCandidate
	if sn := item.Snippet; sn != nil {
		v.Title = sn.Title
		v.Description = sn.Description
		v.ChannelID = sn.VideoOwnerChannelId
		v.ChannelTitle = sn.VideoOwnerChannelTitle
		if v.ChannelID == "" {
			v.ChannelID = sn.ChannelId
			v.ChannelTitle = sn.ChannelTitle
		}
		thumbs = thumbnails(sn.Thumbnails)
	}
	v.ThumbnailURL = youtube.BestThumbnail(thumbs, id)
	return v, true
}
