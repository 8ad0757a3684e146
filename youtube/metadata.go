package youtube

import "time"

// Metadata is the unified result of a resolution. Its concrete type is one
// of *ChannelMetadata, *VideoMetadata or *PlaylistMetadata.
type Metadata interface {
	// ID returns the platform ID.
	ID() string
	// DisplayTitle returns the title shown to the child.
	DisplayTitle() string
	// Thumbnail returns the thumbnail URL.
	Thumbnail() string
	// Kind is used as the whitelist content-type tag.
	Kind() ContentKind

	isMetadata()
}

// ChannelMetadata describes a channel.
type ChannelMetadata struct {
	YouTubeID         string `json:"youtube_id"`
	Title             string `json:"title"`
	ThumbnailURL      string `json:"thumbnail_url"`
	Description       string `json:"description,omitempty"`
	SubscriberCount   int64  `json:"subscriber_count,omitempty"`
	VideoCount        int64  `json:"video_count,omitempty"`
	UploadsPlaylistID string `json:"uploads_playlist_id,omitempty"`
}

// VideoMetadata describes a single video.
type VideoMetadata struct {
	YouTubeID    string        `json:"youtube_id"`
	Title        string        `json:"title"`
	ThumbnailURL string        `json:"thumbnail_url"`
	ChannelID    string        `json:"channel_id,omitempty"`
	ChannelTitle string        `json:"channel_title,omitempty"`
	Description  string        `json:"description,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
}

// PlaylistMetadata describes a playlist.
type PlaylistMetadata struct {
	YouTubeID    string `json:"youtube_id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
	ChannelID    string `json:"channel_id,omitempty"`
	ChannelTitle string `json:"channel_title,omitempty"`
	Description  string `json:"description,omitempty"`
}

func (m *ChannelMetadata) ID() string           { return m.YouTubeID }
func (m *ChannelMetadata) DisplayTitle() string { return m.Title }
func (m *ChannelMetadata) Thumbnail() string    { return m.ThumbnailURL }
func (m *ChannelMetadata) Kind() ContentKind    { return KindChannel }
func (*ChannelMetadata) isMetadata()            {}

func (m *VideoMetadata) ID() string           { return m.YouTubeID }
func (m *VideoMetadata) DisplayTitle() string { return m.Title }
func (m *VideoMetadata) Thumbnail() string    { return m.ThumbnailURL }
func (m *VideoMetadata) Kind() ContentKind    { return KindVideo }
func (*VideoMetadata) isMetadata()            {}

func (m *PlaylistMetadata) ID() string           { return m.YouTubeID }
func (m *PlaylistMetadata) DisplayTitle() string { return m.Title }
func (m *PlaylistMetadata) Thumbnail() string    { return m.ThumbnailURL }
func (m *PlaylistMetadata) Kind() ContentKind    { return KindPlaylist }
func (*PlaylistMetadata) isMetadata()            {}

// URL returns the canonical watch URL of the video.
func (m *VideoMetadata) URL() string {
	return ContentReference{Kind: KindVideo, ID: m.YouTubeID}.URL()
}
