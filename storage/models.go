package storage

import (
	"time"

	"kidtube/youtube"
)

// Profile is a child profile.
type Profile struct {
	// ID is the internal unique identifier (UUID).
	ID string `json:"id"`
	// Name is the display name chosen by the parent.
	Name string `json:"name"`
	// DailyLimitMinutes is the daily viewing allowance. Nil means unrestricted.
	DailyLimitMinutes *int `json:"daily_limit_minutes,omitempty"`
	// CreatedAt is when the profile was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the profile was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// WhitelistItem is an approved channel, video or playlist for one profile.
type WhitelistItem struct {
	// ID is the internal unique identifier (UUID).
	ID string `json:"id"`
	// ProfileID references Profile.ID.
	ProfileID string `json:"profile_id"`
	// YouTubeID is the platform ID of the content.
	YouTubeID string `json:"youtube_id"`
	// Kind is the content type tag.
	Kind youtube.ContentKind `json:"kind"`
	// Title and ThumbnailURL are copied from the resolved metadata.
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
	// ChannelID and ChannelTitle name the owning channel of a video or
	// playlist. They are empty for channel entries.
	ChannelID    string    `json:"channel_id,omitempty"`
	ChannelTitle string    `json:"channel_title,omitempty"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// URL returns the canonical platform URL of the entry.
func (w *WhitelistItem) URL() string {
	return youtube.ContentReference{Kind: w.Kind, ID: w.YouTubeID}.URL()
}

// WatchEntry is one recorded viewing session.
type WatchEntry struct {
	ID        string    `json:"id"`
	ProfileID string    `json:"profile_id"`
	VideoID   string    `json:"video_id"`
	Title     string    `json:"title"`
	Seconds   int       `json:"seconds"`
	WatchedAt time.Time `json:"watched_at"`
}

// itemFromMetadata copies the unified metadata into a new entry.
func itemFromMetadata(profileID string, m youtube.Metadata) *WhitelistItem {
	item := &WhitelistItem{
		ProfileID:    profileID,
		YouTubeID:    m.ID(),
		Kind:         m.Kind(),
		Title:        m.DisplayTitle(),
		ThumbnailURL: m.Thumbnail(),
	}
	switch v := m.(type) {
	case *youtube.ChannelMetadata:
		item.Description = v.Description
	case *youtube.VideoMetadata:
		item.ChannelID = v.ChannelID
		item.ChannelTitle = v.ChannelTitle
		item.Description = v.Description
	case *youtube.PlaylistMetadata:
		item.ChannelID = v.ChannelID
		item.ChannelTitle = v.ChannelTitle
		item.Description = v.Description
	}
	return item
}
