// Package youtube resolves user-submitted platform URLs to content metadata.
//
// ParseURL turns a URL into a ContentReference. A Resolver then asks each
// configured Provider in turn for the referenced channel, video or playlist
// and returns the first answer as a Metadata value.
package youtube

import (
	"context"
	"errors"
)

// Sentinel errors returned by providers and the resolver.
var (
	ErrNotFound         = errors.New("youtube: not found")
	ErrRateLimited      = errors.New("youtube: rate limited")
	ErrUnsupported      = errors.New("youtube: operation not supported by provider")
	ErrPoolExhausted    = errors.New("youtube: no healthy mirror instance")
	ErrMalformed        = errors.New("youtube: malformed response")
	ErrResolutionFailed = errors.New("youtube: resolution failed")
	ErrInvalidURL       = errors.New("youtube: invalid URL")
)

// Provider is one backend family able to answer metadata queries.
// Implementations must be safe for concurrent use and must wrap every
// failure in a *ProviderError.
type Provider interface {
	// Name identifies the provider in logs and errors ("dataapi", "oembed", "invidious").
	Name() string
	Channel(ctx context.Context, id string) (*ChannelMetadata, error)
	// ChannelByHandle resolves a channel from its @handle (without the @).
	ChannelByHandle(ctx context.Context, handle string) (*ChannelMetadata, error)
	Video(ctx context.Context, id string) (*VideoMetadata, error)
	Playlist(ctx context.Context, id string) (*PlaylistMetadata, error)
}

// CustomNameResolver is implemented by providers that can resolve legacy
// /c/ channel names directly. Providers without it get the name through
// ChannelByHandle.
type CustomNameResolver interface {
	ChannelByCustomName(ctx context.Context, name string) (*ChannelMetadata, error)
}

// VideoLister lists the videos of a channel, newest first.
type VideoLister interface {
	ListVideos(ctx context.Context, channelID string, opts *ListOptions) ([]VideoMetadata, error)
}

// ListOptions configures video listing behavior.
type ListOptions struct {
	// MaxResults limits the number of videos returned. 0 means the provider default.
	MaxResults int
}

// ProviderError wraps a provider failure with context about what failed.
// Use errors.As() to extract it:
//
//	var perr *youtube.ProviderError
//	if errors.As(err, &perr) {
//		fmt.Printf("%s %s %s: %v\n", perr.Provider, perr.Op, perr.ID, perr.Err)
//	}
type ProviderError struct {
	// Provider is the provider name.
	Provider string
	// Op is the operation ("channel", "handle", "video", "playlist", "list").
	Op string
	// ID is the platform ID or handle being looked up.
	ID string
	// Err is the underlying error.
	Err error
}

// Error returns a string representation of the provider error.
func (e *ProviderError) Error() string {
	return "youtube: " + e.Provider + " " + e.Op + " " + e.ID + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError is a convenience constructor; it returns nil for a nil err.
func NewProviderError(provider, op, id string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Op: op, ID: id, Err: err}
}
