package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// UserMessage is the text shown to end users when resolution fails.
const UserMessage = "Couldn't find this content. Check the link and try again."

// Attempt records one provider's failure during a resolution.
type Attempt struct {
	Provider string
	Err      error
}

// ResolutionError is returned when every provider failed. Err is the error
// of the last provider tried; errors.Is(err, ErrResolutionFailed) is true.
type ResolutionError struct {
	Ref      ContentReference
	Attempts []Attempt
	Err      error
}

func (e *ResolutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "youtube: resolve %s failed", e.Ref)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the resolution sentinel and the last provider error.
func (e *ResolutionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrResolutionFailed}
	}
	return []error{ErrResolutionFailed, e.Err}
}

// UserMessage returns the generic message for end users.
func (e *ResolutionError) UserMessage() string { return UserMessage }

// Resolver tries providers in order and returns the first success. It keeps
// no state between attempts or calls.
type Resolver struct {
	providers []Provider
	log       zerolog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger used for per-attempt diagnostics.
func WithResolverLogger(log zerolog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.log = log.With().Str("component", "resolver").Logger()
	}
}

// NewResolver creates a resolver over providers in priority order. Nil
// providers are skipped.
func NewResolver(providers []Provider, opts ...ResolverOption) *Resolver {
	r := &Resolver{log: zerolog.Nop()}
	for _, p := range providers {
		if p != nil {
			r.providers = append(r.providers, p)
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Providers returns the provider names in priority order.
func (r *Resolver) Providers() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// Resolve dispatches on ref.Kind.
func (r *Resolver) Resolve(ctx context.Context, ref ContentReference) (Metadata, error) {
	var (
		m   Metadata
		err error
	)
	switch ref.Kind {
	case KindVideo:
		var v *VideoMetadata
		if v, err = r.ResolveVideoByID(ctx, ref.ID); err == nil {
			m = v
		}
	case KindChannel:
		var c *ChannelMetadata
		if c, err = r.ResolveChannelByID(ctx, ref.ID); err == nil {
			m = c
		}
	case KindChannelHandle:
		var c *ChannelMetadata
		if c, err = r.ResolveChannelByHandle(ctx, ref.ID); err == nil {
			m = c
		}
	case KindChannelCustomName:
		var c *ChannelMetadata
		if c, err = r.ResolveChannelByCustomName(ctx, ref.ID); err == nil {
			m = c
		}
	case KindPlaylist:
		var pl *PlaylistMetadata
		if pl, err = r.ResolvePlaylistByID(ctx, ref.ID); err == nil {
			m = pl
		}
	default:
		err = &ResolutionError{Ref: ref, Err: fmt.Errorf("%w: unknown content kind %d", ErrInvalidURL, ref.Kind)}
	}
	return m, err
}

// ResolveChannelByID resolves a channel from its platform ID.
func (r *Resolver) ResolveChannelByID(ctx context.Context, id string) (*ChannelMetadata, error) {
	return try(ctx, r, ContentReference{Kind: KindChannel, ID: id}, func(p Provider) (*ChannelMetadata, error) {
		return p.Channel(ctx, id)
	})
}

// ResolveChannelByHandle resolves a channel from its handle, with or without the leading @.
func (r *Resolver) ResolveChannelByHandle(ctx context.Context, handle string) (*ChannelMetadata, error) {
	handle = strings.TrimPrefix(handle, "@")
	return try(ctx, r, ContentReference{Kind: KindChannelHandle, ID: handle}, func(p Provider) (*ChannelMetadata, error) {
		return p.ChannelByHandle(ctx, handle)
	})
}

// ResolveChannelByCustomName resolves a legacy /c/ channel name. Providers
// that do not implement CustomNameResolver treat the name as a handle.
func (r *Resolver) ResolveChannelByCustomName(ctx context.Context, name string) (*ChannelMetadata, error) {
	return try(ctx, r, ContentReference{Kind: KindChannelCustomName, ID: name}, func(p Provider) (*ChannelMetadata, error) {
		if cr, ok := p.(CustomNameResolver); ok {
			return cr.ChannelByCustomName(ctx, name)
		}
		return p.ChannelByHandle(ctx, name)
	})
}

// ResolveVideoByID resolves a video.
func (r *Resolver) ResolveVideoByID(ctx context.Context, id string) (*VideoMetadata, error) {
	return try(ctx, r, ContentReference{Kind: KindVideo, ID: id}, func(p Provider) (*VideoMetadata, error) {
		return p.Video(ctx, id)
	})
}

// ResolvePlaylistByID resolves a playlist.
func (r *Resolver) ResolvePlaylistByID(ctx context.Context, id string) (*PlaylistMetadata, error) {
	return try(ctx, r, ContentReference{Kind: KindPlaylist, ID: id}, func(p Provider) (*PlaylistMetadata, error) {
		return p.Playlist(ctx, id)
	})
}

// try runs fn against each provider in order and stops at the first
// success. A canceled context stops the chain.
func try[T any](ctx context.Context, r *Resolver, ref ContentReference, fn func(Provider) (*T, error)) (*T, error) {
	rerr := &ResolutionError{Ref: ref}
	if ref.ID == "" {
		rerr.Err = fmt.Errorf("%w: empty id", ErrInvalidURL)
		return nil, rerr
	}
	if len(r.providers) == 0 {
		rerr.Err = errors.New("youtube: no providers configured")
		return nil, rerr
	}

	for _, p := range r.providers {
		if err := ctx.Err(); err != nil {
			rerr.Err = err
			return nil, rerr
		}

		v, err := fn(p)
		if err == nil && v != nil {
			r.log.Info().Str("provider", p.Name()).Str("ref", ref.String()).Msg("resolved")
			return v, nil
		}
		if err == nil {
			err = NewProviderError(p.Name(), ref.Kind.String(), ref.ID, ErrNotFound)
		}

		r.log.Debug().Str("provider", p.Name()).Str("ref", ref.String()).Err(err).Msg("provider failed")
		rerr.Attempts = append(rerr.Attempts, Attempt{Provider: p.Name(), Err: err})
		rerr.Err = err
	}

	r.log.Warn().Str("ref", ref.String()).Int("attempts", len(rerr.Attempts)).Err(rerr.Err).Msg("all providers failed")
	return nil, rerr
}
