package youtube

import (
	"fmt"
	"net/url"
	"strings"
)

// ContentKind identifies what a ContentReference points at.
type ContentKind int

const (
	// KindVideo is a single video.
	KindVideo ContentKind = iota
	// KindChannel is a channel addressed by its platform ID (UC...).
	KindChannel
	// KindChannelHandle is a channel addressed by its @handle.
	KindChannelHandle
	// KindChannelCustomName is a channel addressed by a legacy /c/ name.
	KindChannelCustomName
	// KindPlaylist is a playlist.
	KindPlaylist
)

// String returns the lower-case name used in storage and CLI output.
func (k ContentKind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindChannel:
		return "channel"
	case KindChannelHandle:
		return "channel_handle"
	case KindChannelCustomName:
		return "channel_custom_name"
	case KindPlaylist:
		return "playlist"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of ContentKind.String.
func ParseKind(s string) (ContentKind, bool) {
	for _, k := range []ContentKind{KindVideo, KindChannel, KindChannelHandle, KindChannelCustomName, KindPlaylist} {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// MarshalText implements encoding.TextMarshaler.
func (k ContentKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ContentKind) UnmarshalText(b []byte) error {
	v, ok := ParseKind(string(b))
	if !ok {
		return fmt.Errorf("%w: unknown content kind %q", ErrInvalidURL, b)
	}
	*k = v
	return nil
}

// ContentReference is a typed platform identifier extracted from a URL.
type ContentReference struct {
	Kind ContentKind
	ID   string
}

// String returns "kind:id".
func (r ContentReference) String() string {
	return r.Kind.String() + ":" + r.ID
}

// URL returns the canonical platform URL for the reference.
func (r ContentReference) URL() string {
	const base = "https://www.youtube.com"
	switch r.Kind {
	case KindVideo:
		return base + "/watch?v=" + url.QueryEscape(r.ID)
	case KindChannel:
		return base + "/channel/" + url.PathEscape(r.ID)
	case KindChannelHandle:
		return base + "/@" + url.PathEscape(r.ID)
	case KindChannelCustomName:
		return base + "/c/" + url.PathEscape(r.ID)
	case KindPlaylist:
		return base + "/playlist?list=" + url.QueryEscape(r.ID)
	default:
		return ""
	}
}

var mainHosts = map[string]bool{
	"youtube.com":              true,
	"www.youtube.com":          true,
	"m.youtube.com":            true,
	"music.youtube.com":        true,
	"youtube-nocookie.com":     true,
	"www.youtube-nocookie.com": true,
}

var shortHosts = map[string]bool{
	"youtu.be":     true,
	"www.youtu.be": true,
}

// ParseURL maps a user-submitted URL to a ContentReference. It reports false
// for blank input, malformed URLs, foreign hosts and URLs missing the
// required ID. It performs no I/O.
func ParseURL(raw string) (ContentReference, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ContentReference{}, false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ContentReference{}, false
	}
	host := strings.ToLower(u.Hostname())
	segments := pathSegments(u.EscapedPath())

	if shortHosts[host] {
		if len(segments) == 0 {
			return ContentReference{}, false
		}
		return ref(KindVideo, segments[0])
	}
	if !mainHosts[host] || len(segments) == 0 {
		return ContentReference{}, false
	}

	query := parseQuery(u.RawQuery)
	first := segments[0]

	if list := strings.TrimSpace(query["list"]); list != "" && (first == "playlist" || first == "watch") {
		return ContentReference{Kind: KindPlaylist, ID: list}, true
	}

	switch first {
	case "watch":
		return ref(KindVideo, query["v"])
	case "shorts", "embed", "live":
		return ref(KindVideo, segment(segments, 1))
	case "channel":
		return ref(KindChannel, segment(segments, 1))
	case "c":
		return ref(KindChannelCustomName, segment(segments, 1))
	}
	if strings.HasPrefix(first, "@") {
		return ref(KindChannelHandle, strings.TrimPrefix(first, "@"))
	}
	return ContentReference{}, false
}

func ref(kind ContentKind, id string) (ContentReference, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return ContentReference{}, false
	}
	return ContentReference{Kind: kind, ID: id}, true
}

func segment(segments []string, i int) string {
	if i < len(segments) {
		return segments[i]
	}
	return ""
}

// pathSegments splits an escaped path into its non-empty, unescaped parts.
func pathSegments(escaped string) []string {
	var out []string
	for _, s := range strings.Split(escaped, "/") {
		if s == "" {
			continue
		}
		if v, err := url.PathUnescape(s); err == nil {
			s = v
		}
		out = append(out, s)
	}
	return out
}

// parseQuery decodes key=value pairs split on the first '='. Pairs without
// '=' or with invalid escapes are dropped. The first occurrence of a key wins.
func parseQuery(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, "&") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, err := url.QueryUnescape(k)
		if err != nil {
			continue
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			continue
		}
		if _, seen := out[key]; !seen {
			out[key] = val
		}
	}
	return out
}
