package youtube

import "strings"

// Thumbnail width bounds for the preferred (medium quality) candidate.
const (
	MinPreferredWidth = 300
	MaxPreferredWidth = 500
)

// ThumbnailCandidate is one thumbnail offered by a provider.
type ThumbnailCandidate struct {
	URL   string
	Width int
}

// BestThumbnail picks the first candidate whose width is within
// [MinPreferredWidth, MaxPreferredWidth], else the first candidate with a
// non-blank URL, else the CDN URL derived from id.
func BestThumbnail(candidates []ThumbnailCandidate, id string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c.URL) != "" && c.Width >= MinPreferredWidth && c.Width <= MaxPreferredWidth {
			return c.URL
		}
	}
	for _, c := range candidates {
		if strings.TrimSpace(c.URL) != "" {
			return c.URL
		}
	}
	return FallbackThumbnail(id)
}

// FallbackThumbnail returns the deterministic CDN thumbnail for id, or ""
// when id is empty.
func FallbackThumbnail(id string) string {
	if id == "" {
		return ""
	}
	return "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg"
}
