package spotify

import "log/slog"

const trackURLPrefix = "https://open.spotify.com/track/"

// URL returns the canonical open.spotify.com URL for the track, falling
// back to a URL derived from the track ID when the API omitted one.
func (t Track) URL() string {
	if u := t.ExternalURLs["spotify"]; u != "" {
		return u
	}
	return trackURLPrefix + t.ID
}

// TrackURLs maps tracks to their external URLs, preserving order. Tracks
// without an external URL get the deterministic ID-based fallback.
func TrackURLs(tracks []Track) []string {
	urls := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.ExternalURLs["spotify"] == "" {
			slog.Warn("Using fallback URL for track", "track", t.Name)
		}
		urls = append(urls, t.URL())
	}
	return urls
}
