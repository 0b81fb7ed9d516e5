package spotify

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
)

const (
	// pageLimit is the maximum page size the tracks endpoint allows.
	pageLimit = 100

	// trackFields restricts page payloads to the fields this tool consumes.
	trackFields = "items(track(external_urls,name,artists(name),id,uri,href)),next,total"
)

// PlaylistTracks retrieves every valid track of a playlist, following the
// page cursor until the API stops returning one. The total count reported
// by the first page is used for progress logging only; termination is
// driven solely by the absence of a next cursor.
//
// Entries whose track is missing or carries no ID (removed or unavailable
// tracks) are dropped. Track order matches API page order.
//
// Under the BestEffort policy a transport failure mid-pagination stops the
// traversal and returns the tracks collected so far without an error;
// under FailFast the partial result is returned together with the error.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string) ([]Track, error) {
	if c.accessToken == "" {
		return nil, ErrNotAuthenticated
	}

	params := url.Values{
		"fields": {trackFields},
		"limit":  {strconv.Itoa(pageLimit)},
		"offset": {"0"},
	}
	pageURL := fmt.Sprintf("%s/playlists/%s/tracks?%s", c.baseURL, playlistID, params.Encode())

	var tracks []Track
	total := -1

	// Guard against a server returning a cursor that loops.
	visited := make(map[string]bool)

	for pageURL != "" {
		if visited[pageURL] {
			slog.Warn("Pagination cursor loop detected, stopping", "url", pageURL)
			break
		}
		visited[pageURL] = true

		var page tracksPage
		if err := c.get(ctx, pageURL, &page); err != nil {
			if c.policy == FailFast {
				return tracks, fmt.Errorf("fetching playlist page: %w", err)
			}
			slog.Warn("Error fetching tracks, returning partial result", "error", err, "collected", len(tracks))
			break
		}

		if total < 0 {
			total = page.Total
			slog.Info("Found tracks in playlist", "total", total)
		}

		for _, item := range page.Items {
			if item.Track == nil || item.Track.ID == "" {
				continue
			}
			tracks = append(tracks, *item.Track)
		}

		slog.Info("Retrieved tracks", "count", len(tracks), "total", total)

		// The next URL is followed verbatim; it already carries the
		// fields, limit and offset parameters.
		pageURL = page.Next
	}

	return tracks, nil
}
