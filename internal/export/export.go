// Package export writes the extracted track listing to stdout in the
// supported output formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jaki95/spotify-playlist-downloader/internal/spotify"
)

// WriteURLs writes one track URL per line.
func WriteURLs(w io.Writer, urls []string) error {
	for _, u := range urls {
		if _, err := fmt.Fprintln(w, u); err != nil {
			return err
		}
	}
	return nil
}

type jsonTrack struct {
	Name    string   `json:"name"`
	Artists []string `json:"artists"`
	URL     string   `json:"url"`
	ID      string   `json:"id"`
	URI     string   `json:"uri"`
}

type jsonPlaylist struct {
	PlaylistID  string      `json:"playlist_id"`
	TotalTracks int         `json:"total_tracks"`
	Tracks      []jsonTrack `json:"tracks"`
}

// WriteJSON writes the full track listing as an indented JSON document.
func WriteJSON(w io.Writer, playlistID string, tracks []spotify.Track) error {
	out := jsonPlaylist{
		PlaylistID:  playlistID,
		TotalTracks: len(tracks),
		Tracks:      make([]jsonTrack, 0, len(tracks)),
	}

	for _, t := range tracks {
		out.Tracks = append(out.Tracks, jsonTrack{
			Name:    t.Name,
			Artists: t.ArtistNames(),
			URL:     t.URL(),
			ID:      t.ID,
			URI:     t.URI,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteCSV writes the track listing as CSV with a header row. Multiple
// artists are joined with "; " in a single column.
func WriteCSV(w io.Writer, tracks []spotify.Track) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"name", "artists", "url", "id", "uri"}); err != nil {
		return err
	}

	for _, t := range tracks {
		record := []string{
			t.Name,
			strings.Join(t.ArtistNames(), "; "),
			t.URL(),
			t.ID,
			t.URI,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
