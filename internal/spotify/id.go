package spotify

import (
	"errors"
	"regexp"
)

var ErrInvalidPlaylistRef = errors.New("unrecognised playlist reference")

// Accepted playlist reference formats, most specific first.
var playlistRefPatterns = []*regexp.Regexp{
	regexp.MustCompile(`spotify:playlist:([a-zA-Z0-9]+)`),
	regexp.MustCompile(`open\.spotify\.com/playlist/([a-zA-Z0-9]+)`),
	regexp.MustCompile(`spotify\.com/playlist/([a-zA-Z0-9]+)`),
}

var bareIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// ParsePlaylistID extracts the playlist ID from a Spotify URL, URI or bare
// ID string.
func ParsePlaylistID(ref string) (string, error) {
	for _, pattern := range playlistRefPatterns {
		if match := pattern.FindStringSubmatch(ref); match != nil {
			return match[1], nil
		}
	}

	if bareIDPattern.MatchString(ref) {
		return ref, nil
	}

	return "", ErrInvalidPlaylistRef
}
