// Package credentials resolves the Spotify API client credentials from a
// local env file and the process environment, in that order.
package credentials

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

var ErrMissingCredentials = errors.New("spotify credentials not found")

// Key aliases accepted for each credential. The dashed forms exist for
// compatibility with older setups; the env file parser only allows
// [A-Za-z0-9_.] keys, so they are effectively environment-only.
var (
	clientIDKeys     = []string{"SPOTIFY_CLIENT_ID", "SPOTIFY-CLIENT-ID"}
	clientSecretKeys = []string{"SPOTIFY_CLIENT_SECRET", "SPOTIFY-CLIENT-SECRET"}
)

// Credentials holds the client credentials used for the token request.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Lookup is a single credential resolution strategy. It reports whether
// the key was found.
type Lookup func(key string) (string, bool)

// FileLookup reads a KEY=value env file once and serves lookups from it.
// Commented lines and surrounding quotes are handled by the parser. A
// missing or unreadable file yields an empty lookup, not an error: the
// file is an optional source.
func FileLookup(path string) Lookup {
	values, err := godotenv.Read(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read env file", "path", path, "error", err)
		}
		values = map[string]string{}
	}

	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok && v != ""
	}
}

// EnvLookup serves lookups from the process environment.
func EnvLookup() Lookup {
	return func(key string) (string, bool) {
		v := os.Getenv(key)
		return v, v != ""
	}
}

// Resolve returns the first value found for any of the given key aliases,
// trying each lookup in order. Earlier lookups win over later ones.
func Resolve(keys []string, lookups ...Lookup) (string, bool) {
	for _, lookup := range lookups {
		for _, key := range keys {
			if v, ok := lookup(key); ok {
				return v, true
			}
		}
	}
	return "", false
}

// Load resolves both credentials using the given lookup order. Absence of
// either is a setup error, raised before any network call is made.
func Load(lookups ...Lookup) (*Credentials, error) {
	clientID, ok := Resolve(clientIDKeys, lookups...)
	if !ok {
		return nil, fmt.Errorf("%w: set SPOTIFY_CLIENT_ID in the env file or environment", ErrMissingCredentials)
	}

	clientSecret, ok := Resolve(clientSecretKeys, lookups...)
	if !ok {
		return nil, fmt.Errorf("%w: set SPOTIFY_CLIENT_SECRET in the env file or environment", ErrMissingCredentials)
	}

	return &Credentials{ClientID: clientID, ClientSecret: clientSecret}, nil
}
