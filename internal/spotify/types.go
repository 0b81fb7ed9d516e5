package spotify

// Track is one playlist entry as returned by the tracks endpoint, limited
// to the fields this tool requests.
type Track struct {
	ID           string            `json:"id"`
	URI          string            `json:"uri"`
	Name         string            `json:"name"`
	Href         string            `json:"href"`
	Artists      []Artist          `json:"artists"`
	ExternalURLs map[string]string `json:"external_urls"`
}

type Artist struct {
	Name string `json:"name"`
}

// ArtistNames returns the artist names in track order.
func (t Track) ArtistNames() []string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return names
}

// tracksPage is one page of the paginated tracks endpoint. Next is the
// verbatim URL of the following page; an empty Next ends pagination.
type tracksPage struct {
	Items []pageItem `json:"items"`
	Next  string     `json:"next"`
	Total int        `json:"total"`
}

// pageItem wraps a track entry. Track is nil for removed or otherwise
// unavailable entries.
type pageItem struct {
	Track *Track `json:"track"`
}

// PlaylistInfo is the subset of playlist metadata shown by --info.
type PlaylistInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Owner       struct {
		DisplayName string `json:"display_name"`
	} `json:"owner"`
	Tracks struct {
		Total int `json:"total"`
	} `json:"tracks"`
	ExternalURLs map[string]string `json:"external_urls"`
}
