// Package spotify resolves Spotify resources (tracks, albums, playlists,
// artists, episodes, shows) into playable tracks for a Lavalink-style
// playback backend.
package spotify

import (
	"context"
	"errors"
	"strings"

	"github.com/disgoorg/disgolink/v3/lavalink"
)

// Kind is the Spotify resource type addressed by a URL or URI.
type Kind string

const (
	KindTrack    Kind = "track"
	KindAlbum    Kind = "album"
	KindPlaylist Kind = "playlist"
	KindArtist   Kind = "artist"
	KindEpisode  Kind = "episode"
	KindShow     Kind = "show"
)

// LoadType discriminates what a load operation produced.
type LoadType string

const (
	LoadTypeTrack     LoadType = "TRACK_LOADED"
	LoadTypePlaylist  LoadType = "PLAYLIST_LOADED"
	LoadTypeNoMatches LoadType = "NO_MATCHES"
	LoadTypeFailed    LoadType = "LOAD_FAILED"
)

// ErrNoToken is returned when the API strategy is selected but the token
// provider has no usable token. No network call is made in that case.
var ErrNoToken = errors.New("spotify: no access token available")

// TokenProvider supplies the current Spotify bearer token. The resolver only
// reads the value; acquisition and refresh belong to the owning client.
type TokenProvider interface {
	CurrentToken() (string, bool)
}

// TrackSearchBackend turns an "artist - title" query into the first matching
// playable track. A nil track with a nil error means nothing matched.
type TrackSearchBackend interface {
	Search(ctx context.Context, query string) (*lavalink.Track, error)
}

// rawTrack is the not-yet-normalized metadata for one track, shared by both
// fetch strategies.
type rawTrack struct {
	ID       string
	Title    string
	Artists  []string
	URL      string
	Duration int64 // milliseconds
}

// UnresolvedTrack is a normalized stub awaiting backend resolution. It is a
// plain immutable value; resolution happens through Resolver.ResolveTrack.
type UnresolvedTrack struct {
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	URI        string `json:"uri"`
	Duration   int64  `json:"durationMs"`
}

func newUnresolvedTrack(raw rawTrack) UnresolvedTrack {
	uri := raw.URL
	if uri == "" {
		uri = "https://open.spotify.com/track/" + raw.ID
	}
	return UnresolvedTrack{
		Identifier: raw.ID,
		Title:      raw.Title,
		Author:     strings.Join(raw.Artists, " "),
		URI:        uri,
		Duration:   raw.Duration,
	}
}

// AsTrack renders the stub in the playback engine's track shape with an empty
// encoded handle.
func (u UnresolvedTrack) AsTrack() lavalink.Track {
	uri := u.URI
	return lavalink.Track{
		Info: lavalink.TrackInfo{
			Identifier: u.Identifier,
			Title:      u.Title,
			Author:     u.Author,
			Length:     lavalink.Duration(u.Duration) * lavalink.Millisecond,
			URI:        &uri,
			SourceName: "spotify",
		},
	}
}

// PlaylistInfo carries collection metadata; Name is empty for single-track
// loads.
type PlaylistInfo struct {
	Name string `json:"name,omitempty"`
}

// LoadResponse is the envelope returned by every load operation. Tracks with
// an empty Encoded field are unresolved stubs carrying Spotify metadata only.
type LoadResponse struct {
	LoadType     LoadType            `json:"loadType"`
	PlaylistInfo PlaylistInfo        `json:"playlistInfo"`
	Tracks       []lavalink.Track    `json:"tracks"`
	Exception    *lavalink.Exception `json:"exception,omitempty"`
}

// NoMatchesResponse is the envelope for identifiers that match nothing.
func NoMatchesResponse() *LoadResponse {
	return &LoadResponse{
		LoadType: LoadTypeNoMatches,
		Tracks:   []lavalink.Track{},
	}
}

// FailureResponse builds the LOAD_FAILED envelope for err. Load operations
// return plain errors; callers that speak the envelope format construct the
// failure variant explicitly.
func FailureResponse(err error) *LoadResponse {
	severity := lavalink.SeverityFault
	if errors.Is(err, ErrNoToken) {
		severity = lavalink.SeverityCommon
	}
	return &LoadResponse{
		LoadType: LoadTypeFailed,
		Tracks:   []lavalink.Track{},
		Exception: &lavalink.Exception{
			Message:  err.Error(),
			Severity: severity,
		},
	}
}
