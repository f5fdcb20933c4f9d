package spotify

import (
	"context"
	"errors"
	"net/http"

	spotifyapi "github.com/zmb3/spotify/v2"
)

// fetcher is the strategy seam between metadata acquisition and resolution.
// fetchTracks returns the raw tracks of a resource plus the collection name
// (empty for single tracks); episodeShowID maps an episode to its parent show.
type fetcher interface {
	fetchTracks(ctx context.Context, kind Kind, id string) ([]rawTrack, string, error)
	episodeShowID(ctx context.Context, id string) (string, error)
}

// tokenTransport injects the current bearer token into every API request and
// refuses to send anything while no token is available.
type tokenTransport struct {
	tokens TokenProvider
	base   http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, ok := t.tokens.CurrentToken()
	if !ok {
		return nil, ErrNoToken
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return t.base.RoundTrip(clone)
}

// forEachPage runs collect over the current page, then advance to move to the
// next one, until advance reports the end or limit pages have been consumed.
// A limit of zero means unbounded; the first page counts against the limit.
func forEachPage(limit int, collect func(), advance func() error) error {
	for page := 1; ; page++ {
		collect()
		if limit > 0 && page >= limit {
			return nil
		}
		if err := advance(); err != nil {
			if errors.Is(err, spotifyapi.ErrNoMorePages) {
				return nil
			}
			return err
		}
	}
}
