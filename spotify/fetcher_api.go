package spotify

import (
	"context"
	"fmt"
	"net/http"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	spotifyapi "github.com/zmb3/spotify/v2"
)

// Top tracks and show lookups require a market; the catalog is the same for
// our purposes, so a fixed one is fine.
const defaultMarket = "US"

// apiFetcher reads metadata from the Spotify Web API using the bearer token
// supplied by the token provider.
type apiFetcher struct {
	tokens TokenProvider
	client *spotifyapi.Client
	limit  int
	log    *log.Entry
}

func newAPIFetcher(tokens TokenProvider, limit int) *apiFetcher {
	httpClient := &http.Client{
		Transport: &tokenTransport{tokens: tokens, base: http.DefaultTransport},
	}
	return &apiFetcher{
		tokens: tokens,
		client: spotifyapi.New(httpClient),
		limit:  limit,
		log:    log.WithFields(log.Fields{"module": "spotify", "strategy": "api"}),
	}
}

func (f *apiFetcher) fetchTracks(ctx context.Context, kind Kind, id string) ([]rawTrack, string, error) {
	if _, ok := f.tokens.CurrentToken(); !ok {
		return nil, "", ErrNoToken
	}

	span := sentry.StartSpan(ctx, "spotify.fetchTracks")
	span.Description = fmt.Sprintf("%s/%s", kind, id)
	defer span.Finish()
	ctx = span.Context()

	switch kind {
	case KindTrack:
		return f.track(ctx, id)
	case KindAlbum:
		return f.album(ctx, id)
	case KindPlaylist:
		return f.playlist(ctx, id)
	case KindArtist:
		return f.artist(ctx, id)
	case KindShow:
		return f.show(ctx, id)
	default:
		return nil, "", fmt.Errorf("spotify: unsupported resource kind %q", kind)
	}
}

func (f *apiFetcher) episodeShowID(ctx context.Context, id string) (string, error) {
	if _, ok := f.tokens.CurrentToken(); !ok {
		return "", ErrNoToken
	}
	episode, err := f.client.GetEpisode(ctx, id, spotifyapi.Market(defaultMarket))
	if err != nil {
		return "", fmt.Errorf("get episode %s: %w", id, err)
	}
	return string(episode.Show.ID), nil
}

func (f *apiFetcher) track(ctx context.Context, id string) ([]rawTrack, string, error) {
	track, err := f.client.GetTrack(ctx, spotifyapi.ID(id))
	if err != nil {
		return nil, "", fmt.Errorf("get track %s: %w", id, err)
	}
	return []rawTrack{fullTrackRecord(*track)}, "", nil
}

func (f *apiFetcher) album(ctx context.Context, id string) ([]rawTrack, string, error) {
	album, err := f.client.GetAlbum(ctx, spotifyapi.ID(id))
	if err != nil {
		return nil, "", fmt.Errorf("get album %s: %w", id, err)
	}

	var tracks []rawTrack
	page := &album.Tracks
	err = forEachPage(f.limit,
		func() {
			for _, track := range page.Tracks {
				tracks = append(tracks, simpleTrackRecord(track))
			}
		},
		func() error { return f.client.NextPage(ctx, page) },
	)
	if err != nil {
		return nil, "", fmt.Errorf("page album %s: %w", id, err)
	}

	f.log.WithFields(log.Fields{"album": id, "tracks": len(tracks)}).Debug("fetched album")
	return tracks, album.Name, nil
}

func (f *apiFetcher) playlist(ctx context.Context, id string) ([]rawTrack, string, error) {
	meta, err := f.client.GetPlaylist(ctx, spotifyapi.ID(id))
	if err != nil {
		return nil, "", fmt.Errorf("get playlist %s: %w", id, err)
	}
	items, err := f.client.GetPlaylistItems(ctx, spotifyapi.ID(id))
	if err != nil {
		return nil, "", fmt.Errorf("get playlist items %s: %w", id, err)
	}

	var tracks []rawTrack
	err = forEachPage(f.limit,
		func() {
			for _, item := range items.Items {
				// Playlists can hold local files and episodes; only
				// proper tracks are loadable.
				if item.Track.Track == nil {
					continue
				}
				tracks = append(tracks, fullTrackRecord(*item.Track.Track))
			}
		},
		func() error { return f.client.NextPage(ctx, items) },
	)
	if err != nil {
		return nil, "", fmt.Errorf("page playlist %s: %w", id, err)
	}

	f.log.WithFields(log.Fields{"playlist": id, "tracks": len(tracks)}).Debug("fetched playlist")
	return tracks, meta.Name, nil
}

func (f *apiFetcher) artist(ctx context.Context, id string) ([]rawTrack, string, error) {
	artist, err := f.client.GetArtist(ctx, spotifyapi.ID(id))
	if err != nil {
		return nil, "", fmt.Errorf("get artist %s: %w", id, err)
	}
	top, err := f.client.GetArtistsTopTracks(ctx, spotifyapi.ID(id), defaultMarket)
	if err != nil {
		return nil, "", fmt.Errorf("get artist top tracks %s: %w", id, err)
	}

	tracks := make([]rawTrack, 0, len(top))
	for _, track := range top {
		tracks = append(tracks, fullTrackRecord(track))
	}
	return tracks, artist.Name, nil
}

func (f *apiFetcher) show(ctx context.Context, id string) ([]rawTrack, string, error) {
	show, err := f.client.GetShow(ctx, spotifyapi.ID(id), spotifyapi.Market(defaultMarket))
	if err != nil {
		return nil, "", fmt.Errorf("get show %s: %w", id, err)
	}

	var tracks []rawTrack
	page := &show.Episodes
	err = forEachPage(f.limit,
		func() {
			for _, episode := range page.Episodes {
				tracks = append(tracks, episodeRecord(episode))
			}
		},
		func() error { return f.client.NextPage(ctx, page) },
	)
	if err != nil {
		return nil, "", fmt.Errorf("page show %s: %w", id, err)
	}

	f.log.WithFields(log.Fields{"show": id, "episodes": len(tracks)}).Debug("fetched show")
	return tracks, show.Name, nil
}

func fullTrackRecord(track spotifyapi.FullTrack) rawTrack {
	return simpleTrackRecord(track.SimpleTrack)
}

func simpleTrackRecord(track spotifyapi.SimpleTrack) rawTrack {
	return rawTrack{
		ID:       string(track.ID),
		Title:    track.Name,
		Artists:  artistNames(track.Artists),
		URL:      track.ExternalURLs["spotify"],
		Duration: int64(track.Duration),
	}
}

// Episodes carry no artist credit; the author stays empty on purpose.
func episodeRecord(episode spotifyapi.EpisodePage) rawTrack {
	return rawTrack{
		ID:       string(episode.ID),
		Title:    episode.Name,
		URL:      episode.ExternalURLs["spotify"],
		Duration: int64(episode.Duration_ms),
	}
}

func artistNames(artists []spotifyapi.SimpleArtist) []string {
	names := make([]string, 0, len(artists))
	for _, artist := range artists {
		names = append(names, artist.Name)
	}
	return names
}
