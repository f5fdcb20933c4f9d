package spotify

import (
	"context"
	"fmt"
	"sync"

	"github.com/disgoorg/disgolink/v3/lavalink"
	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

// Options configures a Resolver. The struct is copied at construction time;
// changing a value afterwards has no effect on the resolver.
type Options struct {
	// UseScraper selects the embed-page strategy over the Web API.
	UseScraper bool
	// PlaylistLoadLimit caps how many metadata pages a collection load may
	// consume. Zero means unbounded.
	PlaylistLoadLimit int
	// AutoResolve runs every loaded stub through the search backend before
	// the response is returned.
	AutoResolve bool
	// UseSpotifyMetadata overwrites resolved track titles, authors and URIs
	// with the Spotify values.
	UseSpotifyMetadata bool
	// AudioOnlyResults biases backend searches toward audio uploads.
	AudioOnlyResults bool
}

// Resolver turns Spotify resource identifiers into load responses, resolving
// tracks through a search backend on demand.
type Resolver struct {
	opts    Options
	fetcher fetcher
	backend TrackSearchBackend
	cache   *TrackCache
	log     *log.Entry
}

// NewResolver builds a resolver using the fetch strategy named in opts.
// tokens is only consulted by the API strategy; backend may be nil, in which
// case every resolution attempt is a miss.
func NewResolver(opts Options, tokens TokenProvider, backend TrackSearchBackend) *Resolver {
	var f fetcher
	if opts.UseScraper {
		f = newScrapeFetcher()
	} else {
		f = newAPIFetcher(tokens, opts.PlaylistLoadLimit)
	}
	return newResolverWith(opts, f, backend)
}

func newResolverWith(opts Options, f fetcher, backend TrackSearchBackend) *Resolver {
	return &Resolver{
		opts:    opts,
		fetcher: f,
		backend: backend,
		cache:   NewTrackCache(),
		log:     log.WithFields(log.Fields{"module": "spotify"}),
	}
}

// Load dispatches to the loader for kind.
func (r *Resolver) Load(ctx context.Context, kind Kind, id string) (*LoadResponse, error) {
	switch kind {
	case KindTrack:
		return r.LoadTrack(ctx, id)
	case KindAlbum:
		return r.LoadAlbum(ctx, id)
	case KindPlaylist:
		return r.LoadPlaylist(ctx, id)
	case KindArtist:
		return r.LoadArtist(ctx, id)
	case KindEpisode:
		return r.LoadEpisode(ctx, id)
	case KindShow:
		return r.LoadShow(ctx, id)
	default:
		return nil, fmt.Errorf("spotify: unsupported resource kind %q", kind)
	}
}

func (r *Resolver) LoadTrack(ctx context.Context, id string) (*LoadResponse, error) {
	return r.load(ctx, KindTrack, id)
}

func (r *Resolver) LoadAlbum(ctx context.Context, id string) (*LoadResponse, error) {
	return r.load(ctx, KindAlbum, id)
}

func (r *Resolver) LoadPlaylist(ctx context.Context, id string) (*LoadResponse, error) {
	return r.load(ctx, KindPlaylist, id)
}

// LoadArtist loads the artist's top tracks as a playlist named after the
// artist.
func (r *Resolver) LoadArtist(ctx context.Context, id string) (*LoadResponse, error) {
	return r.load(ctx, KindArtist, id)
}

// LoadEpisode loads the episode's parent show in full.
func (r *Resolver) LoadEpisode(ctx context.Context, id string) (*LoadResponse, error) {
	showID, err := r.fetcher.episodeShowID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve episode %s: %w", id, err)
	}
	return r.LoadShow(ctx, showID)
}

func (r *Resolver) LoadShow(ctx context.Context, id string) (*LoadResponse, error) {
	return r.load(ctx, KindShow, id)
}

func (r *Resolver) load(ctx context.Context, kind Kind, id string) (*LoadResponse, error) {
	span := sentry.StartSpan(ctx, "spotify.load")
	span.Description = fmt.Sprintf("%s/%s", kind, id)
	defer span.Finish()
	ctx = span.Context()

	raw, name, err := r.fetcher.fetchTracks(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	stubs := make([]UnresolvedTrack, 0, len(raw))
	for _, record := range raw {
		stubs = append(stubs, newUnresolvedTrack(record))
	}

	var tracks []lavalink.Track
	if r.opts.AutoResolve {
		tracks = r.resolveAll(ctx, stubs)
	} else {
		tracks = make([]lavalink.Track, 0, len(stubs))
		for _, stub := range stubs {
			tracks = append(tracks, stub.AsTrack())
		}
	}

	if len(tracks) == 0 {
		return NoMatchesResponse(), nil
	}
	if kind == KindTrack {
		return &LoadResponse{LoadType: LoadTypeTrack, Tracks: tracks}, nil
	}
	return &LoadResponse{
		LoadType:     LoadTypePlaylist,
		PlaylistInfo: PlaylistInfo{Name: name},
		Tracks:       tracks,
	}, nil
}

// resolveAll resolves stubs concurrently, keeping the input order. Stubs
// whose resolution fails or misses are dropped from the result.
func (r *Resolver) resolveAll(ctx context.Context, stubs []UnresolvedTrack) []lavalink.Track {
	resolved := make([]*lavalink.Track, len(stubs))

	var wg sync.WaitGroup
	for i, stub := range stubs {
		wg.Add(1)
		go func(i int, stub UnresolvedTrack) {
			defer wg.Done()
			track, err := r.ResolveTrack(ctx, stub)
			if err != nil {
				r.log.WithFields(log.Fields{
					"function": "resolveAll",
					"track":    stub.Identifier,
				}).WithError(err).Warn("dropping track that failed to resolve")
				return
			}
			resolved[i] = track
		}(i, stub)
	}
	wg.Wait()

	tracks := make([]lavalink.Track, 0, len(resolved))
	for _, track := range resolved {
		if track != nil {
			tracks = append(tracks, *track)
		}
	}
	return tracks
}

// ResolveTrack finds the playable counterpart of stub through the search
// backend. A nil track with a nil error means the backend had no match;
// misses are never cached.
func (r *Resolver) ResolveTrack(ctx context.Context, stub UnresolvedTrack) (*lavalink.Track, error) {
	if cached, ok := r.cache.Get(stub.Identifier); ok {
		return &cached, nil
	}
	if r.backend == nil {
		return nil, nil
	}

	query := fmt.Sprintf("ytsearch:%s - %s", stub.Author, stub.Title)
	if r.opts.AudioOnlyResults {
		query += " audio"
	}

	track, err := r.backend.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if track == nil {
		return nil, nil
	}

	if r.opts.UseSpotifyMetadata {
		uri := stub.URI
		track.Info.Title = stub.Title
		track.Info.Author = stub.Author
		track.Info.URI = &uri
	}

	r.cache.Put(stub.Identifier, *track)
	out := cloneTrack(*track)
	return &out, nil
}

// CacheSize reports how many resolved tracks are held in the cache.
func (r *Resolver) CacheSize() int {
	return r.cache.Len()
}
