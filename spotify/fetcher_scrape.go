package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

const (
	defaultEmbedBase = "https://open.spotify.com/embed"
	scrapeUserAgent  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// scrapeFetcher reads metadata from the anonymous open.spotify.com embed
// pages instead of the Web API, so it needs no credentials. Embed pages
// deliver a collection in one document; there is nothing to paginate.
type scrapeFetcher struct {
	base   string
	client *http.Client
	log    *log.Entry
}

func newScrapeFetcher() *scrapeFetcher {
	return &scrapeFetcher{
		base:   defaultEmbedBase,
		client: &http.Client{Timeout: 15 * time.Second},
		log:    log.WithFields(log.Fields{"module": "spotify", "strategy": "scrape"}),
	}
}

// embedPayload mirrors the slice of the Next.js state blob we care about.
type embedPayload struct {
	Props struct {
		PageProps struct {
			State struct {
				Data struct {
					Entity embedEntity `json:"entity"`
				} `json:"data"`
			} `json:"state"`
		} `json:"pageProps"`
	} `json:"props"`
}

type embedEntity struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	URI      string `json:"uri"`
	Duration int64  `json:"duration"`
	Artists  []struct {
		Name string `json:"name"`
	} `json:"artists"`
	RelatedEntityURI string            `json:"relatedEntityUri"`
	TrackList        []json.RawMessage `json:"trackList"`
}

// flatTrackItem is one track list entry. Some embed pages wrap it under a
// "track" key, others inline it; nestedTrackItem covers the wrapped shape.
type flatTrackItem struct {
	URI      string `json:"uri"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Duration int64  `json:"duration"`
}

type nestedTrackItem struct {
	Track flatTrackItem `json:"track"`
}

func (f *scrapeFetcher) fetchTracks(ctx context.Context, kind Kind, id string) ([]rawTrack, string, error) {
	entity, err := f.fetchEntity(ctx, kind, id)
	if err != nil {
		return nil, "", err
	}

	if kind == KindTrack {
		return []rawTrack{entityRecord(entity)}, "", nil
	}

	tracks, err := decodeTrackList(entity.TrackList)
	if err != nil {
		return nil, "", fmt.Errorf("decode %s %s: %w", kind, id, err)
	}

	f.log.WithFields(log.Fields{"kind": kind, "id": id, "tracks": len(tracks)}).Debug("scraped embed page")
	return tracks, entityName(entity), nil
}

func (f *scrapeFetcher) episodeShowID(ctx context.Context, id string) (string, error) {
	entity, err := f.fetchEntity(ctx, KindEpisode, id)
	if err != nil {
		return "", err
	}
	if entity.RelatedEntityURI == "" {
		return "", fmt.Errorf("spotify: episode %s names no parent show", id)
	}
	return idFromURI(entity.RelatedEntityURI), nil
}

func (f *scrapeFetcher) fetchEntity(ctx context.Context, kind Kind, id string) (embedEntity, error) {
	span := sentry.StartSpan(ctx, "spotify.scrape")
	span.Description = fmt.Sprintf("%s/%s", kind, id)
	defer span.Finish()

	url := fmt.Sprintf("%s/%s/%s", f.base, kind, id)
	req, err := http.NewRequestWithContext(span.Context(), http.MethodGet, url, nil)
	if err != nil {
		return embedEntity{}, err
	}
	req.Header.Set("User-Agent", scrapeUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return embedEntity{}, fmt.Errorf("fetch embed page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return embedEntity{}, fmt.Errorf("fetch embed page: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return embedEntity{}, fmt.Errorf("parse embed page: %w", err)
	}

	raw := doc.Find("script#__NEXT_DATA__").First().Text()
	if raw == "" {
		return embedEntity{}, fmt.Errorf("spotify: embed page for %s/%s carries no state payload", kind, id)
	}

	var payload embedPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return embedEntity{}, fmt.Errorf("decode embed state: %w", err)
	}
	return payload.Props.PageProps.State.Data.Entity, nil
}

// decodeTrackList probes the first item for the wrapped shape, then decodes
// the whole list on that single path. Mixed lists do not occur in practice.
func decodeTrackList(items []json.RawMessage) ([]rawTrack, error) {
	nested := isNestedTrackList(items)

	tracks := make([]rawTrack, 0, len(items))
	for i, item := range items {
		var flat flatTrackItem
		if nested {
			var wrapped nestedTrackItem
			if err := json.Unmarshal(item, &wrapped); err != nil {
				return nil, fmt.Errorf("track list item %d: %w", i, err)
			}
			flat = wrapped.Track
		} else if err := json.Unmarshal(item, &flat); err != nil {
			return nil, fmt.Errorf("track list item %d: %w", i, err)
		}
		tracks = append(tracks, itemRecord(flat))
	}
	return tracks, nil
}

func isNestedTrackList(items []json.RawMessage) bool {
	if len(items) == 0 {
		return false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(items[0], &probe); err != nil {
		return false
	}
	_, ok := probe["track"]
	return ok
}

func entityRecord(entity embedEntity) rawTrack {
	title := entity.Name
	if title == "" {
		title = entity.Title
	}

	var artists []string
	for _, artist := range entity.Artists {
		artists = append(artists, artist.Name)
	}
	if len(artists) == 0 {
		artists = splitSubtitle(entity.Subtitle)
	}

	id := idFromURI(entity.URI)
	return rawTrack{
		ID:       id,
		Title:    title,
		Artists:  artists,
		URL:      "https://open.spotify.com/track/" + id,
		Duration: entity.Duration,
	}
}

func itemRecord(item flatTrackItem) rawTrack {
	id := idFromURI(item.URI)
	return rawTrack{
		ID:       id,
		Title:    item.Title,
		Artists:  splitSubtitle(item.Subtitle),
		URL:      "https://open.spotify.com/track/" + id,
		Duration: item.Duration,
	}
}

func entityName(entity embedEntity) string {
	if entity.Name != "" {
		return entity.Name
	}
	return entity.Title
}

// idFromURI extracts the identifier from a spotify:<kind>:<id> URI.
func idFromURI(uri string) string {
	parts := strings.Split(uri, ":")
	return parts[len(parts)-1]
}

// splitSubtitle breaks an embed subtitle ("Artist A, Artist B") into names.
func splitSubtitle(subtitle string) []string {
	if subtitle == "" {
		return nil
	}
	return strings.Split(subtitle, ", ")
}
