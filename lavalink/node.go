// Package lavalink is the audio-search backend collaborator: a registry of
// Lavalink nodes and a minimal REST client for their track-loading endpoint.
package lavalink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	lava "github.com/disgoorg/disgolink/v3/lavalink"
	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

// NodeConfig describes how to reach one Lavalink node.
type NodeConfig struct {
	Name     string
	Host     string // host:port
	Secure   bool
	Password string
}

type Node struct {
	config NodeConfig
	client *http.Client
	log    *log.Entry
}

func NewNode(config NodeConfig) *Node {
	return &Node{
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log.WithFields(log.Fields{"module": "lavalink", "node": config.Name}),
	}
}

func (n *Node) Name() string {
	return n.config.Name
}

func (n *Node) restURL() string {
	scheme := "http"
	if n.config.Secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, n.config.Host)
}

// LoadTracks queries the node's loadtracks endpoint with the given identifier
// (a search query or source URL) and returns the decoded result.
func (n *Node) LoadTracks(ctx context.Context, identifier string) (*lava.LoadResult, error) {
	span := sentry.StartSpan(ctx, "lavalink.load_tracks")
	span.Description = "Load tracks from Lavalink node"
	span.SetTag("node", n.config.Name)
	defer span.Finish()

	endpoint := fmt.Sprintf("%s/v4/loadtracks?identifier=%s", n.restURL(), url.QueryEscape(identifier))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", n.config.Password)

	n.log.Tracef("loading tracks: %s", identifier)

	resp, err := n.client.Do(req)
	if err != nil {
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInternalError
		return nil, fmt.Errorf("lavalink request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("lavalink returned HTTP %d: %s", resp.StatusCode, body)
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInternalError
		return nil, err
	}

	var result lava.LoadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		span.Status = sentry.SpanStatusInternalError
		return nil, fmt.Errorf("failed to decode load result: %w", err)
	}

	span.Status = sentry.SpanStatusOK
	return &result, nil
}

// Search runs a search query against the node and returns the first
// candidate, or nil when the node found nothing.
func (n *Node) Search(ctx context.Context, query string) (*lava.Track, error) {
	result, err := n.LoadTracks(ctx, query)
	if err != nil {
		return nil, err
	}

	switch data := result.Data.(type) {
	case lava.Track:
		return &data, nil
	case lava.Search:
		if len(data) == 0 {
			return nil, nil
		}
		track := data[0]
		return &track, nil
	case lava.Playlist:
		if len(data.Tracks) == 0 {
			return nil, nil
		}
		track := data.Tracks[0]
		return &track, nil
	case lava.Exception:
		return nil, fmt.Errorf("lavalink load failed: %s", data.Message)
	default:
		return nil, nil
	}
}
