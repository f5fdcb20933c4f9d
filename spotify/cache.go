package spotify

import (
	"sync"

	"github.com/disgoorg/disgolink/v3/lavalink"
)

// TrackCache maps Spotify track identifiers to previously resolved tracks.
// It is unbounded and lives for the process; entries are snapshots that are
// deep-copied on every boundary crossing, so holders never alias cache state.
type TrackCache struct {
	mu     sync.RWMutex
	tracks map[string]lavalink.Track
}

func NewTrackCache() *TrackCache {
	return &TrackCache{tracks: make(map[string]lavalink.Track)}
}

// Get returns a deep copy of the cached track for id.
func (c *TrackCache) Get(id string) (lavalink.Track, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	track, ok := c.tracks[id]
	if !ok {
		return lavalink.Track{}, false
	}
	return cloneTrack(track), true
}

// Put stores a deep copy of track under id.
func (c *TrackCache) Put(id string, track lavalink.Track) {
	c.mu.Lock()
	c.tracks[id] = cloneTrack(track)
	c.mu.Unlock()
}

// Len reports the number of cached tracks.
func (c *TrackCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tracks)
}

// cloneTrack copies a track structurally: pointer fields and raw JSON buffers
// are re-allocated so mutations on one copy can never reach another.
func cloneTrack(t lavalink.Track) lavalink.Track {
	out := t
	out.Info.URI = cloneStringPtr(t.Info.URI)
	out.Info.ArtworkURL = cloneStringPtr(t.Info.ArtworkURL)
	out.Info.ISRC = cloneStringPtr(t.Info.ISRC)
	out.PluginInfo = cloneRaw(t.PluginInfo)
	out.UserData = cloneRaw(t.UserData)
	return out
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneRaw(raw lavalink.RawData) lavalink.RawData {
	if raw == nil {
		return nil
	}
	out := make(lavalink.RawData, len(raw))
	copy(out, raw)
	return out
}
