package spotify

import (
	"testing"

	"github.com/disgoorg/disgolink/v3/lavalink"
)

func sampleTrack(id, title string) lavalink.Track {
	uri := "https://example.com/" + id
	return lavalink.Track{
		Encoded: "enc-" + id,
		Info: lavalink.TrackInfo{
			Identifier: id,
			Title:      title,
			Author:     "Someone",
			Length:     210 * lavalink.Second,
			URI:        &uri,
			SourceName: "youtube",
		},
	}
}

func TestCacheGetMissing(t *testing.T) {
	cache := NewTrackCache()
	if _, ok := cache.Get("nope"); ok {
		t.Error("Get on empty cache reported a hit")
	}
}

func TestCachePutGet(t *testing.T) {
	cache := NewTrackCache()
	cache.Put("abc", sampleTrack("abc", "Song"))

	got, ok := cache.Get("abc")
	if !ok {
		t.Fatal("Get missed after Put")
	}
	if got.Encoded != "enc-abc" || got.Info.Title != "Song" {
		t.Errorf("got %q/%q, want enc-abc/Song", got.Encoded, got.Info.Title)
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d, want 1", cache.Len())
	}
}

func TestCachePutCopiesInput(t *testing.T) {
	cache := NewTrackCache()
	track := sampleTrack("abc", "Song")
	cache.Put("abc", track)

	*track.Info.URI = "mutated"
	track.Info.Title = "mutated"

	got, _ := cache.Get("abc")
	if *got.Info.URI == "mutated" {
		t.Error("cached entry shares the caller's URI pointer")
	}
	if got.Info.Title == "mutated" {
		t.Error("cached entry shares the caller's title")
	}
}

func TestCacheGetCopiesOutput(t *testing.T) {
	cache := NewTrackCache()
	cache.Put("abc", sampleTrack("abc", "Song"))

	first, _ := cache.Get("abc")
	*first.Info.URI = "mutated"

	second, _ := cache.Get("abc")
	if *second.Info.URI == "mutated" {
		t.Error("Get handed out aliased state")
	}
	if first.Info.URI == second.Info.URI {
		t.Error("successive Gets share a URI pointer")
	}
}

func TestCacheCopiesRawPayloads(t *testing.T) {
	cache := NewTrackCache()
	track := sampleTrack("abc", "Song")
	track.PluginInfo = lavalink.RawData(`{"origin":"node-a"}`)
	track.UserData = lavalink.RawData(`{"requester":"42"}`)
	cache.Put("abc", track)

	track.PluginInfo[2] = 'X'
	track.UserData[2] = 'X'

	got, _ := cache.Get("abc")
	if string(got.PluginInfo) != `{"origin":"node-a"}` {
		t.Errorf("PluginInfo = %s, want the stored payload untouched", got.PluginInfo)
	}
	if string(got.UserData) != `{"requester":"42"}` {
		t.Errorf("UserData = %s, want the stored payload untouched", got.UserData)
	}

	got.PluginInfo[2] = 'Y'
	again, _ := cache.Get("abc")
	if string(again.PluginInfo) != `{"origin":"node-a"}` {
		t.Error("Get handed out an aliased PluginInfo buffer")
	}
}

func TestCachePutOverwrites(t *testing.T) {
	cache := NewTrackCache()
	cache.Put("abc", sampleTrack("abc", "Old"))
	cache.Put("abc", sampleTrack("abc", "New"))

	got, _ := cache.Get("abc")
	if got.Info.Title != "New" {
		t.Errorf("title = %q, want New", got.Info.Title)
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d, want 1", cache.Len())
	}
}
