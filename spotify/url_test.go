package spotify

import "testing"

func TestParseURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind Kind
		wantID   string
		wantOK   bool
	}{
		{
			name:     "track url",
			input:    "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC",
			wantKind: KindTrack,
			wantID:   "4uLU6hMCjMI75M1A2tKUQC",
			wantOK:   true,
		},
		{
			name:     "album url with query",
			input:    "https://open.spotify.com/album/6QaVfG1pHYl1z15ZxkvVDW?si=abc123",
			wantKind: KindAlbum,
			wantID:   "6QaVfG1pHYl1z15ZxkvVDW",
			wantOK:   true,
		},
		{
			name:     "intl prefixed url",
			input:    "https://open.spotify.com/intl-pt/track/4uLU6hMCjMI75M1A2tKUQC",
			wantKind: KindTrack,
			wantID:   "4uLU6hMCjMI75M1A2tKUQC",
			wantOK:   true,
		},
		{
			name:     "legacy user playlist url",
			input:    "https://open.spotify.com/user/spotify_user/playlist/37i9dQZF1DXcBWIGoYBM5M",
			wantKind: KindPlaylist,
			wantID:   "37i9dQZF1DXcBWIGoYBM5M",
			wantOK:   true,
		},
		{
			name:     "plain http",
			input:    "http://open.spotify.com/artist/0OdUWJ0sBjDrqHygGUXeCF",
			wantKind: KindArtist,
			wantID:   "0OdUWJ0sBjDrqHygGUXeCF",
			wantOK:   true,
		},
		{
			name:     "episode url",
			input:    "https://open.spotify.com/episode/512ojhOuo1ktJprKbVcKyQ",
			wantKind: KindEpisode,
			wantID:   "512ojhOuo1ktJprKbVcKyQ",
			wantOK:   true,
		},
		{
			name:     "track uri",
			input:    "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
			wantKind: KindTrack,
			wantID:   "4uLU6hMCjMI75M1A2tKUQC",
			wantOK:   true,
		},
		{
			name:     "show uri",
			input:    "spotify:show:4rOoJ6Egrf8K2IrywzwOMk",
			wantKind: KindShow,
			wantID:   "4rOoJ6Egrf8K2IrywzwOMk",
			wantOK:   true,
		},
		{
			name:     "surrounding whitespace",
			input:    "  spotify:track:4uLU6hMCjMI75M1A2tKUQC  ",
			wantKind: KindTrack,
			wantID:   "4uLU6hMCjMI75M1A2tKUQC",
			wantOK:   true,
		},
		{name: "unknown kind", input: "https://open.spotify.com/concert/4uLU6hMCjMI75M1A2tKUQC"},
		{name: "wrong host", input: "https://music.example.com/track/4uLU6hMCjMI75M1A2tKUQC"},
		{name: "bare search query", input: "never gonna give you up"},
		{name: "empty", input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, id, ok := ParseURL(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseURL(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if kind != tt.wantKind || id != tt.wantID {
				t.Errorf("ParseURL(%q) = (%q, %q), want (%q, %q)", tt.input, kind, id, tt.wantKind, tt.wantID)
			}
		})
	}
}
