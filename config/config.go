package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// FetchStrategy selects how Spotify metadata is retrieved.
type FetchStrategy string

const (
	StrategyAPI    FetchStrategy = "API"
	StrategyScrape FetchStrategy = "SCRAPE"
)

// maxPlaylistLoadLimit caps the number of pages fetched per collection load.
const maxPlaylistLoadLimit = 50

type Config struct {
	Spotify  SpotifyConfig
	Lavalink LavalinkConfig
	Options  Options
}

type SpotifyConfig struct {
	ClientID     string `env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`
}

type LavalinkConfig struct {
	Name     string `env:"LAVALINK_NAME" envDefault:"main"`
	Host     string `env:"LAVALINK_HOST" envDefault:"localhost:2333"`
	Secure   bool   `env:"LAVALINK_SECURE" envDefault:"false"`
	Password string `env:"LAVALINK_PASSWORD"`
}

type Options struct {
	FetchStrategy      FetchStrategy `env:"FETCH_STRATEGY" envDefault:"API"`
	PlaylistLoadLimit  int           `env:"PLAYLIST_LOAD_LIMIT" envDefault:"6"`
	AutoResolve        bool          `env:"AUTO_RESOLVE" envDefault:"true"`
	UseSpotifyMetadata bool          `env:"USE_SPOTIFY_METADATA" envDefault:"true"`
	AudioOnlyResults   bool          `env:"AUDIO_ONLY_RESULTS" envDefault:"false"`
	Port               string        `env:"PORT" envDefault:"8080"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the configuration from the environment. The returned value is
// never modified afterwards; components receive it by value at construction.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	switch FetchStrategy(strings.ToUpper(string(c.Options.FetchStrategy))) {
	case StrategyAPI:
		c.Options.FetchStrategy = StrategyAPI
		if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
			return fmt.Errorf("fetch strategy %s requires SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET", StrategyAPI)
		}
	case StrategyScrape:
		c.Options.FetchStrategy = StrategyScrape
	default:
		return fmt.Errorf("unknown fetch strategy %q", c.Options.FetchStrategy)
	}

	if c.Options.PlaylistLoadLimit < 0 {
		c.Options.PlaylistLoadLimit = 0
	}
	if c.Options.PlaylistLoadLimit > maxPlaylistLoadLimit {
		c.Options.PlaylistLoadLimit = maxPlaylistLoadLimit
	}

	return nil
}
