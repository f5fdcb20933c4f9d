package main

import (
	"context"
	"errors"
	"net/http"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"spotlink/auth"
	"spotlink/config"
	"spotlink/lavalink"
	"spotlink/sentry"
	"spotlink/spotify"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warnf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	setupLogging(cfg.Options.LogLevel)
	sentry.Init()

	if err := run(context.Background(), cfg); err != nil {
		log.Fatal(err)
	}
}

func setupLogging(level string) {
	log.SetFormatter(&nested.Formatter{
		HideKeys:    true,
		FieldsOrder: []string{"module", "function"},
	})

	parsed, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("unknown log level %q, using info", level)
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
}

func run(ctx context.Context, cfg config.Config) error {
	registry := lavalink.NewRegistry()
	registry.AddNode(lavalink.NodeConfig{
		Name:     cfg.Lavalink.Name,
		Host:     cfg.Lavalink.Host,
		Secure:   cfg.Lavalink.Secure,
		Password: cfg.Lavalink.Password,
	})

	var tokens spotify.TokenProvider
	if cfg.Options.FetchStrategy == config.StrategyAPI {
		provider := auth.NewClientCredentials(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret)
		if err := provider.Start(ctx); err != nil {
			if errors.Is(err, auth.ErrBadCredentials) {
				return err
			}
			// Transient failure; the provider keeps retrying in the
			// background and loads fail cleanly until a token arrives.
			log.WithError(err).Warn("spotify token not yet available")
		}
		tokens = provider
	}

	resolver := spotify.NewResolver(spotify.Options{
		UseScraper:         cfg.Options.FetchStrategy == config.StrategyScrape,
		PlaylistLoadLimit:  cfg.Options.PlaylistLoadLimit,
		AutoResolve:        cfg.Options.AutoResolve,
		UseSpotifyMetadata: cfg.Options.UseSpotifyMetadata,
		AudioOnlyResults:   cfg.Options.AudioOnlyResults,
	}, tokens, registry)

	router := gin.Default()
	router.Use(sentry.GetSentryGin())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ok":     true,
			"nodes":  registry.Len(),
			"cached": resolver.CacheSize(),
		})
	})

	router.GET("/v1/loadtracks", func(c *gin.Context) {
		identifier := c.Query("identifier")

		kind, id, ok := spotify.ParseURL(identifier)
		if !ok {
			c.JSON(http.StatusOK, spotify.NoMatchesResponse())
			return
		}

		resp, err := resolver.Load(c.Request.Context(), kind, id)
		if err != nil {
			log.WithFields(log.Fields{
				"module":     "main",
				"identifier": identifier,
			}).WithError(err).Error("load failed")
			sentry.ReportError(err)
			c.JSON(http.StatusOK, spotify.FailureResponse(err))
			return
		}
		c.JSON(http.StatusOK, resp)
	})

	log.Infof("starting server on :%s", cfg.Options.Port)
	return http.ListenAndServe(":"+cfg.Options.Port, router)
}
