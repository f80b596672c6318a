// cmd/discord/main.go
package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/keshon/radio-domme/internal/cache"
	"github.com/keshon/radio-domme/internal/cache/rediscache"
	"github.com/keshon/radio-domme/internal/command"
	"github.com/keshon/radio-domme/internal/command/music"
	"github.com/keshon/radio-domme/internal/config"
	"github.com/keshon/radio-domme/internal/discord"
	"github.com/keshon/radio-domme/internal/logging"
	"github.com/keshon/radio-domme/internal/metrics"
	"github.com/keshon/radio-domme/internal/music/session"
	"github.com/keshon/radio-domme/internal/music/sources/youtube"
	"github.com/keshon/radio-domme/internal/music/stream"
	"github.com/keshon/radio-domme/internal/music/voice"
	"github.com/keshon/radio-domme/internal/radio"
	"github.com/keshon/radio-domme/pkg/cmd"
	"github.com/keshon/radio-domme/pkg/jobmgr"
)

const appName = "radio-domme"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logCloser, err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	defer logCloser.Close()

	lg := logging.For("main")
	lg.Info().Str("app", appName).Msg("Starting bot")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog, err := loadCatalog(cfg.StationsPath)
	if err != nil {
		lg.Fatal().Err(err).Msg("Failed to load station catalog")
	}
	lg.Info().Int("stations", catalog.Len()).Msg("Station catalog loaded")

	trackCache := newCache(ctx, cfg)
	defer trackCache.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, prometheus.DefaultGatherer); err != nil && !errors.Is(err, http.ErrServerClosed) {
				lg.Error().Err(err).Msg("Metrics listener failed")
			}
		}()
	}

	dg, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		lg.Fatal().Err(err).Msg("Failed to create Discord session")
	}

	yt := youtube.New(trackCache, cfg.CacheTTL)
	yt.OnCacheLookup = m.RecordCacheLookup

	jobsLog := logging.For("jobs")
	jobs := jobmgr.NewManager(func(status string) {
		jobsLog.Debug().Str("job", status).Msg("Job status")
	})
	defer jobs.Close()

	sessions := session.NewService(session.Deps{
		Transport: voice.NewDiscordTransport(dg),
		Streams: stream.NewSource(stream.SourceOptions{
			MaxRedirects:   cfg.StreamMaxRedirects,
			ConnectTimeout: cfg.StreamConnectTimeout,
		}),
		Media: yt,
		Decode: func(up io.ReadCloser) (io.ReadCloser, error) {
			return stream.NewDecoder(stream.DecoderOptions{Path: cfg.FFmpegPath}, up)
		},
		Jobs:     jobs,
		Notifier: discord.NewNotifier(dg),
		Metrics:  m,
	}, session.Options{
		Reconnect: session.ReconnectOptions{
			Delay:       cfg.ReconnectDelay,
			MaxAttempts: cfg.ReconnectMaxAttempts,
			StableAfter: cfg.ReconnectStableAfter,
		},
	})

	commands := cmd.NewRegistry()
	err = music.Register(commands, &music.Deps{
		Sessions:  sessions,
		Catalog:   catalog,
		Media:     yt,
		Voice:     discord.NewVoiceLocator(dg),
		Volume:    cfg.Volume,
		MaxVolume: cfg.MaxVolume,
	}, command.WithGuildOnly(), command.WithCommandLogger(m))
	if err != nil {
		lg.Fatal().Err(err).Msg("Failed to register commands")
	}

	bot := discord.New(dg, cfg, commands)

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		lg.Info().Str("signal", s.String()).Msg("Received signal, shutting down")
	case err := <-errCh:
		if err != nil {
			lg.Error().Err(err).Msg("Discord bot error")
		}
	}

	// Voice connections leave before the gateway closes.
	sessions.Close()
	cancel()
	<-errCh
	lg.Info().Msg("Discord bot exited cleanly")
}

func loadCatalog(path string) (*radio.Catalog, error) {
	if path == "" {
		return radio.Default()
	}
	return radio.Load(path)
}

// newCache prefers Redis when configured and reachable, and falls back to memory.
func newCache(ctx context.Context, cfg *config.Config) cache.Cache {
	lg := logging.For("cache")
	if cfg.RedisAddr == "" {
		return cache.NewMemoryCache()
	}
	rc := rediscache.CreateCache(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, appName+":")
	if err := rc.Ping(ctx); err != nil {
		lg.Warn().Str("addr", cfg.RedisAddr).Err(err).Msg("Redis unreachable, using in-memory cache")
		rc.Close()
		return cache.NewMemoryCache()
	}
	lg.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis cache")
	return rc
}
