// /internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config is the process configuration, read from the environment.
type Config struct {
	DiscordToken          string   `env:"DISCORD_TOKEN,required"`
	DiscordGuildBlacklist []string `env:"DISCORD_GUILD_BLACKLIST" envSeparator:","`
	InitSlashCommands     bool     `env:"INIT_SLASH_COMMANDS" envDefault:"true"`

	StationsPath string `env:"STATIONS_PATH"`

	Volume    int `env:"VOLUME" envDefault:"80"`
	MaxVolume int `env:"MAX_VOLUME" envDefault:"100"`

	ReconnectDelay       time.Duration `env:"RECONNECT_DELAY" envDefault:"5s"`
	ReconnectMaxAttempts int           `env:"RECONNECT_MAX_ATTEMPTS" envDefault:"10"`
	ReconnectStableAfter time.Duration `env:"RECONNECT_STABLE_AFTER" envDefault:"1m"`

	StreamMaxRedirects   int           `env:"STREAM_MAX_REDIRECTS" envDefault:"1"`
	StreamConnectTimeout time.Duration `env:"STREAM_CONNECT_TIMEOUT" envDefault:"10s"`
	FFmpegPath           string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"1h"`

	MetricsAddr string `env:"METRICS_ADDR"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Str("module", "config").Msg("No .env file found, falling back to system environment variables")
	}
	return Parse(env.Options{})
}

// Parse builds a Config with the given env options and validates it.
// Tests pass Environment to avoid touching the real process environment.
func Parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges that env tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxVolume < 1 || c.MaxVolume > 100 {
		errs = append(errs, fmt.Errorf("MAX_VOLUME must be between 1 and 100, got %d", c.MaxVolume))
	}
	if c.Volume < 0 || c.Volume > c.MaxVolume {
		errs = append(errs, fmt.Errorf("VOLUME must be between 0 and MAX_VOLUME (%d), got %d", c.MaxVolume, c.Volume))
	}
	if c.StreamMaxRedirects < 0 {
		errs = append(errs, fmt.Errorf("STREAM_MAX_REDIRECTS cannot be negative, got %d", c.StreamMaxRedirects))
	}
	if c.ReconnectMaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("RECONNECT_MAX_ATTEMPTS cannot be negative, got %d", c.ReconnectMaxAttempts))
	}
	if c.ReconnectDelay <= 0 {
		errs = append(errs, fmt.Errorf("RECONNECT_DELAY must be positive, got %s", c.ReconnectDelay))
	}
	return errors.Join(errs...)
}

// Blacklisted reports whether guildID is in DISCORD_GUILD_BLACKLIST.
func (c *Config) Blacklisted(guildID string) bool {
	for _, id := range c.DiscordGuildBlacklist {
		if id == guildID {
			return true
		}
	}
	return false
}
