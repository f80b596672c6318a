package config

import (
	"strings"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
)

func parse(t *testing.T, vars map[string]string) (*Config, error) {
	t.Helper()
	return Parse(env.Options{Environment: vars})
}

func TestParseDefaults(t *testing.T) {
	cfg, err := parse(t, map[string]string{"DISCORD_TOKEN": "tok"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Volume != 80 || cfg.MaxVolume != 100 {
		t.Errorf("unexpected volume defaults %d/%d", cfg.Volume, cfg.MaxVolume)
	}
	if cfg.ReconnectDelay != 5*time.Second {
		t.Errorf("expected 5s reconnect delay, got %s", cfg.ReconnectDelay)
	}
	if cfg.ReconnectMaxAttempts != 10 {
		t.Errorf("expected 10 attempts, got %d", cfg.ReconnectMaxAttempts)
	}
	if cfg.StreamMaxRedirects != 1 {
		t.Errorf("expected 1 redirect, got %d", cfg.StreamMaxRedirects)
	}
	if !cfg.InitSlashCommands {
		t.Error("slash command init should default to true")
	}
	if cfg.FFmpegPath != "ffmpeg" {
		t.Errorf("unexpected ffmpeg path %q", cfg.FFmpegPath)
	}
}

func TestParseRequiresToken(t *testing.T) {
	if _, err := parse(t, map[string]string{}); err == nil {
		t.Fatal("expected error without DISCORD_TOKEN")
	}
}

func TestValidateRanges(t *testing.T) {
	cases := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"volume above max", map[string]string{"VOLUME": "90", "MAX_VOLUME": "50"}, "VOLUME"},
		{"max too high", map[string]string{"MAX_VOLUME": "150"}, "MAX_VOLUME"},
		{"negative redirects", map[string]string{"STREAM_MAX_REDIRECTS": "-1"}, "STREAM_MAX_REDIRECTS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.vars["DISCORD_TOKEN"] = "tok"
			_, err := parse(t, tc.vars)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}

func TestBlacklist(t *testing.T) {
	cfg, err := parse(t, map[string]string{
		"DISCORD_TOKEN":           "tok",
		"DISCORD_GUILD_BLACKLIST": "1,2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Blacklisted("2") || cfg.Blacklisted("3") {
		t.Errorf("unexpected blacklist result for %v", cfg.DiscordGuildBlacklist)
	}
}
